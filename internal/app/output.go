package app

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/specialistvlad/campaigngrid/internal/dispatch"
	"github.com/specialistvlad/campaigngrid/internal/status"
	"github.com/specialistvlad/campaigngrid/internal/tree"
)

// printPlan lists the tree in build order, one node per line, followed by
// how many combinations each skip rule left out.
func (a *App) printPlan(tr *tree.Tree) error {
	w := a.outW
	err := tr.Walk(func(n *tree.Node, depth int) error {
		indent := strings.Repeat("  ", depth)
		var err error
		if n.IsLeaf() {
			_, err = fmt.Fprintf(w, "%s%s -> %s\n", indent, n.Name, n.OutputPath)
		} else {
			_, err = fmt.Fprintf(w, "%s%s (%s)\n", indent, n.Name, n.Title)
		}
		return err
	})
	if err != nil {
		return err
	}

	skipped := tr.Skipped()
	rules := make([]string, 0, len(skipped))
	for name := range skipped {
		rules = append(rules, name)
	}
	sort.Strings(rules)
	for _, name := range rules {
		if _, err := fmt.Fprintf(w, "skipped %s: %d\n", name, skipped[name]); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "%d leaves in %d nodes\n", len(tr.Leaves()), tr.Len())
	return err
}

func (a *App) printSummary(sum status.Summary) error {
	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tCOMPLETE\tTOTAL")
	for _, st := range sum.Stages {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", st.Stage, st.Complete, st.Total)
	}
	fmt.Fprintf(tw, "all\t%d\t%d\n", sum.Complete, sum.Total)
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(a.outW, "%.1f%% complete\n", 100*sum.Fraction())
	return err
}

func (a *App) printReport(r *dispatch.Report) error {
	return writeReport(a.outW, r)
}

func writeReport(w io.Writer, r *dispatch.Report) error {
	counts := r.Counts()
	kinds := []dispatch.OutcomeKind{dispatch.Submitted, dispatch.Skipped, dispatch.Deferred, dispatch.Recorded, dispatch.Failed, dispatch.Aborted}
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k.String()]))
	}
	if _, err := fmt.Fprintf(w, "pass %s: %s\n", r.PassID, strings.Join(parts, " ")); err != nil {
		return err
	}
	for _, f := range r.Failures() {
		if _, err := fmt.Fprintf(w, "failed %s: %s\n", f.Leaf, f.Reason); err != nil {
			return err
		}
	}
	if r.Path != "" {
		if _, err := fmt.Fprintf(w, "report written to %s\n", r.Path); err != nil {
			return err
		}
	}
	return nil
}

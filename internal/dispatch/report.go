package dispatch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Failure is one leaf that could not be submitted.
type Failure struct {
	Leaf   string
	Coord  string
	Reason string
}

// Report summarises one dispatch pass.
type Report struct {
	PassID   string
	Campaign string
	Backend  string
	Started  time.Time
	Finished time.Time
	// Path is where the report was written, empty if it was not.
	Path string

	mu       sync.Mutex
	counts   map[OutcomeKind]int
	failures []Failure
}

func newReport(passID, campaign, backend string, started time.Time) *Report {
	return &Report{
		PassID:   passID,
		Campaign: campaign,
		Backend:  backend,
		Started:  started,
		counts:   make(map[OutcomeKind]int),
	}
}

func (r *Report) add(leafName, coord string, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[o.Kind]++
	if o.Kind == Failed {
		r.failures = append(r.failures, Failure{Leaf: leafName, Coord: coord, Reason: o.Reason})
	}
}

// Count returns how many leaves ended the pass with outcome k.
func (r *Report) Count(k OutcomeKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[k]
}

// Counts returns the outcome counts keyed by outcome name.
func (r *Report) Counts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.counts))
	for k, v := range r.counts {
		out[k.String()] = v
	}
	return out
}

// Failures returns the failed leaves sorted by name.
func (r *Report) Failures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Failure, len(r.failures))
	copy(out, r.failures)
	sort.Slice(out, func(i, j int) bool { return out[i].Leaf < out[j].Leaf })
	return out
}

// HCL renders the report as an HCL document.
func (r *Report) HCL() []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	block := body.AppendNewBlock("dispatch", []string{r.PassID})
	b := block.Body()
	b.SetAttributeValue("campaign", cty.StringVal(r.Campaign))
	b.SetAttributeValue("backend", cty.StringVal(r.Backend))
	b.SetAttributeValue("started", cty.StringVal(r.Started.UTC().Format(time.RFC3339)))
	b.SetAttributeValue("finished", cty.StringVal(r.Finished.UTC().Format(time.RFC3339)))

	counts := r.Counts()
	names := make([]string, 0, len(counts))
	for k := range counts {
		names = append(names, k)
	}
	sort.Strings(names)
	vals := make(map[string]cty.Value, len(counts))
	for _, k := range names {
		vals[k] = cty.NumberIntVal(int64(counts[k]))
	}
	if len(vals) > 0 {
		b.SetAttributeValue("counts", cty.ObjectVal(vals))
	}

	for _, fl := range r.Failures() {
		body.AppendNewline()
		fb := body.AppendNewBlock("failure", []string{fl.Leaf}).Body()
		fb.SetAttributeValue("coord", cty.StringVal(fl.Coord))
		fb.SetAttributeValue("reason", cty.StringVal(fl.Reason))
	}
	return f.Bytes()
}

// WriteHCL writes the report to path and remembers it in Path.
func (r *Report) WriteHCL(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, r.HCL(), 0o644); err != nil {
		return fmt.Errorf("failed to write dispatch report: %w", err)
	}
	r.Path = path
	return nil
}

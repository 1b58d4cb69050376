// Package dispatch turns leaves of a task tree into batch submissions.
//
// A pass prepares the backend once, then walks the tree stage by stage and
// submits every incomplete leaf through a bounded worker pool. Submissions
// that already went out are never cancelled: when a pass aborts, the leaves
// it did not reach stay NotStarted and the next pass picks them up.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/campaigngrid/internal/coords"
	"github.com/specialistvlad/campaigngrid/internal/ctxlog"
	"github.com/specialistvlad/campaigngrid/internal/monitor"
	"github.com/specialistvlad/campaigngrid/internal/paths"
	"github.com/specialistvlad/campaigngrid/internal/status"
	"github.com/specialistvlad/campaigngrid/internal/tree"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrPlanning marks problems that would fail every leaf identically,
	// such as a missing run template or environment variable.
	ErrPlanning = errors.New("planning error")
	// ErrSubmission marks a submission command that did not succeed.
	ErrSubmission = errors.New("submission failed")
	// ErrTimeout marks a submission command that did not return in time.
	ErrTimeout = errors.New("submission timed out")
)

// Defaults for Options.
const (
	DefaultWorkers       = 8
	DefaultSubmitTimeout = 2 * time.Minute
)

// OutcomeKind is what happened to one leaf in a pass.
type OutcomeKind int

const (
	Submitted OutcomeKind = iota
	Skipped
	Deferred
	Recorded
	Failed
	Aborted
)

func (k OutcomeKind) String() string {
	switch k {
	case Submitted:
		return "submitted"
	case Skipped:
		return "skipped"
	case Deferred:
		return "deferred"
	case Recorded:
		return "recorded"
	case Failed:
		return "failed"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// Outcome of dispatching one leaf.
type Outcome struct {
	Kind    OutcomeKind
	Reason  string
	Command string
	// Err is set for Failed outcomes.
	Err error
}

// Options tune a dispatch pass.
type Options struct {
	Workers       int
	SubmitTimeout time.Duration
	// Advisory collects per-leaf failures instead of aborting the pass.
	Advisory bool
	// DryRun stages every leaf but records the commands instead of running
	// them. It implies Advisory.
	DryRun bool
	// FailFastOnTimeout makes a timed out submission abort the pass like
	// any other failure.
	FailFastOnTimeout bool
	// RequireSuccessMarker is passed to the tracker for every leaf.
	RequireSuccessMarker bool

	Runner  Runner
	Monitor monitor.Publisher
}

// Dispatcher submits leaves through one backend. Run is not reentrant.
type Dispatcher struct {
	backend  Backend
	tracker  *status.Tracker
	namer    paths.Namer
	opts     Options
	recorder *Recorder
	passID   string
}

// New creates a dispatcher. Missing options fall back to their defaults.
func New(backend Backend, tracker *status.Tracker, namer paths.Namer, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = DefaultSubmitTimeout
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.Monitor == nil {
		opts.Monitor = monitor.Nop{}
	}
	if tracker == nil {
		tracker = &status.Tracker{}
	}
	return &Dispatcher{
		backend:  backend,
		tracker:  tracker,
		namer:    namer,
		opts:     opts,
		recorder: NewRecorder(namer.RecordPath(backend.Name())),
		passID:   uuid.NewString(),
	}
}

// PassID identifies the current pass in reports and monitor events.
func (d *Dispatcher) PassID() string { return d.passID }

// Recorder returns the record file of commands that were not run.
func (d *Dispatcher) Recorder() *Recorder { return d.recorder }

// Dispatch runs the state machine of one leaf: skip when complete, defer
// while a producer has not succeeded, otherwise stage and submit it.
func (d *Dispatcher) Dispatch(ctx context.Context, leaf *tree.Node) Outcome {
	o := d.dispatch(ctx, leaf)
	d.publish(ctx, leaf, o)
	return o
}

func (d *Dispatcher) dispatch(ctx context.Context, leaf *tree.Node) Outcome {
	logger := ctxlog.FromContext(ctx).With("leaf", leaf.Name)

	if v := d.tracker.Inspect(leaf, d.opts.RequireSuccessMarker); v.Complete {
		leaf.SetStatus(tree.Succeeded, v.Reason)
		logger.Debug("Leaf already complete.", "reason", v.Reason)
		return Outcome{Kind: Skipped, Reason: "already complete: " + v.Reason}
	}
	for _, dep := range leaf.Deps {
		if !d.dependencyReady(dep) {
			reason := "waiting for " + dep.Name
			leaf.SetStatus(tree.NotStarted, reason)
			logger.Debug("Leaf deferred.", "dependency", dep.Name, "dependency_status", dep.Status())
			return Outcome{Kind: Deferred, Reason: reason}
		}
	}

	job, err := d.backend.Stage(ctx, leaf)
	if err != nil {
		return d.fail(leaf, fmt.Errorf("%w: staging: %w", ErrSubmission, err))
	}
	if job.Cleanup != nil {
		defer func() {
			if err := job.Cleanup(); err != nil {
				logger.Warn("Failed to clean up staged files.", "error", err)
			}
		}()
	}
	line := job.Command.String()

	if d.opts.DryRun || job.RecordOnly {
		if err := d.recorder.Record(leaf, job.Command); err != nil {
			return d.fail(leaf, err)
		}
		leaf.SetStatus(tree.NotStarted, "command recorded")
		logger.Debug("Submission recorded.", "command", line)
		return Outcome{Kind: Recorded, Reason: "command recorded in " + d.recorder.Path(), Command: line}
	}

	runCtx, cancel := context.WithTimeout(ctx, d.opts.SubmitTimeout)
	defer cancel()
	out, err := d.opts.Runner.Run(runCtx, job.Command)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			err = fmt.Errorf("submission interrupted: %w", ctx.Err())
		case errors.Is(err, context.DeadlineExceeded):
			err = fmt.Errorf("%w after %s", ErrTimeout, d.opts.SubmitTimeout)
		case !errors.Is(err, ErrSubmission):
			err = fmt.Errorf("%w: %w", ErrSubmission, err)
		}
		o := d.fail(leaf, err)
		o.Command = line
		return o
	}

	leaf.SetStatus(tree.Submitted, firstLine(string(out)))
	logger.Debug("Leaf submitted.", "command", line)
	return Outcome{Kind: Submitted, Reason: firstLine(string(out)), Command: line}
}

// dependencyReady reports whether a consumer can read the output of dep.
// Under ForceRetry a producer is resubmitted although its previous output
// is complete; that output still satisfies its consumers.
func (d *Dispatcher) dependencyReady(dep *tree.Node) bool {
	if dep.Status() == tree.Succeeded {
		return true
	}
	return d.tracker.InspectArtifacts(dep, d.opts.RequireSuccessMarker).Complete
}

func (d *Dispatcher) abort(leaf *tree.Node, report *Report) {
	leaf.SetStatus(tree.NotStarted, "pass aborted")
	report.add(leaf.Name, leaf.Coord.String(), Outcome{Kind: Aborted, Reason: "pass aborted"})
}

func (d *Dispatcher) fail(leaf *tree.Node, err error) Outcome {
	leaf.SetStatus(tree.Failed, err.Error())
	return Outcome{Kind: Failed, Reason: err.Error(), Err: err}
}

// fatal decides whether a failed leaf aborts the pass.
func (d *Dispatcher) fatal(o Outcome) bool {
	if o.Kind != Failed || d.opts.Advisory || d.opts.DryRun {
		return false
	}
	if errors.Is(o.Err, ErrTimeout) {
		return d.opts.FailFastOnTimeout
	}
	return true
}

func (d *Dispatcher) publish(ctx context.Context, leaf *tree.Node, o Outcome) {
	d.opts.Monitor.Publish(ctx, monitor.Event{
		Name:     monitor.LeafStatusEvent,
		Pass:     d.passID,
		Campaign: d.namer.Campaign,
		Leaf:     leaf.Name,
		Stage:    leaf.Stage().String(),
		Outcome:  o.Kind.String(),
		Reason:   o.Reason,
		Time:     time.Now(),
	})
}

// stageBatches groups the leaves by stage, keeping build order within and
// across stages.
func stageBatches(leaves []*tree.Node) [][]*tree.Node {
	var batches [][]*tree.Node
	index := make(map[coords.Stage]int)
	for _, l := range leaves {
		i, ok := index[l.Stage()]
		if !ok {
			i = len(batches)
			index[l.Stage()] = i
			batches = append(batches, nil)
		}
		batches[i] = append(batches[i], l)
	}
	return batches
}

// Run dispatches every leaf of tr. The returned report is nil only when the
// backend could not be prepared. In advisory or dry-run mode failures are
// listed in the report and the error is nil.
func (d *Dispatcher) Run(ctx context.Context, tr *tree.Tree) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	d.passID = uuid.NewString()
	leaves := tr.Leaves()

	logger.Info("🚀 Starting dispatch pass...", "pass", d.passID, "backend", d.backend.Name(), "leaves", len(leaves))

	if err := d.backend.Prepare(ctx, leaves); err != nil {
		return nil, fmt.Errorf("%w: %s backend: %w", ErrPlanning, d.backend.Name(), err)
	}

	report := newReport(d.passID, d.namer.Campaign, d.backend.Name(), time.Now())
	launched := make(map[*tree.Node]bool, len(leaves))
	var passErr error

	for _, batch := range stageBatches(leaves) {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(d.opts.Workers)
		for _, leaf := range batch {
			if gCtx.Err() != nil {
				break
			}
			launched[leaf] = true
			g.Go(func() error {
				if gCtx.Err() != nil {
					d.abort(leaf, report)
					return nil
				}
				// ctx, not gCtx: in-flight submissions are never cancelled.
				o := d.Dispatch(ctx, leaf)
				report.add(leaf.Name, leaf.Coord.String(), o)
				if d.fatal(o) {
					return fmt.Errorf("%s: %w", leaf.Coord, o.Err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			passErr = err
			break
		}
		if err := ctx.Err(); err != nil {
			passErr = err
			break
		}
	}

	for _, leaf := range leaves {
		if !launched[leaf] {
			d.abort(leaf, report)
		}
	}
	report.Finished = time.Now()

	var writeErr error
	if err := report.WriteHCL(d.namer.ReportPath(d.passID)); err != nil {
		logger.Error("Failed to write dispatch report.", "error", err)
		writeErr = err
	}

	counts := report.Counts()
	d.opts.Monitor.Publish(ctx, monitor.Event{
		Name:     monitor.PassFinishedEvent,
		Pass:     d.passID,
		Campaign: d.namer.Campaign,
		Counts:   counts,
		Time:     report.Finished,
	})

	args := []any{"pass", d.passID, "report", report.Path}
	for _, k := range []OutcomeKind{Submitted, Skipped, Deferred, Recorded, Failed, Aborted} {
		args = append(args, k.String(), counts[k.String()])
	}
	logger.Info("🏁 Dispatch pass finished.", args...)

	if passErr != nil {
		passErr = fmt.Errorf("dispatch pass aborted: %w", passErr)
	}
	return report, errors.Join(passErr, writeErr)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

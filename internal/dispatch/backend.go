package dispatch

import (
	"context"

	"github.com/specialistvlad/campaigngrid/internal/tree"
)

// Backend turns leaves into submission commands for one batch system.
type Backend interface {
	// Name identifies the backend in logs, reports and the record file.
	Name() string
	// Prepare runs once per pass before any submission. An error aborts the
	// pass with nothing submitted.
	Prepare(ctx context.Context, leaves []*tree.Node) error
	// Stage writes whatever the leaf needs on disk and returns the command
	// that submits it.
	Stage(ctx context.Context, leaf *tree.Node) (*Job, error)
}

// Job is a staged leaf ready for submission.
type Job struct {
	Leaf    *tree.Node
	Command Cmd
	// RecordOnly asks the dispatcher to record the command instead of
	// running it.
	RecordOnly bool
	// Cleanup, when set, runs after the submission attempt.
	Cleanup func() error
}

func placeholdersFor(leaf *tree.Node, tempOutput string) Placeholders {
	c := leaf.Coord
	return Placeholders{
		InputFiles:      leaf.Inputs,
		OutputFile:      tempOutput,
		SubJob:          c.SubJob,
		SubJobs:         max(c.SubJobs, 1),
		Sample:          c.Sample,
		Systematic:      c.Systematic,
		InputSystematic: leaf.InputSystematic,
		JetBin:          c.JetBin,
		Channel:         c.Channel.String(),
		Stage:           c.Stage.String(),
		XSection:        leaf.XSection,
	}
}

// Package monitor publishes dispatch progress to external dashboards.
package monitor

import (
	"context"
	"time"
)

// Event names emitted by the dispatcher.
const (
	LeafStatusEvent   = "leaf_status"
	PassFinishedEvent = "pass_finished"
)

// Event is one progress notification.
type Event struct {
	Name     string
	Pass     string
	Campaign string
	Leaf     string
	Stage    string
	Outcome  string
	Reason   string
	Counts   map[string]int
	Time     time.Time
}

// Payload renders the event as the plain map sent over the wire.
func (e Event) Payload() map[string]any {
	p := map[string]any{
		"pass":     e.Pass,
		"campaign": e.Campaign,
		"time":     e.Time.UTC().Format(time.RFC3339),
	}
	if e.Leaf != "" {
		p["leaf"] = e.Leaf
		p["stage"] = e.Stage
		p["outcome"] = e.Outcome
	}
	if e.Reason != "" {
		p["reason"] = e.Reason
	}
	if len(e.Counts) > 0 {
		counts := make(map[string]any, len(e.Counts))
		for k, v := range e.Counts {
			counts[k] = v
		}
		p["counts"] = counts
	}
	return p
}

// Publisher receives progress events. Publishing never fails the pass:
// implementations log and drop what they cannot deliver.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
func (Nop) Close() error                   { return nil }

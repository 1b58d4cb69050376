package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/campaigngrid/internal/coords"
	"github.com/specialistvlad/campaigngrid/internal/samples"
	"github.com/specialistvlad/campaigngrid/internal/systematics"
	"github.com/specialistvlad/campaigngrid/internal/tree"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks the model without touching the file system. All problems
// are reported at once.
func (m *Model) Validate() error {
	if m.Campaign == nil {
		return fmt.Errorf("%w: no campaign block found", ErrInvalid)
	}
	c := m.Campaign
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Name == "" {
		add("campaign name is required")
	}
	if c.OutputDir == "" {
		add("output_dir is required")
	}
	if c.JobHome == "" {
		add("job_home is required")
	}
	if !c.Stages.Any() {
		add("no build stage is enabled")
	}
	for _, j := range c.JetBins {
		if !slices.Contains(tree.JetBins, j) {
			add("unknown jet bin %q, known bins are %s", j, strings.Join(tree.JetBins, ", "))
		}
	}
	for _, ch := range c.Channels {
		if _, err := coords.ParseChannel(ch); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := systematics.ParseGroups(c.Systematics.Groups); err != nil {
		errs = append(errs, err)
	}
	for name, n := range c.SubJobs {
		if _, err := samples.ParseCategory(name); err != nil {
			errs = append(errs, fmt.Errorf("subjobs: %w", err))
		}
		if n < 1 {
			add("subjobs: %s must be at least 1, got %d", name, n)
		}
	}
	if c.MaxEventsPerSubJob < 0 {
		add("max_events_per_subjob must not be negative")
	}
	if c.Workers < 0 {
		add("workers must not be negative")
	}
	if c.SubmitTimeout < 0 {
		add("submit_timeout must not be negative")
	}

	switch c.Backend {
	case BackendLocal:
		if c.Local == nil {
			add("backend %q needs a local block", c.Backend)
		} else if c.Local.RunTemplate == "" {
			add("local: run_template is required")
		}
	case BackendGrid:
		if c.Grid == nil {
			add("backend %q needs a grid block", c.Backend)
		} else {
			if c.Grid.Home == "" {
				add("grid: home is required")
			}
			if c.Grid.User == "" {
				add("grid: user is required")
			}
			if c.Grid.RunTemplate == "" {
				add("grid: run_template is required")
			}
		}
	default:
		add("unknown backend %q, expected %q or %q", c.Backend, BackendLocal, BackendGrid)
	}

	if c.Monitor != nil && c.Monitor.URL == "" {
		add("monitor: url is required")
	}

	for _, s := range m.Samples {
		if _, err := samples.ParseCategory(s.Category); err != nil {
			errs = append(errs, fmt.Errorf("sample %q: %w", s.Name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

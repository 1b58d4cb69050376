package app

import (
	"errors"
	"fmt"
	"slices"
)

// Modes of a run.
const (
	ModePlan     = "plan"
	ModeStatus   = "status"
	ModeDispatch = "dispatch"
)

var modes = []string{ModePlan, ModeStatus, ModeDispatch}

// Config holds what the entrypoint decides. The campaign itself comes from
// the configuration files.
type Config struct {
	ConfigPaths []string
	Mode        string

	// Overrides OR-ed with the campaign settings.
	ForceRetry bool
	Advisory   bool
	DryRun     bool
	// Workers overrides the campaign when positive.
	Workers int

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// NewConfig validates cfg and fills the default mode.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ConfigPaths) == 0 {
		return nil, errors.New("at least one configuration path is required")
	}
	if cfg.Mode == "" {
		cfg.Mode = ModePlan
	}
	if !slices.Contains(modes, cfg.Mode) {
		return nil, fmt.Errorf("invalid mode %q: must be one of %v", cfg.Mode, modes)
	}
	if cfg.Workers < 0 {
		return nil, errors.New("workers must not be negative")
	}
	return &cfg, nil
}

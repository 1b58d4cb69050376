package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/campaigngrid/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse([]string{
		"-c", "campaign.hcl", "-config", "samples/",
		"-mode", "Dispatch", "-dry-run", "-advisory", "-workers", "3",
		"-log-format", "JSON", "-healthcheck-port", "8080",
		"extra.hcl",
	}, out)
	require.NoError(t, err)
	require.False(t, exit)

	want := &app.Config{
		ConfigPaths:     []string{"campaign.hcl", "samples/", "extra.hcl"},
		Mode:            app.ModeDispatch,
		Advisory:        true,
		DryRun:          true,
		Workers:         3,
		LogFormat:       "json",
		LogLevel:        "info",
		HealthcheckPort: 8080,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, exit, err := Parse([]string{"campaign.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, app.ModePlan, cfg.Mode)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.ForceRetry)
}

func TestParseExits(t *testing.T) {
	for _, args := range [][]string{{"-h"}, {}} {
		out := &bytes.Buffer{}
		cfg, exit, err := Parse(args, out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown flag", args: []string{"-bogus"}, wantErr: "flag provided but not defined: -bogus"},
		{name: "bad log format", args: []string{"-log-format", "xml", "c.hcl"}, wantErr: "invalid log-format"},
		{name: "bad log level", args: []string{"-log-level", "trace", "c.hcl"}, wantErr: "invalid log-level"},
		{name: "bad mode", args: []string{"-mode", "submit", "c.hcl"}, wantErr: `invalid mode "submit"`},
		{name: "negative workers", args: []string{"-workers", "-2", "c.hcl"}, wantErr: "workers must not be negative"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			require.Error(t, err)
			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr))
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantErr)
		})
	}
}

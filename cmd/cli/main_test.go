package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// An unterminated block fails while loading inside app.NewApp.
	invalidHCL := `
		campaign "broken" {
			stages {
		// Missing closing brace here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(invalidHCL), 0600))

	out := &bytes.Buffer{}
	runErr := run(out, []string{filePath})

	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")
	require.Contains(t, runErr.Error(), "application startup panicked")
	require.Contains(t, runErr.Error(), "failed to parse")
}

func TestRun_InvalidCampaign(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(`campaign "empty" {}`), 0600))

	err := run(&bytes.Buffer{}, []string{filePath})
	require.Error(t, err)
	require.Contains(t, err.Error(), "application startup panicked")
	require.Contains(t, err.Error(), "output_dir")
}

func TestRun_Plan(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	campaign := `
campaign "plan" {
  output_dir = "out"
  job_home   = "jobs"
  jet_bins   = ["3"]
  channels   = ["munu"]

  stages {
    analysis = true
  }

  local {
    run_template = "run.tmpl"
  }
}

sample "ttbar" {
  category = "ttbar"
  paths    = ["/in/ttbar.root"]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "main.hcl"), []byte(campaign), 0600))

	out := &bytes.Buffer{}
	require.NoError(t, run(out, []string{"-log-level", "error", "-mode", "plan", tempDir}))
	require.Contains(t, out.String(), "analysis/3j/munu/nominal/ttbar -> ")
	require.Contains(t, out.String(), "1 leaves in")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	err := run(out, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

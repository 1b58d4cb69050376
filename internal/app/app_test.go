package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/campaigngrid/internal/hcl"
	"github.com/specialistvlad/campaigngrid/internal/samples"
	"github.com/specialistvlad/campaigngrid/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCampaign = `
campaign "schannel" {
  output_dir = "out"
  job_home   = "jobs"
  temp_dir   = "tmp"
  jet_bins   = ["2"]
  channels   = ["enu"]
  subjobs    = { signal = 3 }
  %s

  stages {
    analysis = true
  }

  local {
    run_template = "run.tmpl"
  }
}

sample "DataA" {
  category = "data"
  paths    = ["/in/dataA.root"]
}

sample "MCB" {
  category = "signal"
  paths    = ["/in/mcb.root"]
}
`

// writeCampaign writes a four-leaf campaign and returns its directory.
func writeCampaign(t *testing.T, extra string, more ...string) string {
	t.Helper()
	dir := t.TempDir()
	src := strings.Replace(testCampaign, "%s", extra, 1) + strings.Join(more, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "campaign.hcl"), []byte(src), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.tmpl"), []byte("analysis -i ${input_files} -o ${output_file}"), 0o644))
	return dir
}

func newTestApp(t *testing.T, dir, mode string) (*App, *SafeBuffer) {
	t.Helper()
	cfg, err := NewConfig(Config{ConfigPaths: []string{dir}, Mode: mode, LogLevel: "error"})
	require.NoError(t, err)
	a, out, err := SetupAppTest(t, cfg, hcl.NewLoader())
	require.NoError(t, err)
	return a, out
}

func TestRunPlan(t *testing.T) {
	dir := writeCampaign(t, "")
	a, out := newTestApp(t, dir, ModePlan)

	require.NoError(t, a.Run(context.Background()))

	got := out.String()
	assert.Contains(t, got, "analysis/2j/enu/nominal/DataA -> "+filepath.Join(dir, "out"))
	assert.Contains(t, got, "analysis/2j/enu/nominal/MCB/003 -> ")
	assert.Contains(t, got, "4 leaves in")
	assert.Equal(t, "schannel", a.Campaign().Name)
	assert.Equal(t, 2, a.Catalog().Len())
}

func TestRunStatus(t *testing.T) {
	dir := writeCampaign(t, "")
	a, out := newTestApp(t, dir, ModeStatus)

	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, out.String(), "0.0% complete")
	p := a.Progress()
	assert.Equal(t, 4, p.Total)
	assert.Equal(t, 0, p.Complete)
	require.Len(t, p.Stages, 1)
	assert.Equal(t, "analysis", p.Stages[0].Stage)
}

func TestRunDispatchDryRun(t *testing.T) {
	t.Setenv("ARCH_TYPE", "x86_64-slc6")
	dir := writeCampaign(t, "dry_run = true")
	a, out := newTestApp(t, dir, ModeDispatch)

	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, out.String(), "recorded=4")
	assert.Contains(t, out.String(), "report written to ")
	record, err := os.ReadFile(filepath.Join(dir, "jobs", "schannel", "local_commands.txt"))
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(string(record), "condor_qsub"))
	assert.Equal(t, 4, a.Progress().Outcomes["recorded"])
	assert.NotEmpty(t, a.Progress().PassID)
}

func TestRunDispatchMissingEnvironment(t *testing.T) {
	t.Setenv("ARCH_TYPE", "")
	dir := writeCampaign(t, "dry_run = true")
	a, _ := newTestApp(t, dir, ModeDispatch)

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment variable ARCH_TYPE is not set")
}

func TestNewRejectsDuplicateSample(t *testing.T) {
	dir := writeCampaign(t, "", `
sample "MCB" {
  category = "wjets_c"
  paths    = ["/in/other.root"]
}
`)
	cfg, err := NewConfig(Config{ConfigPaths: []string{dir}})
	require.NoError(t, err)

	_, _, err = SetupAppTest(t, cfg, hcl.NewLoader())
	require.Error(t, err)
	assert.ErrorIs(t, err, samples.ErrDuplicateSample)
}

func TestRunUnknownSystematic(t *testing.T) {
	dir := writeCampaign(t, `
  systematics {
    names = ["NotASystematic"]
  }`)
	a, out := newTestApp(t, dir, ModePlan)

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, tree.ErrInvalidConfig)
	assert.NotContains(t, out.String(), "leaves in")
}

func TestHealthcheckEndpoints(t *testing.T) {
	dir := writeCampaign(t, "")
	a, _ := newTestApp(t, dir, ModeStatus)
	require.NoError(t, a.Run(context.Background()))

	srv := httptest.NewServer(a.healthcheckMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/progress")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var p Progress
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, "schannel", p.Campaign)
	assert.Equal(t, ModeStatus, p.Mode)
	assert.Equal(t, 4, p.Total)
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "no paths", cfg: Config{}, wantErr: "at least one configuration path"},
		{name: "bad mode", cfg: Config{ConfigPaths: []string{"."}, Mode: "build"}, wantErr: `invalid mode "build"`},
		{name: "negative workers", cfg: Config{ConfigPaths: []string{"."}, Workers: -1}, wantErr: "workers must not be negative"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(tc.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	cfg, err := NewConfig(Config{ConfigPaths: []string{"."}})
	require.NoError(t, err)
	assert.Equal(t, ModePlan, cfg.Mode)
}

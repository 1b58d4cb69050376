package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/campaigngrid/internal/config"
	"github.com/specialistvlad/campaigngrid/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx() context.Context {
	return ctxlog.Discard(context.Background())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testLoader(env map[string]string) *Loader {
	return &Loader{lookupEnv: func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}}
}

const campaignHCL = `
campaign "schannel" {
  output_dir     = "/data/out"
  job_home       = "jobs"
  jet_bins       = ["2", "3"]
  channels       = ["enu", "munu"]
  workers        = 4
  submit_timeout = "90s"
  subjobs        = { ttbar = 10, wjets_b = 3 }
  sample_lists   = ["samples.txt"]

  stages {
    analysis = true
    merging  = true
  }

  systematics {
    groups  = ["Nominal", "JES"]
    names   = ["btagSF_up"]
    dynamic = ["EL_SF_ID_UP"]
  }

  ignore {
    mc_only = true
    samples = ["ttbar_old"]
  }

  local {
    run_template = "templates/analysis_run.tmpl"
    env = {
      ROOTSYS = env("ROOTSYS")
      TAG     = env("CAMPAIGN_TAG", "v1")
      HERE    = config_dir
    }
  }

  monitor {
    url             = "http://localhost:3000/socket.io/"
    connect_timeout = "5s"
  }
}
`

const samplesHCL = `
sample "DataA" {
  category = "data"
  paths    = ["/in/dataA.root"]
}

sample "ttbar" {
  category = "ttbar"
  title    = "t#bar{t}"
  xsec     = 252.89
  paths    = ["in/ttbar.1.root", "/abs/ttbar.2.root"]
}
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "campaign.hcl", campaignHCL)
	writeFile(t, dir, "samples/mc.hcl", samplesHCL)
	writeFile(t, dir, "README.md", "not configuration")

	model, err := testLoader(map[string]string{"ROOTSYS": "/opt/root"}).Load(testCtx(), dir)
	require.NoError(t, err)
	absDir, err := filepath.Abs(dir)
	require.NoError(t, err)

	require.Len(t, model.Files, 2)
	c := model.Campaign
	require.NotNil(t, c)
	assert.Equal(t, "schannel", c.Name)
	assert.Equal(t, "/data/out", c.OutputDir)
	assert.Equal(t, filepath.Join(absDir, "jobs"), c.JobHome)
	assert.Equal(t, []string{"2", "3"}, c.JetBins)
	assert.Equal(t, 4, c.Workers)
	assert.Equal(t, 90*time.Second, c.SubmitTimeout)
	assert.Equal(t, map[string]int{"ttbar": 10, "wjets_b": 3}, c.SubJobs)
	assert.Equal(t, []string{filepath.Join(absDir, "samples.txt")}, c.SampleLists)
	assert.Equal(t, config.Stages{Analysis: true, Merging: true}, c.Stages)
	assert.Equal(t, config.Systematics{
		Groups:  []string{"Nominal", "JES"},
		Names:   []string{"btagSF_up"},
		Dynamic: []string{"EL_SF_ID_UP"},
	}, c.Systematics)
	assert.Equal(t, config.Ignore{MCOnly: true, Names: []string{"ttbar_old"}}, c.Ignore)

	require.NotNil(t, c.Local)
	assert.Equal(t, filepath.Join(absDir, "templates", "analysis_run.tmpl"), c.Local.RunTemplate)
	assert.Equal(t, map[string]string{"ROOTSYS": "/opt/root", "TAG": "v1", "HERE": absDir}, c.Local.Env)

	require.NotNil(t, c.Monitor)
	assert.Equal(t, 5*time.Second, c.Monitor.ConnectTimeout)

	// Defaults.
	assert.Equal(t, config.BackendLocal, c.Backend)
	assert.Equal(t, config.DefaultPrefix, c.Prefix)

	want := []config.Sample{
		{Name: "DataA", Category: "data", Paths: []string{"/in/dataA.root"}},
		{
			Name:     "ttbar",
			Title:    "t#bar{t}",
			Category: "ttbar",
			XSection: 252.89,
			Paths:    []string{filepath.Join(absDir, "samples", "in", "ttbar.1.root"), "/abs/ttbar.2.root"},
		},
	}
	if diff := cmp.Diff(want, model.Samples); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, model.Validate())
}

func TestLoadGridCampaign(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "grid.hcl", `
campaign "grid" {
  output_dir = "/out"
  job_home   = "/jobs"
  backend    = "grid"
  stages {
    analysis = true
  }
  jet_bins = ["2"]
  channels = ["enu"]
  grid {
    home          = "/grid/home"
    user          = "jdoe"
    suffix        = "v2"
    run_template  = "/grid/run.tmpl"
    aux_files     = ["libs.tar"]
    max_cpu_count = 86400
    tarball_only  = true
  }
}
`)
	model, err := testLoader(nil).Load(testCtx(), path)
	require.NoError(t, err)
	g := model.Campaign.Grid
	require.NotNil(t, g)
	assert.Equal(t, config.Grid{
		Home:        "/grid/home",
		User:        "jdoe",
		Suffix:      "v2",
		RunTemplate: "/grid/run.tmpl",
		AuxFiles:    []string{"libs.tar"},
		MaxCPUCount: 86400,
		TarballOnly: true,
	}, *g)
	require.NoError(t, model.Validate())
}

func TestLoadErrors(t *testing.T) {
	minimal := func(extra string) string {
		return `campaign "c" {
  output_dir = "/out"
  job_home   = "/jobs"
` + extra + `
}
`
	}
	testCases := []struct {
		name  string
		files map[string]string
		env   map[string]string
		want  string
	}{
		{
			name:  "syntax error",
			files: map[string]string{"a.hcl": `campaign "c" {`},
			want:  "failed to parse HCL file",
		},
		{
			name:  "unknown attribute in campaign",
			files: map[string]string{"a.hcl": minimal(`  jetbins = ["2"]`)},
			want:  "failed to decode HCL file",
		},
		{
			name:  "unknown top-level attribute",
			files: map[string]string{"a.hcl": minimal("") + "\nversion = 2\n"},
			want:  `unexpected top-level attribute "version"`,
		},
		{
			name:  "unknown top-level block",
			files: map[string]string{"a.hcl": minimal("") + "\ncampain \"x\" {}\n"},
			want:  "unexpected content",
		},
		{
			name:  "unset environment variable",
			files: map[string]string{"a.hcl": minimal(`  prefix = env("PREFIX")`)},
			want:  "environment variable PREFIX is not set",
		},
		{
			name:  "bad duration",
			files: map[string]string{"a.hcl": minimal(`  submit_timeout = "soon"`)},
			want:  "submit_timeout",
		},
		{
			name:  "two campaigns",
			files: map[string]string{"a.hcl": minimal(""), "b.hcl": minimal("")},
			want:  "only one campaign block is allowed",
		},
		{
			name:  "no campaign",
			files: map[string]string{"a.hcl": samplesHCL},
			want:  "no campaign block found",
		},
		{
			name:  "no files",
			files: map[string]string{"a.txt": "x"},
			want:  "no .hcl configuration files found",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tc.files {
				writeFile(t, dir, name, content)
			}
			_, err := testLoader(tc.env).Load(testCtx(), dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	t.Run("missing path", func(t *testing.T) {
		_, err := testLoader(nil).Load(testCtx(), filepath.Join(t.TempDir(), "missing.hcl"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

package status

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/specialistvlad/campaigngrid/internal/coords"
	"github.com/specialistvlad/campaigngrid/internal/ctxlog"
	"github.com/specialistvlad/campaigngrid/internal/paths"
	"github.com/specialistvlad/campaigngrid/internal/samples"
	"github.com/specialistvlad/campaigngrid/internal/systematics"
	"github.com/specialistvlad/campaigngrid/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodLog = `Processing 1000 events
Job Summary: 1000 events, 812 selected
Job status: running
Job status: successful
`

func newLeaf(t *testing.T) *tree.Node {
	t.Helper()
	dir := t.TempDir()
	return &tree.Node{
		Kind:       tree.Leaf,
		Name:       "analysis/2j/enu/nominal/MCB/001",
		Coord:      coords.Coord{Stage: coords.Analysis},
		OutputPath: filepath.Join(dir, "hist_2j_enu_nominal_MCB.001.root"),
		LogPath:    filepath.Join(dir, "hist_2j_enu_nominal_MCB.001.log"),
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestInspect(t *testing.T) {
	tests := []struct {
		name     string
		output   *string
		log      *string
		require  bool
		complete bool
		reason   string
	}{
		{name: "missing output", reason: "output missing"},
		{name: "empty output", output: ptr(""), reason: "output empty"},
		{name: "truncated root file", output: ptr("ro"), reason: "not a ROOT file"},
		{name: "foreign file", output: ptr("<html>"), reason: "not a ROOT file"},
		{name: "output without log", output: ptr("root-data"), complete: true, reason: "without log"},
		{name: "log with summary", output: ptr("root-data"), log: ptr("Job Summary: ok\n"), complete: true},
		{name: "log without summary", output: ptr("root-data"), log: ptr("crashed\n"), reason: "no job summary"},
		{name: "marker required and present", output: ptr("root-data"), log: ptr(goodLog), require: true, complete: true},
		{name: "marker required, last status failed", output: ptr("root-data"), log: ptr("Job status: successful\nJob status: failed\n"), require: true, reason: "failed"},
		{name: "marker required, summary only", output: ptr("root-data"), log: ptr("Job Summary: ok\n"), require: true, reason: "no job status line"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			leaf := newLeaf(t)
			if tc.output != nil {
				write(t, leaf.OutputPath, *tc.output)
			}
			if tc.log != nil {
				write(t, leaf.LogPath, *tc.log)
			}
			tracker := &Tracker{}
			v := tracker.Inspect(leaf, tc.require)
			assert.Equal(t, tc.complete, v.Complete, v.Reason)
			assert.Contains(t, v.Reason, tc.reason)
			assert.Equal(t, tc.complete, tracker.IsComplete(leaf, tc.require))
		})
	}
}

func ptr(s string) *string { return &s }

func TestInspectSuccessMarkerSources(t *testing.T) {
	leaf := newLeaf(t)
	write(t, leaf.OutputPath, "root-data")
	write(t, leaf.LogPath, "Job Summary: ok\n")

	assert.True(t, (&Tracker{}).IsComplete(leaf, false))
	assert.False(t, (&Tracker{RequireSuccessMarker: true}).IsComplete(leaf, false), "campaign-wide requirement")

	leaf.RequireSuccessMarker = true
	assert.False(t, (&Tracker{}).IsComplete(leaf, false), "stage requirement")
}

func TestInspectForceRetry(t *testing.T) {
	leaf := newLeaf(t)
	write(t, leaf.OutputPath, "root-data")
	write(t, leaf.LogPath, goodLog)

	v := (&Tracker{ForceRetry: true}).Inspect(leaf, true)
	assert.False(t, v.Complete)
	assert.Equal(t, "force retry", v.Reason)

	v = (&Tracker{ForceRetry: true}).InspectArtifacts(leaf, true)
	assert.True(t, v.Complete)
	assert.Equal(t, "job status successful", v.Reason)
}

func TestInspectCompressedLog(t *testing.T) {
	leaf := newLeaf(t)
	write(t, leaf.OutputPath, "root-data")

	f, err := os.Create(leaf.LogPath + ".gz")
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(goodLog))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	v := (&Tracker{}).Inspect(leaf, true)
	assert.True(t, v.Complete, v.Reason)
}

func buildTree(t *testing.T) *tree.Tree {
	t.Helper()
	dir := t.TempDir()
	cat := samples.NewCatalog()
	require.NoError(t, cat.Add(samples.Sample{Name: "MCB", Category: samples.Signal, Paths: []string{"/in/mcb.root"}}))
	tr, err := tree.Build(ctxlog.Discard(context.Background()), tree.Config{
		Campaign: "status",
		Registry: systematics.Default(),
		Catalog:  cat,
		Namer:    paths.Namer{OutputDir: filepath.Join(dir, "out"), JobHome: filepath.Join(dir, "jobs"), Campaign: "status"},
		JetBins:  []string{"2"},
		Channels: []coords.Channel{coords.Electron},
		Groups:   systematics.GroupNominal,
		Stages:   tree.StageFlags{Analysis: true, Merging: true},
	})
	require.NoError(t, err)
	return tr
}

func TestRefresh(t *testing.T) {
	tr := buildTree(t)
	done, ok := tr.Lookup("analysis/2j/enu/nominal/MCB")
	require.True(t, ok)
	pending, ok := tr.Lookup("merging/2j/enu/nominal/MCB")
	require.True(t, ok)

	require.NoError(t, os.MkdirAll(filepath.Dir(done.OutputPath), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(done.LogPath), 0o755))
	write(t, done.OutputPath, "root-data")
	write(t, done.LogPath, goodLog)

	sum, err := (&Tracker{Workers: 2}).Refresh(ctxlog.Discard(context.Background()), tr)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, 1, sum.Complete)
	assert.InDelta(t, 0.5, sum.Fraction(), 1e-9)
	require.Len(t, sum.Stages, 2)
	assert.Equal(t, StageSummary{Stage: coords.Analysis, Total: 1, Complete: 1}, sum.Stages[0])
	assert.Equal(t, StageSummary{Stage: coords.Merging, Total: 1, Complete: 0}, sum.Stages[1])

	assert.Equal(t, tree.Succeeded, done.Status())
	assert.Equal(t, tree.NotStarted, pending.Status())
	assert.Equal(t, "output missing", pending.Reason())

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctxlog.Discard(context.Background()))
		cancel()
		_, err := (&Tracker{}).Refresh(ctx, tr)
		assert.ErrorIs(t, err, context.Canceled)
	})

	assert.Equal(t, 1.0, Summary{}.Fraction())
}

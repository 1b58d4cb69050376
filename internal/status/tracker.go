// Package status decides from on-disk artifacts whether a leaf has already
// done its work. Nothing is persisted between passes: the output file and
// the job log are the only record of a previous run.
package status

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/specialistvlad/campaigngrid/internal/coords"
	"github.com/specialistvlad/campaigngrid/internal/ctxlog"
	"github.com/specialistvlad/campaigngrid/internal/tree"
	"golang.org/x/sync/errgroup"
)

// Markers written by the analysis executable and the batch wrapper.
const (
	JobStatusMarker  = "Job status"
	SuccessfulMarker = "successful"
	JobSummaryMarker = "Job Summary"
	rootFileMagic    = "root"
)

const defaultInspectors = 16

// Verdict is the outcome of inspecting one leaf.
type Verdict struct {
	Complete bool
	Reason   string
}

// Tracker inspects leaf artifacts.
type Tracker struct {
	// ForceRetry makes every leaf incomplete.
	ForceRetry bool
	// RequireSuccessMarker demands the success line for every stage, not
	// only for the stages that always require it.
	RequireSuccessMarker bool
	// Workers bounds concurrent inspections in Refresh.
	Workers int
}

// IsComplete reports whether leaf needs no (re)submission.
func (t *Tracker) IsComplete(leaf *tree.Node, requireSuccessMarker bool) bool {
	return t.Inspect(leaf, requireSuccessMarker).Complete
}

// Inspect checks the output file and the log of leaf. A truncated or missing
// artifact is incomplete, never an error.
func (t *Tracker) Inspect(leaf *tree.Node, requireSuccessMarker bool) Verdict {
	if t.ForceRetry {
		return Verdict{Reason: "force retry"}
	}
	return t.InspectArtifacts(leaf, requireSuccessMarker)
}

// InspectArtifacts is Inspect without ForceRetry: it reports whether the
// artifacts on disk are usable, e.g. as the input of a consumer.
func (t *Tracker) InspectArtifacts(leaf *tree.Node, requireSuccessMarker bool) Verdict {
	info, err := os.Stat(leaf.OutputPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Verdict{Reason: "output missing"}
	case err != nil:
		return Verdict{Reason: fmt.Sprintf("output unreadable: %v", err)}
	case info.IsDir():
		return Verdict{Reason: "output is a directory"}
	case info.Size() == 0:
		return Verdict{Reason: "output empty"}
	}
	if strings.HasSuffix(leaf.OutputPath, ".root") {
		if ok, err := hasMagic(leaf.OutputPath, rootFileMagic); err != nil || !ok {
			return Verdict{Reason: "output is not a ROOT file"}
		}
	}

	log, err := openLog(leaf.LogPath)
	if errors.Is(err, fs.ErrNotExist) {
		// Outputs copied in from elsewhere come without a log.
		return Verdict{Complete: true, Reason: "output present without log"}
	}
	if err != nil {
		return Verdict{Reason: fmt.Sprintf("log unreadable: %v", err)}
	}
	defer log.Close()

	lastStatus, hasSummary, err := scanLog(log)
	if err != nil {
		return Verdict{Reason: fmt.Sprintf("log unreadable: %v", err)}
	}

	if requireSuccessMarker || t.RequireSuccessMarker || leaf.RequireSuccessMarker {
		if lastStatus == "" {
			return Verdict{Reason: "log has no job status line"}
		}
		if !strings.Contains(lastStatus, SuccessfulMarker) {
			return Verdict{Reason: fmt.Sprintf("last job status is %q", strings.TrimSpace(lastStatus))}
		}
		return Verdict{Complete: true, Reason: "job status successful"}
	}
	if !hasSummary {
		return Verdict{Reason: "log has no job summary"}
	}
	return Verdict{Complete: true, Reason: "job summary present"}
}

func hasMagic(path, magic string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	buf := make([]byte, len(magic))
	if _, err := io.ReadFull(f, buf); err != nil {
		return false, nil
	}
	return bytes.Equal(buf, []byte(magic)), nil
}

// gzipLog closes both the decompressor and the file.
type gzipLog struct {
	*gzip.Reader
	f *os.File
}

func (g gzipLog) Close() error {
	return errors.Join(g.Reader.Close(), g.f.Close())
}

// openLog opens the log, falling back to a gzip-compressed copy next to it.
func openLog(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	gz, gzErr := os.Open(path + ".gz")
	if gzErr != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(gz)
	if err != nil {
		gz.Close()
		return nil, err
	}
	return gzipLog{Reader: zr, f: gz}, nil
}

func scanLog(r io.Reader) (lastStatus string, hasSummary bool, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, JobStatusMarker) {
			lastStatus = line
		}
		if strings.Contains(line, JobSummaryMarker) {
			hasSummary = true
		}
	}
	return lastStatus, hasSummary, scanner.Err()
}

// StageSummary counts leaves of one stage.
type StageSummary struct {
	Stage    coords.Stage
	Total    int
	Complete int
}

// Summary is the campaign progress after a Refresh.
type Summary struct {
	Stages   []StageSummary
	Total    int
	Complete int
}

// Fraction returns the completed share, 1 for an empty tree.
func (s Summary) Fraction() float64 {
	if s.Total == 0 {
		return 1
	}
	return float64(s.Complete) / float64(s.Total)
}

// Refresh inspects every leaf of tr, marks complete leaves Succeeded and
// records the verdict reason on the others.
func (t *Tracker) Refresh(ctx context.Context, tr *tree.Tree) (Summary, error) {
	logger := ctxlog.FromContext(ctx)
	leaves := tr.Leaves()

	workers := t.Workers
	if workers <= 0 {
		workers = defaultInspectors
	}
	var mu sync.Mutex
	complete := make(map[*tree.Node]bool, len(leaves))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, leaf := range leaves {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			v := t.Inspect(leaf, false)
			if v.Complete {
				leaf.SetStatus(tree.Succeeded, v.Reason)
			} else if leaf.Status() != tree.Submitted {
				leaf.SetStatus(tree.NotStarted, v.Reason)
			}
			mu.Lock()
			complete[leaf] = v.Complete
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("status refresh interrupted: %w", err)
	}

	var sum Summary
	index := make(map[coords.Stage]int)
	for _, leaf := range leaves {
		st := leaf.Stage()
		i, ok := index[st]
		if !ok {
			i = len(sum.Stages)
			index[st] = i
			sum.Stages = append(sum.Stages, StageSummary{Stage: st})
		}
		sum.Stages[i].Total++
		sum.Total++
		if complete[leaf] {
			sum.Stages[i].Complete++
			sum.Complete++
		}
	}
	logger.Debug("Status refresh finished.", "leaves", sum.Total, "complete", sum.Complete)
	return sum, nil
}

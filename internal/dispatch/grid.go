package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/specialistvlad/campaigngrid/internal/ctxlog"
	"github.com/specialistvlad/campaigngrid/internal/paths"
	"github.com/specialistvlad/campaigngrid/internal/systematics"
	"github.com/specialistvlad/campaigngrid/internal/tree"
)

// Defaults of the grid backend.
const (
	DefaultGridCommand = "prun"
	DefaultBuildScript = "bexec.sh"
	gridInputList      = "input.txt"
	gridInputToken     = "@INPUTS@"
)

// GridConfig configures the grid backend.
type GridConfig struct {
	// Home holds the build script and the auxiliary files shipped with
	// every job.
	Home string
	// RequiredFiles must exist in Home; the first one is the build script.
	RequiredFiles []string
	// AuxFiles are copied from Home into every package.
	AuxFiles    []string
	RunTemplate string
	Setup       string
	Env         map[string]string

	RootVersion string
	CmtConfig   string
	MaxCPUCount int
	FilesPerJob int
	DestSE      string
	// TarballOnly builds packages and records the submit commands without
	// running them.
	TarballOnly bool
	Command     string
}

// Grid packages every leaf and submits it with prun.
type Grid struct {
	cfg   GridConfig
	namer paths.Namer
	tmpl  *RunTemplate
}

// NewGrid creates the backend. Nothing is checked until Prepare.
func NewGrid(cfg GridConfig, namer paths.Namer) *Grid {
	if len(cfg.RequiredFiles) == 0 {
		cfg.RequiredFiles = []string{DefaultBuildScript}
	}
	if cfg.Command == "" {
		cfg.Command = DefaultGridCommand
	}
	return &Grid{cfg: cfg, namer: namer}
}

func (g *Grid) Name() string { return "grid" }

// Prepare checks the grid home and parses the run template.
func (g *Grid) Prepare(ctx context.Context, leaves []*tree.Node) error {
	var errs []error
	if g.namer.GridUser == "" {
		errs = append(errs, errors.New("grid user is not configured"))
	}
	if g.cfg.Home == "" {
		errs = append(errs, errors.New("grid home is not configured"))
	} else {
		for _, name := range append(append([]string{}, g.cfg.RequiredFiles...), g.cfg.AuxFiles...) {
			if _, err := os.Stat(filepath.Join(g.cfg.Home, name)); err != nil {
				errs = append(errs, fmt.Errorf("grid file %s: %w", name, err))
			}
		}
	}
	if g.cfg.RunTemplate == "" {
		errs = append(errs, errors.New("no run template configured"))
	} else if tmpl, err := LoadRunTemplate(g.cfg.RunTemplate); err != nil {
		errs = append(errs, err)
	} else {
		g.tmpl = tmpl
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Grid backend prepared.", "leaves", len(leaves), "home", g.cfg.Home)
	return nil
}

// Stage assembles the package of leaf and returns its prun command. The
// staging directory is removed by the job's Cleanup.
func (g *Grid) Stage(ctx context.Context, leaf *tree.Node) (*Job, error) {
	if g.tmpl == nil {
		return nil, errors.New("grid backend used before Prepare")
	}
	outName := g.namer.OutputFileName(leaf.Coord)
	p := placeholdersFor(leaf, outName)
	p.InputFiles = []string{gridInputToken}
	command, err := g.tmpl.Render(p)
	if err != nil {
		return nil, err
	}

	stem := g.namer.Stem(leaf.Coord)
	staging, err := os.MkdirTemp(g.cfg.Home, ".stage-"+stem+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	cleanup := func() error { return os.RemoveAll(staging) }

	job, err := g.stage(leaf, staging, stem, outName, command)
	if err != nil {
		_ = cleanup()
		return nil, err
	}
	job.Cleanup = cleanup
	return job, nil
}

func (g *Grid) stage(leaf *tree.Node, staging, stem, outName, command string) (*Job, error) {
	scriptName := stem + ".sh"
	data := scriptData{
		Leaf:       leaf.Name,
		Command:    command,
		Env:        sortedEnv(g.cfg.Env),
		Setup:      g.cfg.Setup,
		InputList:  gridInputList,
		InputToken: gridInputToken,
	}
	if leaf.Coord.Systematic == systematics.TemplateName {
		data.VariationToken = systematics.TemplateName
	}
	script, err := renderScript(gridScript, data)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(staging, scriptName), script, 0o755); err != nil {
		return nil, fmt.Errorf("failed to write grid script: %w", err)
	}
	for _, name := range append(append([]string{}, g.cfg.RequiredFiles...), g.cfg.AuxFiles...) {
		if err := copyFile(filepath.Join(staging, filepath.Base(name)), filepath.Join(g.cfg.Home, name)); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %w", name, err)
		}
	}

	if err := os.MkdirAll(leaf.JobDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create job directory: %w", err)
	}
	pkg := filepath.Join(leaf.JobDir, stem+".tar.gz")
	if err := writePackage(pkg, staging); err != nil {
		return nil, err
	}

	inDS, outDS := g.namer.GridDatasets(leaf.Coord)
	args := []string{
		"--bexec=sh " + filepath.Base(g.cfg.RequiredFiles[0]),
		"--exec=sh " + scriptName,
		"--inDS=" + inDS,
		"--outDS=" + outDS,
		"--outputs=" + outName,
		"--writeInputToTxt=IN:" + gridInputList,
		"--inTarBall=" + pkg,
	}
	if g.cfg.RootVersion != "" {
		args = append(args, "--rootVer="+g.cfg.RootVersion)
	}
	if g.cfg.CmtConfig != "" {
		args = append(args, "--cmtConfig="+g.cfg.CmtConfig)
	}
	if g.cfg.MaxCPUCount > 0 {
		args = append(args, "--maxCpuCount="+strconv.Itoa(g.cfg.MaxCPUCount))
	}
	if g.cfg.FilesPerJob > 0 {
		args = append(args, "--nFilesPerJob="+strconv.Itoa(g.cfg.FilesPerJob))
	}
	if g.cfg.DestSE != "" {
		args = append(args, "--destSE="+g.cfg.DestSE)
	}
	return &Job{
		Leaf:       leaf,
		Command:    Cmd{Name: g.cfg.Command, Args: args, Dir: leaf.JobDir},
		RecordOnly: g.cfg.TarballOnly,
	}, nil
}

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/specialistvlad/campaigngrid/internal/ctxlog"
	"github.com/specialistvlad/campaigngrid/internal/paths"
	"github.com/specialistvlad/campaigngrid/internal/tree"
)

// DefaultSubmitCommand queues a script on the local batch system.
const DefaultSubmitCommand = "condor_qsub -V -o /dev/null -e /dev/null"

// ArchTypeVar must be set in the submitting environment; the analysis
// executables are built per architecture.
const ArchTypeVar = "ARCH_TYPE"

// LocalConfig configures the local batch backend.
type LocalConfig struct {
	// RunTemplate is the path of the run command template.
	RunTemplate string
	// Env is exported in every script. A value of "" means "take it from
	// the submitting environment".
	Env map[string]string
	// SubmitCommand is split on whitespace; the script path is appended.
	SubmitCommand string
	// Nodes restricts execution hosts, passed as -l nodes=<Nodes>.
	Nodes string
}

// Local submits generated shell scripts to a local batch queue.
type Local struct {
	cfg       LocalConfig
	namer     paths.Namer
	lookupEnv func(string) (string, bool)

	tmpl *RunTemplate
	env  map[string]string
}

// NewLocal creates the backend. Nothing is checked until Prepare.
func NewLocal(cfg LocalConfig, namer paths.Namer) *Local {
	if cfg.SubmitCommand == "" {
		cfg.SubmitCommand = DefaultSubmitCommand
	}
	return &Local{cfg: cfg, namer: namer, lookupEnv: os.LookupEnv}
}

func (l *Local) Name() string { return "local" }

// Prepare checks the environment and parses the run template.
func (l *Local) Prepare(ctx context.Context, leaves []*tree.Node) error {
	logger := ctxlog.FromContext(ctx)

	var errs []error
	env := make(map[string]string, len(l.cfg.Env)+1)
	if v, ok := l.lookupEnv(ArchTypeVar); ok && v != "" {
		env[ArchTypeVar] = v
	} else {
		errs = append(errs, fmt.Errorf("environment variable %s is not set", ArchTypeVar))
	}
	for name, value := range l.cfg.Env {
		if value != "" {
			env[name] = value
			continue
		}
		v, ok := l.lookupEnv(name)
		if !ok {
			errs = append(errs, fmt.Errorf("environment variable %s is not set", name))
			continue
		}
		env[name] = v
	}

	if l.cfg.RunTemplate == "" {
		errs = append(errs, errors.New("no run template configured"))
	} else if tmpl, err := LoadRunTemplate(l.cfg.RunTemplate); err != nil {
		errs = append(errs, err)
	} else {
		l.tmpl = tmpl
	}
	if len(strings.Fields(l.cfg.SubmitCommand)) == 0 {
		errs = append(errs, errors.New("empty submit command"))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	l.env = env
	logger.Debug("Local backend prepared.", "leaves", len(leaves), "submit", l.cfg.SubmitCommand)
	return nil
}

// Stage writes the run script into the leaf's job directory.
func (l *Local) Stage(ctx context.Context, leaf *tree.Node) (*Job, error) {
	if l.tmpl == nil {
		return nil, errors.New("local backend used before Prepare")
	}
	tempOut := l.namer.TempOutputPath(leaf.Coord)
	command, err := l.tmpl.Render(placeholdersFor(leaf, tempOut))
	if err != nil {
		return nil, err
	}
	script, err := renderScript(localScript, scriptData{
		Leaf:       leaf.Name,
		Command:    command,
		Env:        sortedEnv(l.env),
		TempOutput: tempOut,
		TempLog:    l.namer.TempLogPath(leaf.Coord),
		Output:     leaf.OutputPath,
		Log:        leaf.LogPath,
		JobDir:     leaf.JobDir,
	})
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(leaf.JobDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create job directory: %w", err)
	}
	if err := os.WriteFile(leaf.ScriptPath, script, 0o755); err != nil {
		return nil, fmt.Errorf("failed to write run script: %w", err)
	}

	fields := strings.Fields(l.cfg.SubmitCommand)
	args := append([]string{}, fields[1:]...)
	if l.cfg.Nodes != "" {
		args = append(args, "-l", "nodes="+l.cfg.Nodes)
	}
	args = append(args, leaf.ScriptPath)
	return &Job{
		Leaf:    leaf,
		Command: Cmd{Name: fields[0], Args: args, Dir: leaf.JobDir},
	}, nil
}

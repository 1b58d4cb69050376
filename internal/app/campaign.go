package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/campaigngrid/internal/config"
	"github.com/specialistvlad/campaigngrid/internal/coords"
	"github.com/specialistvlad/campaigngrid/internal/ctxlog"
	"github.com/specialistvlad/campaigngrid/internal/dispatch"
	"github.com/specialistvlad/campaigngrid/internal/monitor"
	"github.com/specialistvlad/campaigngrid/internal/paths"
	"github.com/specialistvlad/campaigngrid/internal/samples"
	"github.com/specialistvlad/campaigngrid/internal/status"
	"github.com/specialistvlad/campaigngrid/internal/systematics"
	"github.com/specialistvlad/campaigngrid/internal/tree"
)

// newCatalog registers the sample lists first, then the inline samples, so
// catalog order follows the configuration.
func newCatalog(m *config.Model) (*samples.Catalog, error) {
	c := m.Campaign
	cat := samples.NewCatalog()

	for _, path := range c.SampleLists {
		list, err := readSampleList(path)
		if err != nil {
			return nil, err
		}
		for _, s := range list {
			if err := cat.Add(s); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	for _, s := range m.Samples {
		category, err := samples.ParseCategory(s.Category)
		if err != nil {
			return nil, fmt.Errorf("sample %q: %w", s.Name, err)
		}
		err = cat.Add(samples.Sample{
			Name:           s.Name,
			Title:          s.Title,
			Category:       category,
			XSection:       s.XSection,
			Color:          s.Color,
			Paths:          s.Paths,
			SystematicOnly: s.SystematicOnly,
		})
		if err != nil {
			return nil, err
		}
	}

	for name, n := range c.SubJobs {
		category, err := samples.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		if err := cat.SetSubJobCount(category, n); err != nil {
			return nil, err
		}
	}
	if c.SampleSizes != "" {
		f, err := os.Open(c.SampleSizes)
		if err != nil {
			return nil, fmt.Errorf("failed to open sample sizes: %w", err)
		}
		sizes, err := samples.ReadSizes(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.SampleSizes, err)
		}
		cat.SetSampleSizes(sizes, c.MaxEventsPerSubJob)
	}
	cat.SetIgnorePolicy(samples.IgnorePolicy{
		UseHforSamples: c.Ignore.UseHforSamples,
		MCOnly:         c.Ignore.MCOnly,
		SkipDataDriven: c.Ignore.SkipDataDriven,
		Names:          c.Ignore.Names,
	})
	return cat, nil
}

func readSampleList(path string) ([]samples.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample list: %w", err)
	}
	defer f.Close()

	base := filepath.Dir(path)
	var list []samples.Sample
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		list, err = samples.ReadYAML(f, base)
	default:
		list, err = samples.ReadList(f, base)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

func newNamer(c *config.Campaign) paths.Namer {
	n := paths.Namer{
		OutputDir:      c.OutputDir,
		JobHome:        c.JobHome,
		TempDir:        c.TempDir,
		Campaign:       c.Name,
		Prefix:         c.Prefix,
		SubJobsAsInput: c.SubJobsAsInput,
	}
	if n.TempDir == "" {
		n.TempDir = os.TempDir()
	}
	if c.Grid != nil {
		n.GridUser = c.Grid.User
		n.GridSuffix = c.Grid.Suffix
		n.GridIDSuffix = c.Grid.IDSuffix
	}
	return n
}

func (a *App) treeConfig() (tree.Config, error) {
	c := a.model.Campaign
	groups, err := systematics.ParseGroups(c.Systematics.Groups)
	if err != nil {
		return tree.Config{}, err
	}
	channels := make([]coords.Channel, 0, len(c.Channels))
	for _, label := range c.Channels {
		ch, err := coords.ParseChannel(label)
		if err != nil {
			return tree.Config{}, err
		}
		channels = append(channels, ch)
	}
	return tree.Config{
		Campaign:    c.Name,
		Registry:    a.registry,
		Catalog:     a.catalog,
		Namer:       a.namer,
		JetBins:     c.JetBins,
		Channels:    channels,
		Groups:      groups,
		Systematics: c.Systematics.Names,
		Stages: tree.StageFlags{
			HforSplitting: c.Stages.HforSplitting,
			Analysis:      c.Stages.Analysis,
			Merging:       c.Stages.Merging,
			Plotting:      c.Stages.Plotting,
			MemTk:         c.Stages.MemTk,
			MemDisc:       c.Stages.MemDisc,
			HistFactory:   c.Stages.HistFactory,
		},
		// The grid splits a sample into jobs on its own.
		SingleJob:     c.SingleJob || c.Backend == config.BackendGrid,
		RequireInputs: c.RequireInputs,
	}, nil
}

func (a *App) workers() int {
	if a.config.Workers > 0 {
		return a.config.Workers
	}
	return a.model.Campaign.Workers
}

func (a *App) newTracker() *status.Tracker {
	c := a.model.Campaign
	return &status.Tracker{
		ForceRetry:           c.ForceRetry || a.config.ForceRetry,
		RequireSuccessMarker: c.RequireSuccessMarker,
		Workers:              a.workers(),
	}
}

func (a *App) newBackend() dispatch.Backend {
	c := a.model.Campaign
	if c.Backend == config.BackendGrid {
		g := c.Grid
		return dispatch.NewGrid(dispatch.GridConfig{
			Home:          g.Home,
			RequiredFiles: g.RequiredFiles,
			AuxFiles:      g.AuxFiles,
			RunTemplate:   g.RunTemplate,
			Setup:         g.Setup,
			Env:           g.Env,
			RootVersion:   g.RootVersion,
			CmtConfig:     g.CmtConfig,
			MaxCPUCount:   g.MaxCPUCount,
			FilesPerJob:   g.FilesPerJob,
			DestSE:        g.DestSE,
			TarballOnly:   g.TarballOnly,
			Command:       g.Command,
		}, a.namer)
	}
	l := c.Local
	return dispatch.NewLocal(dispatch.LocalConfig{
		RunTemplate:   l.RunTemplate,
		Env:           l.Env,
		SubmitCommand: l.SubmitCommand,
		Nodes:         l.Nodes,
	}, a.namer)
}

// newMonitor connects the progress publisher. An unreachable dashboard never
// blocks a campaign.
func (a *App) newMonitor(ctx context.Context) monitor.Publisher {
	m := a.model.Campaign.Monitor
	if m == nil {
		return monitor.Nop{}
	}
	pub, err := monitor.DialSocketIO(ctx, monitor.SocketIOConfig{
		URL:                m.URL,
		Namespace:          m.Namespace,
		InsecureSkipVerify: m.InsecureSkipVerify,
		ConnectTimeout:     m.ConnectTimeout,
	})
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Progress monitor unavailable, continuing without it.", "error", err)
		return monitor.Nop{}
	}
	return pub
}

func (a *App) dispatchOptions(pub monitor.Publisher) dispatch.Options {
	c := a.model.Campaign
	return dispatch.Options{
		Workers:              a.workers(),
		SubmitTimeout:        c.SubmitTimeout,
		Advisory:             c.Advisory || a.config.Advisory,
		DryRun:               c.DryRun || a.config.DryRun,
		FailFastOnTimeout:    c.FailFastOnTimeout,
		RequireSuccessMarker: c.RequireSuccessMarker,
		Monitor:              pub,
	}
}

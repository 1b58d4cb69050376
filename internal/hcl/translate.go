package hcl

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/specialistvlad/campaigngrid/internal/config"
)

// resolve makes p relative to the directory of the file that declared it.
func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func resolveAll(dir string, ps []string) []string {
	if ps == nil {
		return nil
	}
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = resolve(dir, p)
	}
	return out
}

func parseDuration(attr, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", attr, err)
	}
	return d, nil
}

func translateCampaign(b *campaignBlock, dir string) (*config.Campaign, error) {
	timeout, err := parseDuration("submit_timeout", b.SubmitTimeout)
	if err != nil {
		return nil, err
	}
	c := &config.Campaign{
		Name:                 b.Name,
		OutputDir:            resolve(dir, b.OutputDir),
		JobHome:              resolve(dir, b.JobHome),
		TempDir:              resolve(dir, b.TempDir),
		Prefix:               b.Prefix,
		JetBins:              b.JetBins,
		Channels:             b.Channels,
		SubJobs:              b.SubJobs,
		SampleLists:          resolveAll(dir, b.SampleLists),
		SampleSizes:          resolve(dir, b.SampleSizes),
		MaxEventsPerSubJob:   b.MaxEventsPerSubJob,
		SubJobsAsInput:       b.SubJobsAsInput,
		SingleJob:            b.SingleJob,
		RequireInputs:        b.RequireInputs,
		Backend:              b.Backend,
		Workers:              b.Workers,
		SubmitTimeout:        timeout,
		Advisory:             b.Advisory,
		DryRun:               b.DryRun,
		ForceRetry:           b.ForceRetry,
		FailFastOnTimeout:    b.FailFastOnTimeout,
		RequireSuccessMarker: b.RequireSuccessMarker,
	}
	if s := b.Stages; s != nil {
		c.Stages = config.Stages{
			HforSplitting: s.HforSplitting,
			Analysis:      s.Analysis,
			Merging:       s.Merging,
			Plotting:      s.Plotting,
			MemTk:         s.MemTk,
			MemDisc:       s.MemDisc,
			HistFactory:   s.HistFactory,
		}
	}
	if s := b.Systematics; s != nil {
		c.Systematics = config.Systematics{Groups: s.Groups, Names: s.Names, Dynamic: s.Dynamic}
	}
	if i := b.Ignore; i != nil {
		c.Ignore = config.Ignore{
			UseHforSamples: i.UseHforSamples,
			MCOnly:         i.MCOnly,
			SkipDataDriven: i.SkipDataDriven,
			Names:          i.Samples,
		}
	}
	if l := b.Local; l != nil {
		c.Local = &config.Local{
			RunTemplate:   resolve(dir, l.RunTemplate),
			Env:           l.Env,
			SubmitCommand: l.SubmitCommand,
			Nodes:         l.Nodes,
		}
	}
	if g := b.Grid; g != nil {
		c.Grid = &config.Grid{
			Home:          resolve(dir, g.Home),
			User:          g.User,
			Suffix:        g.Suffix,
			IDSuffix:      g.IDSuffix,
			RequiredFiles: g.RequiredFiles,
			AuxFiles:      g.AuxFiles,
			RunTemplate:   resolve(dir, g.RunTemplate),
			Setup:         g.Setup,
			Env:           g.Env,
			RootVersion:   g.RootVersion,
			CmtConfig:     g.CmtConfig,
			MaxCPUCount:   g.MaxCPUCount,
			FilesPerJob:   g.FilesPerJob,
			DestSE:        g.DestSE,
			TarballOnly:   g.TarballOnly,
			Command:       g.Command,
		}
	}
	if m := b.Monitor; m != nil {
		timeout, err := parseDuration("monitor.connect_timeout", m.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		c.Monitor = &config.Monitor{
			URL:                m.URL,
			Namespace:          m.Namespace,
			InsecureSkipVerify: m.InsecureSkipVerify,
			ConnectTimeout:     timeout,
		}
	}
	return c, nil
}

func translateSample(b *sampleBlock, dir string) config.Sample {
	return config.Sample{
		Name:           b.Name,
		Title:          b.Title,
		Category:       b.Category,
		XSection:       b.XSection,
		Color:          b.Color,
		Paths:          resolveAll(dir, b.Paths),
		SystematicOnly: b.SystematicOnly,
	}
}

package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/campaigngrid/internal/ctxlog"
	"github.com/specialistvlad/campaigngrid/internal/dispatch"
	"github.com/specialistvlad/campaigngrid/internal/tree"
)

// Run builds the task tree and executes the configured mode.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.", "mode", a.config.Mode)

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
		defer a.closeHealthcheckServer()
	}

	cfg, err := a.treeConfig()
	if err != nil {
		return fmt.Errorf("%w: %w", tree.ErrInvalidConfig, err)
	}
	tr, err := tree.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build task tree: %w", err)
	}
	a.logger.Info("🌳 Task tree built.", "campaign", a.model.Campaign.Name, "leaves", len(tr.Leaves()), "nodes", tr.Len())

	switch a.config.Mode {
	case ModePlan:
		return a.printPlan(tr)
	case ModeStatus:
		return a.runStatus(ctx, tr)
	case ModeDispatch:
		return a.runDispatch(ctx, tr)
	}
	return fmt.Errorf("invalid mode %q", a.config.Mode)
}

func (a *App) runStatus(ctx context.Context, tr *tree.Tree) error {
	sum, err := a.newTracker().Refresh(ctx, tr)
	if err != nil {
		return err
	}
	a.setSummary(sum)
	return a.printSummary(sum)
}

func (a *App) runDispatch(ctx context.Context, tr *tree.Tree) error {
	pub := a.newMonitor(ctx)
	defer func() {
		if err := pub.Close(); err != nil {
			a.logger.Warn("Failed to close progress monitor.", "error", err)
		}
	}()

	d := dispatch.New(a.newBackend(), a.newTracker(), a.namer, a.dispatchOptions(pub))
	report, err := d.Run(ctx, tr)
	if report != nil {
		a.setReport(report)
		if perr := a.printReport(report); perr != nil && err == nil {
			err = perr
		}
	}
	if err != nil {
		return fmt.Errorf("dispatch failed: %w", err)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/specialistvlad/campaigngrid/internal/config"
	"github.com/specialistvlad/campaigngrid/internal/ctxlog"
	"github.com/specialistvlad/campaigngrid/internal/paths"
	"github.com/specialistvlad/campaigngrid/internal/samples"
	"github.com/specialistvlad/campaigngrid/internal/systematics"
)

// App encapsulates the campaign's dependencies, configuration and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	ctx    context.Context
	config *Config

	model    *config.Model
	registry *systematics.Registry
	catalog  *samples.Catalog
	namer    paths.Namer

	httpServer *http.Server

	mu       sync.Mutex
	progress Progress
}

// New loads and validates the campaign. Every configuration error is
// returned before anything touches the file system.
func New(outW io.Writer, cfg *Config, loader config.Loader) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.ConfigPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Configuration loaded and validated.", "campaign", model.Campaign.Name, "files", len(model.Files))

	registry, err := systematics.New(model.Campaign.Systematics.Dynamic...)
	if err != nil {
		return nil, fmt.Errorf("failed to build systematic registry: %w", err)
	}
	catalog, err := newCatalog(model)
	if err != nil {
		return nil, fmt.Errorf("failed to build sample catalog: %w", err)
	}
	logger.Debug("Sample catalog ready.", "samples", catalog.Len())

	return &App{
		outW:     outW,
		logger:   logger,
		ctx:      ctx,
		config:   cfg,
		model:    model,
		registry: registry,
		catalog:  catalog,
		namer:    newNamer(model.Campaign),
		progress: Progress{Campaign: model.Campaign.Name, Mode: cfg.Mode},
	}, nil
}

// NewApp is New for entrypoints: a configuration error is fatal at startup,
// so it panics and lets the caller print a clean message.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader) *App {
	a, err := New(outW, cfg, loader)
	if err != nil {
		panic(err)
	}
	return a
}

// Campaign returns the loaded campaign definition.
func (a *App) Campaign() *config.Campaign { return a.model.Campaign }

// Catalog returns the sample catalog. This is primarily for testing.
func (a *App) Catalog() *samples.Catalog { return a.catalog }

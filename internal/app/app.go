package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/a-delannoy/yaani/internal/config"
	"github.com/a-delannoy/yaani/internal/ctxlog"
	"github.com/a-delannoy/yaani/internal/dataset"
	"github.com/a-delannoy/yaani/internal/fsutil"
	"github.com/a-delannoy/yaani/internal/query"
	"github.com/a-delannoy/yaani/internal/render"
	"github.com/a-delannoy/yaani/internal/source"
	"github.com/a-delannoy/yaani/internal/transform"
)

// App encapsulates one pipeline run: configuration, logger, the query
// evaluator shared across stages and the transform hook registry.
type App struct {
	cfg    *Config
	logger *slog.Logger
	eval   *query.Evaluator
	hooks  *transform.Registry
}

// New constructs an App with an isolated logger writing to logW. A nil
// hook registry means no transform hooks are available.
func New(logW io.Writer, cfg *Config, hooks *transform.Registry) *App {
	if hooks == nil {
		hooks = transform.NewRegistry()
	}
	return &App{
		cfg:    cfg,
		logger: newLogger(cfg.LogLevel, cfg.LogFormat, logW),
		eval:   query.New(),
		hooks:  hooks,
	}
}

// Run executes the whole pipeline and returns the final inventory
// value: the full Ansible-shaped mapping in list mode, a single host's
// variables in host mode, an empty mapping when neither is requested.
func (a *App) Run(ctx context.Context) (map[string]any, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := a.logger

	if !a.cfg.List && a.cfg.Host == "" {
		return map[string]any{}, nil
	}

	files, err := fsutil.FindConfigFiles(a.cfg.ConfigPath, config.FileExtension)
	if err != nil {
		return nil, fmt.Errorf("locating configuration: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s configuration files under %s", config.FileExtension, a.cfg.ConfigPath)
	}

	model, err := config.Load(ctx, a.eval, files...)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	logger.Info("Configuration loaded.", "files", len(files), "datasets", len(model.Datasets))

	// Hook names must resolve before any fetch happens.
	if err := a.hooks.Resolve(model.Transform); err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	registry, err := source.NewRegistry(a.eval, model.Sources)
	if err != nil {
		return nil, err
	}

	graph, err := dataset.Build(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("building dataset graph: %w", err)
	}

	store, err := dataset.NewEvaluator(graph, registry, a.eval, a.cfg.Workers).Run(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Datasets evaluated.", "count", len(model.Datasets))

	inv, err := render.New(a.eval, store).Build(ctx, model.Render)
	if err != nil {
		return nil, err
	}
	logger.Info("Inventory rendered.", "groups", len(inv.Groups), "hosts", len(inv.HostVars))

	if err := a.hooks.Apply(ctx, model.Transform, inv); err != nil {
		return nil, err
	}

	if a.cfg.Host != "" {
		if vars, ok := inv.HostVars[a.cfg.Host]; ok {
			return vars, nil
		}
		return map[string]any{}, nil
	}
	return inv.ToAnsible(), nil
}

// Package app wires configuration into the running service.
package app

import (
	"context"
	"fmt"

	"legwork/internal/catalog"
	"legwork/internal/config"
	"legwork/internal/logger"
	apihttp "legwork/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App owns the service lifecycle: template catalog, API server, shutdown.
type App struct {
	cfg      *config.Config
	registry *catalog.Registry
	server   *apihttp.Server
}

// NewApp builds the application object without starting it.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildApp(cfg)
}

// Run serves until ctx is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.server == nil {
		return fmt.Errorf("api server not initialized")
	}

	logger.Infof("Serving on %s (env=%s, templates=%s)", a.server.Addr(), a.cfg.App.Env, a.cfg.Catalog.TemplatesPath)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Registry exposes the template catalog (for testing harnesses).
func (a *App) Registry() *catalog.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

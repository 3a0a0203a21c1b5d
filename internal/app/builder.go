package app

import (
	"fmt"

	"legwork/internal/catalog"
	"legwork/internal/config"
	"legwork/internal/logger"
	"legwork/internal/scorer"
	apihttp "legwork/internal/transport/http/api"
	"legwork/internal/version"
)

// buildApp assembles the collaborator graph from config. Construction is
// fail-fast: a bad catalog file or server config aborts startup.
func buildApp(cfg *config.Config) (*App, error) {
	registry, err := catalog.NewRegistry(cfg.Catalog.TemplatesPath)
	if err != nil {
		return nil, fmt.Errorf("template catalog init failed: %w", err)
	}
	registry.Subscribe(func(snap catalog.Snapshot) {
		logger.Infof("Template catalog reloaded: version=%d templates=%d", snap.Version, len(snap.Templates))
	})

	router := apihttp.NewRouter(
		version.NewMemoryStore(),
		registry,
		scorer.NewService(registry),
		cfg.Proposals,
		cfg.Chart,
	)
	server, err := apihttp.NewServer(apihttp.ServerConfig{
		Addr: cfg.App.HTTPAddr,
		API:  router,
	})
	if err != nil {
		return nil, fmt.Errorf("api server init failed: %w", err)
	}

	return &App{
		cfg:      cfg,
		registry: registry,
		server:   server,
	}, nil
}

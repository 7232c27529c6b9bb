package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/harborpoint/lendops/internal/config"
	"github.com/harborpoint/lendops/internal/engine"
	"github.com/harborpoint/lendops/internal/store"
)

// openStore creates the configured store backend.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	}
	return nil, eris.Errorf("unknown store driver: %q", cfg.Store.Driver)
}

// newEngine builds the decision engine, loading rule tunables from file
// when configured.
func newEngine(cfg *config.Config) (*engine.Engine, error) {
	if cfg.Engine.RulesPath == "" {
		return engine.New(nil), nil
	}
	rules, err := engine.LoadConfig(cfg.Engine.RulesPath)
	if err != nil {
		return nil, err
	}
	return engine.New(rules), nil
}

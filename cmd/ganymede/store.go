package main

import (
	"fmt"

	"mercator-hq/ganymede/pkg/budget/persist"
	"mercator-hq/ganymede/pkg/config"
)

// openStore creates the snapshot store described by the persistence
// configuration. The caller owns the returned store and must close it.
func openStore(cfg *config.Config) (persist.Store, error) {
	switch cfg.Persistence.Backend {
	case "file":
		return persist.NewFileStore(cfg.Persistence.Directory)
	case "sqlite":
		return persist.NewSQLiteStore(cfg.Persistence.SQLitePath)
	case "memory":
		return persist.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence backend: %s", cfg.Persistence.Backend)
	}
}

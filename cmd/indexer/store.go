package main

import (
	"context"
	"fmt"

	"lithosScope/internal/aggregate"
	"lithosScope/internal/config"
	"lithosScope/internal/entity"
	"lithosScope/internal/storage/memory"
	"lithosScope/internal/storage/postgres"
	"lithosScope/internal/storage/sqlite"
)

// scanStore is an entity store that can also walk every row of a kind.
type scanStore interface {
	entity.Store
	entity.Scanner
}

type openedStore struct {
	store scanStore
	// state is nil for the memory backend.
	state  aggregate.NamedStateBackend
	memory *memory.Store
	close  func()
}

func openStore(ctx context.Context, cfg config.StoreConfig) (*openedStore, error) {
	switch cfg.Backend {
	case config.StorePostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return &openedStore{store: store, state: store, close: store.Close}, nil
	case config.StoreSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &openedStore{store: store, state: store, close: func() { _ = store.Close() }}, nil
	default:
		store := memory.NewStore()
		return &openedStore{store: store, memory: store, close: func() {}}, nil
	}
}

func describeStore(cfg config.StoreConfig) string {
	switch cfg.Backend {
	case config.StorePostgres:
		return "postgres " + redactDSN(cfg.PGDSN)
	case config.StoreSQLite:
		return "sqlite " + cfg.SQLitePath
	default:
		return cfg.Backend
	}
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}

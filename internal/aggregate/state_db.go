package aggregate

import (
	"context"

	"lithosScope/internal/model"
)

// NamedStateBackend is a store with a named progress table. Both the
// Postgres and SQLite entity stores implement it.
type NamedStateBackend interface {
	LoadState(ctx context.Context, name string) (model.Cursor, bool, error)
	SaveState(ctx context.Context, name string, c model.Cursor) error
}

// DBStateStore stores state in the indexer_state table of the entity store.
type DBStateStore struct {
	Backend NamedStateBackend
	Name    string
}

func (s *DBStateStore) Load(ctx context.Context) (model.Cursor, bool, error) {
	if s == nil || s.Backend == nil {
		return model.Cursor{}, false, nil
	}
	return s.Backend.LoadState(ctx, s.Name)
}

func (s *DBStateStore) Save(ctx context.Context, c model.Cursor) error {
	if s == nil || s.Backend == nil {
		return nil
	}
	return s.Backend.SaveState(ctx, s.Name, c)
}

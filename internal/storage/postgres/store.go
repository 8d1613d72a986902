// Package postgres persists entities and progress state in Postgres.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lithosScope/internal/entity"
	"lithosScope/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store keeps every entity kind in one JSONB table keyed by (kind, id).
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, kind model.Kind, id string, dst model.Entity) (bool, error) {
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT data FROM entities WHERE kind=$1 AND id=$2`, string(kind), id)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if err := entity.Decode(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Upsert(ctx context.Context, e model.Entity) error {
	if err := entity.Validate(e); err != nil {
		return err
	}
	data, err := entity.Encode(e)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO entities (kind, id, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (kind, id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = now()
	`, string(e.EntityKind()), e.EntityID(), data)
	return err
}

func (s *Store) EnsureExists(ctx context.Context, e model.Entity) (bool, error) {
	if err := entity.Validate(e); err != nil {
		return false, err
	}
	data, err := entity.Encode(e)
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO entities (kind, id, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (kind, id) DO NOTHING
	`, string(e.EntityKind()), e.EntityID(), data)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) Remove(ctx context.Context, kind model.Kind, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM entities WHERE kind=$1 AND id=$2`, string(kind), id)
	return err
}

// UpsertBatch writes several entities in one round trip.
func (s *Store) UpsertBatch(ctx context.Context, entities []model.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entities {
		if err := entity.Validate(e); err != nil {
			return err
		}
		data, err := entity.Encode(e)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO entities (kind, id, data, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (kind, id) DO UPDATE
			SET data = EXCLUDED.data, updated_at = now()
		`, string(e.EntityKind()), e.EntityID(), data)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range entities {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// Scan visits every row of kind in id order.
func (s *Store) Scan(ctx context.Context, kind model.Kind, fn func(id string, data []byte) error) error {
	rows, err := s.pool.Query(ctx, `SELECT id, data FROM entities WHERE kind=$1 ORDER BY id`, string(kind))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return err
		}
		if err := fn(id, data); err != nil {
			return err
		}
	}
	return rows.Err()
}

// LoadState returns the cursor saved under name. A NULL last_log_index
// means the whole block was processed.
func (s *Store) LoadState(ctx context.Context, name string) (model.Cursor, bool, error) {
	if name == "" {
		return model.Cursor{}, false, fmt.Errorf("state name required")
	}
	var (
		block    int64
		logIndex *int64
	)
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block, last_log_index FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&block, &logIndex); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Cursor{}, false, nil
		}
		return model.Cursor{}, false, err
	}
	if logIndex != nil {
		return model.LogCursor(uint64(block), uint64(*logIndex)), true, nil
	}
	return model.BlockCursor(uint64(block)), true, nil
}

// SaveState upserts the cursor for a name.
func (s *Store) SaveState(ctx context.Context, name string, c model.Cursor) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	var logIndex *int64
	if c.LogIndex != nil {
		v := int64(*c.LogIndex)
		logIndex = &v
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed_block, last_log_index, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block,
			last_log_index = EXCLUDED.last_log_index,
			updated_at = now()
	`, name, int64(c.Block), logIndex)
	return err
}

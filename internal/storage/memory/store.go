// Package memory is an in-process entity store for dry runs and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"

	"golang.org/x/exp/maps"

	"lithosScope/internal/entity"
	"lithosScope/internal/model"
)

// Store keeps encoded entities per kind behind a RWMutex.
type Store struct {
	mu   sync.RWMutex
	rows map[model.Kind]map[string][]byte
}

func NewStore() *Store {
	return &Store{rows: make(map[model.Kind]map[string][]byte)}
}

func (s *Store) Load(_ context.Context, kind model.Kind, id string, dst model.Entity) (bool, error) {
	s.mu.RLock()
	data, ok := s.rows[kind][id]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := entity.Decode(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Upsert(_ context.Context, e model.Entity) error {
	if err := entity.Validate(e); err != nil {
		return err
	}
	data, err := entity.Encode(e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.put(e.EntityKind(), e.EntityID(), data)
	s.mu.Unlock()
	return nil
}

func (s *Store) EnsureExists(_ context.Context, e model.Entity) (bool, error) {
	if err := entity.Validate(e); err != nil {
		return false, err
	}
	data, err := entity.Encode(e)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[e.EntityKind()][e.EntityID()]; ok {
		return false, nil
	}
	s.put(e.EntityKind(), e.EntityID(), data)
	return true, nil
}

func (s *Store) Remove(_ context.Context, kind model.Kind, id string) error {
	s.mu.Lock()
	delete(s.rows[kind], id)
	s.mu.Unlock()
	return nil
}

// Scan visits every row of kind in id order.
func (s *Store) Scan(ctx context.Context, kind model.Kind, fn func(id string, data []byte) error) error {
	s.mu.RLock()
	bucket := s.rows[kind]
	ids := maps.Keys(bucket)
	snapshot := make(map[string][]byte, len(bucket))
	for id, data := range bucket {
		snapshot[id] = data
	}
	s.mu.RUnlock()

	slices.Sort(ids)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(id, snapshot[id]); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of rows of kind.
func (s *Store) Count(kind model.Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows[kind])
}

type dumpLine struct {
	Kind model.Kind      `json:"kind"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Dump writes every row as a JSON line ordered by kind then id.
func (s *Store) Dump(ctx context.Context, w io.Writer) error {
	s.mu.RLock()
	kinds := maps.Keys(s.rows)
	s.mu.RUnlock()
	slices.Sort(kinds)

	enc := json.NewEncoder(w)
	for _, kind := range kinds {
		err := s.Scan(ctx, kind, func(id string, data []byte) error {
			return enc.Encode(dumpLine{Kind: kind, ID: id, Data: data})
		})
		if err != nil {
			return fmt.Errorf("dump %s: %w", kind, err)
		}
	}
	return nil
}

func (s *Store) put(kind model.Kind, id string, data []byte) {
	bucket := s.rows[kind]
	if bucket == nil {
		bucket = make(map[string][]byte)
		s.rows[kind] = bucket
	}
	bucket[id] = data
}

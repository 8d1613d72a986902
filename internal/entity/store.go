// Package entity defines the key-value contract the aggregation engine
// persists through, plus typed get-or-create helpers on top of it.
package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lithosScope/internal/model"
)

// ErrNotFound is returned by helpers that require an entity to exist.
var ErrNotFound = errors.New("entity not found")

// Store is the persistence contract. Load decodes into dst and reports
// whether the row existed. EnsureExists writes e only when no row with the
// same kind and id is present.
type Store interface {
	Load(ctx context.Context, kind model.Kind, id string, dst model.Entity) (bool, error)
	Upsert(ctx context.Context, e model.Entity) error
	Remove(ctx context.Context, kind model.Kind, id string) error
	EnsureExists(ctx context.Context, e model.Entity) (bool, error)
}

// Scanner is implemented by stores that can enumerate a kind.
type Scanner interface {
	Scan(ctx context.Context, kind model.Kind, fn func(id string, data []byte) error) error
}

// ptrEntity constrains P to a pointer to T that implements model.Entity.
type ptrEntity[T any] interface {
	*T
	model.Entity
}

// KindOf returns the store kind of entity type T.
func KindOf[T any, P ptrEntity[T]]() model.Kind {
	var zero T
	return P(&zero).EntityKind()
}

// Get loads an entity of type T. It returns nil when the row is absent.
func Get[T any, P ptrEntity[T]](ctx context.Context, s Store, id string) (P, error) {
	out := P(new(T))
	found, err := s.Load(ctx, out.EntityKind(), id, out)
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", out.EntityKind(), id, err)
	}
	if !found {
		return nil, nil
	}
	return out, nil
}

// MustGet is Get but reports ErrNotFound for absent rows.
func MustGet[T any, P ptrEntity[T]](ctx context.Context, s Store, id string) (P, error) {
	out, err := Get[T, P](ctx, s, id)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%s %s: %w", KindOf[T, P](), id, ErrNotFound)
	}
	return out, nil
}

// GetOrCreate loads an entity or builds it with create. The created value
// is not persisted; callers upsert after mutating it.
func GetOrCreate[T any, P ptrEntity[T]](ctx context.Context, s Store, id string, create func() P) (P, bool, error) {
	out, err := Get[T, P](ctx, s, id)
	if err != nil {
		return nil, false, err
	}
	if out != nil {
		return out, false, nil
	}
	return create(), true, nil
}

// Encode serializes an entity the way every backend stores it.
func Encode(e model.Entity) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s %s: %w", e.EntityKind(), e.EntityID(), err)
	}
	return data, nil
}

// Decode fills dst from stored bytes.
func Decode(data []byte, dst model.Entity) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", dst.EntityKind(), err)
	}
	return nil
}

// Validate rejects entities without an id.
func Validate(e model.Entity) error {
	if e == nil {
		return fmt.Errorf("nil entity")
	}
	if e.EntityID() == "" {
		return fmt.Errorf("%s: empty id", e.EntityKind())
	}
	return nil
}

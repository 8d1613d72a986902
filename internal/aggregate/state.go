package aggregate

import (
	"context"

	"lithosScope/internal/model"
	"lithosScope/internal/storage"
)

// StateStore persists the processor's cursor.
type StateStore interface {
	Load(ctx context.Context) (model.Cursor, bool, error)
	Save(ctx context.Context, c model.Cursor) error
}

// FileStateStore keeps progress in a local JSON file. Name guards against
// pointing it at another pipeline's file and defaults to "aggregate".
type FileStateStore struct {
	Path string
	Name string
}

func (s *FileStateStore) file() storage.ProgressFile {
	name := s.Name
	if name == "" {
		name = "aggregate"
	}
	return storage.ProgressFile{Path: s.Path, Name: name}
}

func (s *FileStateStore) Load(_ context.Context) (model.Cursor, bool, error) {
	if s == nil || s.Path == "" {
		return model.Cursor{}, false, nil
	}
	return s.file().LoadCursor()
}

func (s *FileStateStore) Save(_ context.Context, c model.Cursor) error {
	if s == nil || s.Path == "" {
		return nil
	}
	return s.file().SaveCursor(c)
}

package indexer

import (
	"context"

	"lithosScope/internal/storage"
)

const checkpointName = "run"

// Checkpointer persists indexer progress.
type Checkpointer interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, block uint64) error
}

// CheckpointStore records the last block whose logs were fully written. A
// disabled store never reports progress and ignores saves.
type CheckpointStore struct {
	file    storage.ProgressFile
	enabled bool
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{
		file:    storage.ProgressFile{Path: path, Name: checkpointName},
		enabled: enabled && path != "",
	}
}

func (c *CheckpointStore) Load(_ context.Context) (uint64, bool, error) {
	if !c.enabled {
		return 0, false, nil
	}
	return c.file.Load()
}

func (c *CheckpointStore) Save(_ context.Context, block uint64) error {
	if !c.enabled {
		return nil
	}
	return c.file.Save(block)
}

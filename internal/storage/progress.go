package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lithosScope/internal/model"
)

// Progress is the on-disk form of a pipeline's cursor.
type Progress struct {
	Name string `json:"name,omitempty"`
	model.Cursor
	UpdatedAt string `json:"updated_at"`
}

// ProgressFile keeps one pipeline's progress in a JSON file. Saves go
// through a temp file and a rename so a crash never leaves a torn record.
// When Name is set, a file written under another name is rejected.
type ProgressFile struct {
	Path string
	Name string
}

// Load returns the last fully processed block.
func (f ProgressFile) Load() (uint64, bool, error) {
	c, ok, err := f.LoadCursor()
	if err != nil || !ok {
		return 0, ok, err
	}
	if c.LogIndex != nil {
		// the block itself is unfinished
		if c.Block == 0 {
			return 0, false, nil
		}
		return c.Block - 1, true, nil
	}
	return c.Block, true, nil
}

// Save records block as fully processed.
func (f ProgressFile) Save(block uint64) error {
	return f.SaveCursor(model.BlockCursor(block))
}

func (f ProgressFile) LoadCursor() (model.Cursor, bool, error) {
	stat, err := os.Stat(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Cursor{}, false, nil
		}
		return model.Cursor{}, false, fmt.Errorf("stat progress: %w", err)
	}
	if stat.IsDir() {
		return model.Cursor{}, false, fmt.Errorf("progress path %s is a directory", f.Path)
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return model.Cursor{}, false, fmt.Errorf("read progress: %w", err)
	}

	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Cursor{}, false, fmt.Errorf("parse progress: %w", err)
	}
	if f.Name != "" && p.Name != "" && p.Name != f.Name {
		return model.Cursor{}, false, fmt.Errorf("progress file %s belongs to %q, not %q", f.Path, p.Name, f.Name)
	}
	return p.Cursor, true, nil
}

func (f ProgressFile) SaveCursor(c model.Cursor) error {
	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create progress dir: %w", err)
		}
	}

	data, err := json.Marshal(Progress{
		Name:      f.Name,
		Cursor:    c,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write progress tmp: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("rename progress: %w", err)
	}
	return nil
}

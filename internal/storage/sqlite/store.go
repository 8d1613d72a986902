// Package sqlite persists entities in a local SQLite file through gorm.
// Use "file::memory:?cache=shared" for a throwaway database.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"lithosScope/internal/entity"
	"lithosScope/internal/model"
)

type entityRow struct {
	Kind      string `gorm:"primaryKey"`
	ID        string `gorm:"primaryKey"`
	Data      []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (entityRow) TableName() string { return "entities" }

type stateRow struct {
	Name               string `gorm:"primaryKey"`
	LastProcessedBlock uint64
	// LastLogIndex is NULL once the whole block is processed.
	LastLogIndex *uint64
	UpdatedAt    time.Time
}

func (stateRow) TableName() string { return "indexer_state" }

var entityKey = []clause.Column{{Name: "kind"}, {Name: "id"}}

// Store implements entity.Store on top of gorm.
type Store struct {
	db *gorm.DB
}

func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&entityRow{}); err != nil {
		return nil, fmt.Errorf("entities table migrate error: %w", err)
	}
	if err := db.AutoMigrate(&stateRow{}); err != nil {
		return nil, fmt.Errorf("indexer_state table migrate error: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Load(ctx context.Context, kind model.Kind, id string, dst model.Entity) (bool, error) {
	var row entityRow
	err := s.db.WithContext(ctx).Where("kind = ? AND id = ?", string(kind), id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := entity.Decode(row.Data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Upsert(ctx context.Context, e model.Entity) error {
	row, err := newRow(e)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   entityKey,
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&row).Error
}

func (s *Store) EnsureExists(ctx context.Context, e model.Entity) (bool, error) {
	row, err := newRow(e)
	if err != nil {
		return false, err
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{Columns: entityKey, DoNothing: true}).Create(&row)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *Store) Remove(ctx context.Context, kind model.Kind, id string) error {
	return s.db.WithContext(ctx).Where("kind = ? AND id = ?", string(kind), id).Delete(&entityRow{}).Error
}

// Scan visits every row of kind in id order.
func (s *Store) Scan(ctx context.Context, kind model.Kind, fn func(id string, data []byte) error) error {
	rows, err := s.db.WithContext(ctx).Model(&entityRow{}).
		Where("kind = ?", string(kind)).Order("id").Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row entityRow
		if err := s.db.ScanRows(rows, &row); err != nil {
			return err
		}
		if err := fn(row.ID, row.Data); err != nil {
			return err
		}
	}
	return rows.Err()
}

// LoadState returns the cursor saved under name.
func (s *Store) LoadState(ctx context.Context, name string) (model.Cursor, bool, error) {
	var row stateRow
	err := s.db.WithContext(ctx).Where("name = ?", name).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Cursor{}, false, nil
		}
		return model.Cursor{}, false, err
	}
	return model.Cursor{Block: row.LastProcessedBlock, LogIndex: row.LastLogIndex}, true, nil
}

// SaveState upserts the cursor for a name.
func (s *Store) SaveState(ctx context.Context, name string, c model.Cursor) error {
	row := stateRow{Name: name, LastProcessedBlock: c.Block, LastLogIndex: c.LogIndex, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_processed_block", "last_log_index", "updated_at"}),
		}).
		Create(&row).Error
}

func newRow(e model.Entity) (entityRow, error) {
	if err := entity.Validate(e); err != nil {
		return entityRow{}, err
	}
	data, err := entity.Encode(e)
	if err != nil {
		return entityRow{}, err
	}
	return entityRow{
		Kind:      string(e.EntityKind()),
		ID:        e.EntityID(),
		Data:      data,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// Package store persists per-player vanish state across reconnects.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// VanishStore reads and writes the vanished flag of a game profile.
type VanishStore interface {
	IsVanished(ctx context.Context, id uuid.UUID) (bool, error)
	SetVanished(ctx context.Context, id uuid.UUID, vanished bool) error
	Close() error
}

// VanishRecord is one row of the vanish table.
type VanishRecord struct {
	ProfileID string    `gorm:"primaryKey;size:36"`
	Vanished  bool      `gorm:"not null"`
	UpdatedAt time.Time
}

// SQL is a VanishStore on top of gorm.
type SQL struct {
	db *gorm.DB
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (*SQL, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open vanish store %s: %w", path, err)
	}
	if err := db.AutoMigrate(&VanishRecord{}); err != nil {
		return nil, fmt.Errorf("migrate vanish store: %w", err)
	}
	return &SQL{db: db}, nil
}

// IsVanished reports the stored flag; unknown profiles are visible.
func (s *SQL) IsVanished(ctx context.Context, id uuid.UUID) (bool, error) {
	var rec VanishRecord
	err := s.db.WithContext(ctx).Where("profile_id = ?", id.String()).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load vanish state %s: %w", id, err)
	}
	return rec.Vanished, nil
}

// SetVanished upserts the flag for id.
func (s *SQL) SetVanished(ctx context.Context, id uuid.UUID, vanished bool) error {
	rec := VanishRecord{ProfileID: id.String(), Vanished: vanished}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"vanished", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save vanish state %s: %w", id, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Memory is a VanishStore that forgets everything on restart.
type Memory struct {
	mu       deadlock.RWMutex
	vanished map[uuid.UUID]bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{vanished: make(map[uuid.UUID]bool)}
}

// IsVanished reports the flag for id; unknown profiles are visible.
func (m *Memory) IsVanished(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vanished[id], nil
}

// SetVanished records the flag for id. Visible profiles are not kept.
func (m *Memory) SetVanished(_ context.Context, id uuid.UUID, vanished bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if vanished {
		m.vanished[id] = true
	} else {
		delete(m.vanished, id)
	}
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

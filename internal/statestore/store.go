// Package statestore implements durable local persistence for the client
// session, backed by GORM over SQLite (pure Go driver). It is the Go
// counterpart of the web client's localStorage: two keyed entries, written
// together and cleared together.
package statestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/maventax/maven-client/internal/domain"
)

// Open opens (or creates) the SQLite state database, applies PRAGMAs, and
// migrates the session table.
func Open(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// A local single-user state file needs only a tiny pool.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&domain.SessionEntry{}); err != nil {
		return nil, err
	}
	return db, nil
}

// Store reads and writes the persisted session pair.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an opened state database.
func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// SaveSession upserts the token and serialized user in one transaction, so a
// reader can never observe one without the other.
func (s *Store) SaveSession(ctx context.Context, token, userJSON string) error {
	entries := []domain.SessionEntry{
		{Key: domain.SessionKeyToken, Value: token},
		{Key: domain.SessionKeyUser, Value: userJSON},
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&entries).Error
	})
}

// LoadSession returns the persisted token and serialized user. Both are empty
// strings when no session is stored. A row pair where only one key exists is
// reported as-is; deciding what "partial" means belongs to the session layer.
func (s *Store) LoadSession(ctx context.Context) (token, userJSON string, err error) {
	var rows []domain.SessionEntry
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return "", "", err
	}
	for _, r := range rows {
		switch r.Key {
		case domain.SessionKeyToken:
			token = r.Value
		case domain.SessionKeyUser:
			userJSON = r.Value
		}
	}
	return token, userJSON, nil
}

// ClearSession removes every persisted session entry.
func (s *Store) ClearSession(ctx context.Context) error {
	err := s.db.WithContext(ctx).
		Where("key IN ?", []string{domain.SessionKeyToken, domain.SessionKeyUser}).
		Delete(&domain.SessionEntry{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

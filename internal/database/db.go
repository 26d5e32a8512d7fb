package database

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps the SQLite database
type DB struct {
	*sql.DB
	contactKey []byte
}

// Sync statuses
const (
	SyncRunning = "running"
	SyncSuccess = "success"
	SyncPartial = "partial"
	SyncFailed  = "failed"
)

// SyncHistory represents a tariff refresh record
type SyncHistory struct {
	ID           int64      `json:"id"`
	SyncType     string     `json:"syncType"` // "tariffs"
	Status       string     `json:"status"`   // "running", "success", "partial", "failed"
	ItemsSynced  int        `json:"itemsSynced"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// Open opens or creates the database
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// single writer; also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{DB: db}, nil
}

// SetEncryptionKey enables AES-256-GCM encryption of stored client contacts
func (db *DB) SetEncryptionKey(key []byte) error {
	if key != nil && len(key) != 32 {
		return fmt.Errorf("invalid encryption key length: got %d bytes, expected 32", len(key))
	}
	db.contactKey = key
	return nil
}

// CreateSyncHistory creates a new sync history record
func (db *DB) CreateSyncHistory(sh *SyncHistory) error {
	result, err := db.Exec(`
		INSERT INTO sync_history (sync_type, status, items_synced, error_message, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, sh.SyncType, sh.Status, sh.ItemsSynced, sh.ErrorMessage, sh.StartedAt.UTC())
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	sh.ID = id
	return nil
}

// UpdateSyncHistory updates a sync history record
func (db *DB) UpdateSyncHistory(sh *SyncHistory) error {
	var completed any
	if sh.CompletedAt != nil {
		completed = sh.CompletedAt.UTC()
	}
	_, err := db.Exec(`
		UPDATE sync_history
		SET status = ?, items_synced = ?, error_message = ?, completed_at = ?
		WHERE id = ?
	`, sh.Status, sh.ItemsSynced, sh.ErrorMessage, completed, sh.ID)
	return err
}

// GetSyncHistory returns the most recent sync records, newest first
func (db *DB) GetSyncHistory(limit int) ([]SyncHistory, error) {
	rows, err := db.Query(`
		SELECT id, sync_type, status, items_synced, error_message, started_at, completed_at
		FROM sync_history
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []SyncHistory
	for rows.Next() {
		var sh SyncHistory
		err := rows.Scan(&sh.ID, &sh.SyncType, &sh.Status,
			&sh.ItemsSynced, &sh.ErrorMessage, &sh.StartedAt, &sh.CompletedAt)
		if err != nil {
			return nil, err
		}
		history = append(history, sh)
	}
	return history, rows.Err()
}

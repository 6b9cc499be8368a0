// Package localstore persists the session credential and the last-known
// user snapshot across restarts. It is a two-key durable store backed by
// SQLite so writes survive crashes without a separate file format.
package localstore

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"aniview/models"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	keyCredential = "credential"
	keySnapshot   = "snapshot"
)

// Store wraps the database connection holding local session state.
type Store struct {
	conn *sql.DB
	log  *slog.Logger
}

// Open creates the database if needed, runs migrations, and returns a store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	connString := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	conn, err := sql.Open("sqlite3", connString)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// A single writer is plenty for two keys.
	conn.SetMaxOpenConns(2)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{conn: conn, log: logger}, nil
}

func runMigrations(conn *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Load returns the persisted credential and snapshot. Either may be absent.
// An unparseable snapshot is treated as absent and both keys are cleared so
// the caller falls back to the logged-out state.
func (s *Store) Load() (string, *models.UserSnapshot, error) {
	token, err := s.get(keyCredential)
	if err != nil {
		return "", nil, err
	}
	raw, err := s.get(keySnapshot)
	if err != nil {
		return "", nil, err
	}

	if raw == "" {
		return token, nil, nil
	}

	var snap models.UserSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		s.log.Warn("discarding unparseable local snapshot", "err", err)
		if clearErr := s.Clear(); clearErr != nil {
			return "", nil, clearErr
		}
		return "", nil, nil
	}

	norm := snap.Normalized()
	return token, &norm, nil
}

// SaveSession writes the credential and snapshot together in one
// transaction so a crash cannot leave one without the other.
func (s *Store) SaveSession(token string, snap *models.UserSnapshot) error {
	raw, err := marshalSnapshot(snap)
	if err != nil {
		return err
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if err := upsert(tx, keyCredential, token); err != nil {
		return err
	}
	if err := upsert(tx, keySnapshot, raw); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveSnapshot updates the snapshot alone, used on every local mutation.
func (s *Store) SaveSnapshot(snap *models.UserSnapshot) error {
	raw, err := marshalSnapshot(snap)
	if err != nil {
		return err
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if err := upsert(tx, keySnapshot, raw); err != nil {
		return err
	}
	return tx.Commit()
}

// Clear removes both keys, returning the store to the logged-out shape.
func (s *Store) Clear() error {
	if _, err := s.conn.Exec(`DELETE FROM session_state WHERE key IN (?, ?)`, keyCredential, keySnapshot); err != nil {
		return fmt.Errorf("clear session state: %w", err)
	}
	return nil
}

func (s *Store) get(key string) (string, error) {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM session_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}

func upsert(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`
		INSERT INTO session_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func marshalSnapshot(snap *models.UserSnapshot) (string, error) {
	if snap == nil {
		return "", fmt.Errorf("nil snapshot")
	}
	norm := snap.Normalized()
	raw, err := json.Marshal(norm)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(raw), nil
}

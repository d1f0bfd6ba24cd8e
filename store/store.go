// Package store persists users and conversation turns in SQLite. A single
// connection behind database/sql serializes writers so one logical
// operation is never interleaved with another.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/parleybot/parley/directory"
	"github.com/parleybot/parley/history"
)

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database described by cfg and
// applies the idempotent schema migration when cfg.AutoMigrate is set.
func Open(cfg Config) (*Store, error) {
	dsn, err := ResolveDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("resolve dsn: %w", err)
	}
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Pool.MaxIdleConns)

	if cfg.SQLite.WAL {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("wal mode: %w", err)
		}
	}
	if cfg.SQLite.BusyTimeoutMs > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.SQLite.BusyTimeoutMs)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("busy timeout: %w", err)
		}
	}
	if cfg.SQLite.ForeignKeys {
		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("foreign keys: %w", err)
		}
	}

	s := &Store{db: db}
	if cfg.AutoMigrate {
		if err := s.Migrate(context.Background()); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Migrate creates the users and chat_history tables if they do not exist.
// Safe to run on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			display_name  TEXT NOT NULL,
			address_form  TEXT NOT NULL DEFAULT 'informal',
			chat_id       INTEGER,
			voice_enabled INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		return fmt.Errorf("create users: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chat_history (
			id         INTEGER PRIMARY KEY,
			chat_id    INTEGER NOT NULL,
			role       TEXT NOT NULL,
			message    TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create chat_history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_chat_history_chat ON chat_history (chat_id, created_at)
	`); err != nil {
		return fmt.Errorf("index chat_history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrate: %w", err)
	}
	return nil
}

// ListUsers implements directory.Source.
func (s *Store) ListUsers(ctx context.Context) ([]directory.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, display_name, address_form, COALESCE(chat_id, 0), voice_enabled
		FROM users ORDER BY username
	`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var users []directory.User
	for rows.Next() {
		var u directory.User
		var form string
		var voice int
		if err := rows.Scan(&u.Username, &u.DisplayName, &form, &u.ChatID, &voice); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.AddressForm = directory.AddressForm(form)
		u.VoiceEnabled = voice != 0
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpsertUser inserts or updates a user record keyed by username. Used for
// provisioning; toggles and registration go through the narrower methods.
func (s *Store) UpsertUser(ctx context.Context, u directory.User) error {
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("username is required")
	}
	var chatID any
	if u.ChatID != 0 {
		chatID = u.ChatID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, display_name, address_form, chat_id, voice_enabled)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			display_name = excluded.display_name,
			address_form = excluded.address_form,
			voice_enabled = excluded.voice_enabled
	`, u.Username, u.DisplayName, string(u.AddressForm), chatID, boolToInt(u.VoiceEnabled))
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.Username, err)
	}
	return nil
}

// SetVoiceEnabled flips the voice preference for a user.
func (s *Store) SetVoiceEnabled(ctx context.Context, username string, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET voice_enabled = ? WHERE username = ?`,
		boolToInt(enabled), username)
	if err != nil {
		return fmt.Errorf("set voice for %s: %w", username, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user not found: %s", username)
	}
	return nil
}

// RegisterChat records the user's conversation channel the first time a
// message from them is observed. A chat id that is already set is left
// untouched.
func (s *Store) RegisterChat(ctx context.Context, username string, chatID int64) error {
	if chatID == 0 {
		return fmt.Errorf("chat_id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET chat_id = ?
		WHERE username = ? AND (chat_id IS NULL OR chat_id = 0)
	`, chatID, username)
	if err != nil {
		return fmt.Errorf("register chat for %s: %w", username, err)
	}
	return nil
}

// AppendTurn implements history.Backend.
func (s *Store) AppendTurn(ctx context.Context, turn history.Turn) error {
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (chat_id, role, message, created_at) VALUES (?, ?, ?, ?)`,
		turn.ChatID, turn.Role, turn.Content, createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// RecentTurns implements history.Backend: at most limit turns, most recent
// first. The id column breaks created_at ties so ordering stays total.
func (s *Store) RecentTurns(ctx context.Context, chatID int64, limit int) ([]history.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, message, created_at FROM chat_history
		WHERE chat_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	var turns []history.Turn
	for rows.Next() {
		turn := history.Turn{ChatID: chatID}
		var createdAt string
		if err := rows.Scan(&turn.Role, &turn.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			turn.CreatedAt = ts
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// ClearHistory implements history.Backend. Deleting an empty history is a
// no-op, not an error.
func (s *Store) ClearHistory(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_history WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package preset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS presets (
	message_code TEXT NOT NULL,
	name         TEXT NOT NULL,
	payload_json BLOB NOT NULL,
	updated_at   INTEGER NOT NULL,
	PRIMARY KEY (message_code, name)
)`

// SQLiteStore persists presets in a single SQLite table.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SQLiteOption {
	return func(s *SQLiteStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// OpenSQLite opens, or creates, the database at path.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("preset: storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("preset: open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("preset: ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("preset: create table: %w", err)
	}
	s := &SQLiteStore{db: db, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.logger.Info("preset store opened", "path", path)
	return s, nil
}

// Close releases the connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) List(ctx context.Context, messageCode string) ([]string, error) {
	if err := checkKey(messageCode); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM presets WHERE message_code = ? ORDER BY name`, messageCode)
	if err != nil {
		return nil, fmt.Errorf("preset: list: %w", err)
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("preset: list: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("preset: list: %w", err)
	}
	return names, nil
}

func (s *SQLiteStore) Load(ctx context.Context, messageCode, name string) (map[string]any, error) {
	if err := checkKey(messageCode, name); err != nil {
		return nil, err
	}
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM presets WHERE message_code = ? AND name = ?`,
		messageCode, name,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, messageCode, name)
	}
	if err != nil {
		return nil, fmt.Errorf("preset: load: %w", err)
	}
	return decode(name, raw)
}

func (s *SQLiteStore) Save(ctx context.Context, messageCode, name string, data map[string]any) error {
	if err := checkKey(messageCode, name); err != nil {
		return err
	}
	raw, err := encode(name, data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO presets (message_code, name, payload_json, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(message_code, name) DO UPDATE SET
		    payload_json = excluded.payload_json,
		    updated_at = excluded.updated_at`,
		messageCode, name, raw, s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("preset: save: %w", err)
	}
	s.logger.Debug("preset saved", "message", messageCode, "name", name)
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, messageCode, name string) error {
	if err := checkKey(messageCode, name); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM presets WHERE message_code = ? AND name = ?`, messageCode, name)
	if err != nil {
		return fmt.Errorf("preset: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, messageCode, name)
	}
	return nil
}

func (s *SQLiteStore) Rename(ctx context.Context, messageCode, oldName, newName string) error {
	if err := checkKey(messageCode, oldName, newName); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("preset: rename: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw []byte
	err = tx.QueryRowContext(ctx,
		`SELECT payload_json FROM presets WHERE message_code = ? AND name = ?`,
		messageCode, oldName,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, messageCode, oldName)
	}
	if err != nil {
		return fmt.Errorf("preset: rename: %w", err)
	}
	if oldName == newName {
		return nil
	}
	var taken int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM presets WHERE message_code = ? AND name = ?`,
		messageCode, newName,
	).Scan(&taken); err != nil {
		return fmt.Errorf("preset: rename: %w", err)
	}
	if taken > 0 {
		return fmt.Errorf("%w: %s/%s", ErrExists, messageCode, newName)
	}
	data, err := decode(oldName, raw)
	if err != nil {
		return err
	}
	renamed, err := encode(newName, data)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE presets SET name = ?, payload_json = ?, updated_at = ? WHERE message_code = ? AND name = ?`,
		newName, renamed, s.now().UTC().UnixMilli(), messageCode, oldName,
	); err != nil {
		return fmt.Errorf("preset: rename: %w", err)
	}
	return tx.Commit()
}

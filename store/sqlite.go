package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLite stores documents as rows of a single table.
type SQLite struct {
	db   *sql.DB
	path string
}

// NewSQLite opens (or creates) the database file. An empty path means
// "vmix.db".
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "vmix.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("store: create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		modified INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create documents table: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) Driver() Driver { return DriverSQLite }

func (s *SQLite) Put(ctx context.Context, key string, data []byte) (Info, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return Info{}, err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents(key, payload, modified) VALUES(?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload=excluded.payload, modified=excluded.modified`,
		k, data, now.UnixNano())
	if err != nil {
		return Info{}, fmt.Errorf("store: sqlite put %s: %w", key, err)
	}
	return Info{Key: k, Size: int64(len(data)), LastModified: now}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = s.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE key = ?`, k).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	if err != nil {
		return nil, fmt.Errorf("store: sqlite get %s: %w", key, err)
	}
	return data, nil
}

func (s *SQLite) Head(ctx context.Context, key string) (Info, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return Info{}, err
	}
	var (
		size     int64
		modified int64
	)
	err = s.db.QueryRowContext(ctx, `SELECT length(payload), modified FROM documents WHERE key = ?`, k).Scan(&size, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return Info{}, fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	if err != nil {
		return Info{}, fmt.Errorf("store: sqlite head %s: %w", key, err)
	}
	return Info{Key: k, Size: size, LastModified: time.Unix(0, modified).UTC()}, nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	k, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, k)
	if err != nil {
		return fmt.Errorf("store: sqlite delete %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, prefix string) (infos []Info, retErr error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, length(payload), modified FROM documents WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("store: sqlite list: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}()
	for rows.Next() {
		var (
			info     Info
			modified int64
		)
		if err := rows.Scan(&info.Key, &info.Size, &modified); err != nil {
			return nil, fmt.Errorf("store: sqlite scan: %w", err)
		}
		info.LastModified = time.Unix(0, modified).UTC()
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }

// Package store persists session documents behind one small key/value
// interface. Drivers: local filesystem, memory, Badger, SQLite and S3
// (or any S3 compatible endpoint such as MinIO).
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Driver identifies a concrete store implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local directory (default)
	DriverMemory     Driver = "memory" // in-process map, tests and scratch sessions
	DriverBadger     Driver = "badger" // embedded key/value database
	DriverSQLite     Driver = "sqlite" // single table in a SQLite file
	DriverS3         Driver = "s3"     // S3 / MinIO compatible bucket
)

// ErrNotExist is returned by Get, Head and Delete when the key is unknown.
var ErrNotExist = errors.New("store: object does not exist")

// Info describes a stored document.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// Store is implemented by every driver. Put overwrites existing keys.
type Store interface {
	Put(ctx context.Context, key string, data []byte) (Info, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
	Close() error
}

// Locator is implemented by stores whose keys map onto local file paths.
// Documents use it to keep media references relative to their own folder.
type Locator interface {
	Locate(key string) (string, error)
}

// S3Config configures the S3 driver.
type S3Config struct {
	Region    string `yaml:"region" toml:"region"`
	Bucket    string `yaml:"bucket" toml:"bucket"`
	Endpoint  string `yaml:"endpoint" toml:"endpoint"` // optional; enables a custom endpoint (e.g. MinIO)
	PathStyle bool   `yaml:"path_style" toml:"path_style"`
}

// Config selects and configures a driver.
type Config struct {
	Driver Driver   `yaml:"driver" toml:"driver"`
	Path   string   `yaml:"path" toml:"path"` // directory (fs, badger) or file (sqlite)
	S3     S3Config `yaml:"s3" toml:"s3"`
}

// Open builds the store selected by cfg.Driver. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.Path)
	case DriverMemory:
		return NewMemory(), nil
	case DriverBadger:
		if cfg.Path == "" {
			return NewBadger(BadgerConfig{InMemory: true})
		}
		return NewBadger(BadgerConfig{Path: cfg.Path, SyncWrites: true})
	case DriverSQLite:
		return NewSQLite(cfg.Path)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// sanitizeKey rejects empty, absolute and escaping keys and returns the
// cleaned slash-separated form.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("store: empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("store: invalid absolute key %q", key)
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("store: invalid key traversal %q", key)
	}
	return clean, nil
}

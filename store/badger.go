package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerConfig configures the embedded Badger driver.
type BadgerConfig struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string
	// InMemory keeps everything in RAM (tests, scratch sessions).
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// Logger receives Badger's internal messages. Nil silences them.
	Logger *slog.Logger
}

// badgerLogger adapts slog to Badger's logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// docPrefix namespaces document keys inside the database.
var docPrefix = []byte("doc/")

// Badger stores documents in an embedded Badger database. Each value is
// an 8-byte big-endian modification time (unix nanoseconds) followed by
// the document bytes.
type Badger struct {
	db *badger.DB
}

// NewBadger opens (or creates) a Badger database.
func NewBadger(cfg BadgerConfig) (*Badger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("store: badger path is required for a persistent database")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("store: create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func (s *Badger) Driver() Driver { return DriverBadger }

func badgerKey(key string) ([]byte, string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return nil, "", err
	}
	return append(append([]byte(nil), docPrefix...), k...), k, nil
}

func encodeStamped(data []byte, t time.Time) []byte {
	buf := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(buf, uint64(t.UnixNano()))
	copy(buf[8:], data)
	return buf
}

func decodeStamped(v []byte) ([]byte, time.Time, error) {
	if len(v) < 8 {
		return nil, time.Time{}, errors.New("store: corrupt badger value")
	}
	ns := int64(binary.BigEndian.Uint64(v[:8]))
	return v[8:], time.Unix(0, ns).UTC(), nil
}

func (s *Badger) Put(_ context.Context, key string, data []byte) (Info, error) {
	bk, k, err := badgerKey(key)
	if err != nil {
		return Info{}, err
	}
	now := time.Now().UTC()
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(bk, encodeStamped(data, now))
	})
	if err != nil {
		return Info{}, fmt.Errorf("store: badger put %s: %w", key, err)
	}
	return Info{Key: k, Size: int64(len(data)), LastModified: now}, nil
}

func (s *Badger) get(key string) ([]byte, Info, error) {
	bk, k, err := badgerKey(key)
	if err != nil {
		return nil, Info{}, err
	}
	var (
		data     []byte
		modified time.Time
	)
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(bk)
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		data, modified, err = decodeStamped(v)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, Info{}, fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	if err != nil {
		return nil, Info{}, fmt.Errorf("store: badger get %s: %w", key, err)
	}
	return data, Info{Key: k, Size: int64(len(data)), LastModified: modified}, nil
}

func (s *Badger) Get(_ context.Context, key string) ([]byte, error) {
	data, _, err := s.get(key)
	return data, err
}

func (s *Badger) Head(_ context.Context, key string) (Info, error) {
	_, info, err := s.get(key)
	return info, err
}

func (s *Badger) Delete(_ context.Context, key string) error {
	bk, _, err := badgerKey(key)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(bk); err != nil {
			return err
		}
		return txn.Delete(bk)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	return err
}

func (s *Badger) List(_ context.Context, prefix string) ([]Info, error) {
	seek := append(append([]byte(nil), docPrefix...), prefix...)
	var infos []Info
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(seek); it.ValidForPrefix(seek); it.Next() {
			item := it.Item()
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			data, modified, err := decodeStamped(v)
			if err != nil {
				return err
			}
			key := string(item.Key()[len(docPrefix):])
			infos = append(infos, Info{Key: key, Size: int64(len(data)), LastModified: modified})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: badger list: %w", err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *Badger) Close() error { return s.db.Close() }

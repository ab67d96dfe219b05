package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data     []byte
	modified time.Time
}

// Memory is a concurrency-safe in-process store.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memObject)}
}

func (s *Memory) Driver() Driver { return DriverMemory }

func (s *Memory) Put(_ context.Context, key string, data []byte) (Info, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return Info{}, err
	}
	obj := memObject{data: append([]byte(nil), data...), modified: time.Now().UTC()}
	s.mu.Lock()
	s.objects[k] = obj
	s.mu.Unlock()
	return Info{Key: k, Size: int64(len(data)), LastModified: obj.modified}, nil
}

func (s *Memory) Get(_ context.Context, key string) ([]byte, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	obj, ok := s.objects[k]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	return append([]byte(nil), obj.data...), nil
}

func (s *Memory) Head(_ context.Context, key string) (Info, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return Info{}, err
	}
	s.mu.RLock()
	obj, ok := s.objects[k]
	s.mu.RUnlock()
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	return Info{Key: k, Size: int64(len(obj.data)), LastModified: obj.modified}, nil
}

func (s *Memory) Delete(_ context.Context, key string) error {
	k, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[k]; !ok {
		return fmt.Errorf("%w: %s", ErrNotExist, key)
	}
	delete(s.objects, k)
	return nil
}

func (s *Memory) List(_ context.Context, prefix string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]Info, 0, len(s.objects))
	for k, obj := range s.objects {
		if strings.HasPrefix(k, prefix) {
			infos = append(infos, Info{Key: k, Size: int64(len(obj.data)), LastModified: obj.modified})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *Memory) Close() error { return nil }

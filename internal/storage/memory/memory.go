package memory

import (
	"context"
	"errors"
	"os"
	"sync"
)

var (
	// ErrWriteFailed is returned by Set while write failures are injected.
	ErrWriteFailed = errors.New("memory store: write failed")
	// ErrReadFailed is returned by Get while read failures are injected.
	ErrReadFailed = errors.New("memory store: read failed")
)

type Store struct {
	mu         sync.Mutex
	values     map[string][]byte
	failWrites bool
	failReads  bool
	writes     int
}

func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

// NewFromFile seeds key with the contents of path. A missing file yields an
// empty store.
func NewFromFile(key, path string) *Store {
	s := New()
	if b, err := os.ReadFile(path); err == nil && len(b) > 0 {
		s.values[key] = b
	}
	return s
}

// Get implements storage.Store
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return nil, false, ErrReadFailed
	}
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements storage.Store
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return ErrWriteFailed
	}
	s.values[key] = append([]byte(nil), value...)
	s.writes++
	return nil
}

func (s *Store) Close() error { return nil }

// FailWrites toggles write failure injection, simulating quota or
// unavailable storage.
func (s *Store) FailWrites(fail bool) {
	s.mu.Lock()
	s.failWrites = fail
	s.mu.Unlock()
}

// FailReads toggles read failure injection.
func (s *Store) FailReads(fail bool) {
	s.mu.Lock()
	s.failReads = fail
	s.mu.Unlock()
}

// Writes reports how many successful Set calls happened.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Put seeds a raw value without counting it as a write.
func (s *Store) Put(key string, value []byte) {
	s.mu.Lock()
	s.values[key] = append([]byte(nil), value...)
	s.mu.Unlock()
}

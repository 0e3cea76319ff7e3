package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, found, err := s.Get(ctx, "k"); found || err != nil {
		t.Fatalf("expected empty store, found=%v err=%v", found, err)
	}
	if err := s.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, found, err := s.Get(ctx, "k")
	if err != nil || !found || string(v) != "v1" {
		t.Fatalf("unexpected get: %q %v %v", v, found, err)
	}
	// Returned slices are copies
	v[0] = 'X'
	v2, _, _ := s.Get(ctx, "k")
	if string(v2) != "v1" {
		t.Fatalf("store mutated through returned slice: %q", v2)
	}
	if s.Writes() != 1 {
		t.Fatalf("writes = %d", s.Writes())
	}
}

func TestMemoryStoreFailWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Put("k", []byte("old"))
	s.FailWrites(true)
	if err := s.Set(ctx, "k", []byte("new")); !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed, got %v", err)
	}
	v, _, _ := s.Get(ctx, "k")
	if string(v) != "old" {
		t.Fatalf("failed write must not change value, got %q", v)
	}
	s.FailWrites(false)
	if err := s.Set(ctx, "k", []byte("new")); err != nil {
		t.Fatalf("set after recovery: %v", err)
	}
}

func TestMemoryStoreFailReads(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Put("k", []byte("v"))
	s.FailReads(true)
	if _, found, err := s.Get(ctx, "k"); !errors.Is(err, ErrReadFailed) || found {
		t.Fatalf("expected ErrReadFailed, got found=%v err=%v", found, err)
	}
	s.FailReads(false)
	if v, found, err := s.Get(ctx, "k"); err != nil || !found || string(v) != "v" {
		t.Fatalf("get after recovery: %q %v %v", v, found, err)
	}
}

func TestNewFromFileSeeds(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFile("k", filepath.Join(dir, "missing.json"))
	if _, found, _ := s.Get(context.Background(), "k"); found {
		t.Fatalf("expected no seed when file missing")
	}

	path := filepath.Join(dir, "seed.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s = NewFromFile("k", path)
	v, found, _ := s.Get(context.Background(), "k")
	if !found || string(v) != "[]" {
		t.Fatalf("expected seeded value, got %q found=%v", v, found)
	}
}

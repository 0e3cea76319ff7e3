// Package storage persists opaque values under string keys.
//
// The expense collection is written as a single serialized blob under one
// key, so a Store only needs whole-value reads and writes.
package storage

import "context"

// DefaultKey is the key the expense collection lives under.
const DefaultKey = "explog_expenses"

// Store is an on-device key-value store.
type Store interface {
	// Get returns the value stored under key. found is false when the key
	// has never been written.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	Close() error
}

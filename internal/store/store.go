// Package store is the system of record for sessions, wallets and race
// history. Backends only need versioned get/create/compare-and-swap on keys
// plus append-only lists.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("record not found")
var ErrExists = errors.New("record already exists")
var ErrConcurrentModification = errors.New("record was modified concurrently")

// Entry is a stored value and the version it was written at. Versions start
// at 1 and go up by one on every successful write.
type Entry struct {
	Version int64
	Value   []byte
}

type KV interface {
	Get(ctx context.Context, key string) (Entry, error)
	// Create writes value at version 1, or fails with ErrExists.
	Create(ctx context.Context, key string, value []byte) error
	// CompareAndSwap replaces the value only if the stored version still
	// equals version, returning the new version.
	CompareAndSwap(ctx context.Context, key string, version int64, value []byte) (int64, error)
	Push(ctx context.Context, key string, value []byte) error
	// Range returns list items start..stop inclusive; negative indexes count
	// from the end, so (0, -1) is the whole list.
	Range(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	Close() error
}

// bounds resolves list indexes against a list of length n.
func bounds(n, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start = max(n+start, 0)
	}
	if stop < 0 {
		stop = n + stop
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}

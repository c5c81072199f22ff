package store

import (
	"context"
	"slices"
	"sync"
)

// Memory keeps everything in process. Used by tests, the local game and
// STORE_DRIVER=memory.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
	lists   map[string][][]byte
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]Entry),
		lists:   make(map[string][][]byte),
	}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{Version: e.Version, Value: slices.Clone(e.Value)}, nil
}

func (m *Memory) Create(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok {
		return ErrExists
	}
	m.entries[key] = Entry{Version: 1, Value: slices.Clone(value)}
	return nil
}

func (m *Memory) CompareAndSwap(_ context.Context, key string, version int64, value []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return 0, ErrNotFound
	}
	if e.Version != version {
		return 0, ErrConcurrentModification
	}
	next := version + 1
	m.entries[key] = Entry{Version: next, Value: slices.Clone(value)}
	return next, nil
}

func (m *Memory) Push(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append(m.lists[key], slices.Clone(value))
	return nil
}

func (m *Memory) Range(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.lists[key]
	lo, hi, ok := bounds(int64(len(list)), start, stop)
	if !ok {
		return [][]byte{}, nil
	}
	out := make([][]byte, 0, hi-lo+1)
	for _, v := range list[lo : hi+1] {
		out = append(out, slices.Clone(v))
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

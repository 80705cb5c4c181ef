package state

import (
	"context"
	"sync"
)

// Memory is a Store that keeps everything in process memory.
type Memory struct {
	mu     sync.Mutex
	flags  map[string]bool
	events []EventRecord
}

func NewMemory() *Memory {
	return &Memory{flags: make(map[string]bool)}
}

func (m *Memory) GetBool(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flags[key], nil
}

func (m *Memory) SetBool(_ context.Context, key string, v bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[key] = v
	return nil
}

func (m *Memory) AppendEvent(_ context.Context, rec EventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, rec)
	return nil
}

func (m *Memory) RecentEvents(_ context.Context, limit int) ([]EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.events) {
		limit = len(m.events)
	}
	out := make([]EventRecord, 0, limit)
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

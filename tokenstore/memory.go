package tokenstore

import (
	"context"
	"sync"
)

// Memory is the process-scoped backend. It survives nothing beyond the
// current process but is always reachable, so it is consulted first.
type Memory struct {
	mu   sync.RWMutex
	pair Pair
	set  bool
}

// NewMemory creates an empty in-process backend.
func NewMemory() *Memory {
	return &Memory{}
}

// Store implements [Backend].
func (m *Memory) Store(_ context.Context, pair Pair) error {
	m.mu.Lock()
	m.pair = pair
	m.set = true
	m.mu.Unlock()
	return nil
}

// Get implements [Backend].
func (m *Memory) Get(_ context.Context) (Pair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.set {
		return Pair{}, nil
	}
	return m.pair, nil
}

// Clear implements [Backend].
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	m.pair = Pair{}
	m.set = false
	m.mu.Unlock()
	return nil
}

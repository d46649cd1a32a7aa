package presence

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Registry: a refcounted set guarded by an RWMutex.
// Safe for concurrent request handlers and socket goroutines.
type Memory struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]int
}

func NewMemory() *Memory {
	return &Memory{conns: make(map[uuid.UUID]int)}
}

func (m *Memory) Connect(_ context.Context, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[userID]++
	return m.conns[userID] == 1, nil
}

func (m *Memory) Disconnect(_ context.Context, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.conns[userID]
	if !ok {
		return false, nil
	}
	if n <= 1 {
		delete(m.conns, userID)
		return true, nil
	}
	m.conns[userID] = n - 1
	return false, nil
}

func (m *Memory) IsOnline(_ context.Context, userID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conns[userID] > 0, nil
}

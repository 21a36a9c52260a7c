package workflow

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory CheckpointStore for tests and single-process
// development runs. States are copied on the way in and out so callers never
// share mutable turn slices with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*State
}

// NewMemoryStore returns an empty in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*State)}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (*State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[sessionID]
	if !ok {
		return nil, false, nil
	}
	return copyState(state), true, nil
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[sessionID] = copyState(state)
	return nil
}

func (m *MemoryStore) Purge(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, sessionID)
	return nil
}

func copyState(s *State) *State {
	cp := *s
	cp.Turns = make([]Turn, len(s.Turns))
	copy(cp.Turns, s.Turns)
	return &cp
}

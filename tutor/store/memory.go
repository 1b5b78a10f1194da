package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemStore is an in-memory implementation of Store[S].
//
// It is the default backend: suitable for testing, development, and
// single-process deployments that do not need durability across restarts.
// Thread-safe; a single mutex serializes all operations, which satisfies
// per-id linearizability trivially.
//
// Values are deep-copied through a JSON round trip on both save and load so
// callers can never alias the stored checkpoint.
type MemStore[S any] struct {
	mu     sync.RWMutex
	states map[string][]byte // id -> JSON-encoded checkpoint
}

// NewMemStore creates an empty in-memory store.
//
//	st := store.NewMemStore[tutor.Checkpoint]()
//	engine := tutor.New(st, caps)
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{states: make(map[string][]byte)}
}

// Save persists the checkpoint, replacing any previous value for id.
func (m *MemStore[S]) Save(_ context.Context, id string, state S) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode checkpoint %q: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[id] = data
	return nil
}

// Load retrieves the checkpoint for id, or ErrNotFound.
func (m *MemStore[S]) Load(_ context.Context, id string) (S, error) {
	m.mu.RLock()
	data, ok := m.states[id]
	m.mu.RUnlock()

	var state S
	if !ok {
		return state, ErrNotFound
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("decode checkpoint %q: %w", id, err)
	}
	return state, nil
}

// Delete removes the checkpoint for id. Unknown ids are a no-op.
func (m *MemStore[S]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, id)
	return nil
}

// Len reports the number of stored checkpoints.
func (m *MemStore[S]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.states)
}

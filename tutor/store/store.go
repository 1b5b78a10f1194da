// Package store provides durable checkpoint persistence for sessions.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested id has no persisted checkpoint.
var ErrNotFound = errors.New("not found")

// Store persists checkpoints keyed by session id.
//
// Save has overwrite semantics. A save for a given id must be linearizable
// with respect to other saves and loads for the same id (no lost updates
// from interleaved resume calls on one session); saves for distinct ids may
// proceed concurrently without interference.
//
// Implementations:
//   - MemStore: in-memory map, the default
//   - SQLiteStore: single-file database for local persistence
//   - MySQLStore: shared database for multi-process deployments
//
// Type parameter S is the checkpoint type to persist; it must be
// JSON-serializable for the database-backed implementations.
type Store[S any] interface {
	// Save persists the checkpoint for id, replacing any previous value.
	Save(ctx context.Context, id string, state S) error

	// Load retrieves the checkpoint for id.
	// Returns ErrNotFound if id has never been saved or was deleted.
	Load(ctx context.Context, id string) (S, error)

	// Delete removes the checkpoint for id. Idempotent: deleting an
	// unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

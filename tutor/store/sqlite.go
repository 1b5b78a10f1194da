package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite implementation of Store[S].
//
// It persists checkpoints in a single-file database, designed for:
//   - Local deployments that must survive process restarts
//   - Development and testing with zero setup
//   - Prototyping before migrating to a shared database
//
// The store uses WAL mode for concurrent reads and a single writer
// connection, which gives per-id linearizability for free: all writes go
// through SQLite's write lock.
//
// Schema: a single checkpoints table with the JSON-encoded checkpoint keyed
// by session id.
type SQLiteStore[S any] struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a SQLite-backed store.
//
// The path parameter specifies the database file location ("./tutor.db",
// ":memory:" for tests, etc.). The store creates the file and schema on
// first use and enables WAL mode with a 5 second busy timeout.
//
//	st, err := store.NewSQLiteStore[tutor.Checkpoint]("./tutor.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY churn under concurrent sessions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure sqlite: %w", err)
		}
	}

	s := &SQLiteStore[S]{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore[S]) createTables(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS checkpoints (
			id         TEXT PRIMARY KEY,
			state      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Save persists the checkpoint, replacing any previous value for id.
func (s *SQLiteStore[S]) Save(ctx context.Context, id string, state S) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode checkpoint %q: %w", id, err)
	}

	const query = `
		INSERT INTO checkpoints (id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, id, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("save checkpoint %q: %w", id, err)
	}
	return nil
}

// Load retrieves the checkpoint for id, or ErrNotFound.
func (s *SQLiteStore[S]) Load(ctx context.Context, id string) (S, error) {
	var state S
	var data string

	const query = `SELECT state FROM checkpoints WHERE id = ?`
	err := s.db.QueryRowContext(ctx, query, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return state, ErrNotFound
	}
	if err != nil {
		return state, fmt.Errorf("load checkpoint %q: %w", id, err)
	}

	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return state, fmt.Errorf("decode checkpoint %q: %w", id, err)
	}
	return state, nil
}

// Delete removes the checkpoint for id. Unknown ids are a no-op.
func (s *SQLiteStore[S]) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM checkpoints WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete checkpoint %q: %w", id, err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore[S]) Close() error {
	return s.db.Close()
}

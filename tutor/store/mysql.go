package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB implementation of Store[S].
//
// Designed for deployments where several processes share one session
// namespace: the database's row-level locking provides the required per-id
// linearizability, and checkpoints survive process restarts.
//
// Never hardcode credentials; read the DSN from the environment:
//
//	dsn := os.Getenv("MYSQL_DSN") // user:pass@tcp(localhost:3306)/tutor
//	st, err := store.NewMySQLStore[tutor.Checkpoint](dsn)
type MySQLStore[S any] struct {
	db *sql.DB
}

// NewMySQLStore creates a MySQL-backed store and its schema.
//
// DSN format follows go-sql-driver/mysql:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param=value...]
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	s := &MySQLStore[S]{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *MySQLStore[S]) createTables(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS checkpoints (
			id         VARCHAR(255) PRIMARY KEY,
			state      MEDIUMTEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Save persists the checkpoint, replacing any previous value for id.
func (s *MySQLStore[S]) Save(ctx context.Context, id string, state S) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode checkpoint %q: %w", id, err)
	}

	const query = `
		INSERT INTO checkpoints (id, state) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE state = VALUES(state)`
	if _, err := s.db.ExecContext(ctx, query, id, string(data)); err != nil {
		return fmt.Errorf("save checkpoint %q: %w", id, err)
	}
	return nil
}

// Load retrieves the checkpoint for id, or ErrNotFound.
func (s *MySQLStore[S]) Load(ctx context.Context, id string) (S, error) {
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
func (s *MySQLStore[S]) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM checkpoints WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete checkpoint %q: %w", id, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *MySQLStore[S]) Close() error {
	return s.db.Close()
}

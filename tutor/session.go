package tutor

import (
	"fmt"
	"time"
)

// Status is the lifecycle status of a session.
type Status string

const (
	// StatusRunning means a run loop is (or is about to be) executing.
	StatusRunning Status = "running"

	// StatusSuspended means the session is paused on a pending interrupt,
	// awaiting a matching resume.
	StatusSuspended Status = "suspended"

	// StatusCompleted means the workflow reached its terminal stage.
	StatusCompleted Status = "completed"

	// StatusFailed means an unrecoverable error aborted the run. The
	// checkpoint is preserved for inspection; it is never auto-deleted.
	StatusFailed Status = "failed"
)

// Checkpoint is the durable unit persisted to the store: everything needed
// to resume a session from exactly where it paused, in a fresh process.
//
// NextSeq persists the per-session event sequence counter so sequence
// numbers remain strictly increasing across process boundaries. The engine
// writes the checkpoint before the corresponding terminal event becomes
// visible to any consumer; a crash between capability completion and
// checkpoint write is observable only as "stage did not complete".
type Checkpoint struct {
	SessionID        string     `json:"session_id"`
	State            State      `json:"state"`
	Status           Status     `json:"status"`
	PendingInterrupt *Interrupt `json:"pending_interrupt,omitempty"`
	NextSeq          int64      `json:"next_seq"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Validate checks checkpoint-level invariants: exactly one pending
// interrupt when suspended, none otherwise, and a structurally valid State.
func (c Checkpoint) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("checkpoint has empty session id")
	}

	switch c.Status {
	case StatusRunning, StatusSuspended, StatusCompleted, StatusFailed:
	default:
		return fmt.Errorf("invalid session status %q", c.Status)
	}

	if c.Status == StatusSuspended && c.PendingInterrupt == nil {
		return fmt.Errorf("suspended session without pending interrupt")
	}
	if c.Status != StatusSuspended && c.PendingInterrupt != nil {
		return fmt.Errorf("%s session with pending interrupt", c.Status)
	}
	if c.NextSeq < 0 {
		return fmt.Errorf("negative event sequence %d", c.NextSeq)
	}

	if err := c.State.Validate(); err != nil {
		return fmt.Errorf("session %s: %w", c.SessionID, err)
	}
	return nil
}

// Snapshot is the read-only view returned by Engine.GetState.
type Snapshot struct {
	SessionID string     `json:"session_id"`
	State     State      `json:"state"`
	Status    Status     `json:"status"`
	Interrupt *Interrupt `json:"interrupt,omitempty"`
}

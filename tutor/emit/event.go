// Package emit provides the event model and emitters for session observability.
package emit

import "time"

// EventType identifies the kind of progress event a session produced.
//
// The set is closed: consumers may rely on it being exhaustive. The
// stage_complete and interrupt events alone are sufficient to reconstruct a
// session's state-transition history; token events are a best-effort progress
// channel and may be coalesced or dropped under backpressure.
type EventType string

const (
	// TypeSessionStarted is the first event of every new session stream.
	TypeSessionStarted EventType = "session_started"

	// TypeToken carries a fragment of model output as it is generated.
	TypeToken EventType = "token"

	// TypeStageComplete marks the successful completion of one pipeline stage.
	TypeStageComplete EventType = "stage_complete"

	// TypeInterrupt marks a session suspension awaiting a human decision.
	TypeInterrupt EventType = "interrupt"

	// TypeError reports a failure; the session is marked failed but its
	// checkpoint is preserved for inspection.
	TypeError EventType = "error"

	// TypeStreamComplete terminates every event stream, regardless of how
	// the underlying run ended.
	TypeStreamComplete EventType = "stream_complete"
)

// Event is a single timestamped progress record for one session.
//
// Events are immutable once emitted. Seq is strictly increasing per session
// starting at 0 and survives process restarts (it is persisted with the
// checkpoint); ordering is the contract, not wall-clock time.
type Event struct {
	// Seq is the per-session sequence number.
	Seq int64 `json:"sequence_no"`

	// Type classifies the event.
	Type EventType `json:"type"`

	// SessionID identifies the session that produced this event.
	SessionID string `json:"session_id"`

	// Stage names the pipeline stage the event relates to, when applicable.
	Stage string `json:"stage,omitempty"`

	// Payload holds the type-specific data. See the payload structs in this
	// package for the wire shapes.
	Payload any `json:"payload,omitempty"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`
}

// SessionStarted is the payload of a session_started event.
type SessionStarted struct {
	Topic string `json:"topic"`
}

// Token is the payload of a token event.
type Token struct {
	Content string `json:"content"`
	Stage   string `json:"stage"`
}

// StageComplete is the payload of a stage_complete event. Output carries a
// small stage-specific summary (never the full state).
type StageComplete struct {
	Stage  string         `json:"stage"`
	Output map[string]any `json:"output,omitempty"`
}

// InterruptRaised is the payload of an interrupt event.
type InterruptRaised struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

// ErrorInfo is the payload of an error event.
type ErrorInfo struct {
	Message string `json:"message"`
}

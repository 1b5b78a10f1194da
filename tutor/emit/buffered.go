package emit

import "sync"

// BufferedEmitter stores every event in memory, keyed by session id.
//
// It exists for development, testing, and post-run analysis: run a session,
// then query everything it emitted. All events are retained until cleared,
// so long-lived deployments should prefer a bounded backend.
//
//	emitter := emit.NewBufferedEmitter()
//	// ... run sessions ...
//	history := emitter.History("s1")
//	interrupts := emitter.HistoryWithFilter("s1", emit.HistoryFilter{Type: emit.TypeInterrupt})
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // session id -> events in emission order
}

// HistoryFilter selects a subset of a session's events. Zero-valued fields
// match everything; set fields combine with AND.
type HistoryFilter struct {
	Type   EventType // filter by event type (empty = no filter)
	Stage  string    // filter by stage (empty = no filter)
	MinSeq *int64    // minimum sequence number (nil = no lower bound)
	MaxSeq *int64    // maximum sequence number (nil = no upper bound)
}

// NewBufferedEmitter creates an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit appends the event to its session's history.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.SessionID] = append(b.events[event.SessionID], event)
}

// History returns a copy of all events for the session in emission order.
func (b *BufferedEmitter) History(sessionID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[sessionID]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// HistoryWithFilter returns the session's events matching the filter.
func (b *BufferedEmitter) HistoryWithFilter(sessionID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for _, ev := range b.events[sessionID] {
		if filter.Type != "" && ev.Type != filter.Type {
			continue
		}
		if filter.Stage != "" && ev.Stage != filter.Stage {
			continue
		}
		if filter.MinSeq != nil && ev.Seq < *filter.MinSeq {
			continue
		}
		if filter.MaxSeq != nil && ev.Seq > *filter.MaxSeq {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Clear removes the stored history for one session.
func (b *BufferedEmitter) Clear(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.events, sessionID)
}

// ClearAll removes all stored history.
func (b *BufferedEmitter) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = make(map[string][]Event)
}

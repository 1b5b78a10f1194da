package emit

// Emitter receives session events from the engine.
//
// Emitters enable pluggable observability backends: logging, buffered
// history, OpenTelemetry spans, or a live per-run stream handed back to the
// caller. Implementations must be safe for concurrent use across sessions
// (within a single session events arrive serialized) and must never block
// the run loop indefinitely: if a backend is slow or unavailable, drop or
// buffer rather than stall.
//
// Emit must not panic; internal failures should be swallowed or logged by
// the implementation.
type Emitter interface {
	Emit(event Event)
}

// MultiEmitter fans every event out to several backends in order.
//
// A nil entry is skipped. Use it to combine, say, a live Stream for the
// caller with a BufferedEmitter for later inspection:
//
//	emitter := emit.Multi(stream, buffered, emit.NewLogEmitter(os.Stderr, true))
type MultiEmitter struct {
	emitters []Emitter
}

// Multi creates a MultiEmitter over the given backends.
func Multi(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

// Emit forwards the event to every configured backend.
func (m *MultiEmitter) Emit(event Event) {
	for _, e := range m.emitters {
		if e != nil {
			e.Emit(event)
		}
	}
}

// NullEmitter discards all events. It is the default when no emitter is
// configured and is safe for concurrent use with zero overhead.
type NullEmitter struct{}

// NewNullEmitter creates a NullEmitter.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(Event) {}

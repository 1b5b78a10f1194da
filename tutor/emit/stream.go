package emit

import (
	"sync"
	"sync/atomic"
)

// DefaultStreamBuffer is the channel capacity used by NewStream when the
// caller passes a non-positive buffer size.
const DefaultStreamBuffer = 256

// Stream is a live, ordered, append-only event sequence for a single run.
//
// The engine publishes into the Stream; the caller consumes from Events().
// The channel is closed after the terminal stream_complete event, so a
// plain range loop drains the whole run:
//
//	stream, err := engine.Start(ctx, "s1", "Neural Networks")
//	if err != nil { ... }
//	for ev := range stream.Events() {
//	    fmt.Printf("%d %s\n", ev.Seq, ev.Type)
//	}
//
// Delivery is best-effort for a slow or disconnected consumer: token events
// are dropped when the buffer is full, and other events shed buffered
// tokens to make room — a lagging consumer loses output fragments, never
// lifecycle events, unless the buffer is exhausted by lifecycle events
// alone. The run itself never blocks on the consumer; the checkpoint
// store, not the stream, is the source of truth for what happened. Events
// are always delivered in non-decreasing sequence order.
type Stream struct {
	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped atomic.Int64
}

// NewStream creates a Stream with the given buffer capacity.
func NewStream(buffer int) *Stream {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	return &Stream{ch: make(chan Event, buffer)}
}

// Events returns the receive side of the stream. The channel is closed when
// the run reaches a terminal event or the stream is closed by the engine.
func (s *Stream) Events() <-chan Event {
	return s.ch
}

// Emit implements Emitter. It never blocks: token events are dropped when
// the buffer is full, other events shed the oldest buffered token to make
// room. Non-token events are discarded only when the full buffer contains
// no tokens to shed; Dropped counts every discard.
func (s *Stream) Emit(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.dropped.Add(1)
		return
	}

	select {
	case s.ch <- event:
		return
	default:
	}

	if event.Type == TypeToken {
		s.dropped.Add(1)
		return
	}

	// Drain the buffer, drop its oldest token, and re-queue the remainder
	// in order with the new event appended. Anything the consumer receives
	// while we drain was delivered, not dropped.
	drained := make([]Event, 0, cap(s.ch)+1)
	for {
		select {
		case ev := <-s.ch:
			drained = append(drained, ev)
			continue
		default:
		}
		break
	}

	kept := drained[:0]
	shed := false
	for _, ev := range drained {
		if !shed && ev.Type == TypeToken {
			shed = true
			s.dropped.Add(1)
			continue
		}
		kept = append(kept, ev)
	}
	kept = append(kept, event)

	for i, ev := range kept {
		select {
		case s.ch <- ev:
		default:
			// No token to shed and the consumer is still stalled: the
			// newest events do not fit.
			s.dropped.Add(int64(len(kept) - i))
			return
		}
	}
}

// Close terminates the stream. Safe to call more than once; Emit after
// Close silently drops.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Dropped reports how many events were discarded due to backpressure or
// emission after close.
func (s *Stream) Dropped() int64 {
	return s.dropped.Load()
}

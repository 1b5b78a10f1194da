package tutor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/tutorgraph-go/tutor/emit"
	"github.com/dshills/tutorgraph-go/tutor/store"
)

// Engine orchestrates Router, stage capabilities, interrupt controller and
// checkpoint store into a single run loop. It is the sole owner of session
// lifecycle: capabilities return deltas, human responses are injected by
// the controller, and only the Engine ever mutates or persists State.
//
// Concurrency model: many sessions execute concurrently and independently;
// within one session execution is strictly serialized. A second Start or
// Resume arriving while one is in flight for the same id fails fast with
// ErrSessionBusy rather than queuing.
//
// Consistency model: the checkpoint write that records a pending interrupt
// or a terminal status happens-before the corresponding event is visible on
// any stream or emitter. A crash between capability completion and
// checkpoint write is externally observable only as "stage did not
// complete" - safe to retry, never a silently lost interrupt.
//
// Example:
//
//	st := store.NewMemStore[tutor.Checkpoint]()
//	engine, err := tutor.New(st, caps, emit.NewLogEmitter(os.Stderr, true), tutor.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	stream, err := engine.Start(ctx, "s1", "Neural Networks")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for ev := range stream.Events() {
//	    // render progress; the stream ends at suspension or completion
//	}
type Engine struct {
	store   store.Store[Checkpoint]
	caps    CapabilitySet
	emitter emit.Emitter
	metrics *Metrics
	logger  *zap.Logger
	opts    Options

	mu       sync.Mutex
	inFlight map[string]bool
}

// New creates an Engine.
//
// Parameters:
//   - st: checkpoint persistence backend (required)
//   - caps: one capability per pipeline stage (validated here)
//   - emitter: observability backend shared across sessions (nil disables)
//   - opts: execution configuration; zero values select defaults
func New(st store.Store[Checkpoint], caps CapabilitySet, emitter emit.Emitter, opts Options) (*Engine, error) {
	if st == nil {
		return nil, &ConfigError{Message: "checkpoint store is required"}
	}
	if err := caps.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	if err := opts.Retry.Validate(); err != nil {
		return nil, err
	}
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}

	return &Engine{
		store:    st,
		caps:     caps,
		emitter:  emitter,
		logger:   zap.NewNop(),
		opts:     opts,
		inFlight: make(map[string]bool),
	}, nil
}

// SetLogger attaches a structured logger for session lifecycle logging.
// Call before the first Start; the default is a no-op logger.
func (e *Engine) SetLogger(logger *zap.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// SetMetrics attaches Prometheus metrics collection. Call before the first
// Start; the default is no collection.
func (e *Engine) SetMetrics(m *Metrics) {
	e.metrics = m
}

// Start creates a session and begins its run loop.
//
// Fails with ErrAlreadyExists if a non-deleted session already holds the
// id, and with ErrSessionBusy if another operation on the id is in flight.
// On success the returned stream delivers the session's events in sequence
// order, beginning with session_started and ending with stream_complete
// after the run suspends, completes, or fails.
//
// The run executes on its own goroutine and is not cancelled by ctx or by
// the consumer abandoning the stream: it runs to its next suspension point
// and the checkpoint reflects the outcome either way.
func (e *Engine) Start(ctx context.Context, sessionID, topic string) (*emit.Stream, error) {
	if sessionID == "" {
		return nil, &ConfigError{Message: "session id cannot be empty"}
	}
	if topic == "" {
		return nil, &ConfigError{Message: "topic cannot be empty"}
	}

	if !e.acquire(sessionID) {
		return nil, fmt.Errorf("%w: %s", ErrSessionBusy, sessionID)
	}

	_, err := e.store.Load(ctx, sessionID)
	if err == nil {
		e.release(sessionID)
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, sessionID)
	}
	if !errors.Is(err, store.ErrNotFound) {
		e.release(sessionID)
		return nil, fmt.Errorf("load session %q: %w", sessionID, err)
	}

	r := &run{
		engine: e,
		stream: emit.NewStream(e.opts.StreamBuffer),
		cp: Checkpoint{
			SessionID: sessionID,
			State:     NewState(topic),
			Status:    StatusRunning,
		},
	}

	runCtx := context.WithoutCancel(ctx)
	go func() {
		// Release before closing the stream so a consumer that drains it
		// can immediately issue the next operation without hitting
		// ErrSessionBusy.
		defer r.stream.Close()
		defer e.release(sessionID)

		// The initial checkpoint is saved before session_started becomes
		// visible, so a GetState racing the first stage finds the session.
		err := r.checkpointAndEmit(runCtx, StatusRunning, pendingEvent{
			typ:     emit.TypeSessionStarted,
			payload: emit.SessionStarted{Topic: topic},
		})
		if err != nil {
			r.fail(runCtx, err)
			return
		}
		e.loop(runCtx, r)
	}()
	return r.stream, nil
}

// Resume validates and injects a human response into a suspended session,
// clears its pending interrupt, and continues the run loop at the Router.
//
// Fails with ErrNotFound for an unknown id, ErrNotSuspended when no
// interrupt is pending, ErrInterruptMismatch when the action is invalid for
// the pending interrupt's kind (state and interrupt untouched), and
// ErrSessionBusy when another operation on the id is in flight.
func (e *Engine) Resume(ctx context.Context, sessionID string, resp Response) (*emit.Stream, error) {
	if !e.acquire(sessionID) {
		return nil, fmt.Errorf("%w: %s", ErrSessionBusy, sessionID)
	}

	cp, err := e.store.Load(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		e.release(sessionID)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		e.release(sessionID)
		return nil, fmt.Errorf("load session %q: %w", sessionID, err)
	}
	if err := cp.Validate(); err != nil {
		e.release(sessionID)
		return nil, fmt.Errorf("load session %q: %w", sessionID, err)
	}

	if cp.Status != StatusSuspended || cp.PendingInterrupt == nil {
		e.release(sessionID)
		return nil, fmt.Errorf("%w: session %s is %s", ErrNotSuspended, sessionID, cp.Status)
	}

	pending := *cp.PendingInterrupt
	if err := validateResponse(&pending, resp); err != nil {
		e.release(sessionID)
		return nil, err
	}

	cp.State = injectResponse(cp.State, pending, resp)
	cp.PendingInterrupt = nil
	cp.Status = StatusRunning

	r := &run{
		engine: e,
		stream: emit.NewStream(e.opts.StreamBuffer),
		cp:     cp,
		seq:    cp.NextSeq,
	}

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer r.stream.Close()
		defer e.release(sessionID)

		// The injection is a state transition: persist it, then surface it
		// as a stage_complete named after the resolved interrupt.
		err := r.checkpointAndEmit(runCtx, StatusRunning, pendingEvent{
			typ:   emit.TypeStageComplete,
			stage: string(pending.Kind),
			payload: emit.StageComplete{
				Stage:  string(pending.Kind),
				Output: map[string]any{"action": string(resp.Action)},
			},
		})
		if err != nil {
			r.fail(runCtx, err)
			return
		}
		e.loop(runCtx, r)
	}()
	return r.stream, nil
}

// GetState returns a read-only snapshot of the session. It never mutates:
// two consecutive calls with no intervening resume return identical state.
func (e *Engine) GetState(ctx context.Context, sessionID string) (Snapshot, error) {
	cp, err := e.store.Load(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load session %q: %w", sessionID, err)
	}

	return Snapshot{
		SessionID: sessionID,
		State:     cp.State,
		Status:    cp.Status,
		Interrupt: cp.PendingInterrupt,
	}, nil
}

// Delete removes the session and its checkpoint. Idempotent: deleting an
// unknown id succeeds. Sessions should be settled (suspended, completed or
// failed) before deletion; an in-flight run may still write its final
// checkpoint afterward.
func (e *Engine) Delete(ctx context.Context, sessionID string) error {
	return e.store.Delete(ctx, sessionID)
}

// acquire takes the single-writer lock for a session id.
func (e *Engine) acquire(sessionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inFlight[sessionID] {
		return false
	}
	e.inFlight[sessionID] = true
	return true
}

func (e *Engine) release(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.inFlight, sessionID)
}

// run is the per-activation execution context: one Start or Resume call.
type run struct {
	engine *Engine
	stream *emit.Stream
	cp     Checkpoint
	seq    int64
}

// pendingEvent is an event scheduled to be emitted after a checkpoint save.
type pendingEvent struct {
	typ     emit.EventType
	stage   string
	payload any
}

// emit stamps the next sequence number and publishes to the run's stream
// and the engine's shared emitter.
func (r *run) emit(typ emit.EventType, stage string, payload any) {
	ev := emit.Event{
		Seq:       r.seq,
		Type:      typ,
		SessionID: r.cp.SessionID,
		Stage:     stage,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	r.seq++

	r.stream.Emit(ev)
	r.engine.emitter.Emit(ev)
	r.engine.metrics.eventEmitted(string(typ))
}

// checkpointAndEmit persists the checkpoint, reserving sequence numbers for
// the given events, then emits them. The save happens-before any of the
// events becomes visible; NextSeq accounts for them so sequence numbers
// stay strictly increasing across a later resume.
func (r *run) checkpointAndEmit(ctx context.Context, status Status, events ...pendingEvent) error {
	r.cp.Status = status
	r.cp.NextSeq = r.seq + int64(len(events))
	r.cp.UpdatedAt = time.Now().UTC()

	if err := r.cp.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid checkpoint: %w", err)
	}
	if err := r.engine.store.Save(ctx, r.cp.SessionID, r.cp); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	for _, ev := range events {
		r.emit(ev.typ, ev.stage, ev.payload)
	}
	return nil
}

// fail marks the session failed, preserving the checkpoint for inspection,
// and terminates the stream. If even the failure checkpoint cannot be
// saved, the consumer is still notified; the previous checkpoint then
// stands and the last stage reads as not completed.
func (r *run) fail(ctx context.Context, cause error) {
	r.engine.logger.Error("session failed",
		zap.String("session_id", r.cp.SessionID),
		zap.Error(cause))

	r.cp.PendingInterrupt = nil
	err := r.checkpointAndEmit(ctx, StatusFailed,
		pendingEvent{typ: emit.TypeError, payload: emit.ErrorInfo{Message: cause.Error()}},
		pendingEvent{typ: emit.TypeStreamComplete},
	)
	if err != nil {
		r.engine.logger.Error("failed to persist failure checkpoint",
			zap.String("session_id", r.cp.SessionID),
			zap.Error(err))
		r.emit(emit.TypeError, "", emit.ErrorInfo{Message: cause.Error()})
		r.emit(emit.TypeStreamComplete, "", nil)
	}
}

// loop is the run loop: route, invoke, merge, persist, emit - until the
// session suspends on an interrupt, completes, or fails.
func (e *Engine) loop(ctx context.Context, r *run) {
	e.metrics.runStarted()
	logger := e.logger.With(zap.String("session_id", r.cp.SessionID))

	steps := 0
	for {
		steps++
		if steps > e.opts.MaxSteps {
			r.fail(ctx, fmt.Errorf("run exceeded %d steps without suspending", e.opts.MaxSteps))
			e.metrics.runFinished("failed")
			return
		}

		stage := Route(r.cp.State)
		if stage == StageSummary && e.caps.Summary == nil {
			stage = StageComplete
		}

		if stage == StageComplete {
			r.cp.State.WorkflowCompleted = true
			r.cp.State.Stage = WorkflowComplete
			err := r.checkpointAndEmit(ctx, StatusCompleted,
				pendingEvent{
					typ:   emit.TypeStageComplete,
					stage: string(StageComplete),
					payload: emit.StageComplete{
						Stage:  string(StageComplete),
						Output: map[string]any{"workflow_completed": true},
					},
				},
				pendingEvent{typ: emit.TypeStreamComplete},
			)
			if err != nil {
				r.fail(ctx, err)
				e.metrics.runFinished("failed")
				return
			}
			logger.Info("session completed",
				zap.Int("lessons", len(r.cp.State.LessonHistory)),
				zap.Int("questions", len(r.cp.State.QuestionsAsked)))
			e.metrics.runFinished("completed")
			return
		}

		res, err := e.invoke(ctx, r, stage)
		if err != nil {
			r.fail(ctx, err)
			e.metrics.runFinished("failed")
			return
		}

		r.cp.State = r.cp.State.Apply(res.Delta)

		// Stage transitions are owned here, never by capabilities.
		switch stage {
		case StageRoadmap:
			r.cp.State.Stage = WorkflowLearning
		case StageCritique:
			if err := e.applyCritiqueOutcome(&r.cp.State); err != nil {
				r.fail(ctx, err)
				e.metrics.runFinished("failed")
				return
			}
		case StageSummary:
			if r.cp.State.SessionSummary == "" {
				r.cp.State.SessionSummary = fallbackSummary(r.cp.State)
			}
		}

		if res.Interrupt != nil {
			intr := &Interrupt{
				Kind:      res.Interrupt.Kind,
				Payload:   res.Interrupt.Payload,
				CreatedAt: time.Now().UTC(),
			}
			r.cp.PendingInterrupt = intr
			e.metrics.interruptRaised(intr.Kind)

			err := r.checkpointAndEmit(ctx, StatusSuspended,
				pendingEvent{
					typ:   emit.TypeInterrupt,
					stage: string(stage),
					payload: emit.InterruptRaised{
						Kind:    string(intr.Kind),
						Payload: intr.Payload,
					},
				},
				pendingEvent{typ: emit.TypeStreamComplete},
			)
			if err != nil {
				r.fail(ctx, err)
				e.metrics.runFinished("failed")
				return
			}
			logger.Info("session suspended",
				zap.String("interrupt", string(intr.Kind)),
				zap.String("stage", string(stage)))
			e.metrics.runFinished("suspended")
			return
		}

		err = r.checkpointAndEmit(ctx, StatusRunning, pendingEvent{
			typ:   emit.TypeStageComplete,
			stage: string(stage),
			payload: emit.StageComplete{
				Stage:  string(stage),
				Output: stageOutput(stage, r.cp.State),
			},
		})
		if err != nil {
			r.fail(ctx, err)
			e.metrics.runFinished("failed")
			return
		}
	}
}

// invoke calls the stage's capability, forwarding token output as events
// and retrying transient failures per the configured policy.
func (e *Engine) invoke(ctx context.Context, r *run, stage Stage) (Result, error) {
	handler := e.caps.handler(stage)
	if handler == nil {
		return Result{}, &ConfigError{Message: "no capability for stage " + string(stage)}
	}

	sink := func(chunk string) {
		if chunk != "" {
			r.emit(emit.TypeToken, string(stage), emit.Token{Content: chunk, Stage: string(stage)})
		}
	}

	var lastErr error
	for attempt := 0; attempt < e.opts.Retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			e.metrics.retryAttempted(stage)
			e.logger.Warn("retrying stage capability",
				zap.String("session_id", r.cp.SessionID),
				zap.String("stage", string(stage)),
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
			time.Sleep(e.opts.Retry.backoff(attempt - 1))
		}

		start := time.Now()
		res, err := handler.Invoke(ctx, r.cp.State, sink)
		if err == nil {
			e.metrics.observeStage(stage, "success", time.Since(start))
			return res, nil
		}
		e.metrics.observeStage(stage, "error", time.Since(start))

		lastErr = err
		if !IsTransient(err) {
			return Result{}, err
		}
	}
	return Result{}, fmt.Errorf("stage %s failed after %d attempts: %w",
		stage, e.opts.Retry.MaxAttempts, lastErr)
}

// applyCritiqueOutcome implements the critique branch: loop back to
// research while retries remain, otherwise apply the configured fallback.
func (e *Engine) applyCritiqueOutcome(s *State) error {
	if s.ResearchApproved {
		return nil
	}

	if s.RetryCount < e.opts.MaxResearchRetries {
		s.RetryCount++
		s.CurrentResearch = ""
		return nil
	}

	if e.opts.Fallback == FallbackFail {
		return fmt.Errorf("critique rejected research for %q after %d retries",
			s.CurrentTopic, s.RetryCount)
	}

	s.ResearchApproved = true
	s.BestEffort = true
	return nil
}

// stageOutput builds the small per-stage summary carried by stage_complete
// events. Consumers reconstruct the transition history from these plus the
// interrupt events; the full state stays in the checkpoint.
func stageOutput(stage Stage, s State) map[string]any {
	switch stage {
	case StagePrerequisites:
		return map[string]any{"prerequisites": s.Prerequisites}
	case StageRoadmap:
		return map[string]any{"learning_roadmap": s.LearningRoadmap}
	case StageResearch:
		return map[string]any{"topic": s.CurrentTopic, "retry_count": s.RetryCount}
	case StageCritique:
		return map[string]any{
			"topic":       s.CurrentTopic,
			"approved":    s.ResearchApproved,
			"retry_count": s.RetryCount,
			"best_effort": s.BestEffort,
		}
	case StageGeneration:
		return map[string]any{"topic": s.CurrentTopic, "best_effort": s.BestEffort}
	case StageAnswer:
		return map[string]any{"topic": s.CurrentTopic, "questions_asked": len(s.QuestionsAsked)}
	case StageSummary:
		return map[string]any{"lessons": len(s.LessonHistory)}
	}
	return nil
}

// fallbackSummary covers a summary capability that returned nothing; the
// router requires a non-empty summary to reach the terminal stage.
func fallbackSummary(s State) string {
	return fmt.Sprintf("Completed %d of %d topics for %s.",
		len(s.LessonHistory), len(s.LearningRoadmap), s.InitialTopic)
}

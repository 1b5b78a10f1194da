package tutor

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dshills/tutorgraph-go/tutor/emit"
	"github.com/dshills/tutorgraph-go/tutor/store"
)

func startAndDrain(t *testing.T, engine *Engine, id, topic string) []emit.Event {
	t.Helper()
	stream, err := engine.Start(context.Background(), id, topic)
	if err != nil {
		t.Fatalf("Start(%q): %v", id, err)
	}
	return drain(stream)
}

func resumeAndDrain(t *testing.T, engine *Engine, id string, resp Response) []emit.Event {
	t.Helper()
	stream, err := engine.Resume(context.Background(), id, resp)
	if err != nil {
		t.Fatalf("Resume(%q, %s): %v", id, resp.Action, err)
	}
	return drain(stream)
}

func snapshot(t *testing.T, engine *Engine, id string) Snapshot {
	t.Helper()
	snap, err := engine.GetState(context.Background(), id)
	if err != nil {
		t.Fatalf("GetState(%q): %v", id, err)
	}
	return snap
}

func TestEngine_New(t *testing.T) {
	caps := newScriptedCaps("Algebra").set()

	t.Run("valid configuration", func(t *testing.T) {
		engine, err := New(store.NewMemStore[Checkpoint](), caps, nil, Options{})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if engine == nil {
			t.Fatal("New returned nil engine")
		}
	})

	t.Run("nil store", func(t *testing.T) {
		if _, err := New(nil, caps, nil, Options{}); err == nil {
			t.Fatal("expected error for nil store")
		}
	})

	t.Run("missing capability", func(t *testing.T) {
		incomplete := caps
		incomplete.Research = nil
		if _, err := New(store.NewMemStore[Checkpoint](), incomplete, nil, Options{}); err == nil {
			t.Fatal("expected error for missing research capability")
		}
	})

	t.Run("invalid retry policy", func(t *testing.T) {
		opts := Options{Retry: RetryPolicy{MaxAttempts: -1}}
		if _, err := New(store.NewMemStore[Checkpoint](), caps, nil, opts); err == nil {
			t.Fatal("expected error for negative retry attempts")
		}
	})
}

func TestEngine_Start(t *testing.T) {
	t.Run("session_started is first with sequence zero", func(t *testing.T) {
		engine := newTestEngine(newScriptedCaps("Linear Algebra").set(), Options{})
		events := startAndDrain(t, engine, "s1", "Neural Networks")

		if len(events) == 0 {
			t.Fatal("no events emitted")
		}
		first := events[0]
		if first.Type != emit.TypeSessionStarted {
			t.Errorf("first event type = %s, want %s", first.Type, emit.TypeSessionStarted)
		}
		if first.Seq != 0 {
			t.Errorf("first event seq = %d, want 0", first.Seq)
		}
		started, ok := first.Payload.(emit.SessionStarted)
		if !ok {
			t.Fatalf("payload type = %T, want emit.SessionStarted", first.Payload)
		}
		if started.Topic != "Neural Networks" {
			t.Errorf("topic = %q, want %q", started.Topic, "Neural Networks")
		}
	})

	t.Run("suspends on prerequisite selection", func(t *testing.T) {
		engine := newTestEngine(newScriptedCaps("Linear Algebra", "Calculus").set(), Options{})
		events := startAndDrain(t, engine, "s1", "Neural Networks")

		got := eventTypes(events)
		want := []emit.EventType{emit.TypeSessionStarted, emit.TypeInterrupt, emit.TypeStreamComplete}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("event types = %v, want %v", got, want)
		}

		snap := snapshot(t, engine, "s1")
		if snap.Status != StatusSuspended {
			t.Errorf("status = %s, want %s", snap.Status, StatusSuspended)
		}
		if snap.Interrupt == nil || snap.Interrupt.Kind != InterruptPrerequisiteSelection {
			t.Errorf("pending interrupt = %+v, want kind %s", snap.Interrupt, InterruptPrerequisiteSelection)
		}
	})

	t.Run("duplicate session id", func(t *testing.T) {
		engine := newTestEngine(newScriptedCaps("Algebra").set(), Options{})
		startAndDrain(t, engine, "s1", "Topic A")

		_, err := engine.Start(context.Background(), "s1", "Topic B")
		if !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("second Start error = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("empty inputs", func(t *testing.T) {
		engine := newTestEngine(newScriptedCaps("Algebra").set(), Options{})
		if _, err := engine.Start(context.Background(), "", "Topic"); err == nil {
			t.Error("expected error for empty session id")
		}
		if _, err := engine.Start(context.Background(), "s1", ""); err == nil {
			t.Error("expected error for empty topic")
		}
	})
}

// TestEngine_EndToEnd drives a two-topic session from start to completion
// and checks state, event ordering and sequence numbering along the way.
func TestEngine_EndToEnd(t *testing.T) {
	caps := newScriptedCaps("Linear Algebra", "Calculus")
	engine := newTestEngine(caps.set(), Options{})

	all := startAndDrain(t, engine, "s1", "Neural Networks")

	// The user already knows Calculus; Linear Algebra remains unresolved.
	events := resumeAndDrain(t, engine, "s1", Response{
		Action:                ActionSelectPrerequisites,
		SelectedPrerequisites: []string{"Calculus"},
	})
	all = append(all, events...)

	snap := snapshot(t, engine, "s1")
	wantRoadmap := []string{"Linear Algebra", "Neural Networks"}
	if !reflect.DeepEqual(snap.State.LearningRoadmap, wantRoadmap) {
		t.Fatalf("roadmap = %v, want %v", snap.State.LearningRoadmap, wantRoadmap)
	}
	if !reflect.DeepEqual(snap.State.KnownPrerequisites, []string{"Calculus"}) {
		t.Errorf("known = %v, want [Calculus]", snap.State.KnownPrerequisites)
	}
	if snap.Interrupt == nil || snap.Interrupt.Kind != InterruptTopicReview {
		t.Fatalf("pending interrupt = %+v, want topic_review", snap.Interrupt)
	}

	got := eventTypes(events)
	want := []emit.EventType{
		emit.TypeStageComplete, // prerequisite_selection injection
		emit.TypeStageComplete, // roadmap
		emit.TypeStageComplete, // research
		emit.TypeStageComplete, // critique
		emit.TypeInterrupt,     // topic_review from generation
		emit.TypeStreamComplete,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("resume event types = %v, want %v", got, want)
	}

	// Approve both topics.
	for i := 0; i < 2; i++ {
		events = resumeAndDrain(t, engine, "s1", Response{Action: ActionContinue})
		all = append(all, events...)
	}

	final := snapshot(t, engine, "s1")
	if final.Status != StatusCompleted {
		t.Fatalf("final status = %s, want %s", final.Status, StatusCompleted)
	}
	if !final.State.WorkflowCompleted {
		t.Error("workflow_completed not set")
	}
	if final.State.Stage != WorkflowComplete {
		t.Errorf("workflow stage = %s, want %s", final.State.Stage, WorkflowComplete)
	}
	if final.Interrupt != nil {
		t.Errorf("completed session still has pending interrupt %+v", final.Interrupt)
	}
	if final.State.SessionSummary == "" {
		t.Error("session summary is empty")
	}
	if len(final.State.LessonHistory) != 2 {
		t.Fatalf("lesson history length = %d, want 2", len(final.State.LessonHistory))
	}
	for i, topic := range wantRoadmap {
		if final.State.LessonHistory[i].Topic != topic {
			t.Errorf("lesson[%d].Topic = %q, want %q", i, final.State.LessonHistory[i].Topic, topic)
		}
	}
	if n := len(final.State.QuestionsAsked); n != 0 {
		t.Errorf("questions asked = %d, want 0", n)
	}

	// Sequence numbers are strictly increasing across every stream of the
	// session, with no reuse after resume.
	for i := 1; i < len(all); i++ {
		if all[i].Seq <= all[i-1].Seq {
			t.Fatalf("sequence not strictly increasing: event %d has seq %d after %d",
				i, all[i].Seq, all[i-1].Seq)
		}
	}
	if all[0].Seq != 0 {
		t.Errorf("first seq = %d, want 0", all[0].Seq)
	}
}

// TestEngine_RoadmapSlots guards against prerequisite decomposition: every
// unresolved prerequisite occupies exactly one roadmap slot regardless of
// how composite its name looks.
func TestEngine_RoadmapSlots(t *testing.T) {
	caps := newScriptedCaps("Ensemble Methods")
	engine := newTestEngine(caps.set(), Options{})

	startAndDrain(t, engine, "s1", "Gradient Boosting")
	resumeAndDrain(t, engine, "s1", Response{Action: ActionSelectPrerequisites})

	snap := snapshot(t, engine, "s1")
	want := []string{"Ensemble Methods", "Gradient Boosting"}
	if !reflect.DeepEqual(snap.State.LearningRoadmap, want) {
		t.Errorf("roadmap = %v, want %v", snap.State.LearningRoadmap, want)
	}
}

func TestEngine_GetState(t *testing.T) {
	t.Run("unknown session", func(t *testing.T) {
		engine := newTestEngine(newScriptedCaps("Algebra").set(), Options{})
		if _, err := engine.GetState(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("read is idempotent", func(t *testing.T) {
		engine := newTestEngine(newScriptedCaps("Algebra").set(), Options{})
		startAndDrain(t, engine, "s1", "Topic")

		first := snapshot(t, engine, "s1")
		second := snapshot(t, engine, "s1")
		if !reflect.DeepEqual(first, second) {
			t.Errorf("consecutive snapshots differ:\n%+v\n%+v", first, second)
		}
	})
}

func TestEngine_ResumeValidation(t *testing.T) {
	t.Run("unknown session", func(t *testing.T) {
		engine := newTestEngine(newScriptedCaps("Algebra").set(), Options{})
		_, err := engine.Resume(context.Background(), "missing", Response{Action: ActionContinue})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("completed session", func(t *testing.T) {
		engine := newTestEngine(newScriptedCaps("Algebra").set(), Options{})
		startAndDrain(t, engine, "s1", "Topic")
		resumeAndDrain(t, engine, "s1", Response{Action: ActionSelectPrerequisites})
		resumeAndDrain(t, engine, "s1", Response{Action: ActionContinue}) // Algebra
		resumeAndDrain(t, engine, "s1", Response{Action: ActionContinue}) // Topic

		_, err := engine.Resume(context.Background(), "s1", Response{Action: ActionContinue})
		if !errors.Is(err, ErrNotSuspended) {
			t.Errorf("error = %v, want ErrNotSuspended", err)
		}
	})

	t.Run("wrong action leaves checkpoint untouched", func(t *testing.T) {
		engine := newTestEngine(newScriptedCaps("Algebra").set(), Options{})
		startAndDrain(t, engine, "s1", "Topic")

		before := snapshot(t, engine, "s1")

		_, err := engine.Resume(context.Background(), "s1", Response{Action: ActionContinue})
		if !errors.Is(err, ErrInterruptMismatch) {
			t.Fatalf("error = %v, want ErrInterruptMismatch", err)
		}

		after := snapshot(t, engine, "s1")
		if !reflect.DeepEqual(before, after) {
			t.Errorf("checkpoint changed by rejected resume:\n%+v\n%+v", before, after)
		}

		// A correct action still works afterward.
		resumeAndDrain(t, engine, "s1", Response{Action: ActionSelectPrerequisites})
	})

	t.Run("ask_question requires a question", func(t *testing.T) {
		engine := newTestEngine(newScriptedCaps("Algebra").set(), Options{})
		startAndDrain(t, engine, "s1", "Topic")
		resumeAndDrain(t, engine, "s1", Response{Action: ActionSelectPrerequisites})

		_, err := engine.Resume(context.Background(), "s1", Response{Action: ActionAskQuestion})
		if !errors.Is(err, ErrInterruptMismatch) {
			t.Errorf("error = %v, want ErrInterruptMismatch", err)
		}
	})
}

// TestEngine_AskQuestion verifies the question loop: each ask_question
// resume produces exactly one answered entry, counted from the slice the
// answer stage appends to, independent of the message trail.
func TestEngine_AskQuestion(t *testing.T) {
	caps := newScriptedCaps("Algebra")
	engine := newTestEngine(caps.set(), Options{})

	startAndDrain(t, engine, "s1", "Topic")
	resumeAndDrain(t, engine, "s1", Response{Action: ActionSelectPrerequisites})

	questions := []string{"Why does this matter?", "What is a basis?"}
	for _, q := range questions {
		events := resumeAndDrain(t, engine, "s1", Response{Action: ActionAskQuestion, Question: q})

		intr, ok := lastInterrupt(events)
		if !ok {
			t.Fatalf("no interrupt re-raised after question %q", q)
		}
		if payload := intr.Payload.(emit.InterruptRaised); payload.Kind != string(InterruptTopicReview) {
			t.Errorf("re-raised interrupt kind = %s, want topic_review", payload.Kind)
		}
	}

	snap := snapshot(t, engine, "s1")
	if n := len(snap.State.QuestionsAsked); n != 2 {
		t.Fatalf("questions asked = %d, want 2", n)
	}
	for i, q := range questions {
		qa := snap.State.QuestionsAsked[i]
		if qa.Question != q {
			t.Errorf("question[%d] = %q, want %q", i, qa.Question, q)
		}
		if qa.Answer == "" {
			t.Errorf("question[%d] has no answer", i)
		}
		if qa.Topic != "Algebra" {
			t.Errorf("question[%d].Topic = %q, want Algebra", i, qa.Topic)
		}
	}
	if snap.State.PendingQuestion != "" {
		t.Errorf("pending question not cleared: %q", snap.State.PendingQuestion)
	}
	if caps.answerCalls != 2 {
		t.Errorf("answer capability invoked %d times, want 2", caps.answerCalls)
	}
}

func TestEngine_Regenerate(t *testing.T) {
	caps := newScriptedCaps("Algebra")
	engine := newTestEngine(caps.set(), Options{})

	startAndDrain(t, engine, "s1", "Topic")
	resumeAndDrain(t, engine, "s1", Response{Action: ActionSelectPrerequisites})
	resumeAndDrain(t, engine, "s1", Response{Action: ActionRegenerate})

	if n := caps.generationCalls["Algebra"]; n != 2 {
		t.Errorf("generation invoked %d times, want 2", n)
	}
	// Research survives a regenerate; only the lesson is redone.
	if n := caps.researchCalls["Algebra"]; n != 1 {
		t.Errorf("research invoked %d times, want 1", n)
	}

	snap := snapshot(t, engine, "s1")
	if snap.State.CurrentLesson != "lesson 2: Algebra" {
		t.Errorf("current lesson = %q, want the regenerated one", snap.State.CurrentLesson)
	}

	resumeAndDrain(t, engine, "s1", Response{Action: ActionContinue})
	snap = snapshot(t, engine, "s1")
	if got := snap.State.LessonHistory[0].Content; got != "lesson 2: Algebra" {
		t.Errorf("approved lesson = %q, want the regenerated one", got)
	}
}

func TestEngine_SingleWriter(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})

	caps := newScriptedCaps("Algebra")
	set := caps.set()
	set.Prerequisites = CapabilityFunc(func(ctx context.Context, s State, tokens TokenSink) (Result, error) {
		close(entered)
		<-release
		return caps.invokePrerequisites(ctx, s, tokens)
	})
	engine := newTestEngine(set, Options{})

	stream, err := engine.Start(context.Background(), "s1", "Topic")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-entered

	if _, err := engine.Start(context.Background(), "s1", "Topic"); !errors.Is(err, ErrSessionBusy) {
		t.Errorf("concurrent Start error = %v, want ErrSessionBusy", err)
	}
	if _, err := engine.Resume(context.Background(), "s1", Response{Action: ActionContinue}); !errors.Is(err, ErrSessionBusy) {
		t.Errorf("concurrent Resume error = %v, want ErrSessionBusy", err)
	}

	close(release)
	drain(stream)

	// The lock is released once the run settles.
	resumeAndDrain(t, engine, "s1", Response{Action: ActionSelectPrerequisites})
}

func TestEngine_StartCheckpointBeforeFirstEvent(t *testing.T) {
	release := make(chan struct{})

	caps := newScriptedCaps("Algebra")
	set := caps.set()
	set.Prerequisites = CapabilityFunc(func(ctx context.Context, s State, tokens TokenSink) (Result, error) {
		<-release
		return caps.invokePrerequisites(ctx, s, tokens)
	})
	engine := newTestEngine(set, Options{})

	stream, err := engine.Start(context.Background(), "s1", "Topic")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Receiving session_started proves its checkpoint save already
	// happened, so the session must be readable while the first stage is
	// still running.
	first := <-stream.Events()
	if first.Type != emit.TypeSessionStarted {
		t.Fatalf("first event = %s, want session_started", first.Type)
	}

	snap := snapshot(t, engine, "s1")
	if snap.Status != StatusRunning {
		t.Errorf("Status = %s, want running", snap.Status)
	}
	if snap.State.InitialTopic != "Topic" {
		t.Errorf("InitialTopic = %q, want %q", snap.State.InitialTopic, "Topic")
	}

	close(release)
	drain(stream)
}

func TestEngine_CritiqueRetry(t *testing.T) {
	t.Run("rejection loops back to research", func(t *testing.T) {
		caps := newScriptedCaps("Algebra")
		caps.rejectCritiques = 2
		engine := newTestEngine(caps.set(), Options{MaxResearchRetries: 3})

		startAndDrain(t, engine, "s1", "Topic")
		resumeAndDrain(t, engine, "s1", Response{Action: ActionSelectPrerequisites})

		if n := caps.researchCalls["Algebra"]; n != 3 {
			t.Errorf("research invoked %d times, want 3", n)
		}
		snap := snapshot(t, engine, "s1")
		if snap.State.BestEffort {
			t.Error("best_effort set although critique eventually approved")
		}
		if snap.Interrupt == nil || snap.Interrupt.Kind != InterruptTopicReview {
			t.Errorf("expected topic_review suspension, got %+v", snap.Interrupt)
		}
	})

	t.Run("exhaustion falls back to best effort", func(t *testing.T) {
		caps := newScriptedCaps("Algebra")
		caps.rejectCritiques = 100
		engine := newTestEngine(caps.set(), Options{MaxResearchRetries: 2})

		startAndDrain(t, engine, "s1", "Topic")
		resumeAndDrain(t, engine, "s1", Response{Action: ActionSelectPrerequisites})

		if n := caps.researchCalls["Algebra"]; n != 3 {
			t.Errorf("research invoked %d times, want 3", n)
		}
		snap := snapshot(t, engine, "s1")
		if snap.Status != StatusSuspended {
			t.Fatalf("status = %s, want suspended on topic review", snap.Status)
		}
		if !snap.State.BestEffort {
			t.Error("best_effort not set after critique exhaustion")
		}
		if snap.State.CurrentLesson == "" {
			t.Error("no lesson generated under best-effort fallback")
		}
	})

	t.Run("exhaustion fails the session under FallbackFail", func(t *testing.T) {
		caps := newScriptedCaps("Algebra")
		caps.rejectCritiques = 100
		engine := newTestEngine(caps.set(), Options{MaxResearchRetries: 1, Fallback: FallbackFail})

		startAndDrain(t, engine, "s1", "Topic")
		events := resumeAndDrain(t, engine, "s1", Response{Action: ActionSelectPrerequisites})

		types := eventTypes(events)
		if len(types) < 2 || types[len(types)-2] != emit.TypeError {
			t.Errorf("event types = %v, want error before stream_complete", types)
		}
		snap := snapshot(t, engine, "s1")
		if snap.Status != StatusFailed {
			t.Errorf("status = %s, want %s", snap.Status, StatusFailed)
		}
	})
}

func TestEngine_Retries(t *testing.T) {
	t.Run("transient errors are retried", func(t *testing.T) {
		failures := 2
		caps := newScriptedCaps("Algebra")
		set := caps.set()
		set.Research = CapabilityFunc(func(ctx context.Context, s State, tokens TokenSink) (Result, error) {
			if failures > 0 {
				failures--
				return Result{}, Transient(StageResearch, errors.New("rate limited"))
			}
			return caps.invokeResearch(ctx, s, tokens)
		})
		engine := newTestEngine(set, Options{
			Retry: RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		})

		startAndDrain(t, engine, "s1", "Topic")
		resumeAndDrain(t, engine, "s1", Response{Action: ActionSelectPrerequisites})

		snap := snapshot(t, engine, "s1")
		if snap.Status != StatusSuspended {
			t.Errorf("status = %s, want suspended after retries succeeded", snap.Status)
		}
		if snap.State.CurrentResearch == "" {
			t.Error("research output missing after successful retry")
		}
	})

	t.Run("fatal error fails immediately", func(t *testing.T) {
		invocations := 0
		set := newScriptedCaps("Algebra").set()
		set.Research = CapabilityFunc(func(context.Context, State, TokenSink) (Result, error) {
			invocations++
			return Result{}, errors.New("invalid API key")
		})
		engine := newTestEngine(set, Options{
			Retry: RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		})

		startAndDrain(t, engine, "s1", "Topic")
		events := resumeAndDrain(t, engine, "s1", Response{Action: ActionSelectPrerequisites})

		if invocations != 1 {
			t.Errorf("fatal capability invoked %d times, want 1", invocations)
		}
		types := eventTypes(events)
		if len(types) < 2 || types[len(types)-2] != emit.TypeError {
			t.Errorf("event types = %v, want error before stream_complete", types)
		}
		if snap := snapshot(t, engine, "s1"); snap.Status != StatusFailed {
			t.Errorf("status = %s, want %s", snap.Status, StatusFailed)
		}
	})

	t.Run("transient exhaustion fails the session", func(t *testing.T) {
		set := newScriptedCaps("Algebra").set()
		set.Research = CapabilityFunc(func(context.Context, State, TokenSink) (Result, error) {
			return Result{}, Transient(StageResearch, errors.New("timeout"))
		})
		engine := newTestEngine(set, Options{
			Retry: RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		})

		startAndDrain(t, engine, "s1", "Topic")
		resumeAndDrain(t, engine, "s1", Response{Action: ActionSelectPrerequisites})

		if snap := snapshot(t, engine, "s1"); snap.Status != StatusFailed {
			t.Errorf("status = %s, want %s", snap.Status, StatusFailed)
		}
	})
}

func TestEngine_Delete(t *testing.T) {
	engine := newTestEngine(newScriptedCaps("Algebra").set(), Options{})
	startAndDrain(t, engine, "s1", "Topic")

	if err := engine.Delete(context.Background(), "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := engine.GetState(context.Background(), "s1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetState after delete = %v, want ErrNotFound", err)
	}
	if _, err := engine.Resume(context.Background(), "s1", Response{Action: ActionSelectPrerequisites}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resume after delete = %v, want ErrNotFound", err)
	}
	if err := engine.Delete(context.Background(), "s1"); err != nil {
		t.Errorf("repeated Delete: %v", err)
	}
}

// TestEngine_SummaryOptional covers a capability set without a summary
// stage; the session completes directly once the roadmap is exhausted.
func TestEngine_SummaryOptional(t *testing.T) {
	set := newScriptedCaps("Algebra").set()
	set.Summary = nil
	engine := newTestEngine(set, Options{})

	startAndDrain(t, engine, "s1", "Topic")
	resumeAndDrain(t, engine, "s1", Response{Action: ActionSelectPrerequisites})
	resumeAndDrain(t, engine, "s1", Response{Action: ActionContinue})
	events := resumeAndDrain(t, engine, "s1", Response{Action: ActionContinue})

	types := eventTypes(events)
	if types[len(types)-1] != emit.TypeStreamComplete {
		t.Errorf("last event = %s, want stream_complete", types[len(types)-1])
	}
	if snap := snapshot(t, engine, "s1"); snap.Status != StatusCompleted {
		t.Errorf("status = %s, want %s", snap.Status, StatusCompleted)
	}
}

// TestEngine_SequenceContinuity verifies sequence numbers persist across
// process-like boundaries: a fresh engine over the same store continues
// numbering where the previous one stopped.
func TestEngine_SequenceContinuity(t *testing.T) {
	st := store.NewMemStore[Checkpoint]()
	caps := newScriptedCaps("Algebra")

	engine1, err := New(st, caps.set(), emit.NewNullEmitter(), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	first := startAndDrain(t, engine1, "s1", "Topic")

	// Second engine simulates a restarted process sharing the store.
	engine2, err := New(st, caps.set(), emit.NewNullEmitter(), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	second := resumeAndDrain(t, engine2, "s1", Response{Action: ActionSelectPrerequisites})

	lastSeq := first[len(first)-1].Seq
	if second[0].Seq <= lastSeq {
		t.Errorf("resumed stream starts at seq %d, want > %d", second[0].Seq, lastSeq)
	}
	for i := 1; i < len(second); i++ {
		if second[i].Seq <= second[i-1].Seq {
			t.Fatalf("sequence not strictly increasing at event %d", i)
		}
	}
}

func TestEngine_MaxSteps(t *testing.T) {
	// A critique that approves but a router state that never reaches an
	// interrupt is impossible by construction, so force a spin by having
	// research clear its own output.
	set := newScriptedCaps("Algebra").set()
	set.Research = CapabilityFunc(func(context.Context, State, TokenSink) (Result, error) {
		return Result{Delta: Delta{CurrentResearch: String("")}}, nil
	})
	engine := newTestEngine(set, Options{MaxSteps: 5})

	startAndDrain(t, engine, "s1", "Topic")
	resumeAndDrain(t, engine, "s1", Response{Action: ActionSelectPrerequisites})

	if snap := snapshot(t, engine, "s1"); snap.Status != StatusFailed {
		t.Errorf("status = %s, want %s after step budget exhausted", snap.Status, StatusFailed)
	}
}

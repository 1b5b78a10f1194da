package tutor

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/tutorgraph-go/tutor/emit"
	"github.com/dshills/tutorgraph-go/tutor/store"
)

// scriptedCaps is a deterministic capability set driving a full tutoring
// flow without any model or search backend. Counters record invocations so
// tests can assert on retry and regeneration behavior.
type scriptedCaps struct {
	mu sync.Mutex

	prerequisites []string

	// rejectCritiques makes the critique capability reject the first N
	// research drafts per topic before approving.
	rejectCritiques int

	researchCalls   map[string]int
	critiqueCalls   map[string]int
	generationCalls map[string]int
	answerCalls     int
	summaryCalls    int
}

func newScriptedCaps(prereqs ...string) *scriptedCaps {
	return &scriptedCaps{
		prerequisites:   prereqs,
		researchCalls:   make(map[string]int),
		critiqueCalls:   make(map[string]int),
		generationCalls: make(map[string]int),
	}
}

func (c *scriptedCaps) set() CapabilitySet {
	return CapabilitySet{
		Prerequisites: CapabilityFunc(c.invokePrerequisites),
		Roadmap:       CapabilityFunc(c.invokeRoadmap),
		Research:      CapabilityFunc(c.invokeResearch),
		Critique:      CapabilityFunc(c.invokeCritique),
		Generation:    CapabilityFunc(c.invokeGeneration),
		Answer:        CapabilityFunc(c.invokeAnswer),
		Summary:       CapabilityFunc(c.invokeSummary),
	}
}

func (c *scriptedCaps) invokePrerequisites(_ context.Context, s State, tokens TokenSink) (Result, error) {
	for _, p := range c.prerequisites {
		tokens(p + " ")
	}
	return Result{
		Delta: Delta{Prerequisites: c.prerequisites},
		Interrupt: &InterruptRequest{
			Kind:    InterruptPrerequisiteSelection,
			Payload: map[string]any{"prerequisites": c.prerequisites},
		},
	}, nil
}

func (c *scriptedCaps) invokeRoadmap(_ context.Context, s State, _ TokenSink) (Result, error) {
	roadmap := BuildRoadmap(s.UnknownPrerequisites, s.InitialTopic)
	return Result{
		Delta: Delta{
			LearningRoadmap:   roadmap,
			CurrentTopicIndex: Int(0),
			CurrentTopic:      String(roadmap[0]),
		},
	}, nil
}

func (c *scriptedCaps) invokeResearch(_ context.Context, s State, tokens TokenSink) (Result, error) {
	c.mu.Lock()
	c.researchCalls[s.CurrentTopic]++
	c.mu.Unlock()

	tokens("researching " + s.CurrentTopic)
	return Result{
		Delta: Delta{CurrentResearch: String("research: " + s.CurrentTopic)},
	}, nil
}

func (c *scriptedCaps) invokeCritique(_ context.Context, s State, _ TokenSink) (Result, error) {
	c.mu.Lock()
	c.critiqueCalls[s.CurrentTopic]++
	c.mu.Unlock()

	approved := s.RetryCount >= c.rejectCritiques
	return Result{
		Delta: Delta{ResearchApproved: Bool(approved)},
	}, nil
}

func (c *scriptedCaps) invokeGeneration(_ context.Context, s State, tokens TokenSink) (Result, error) {
	c.mu.Lock()
	c.generationCalls[s.CurrentTopic]++
	n := c.generationCalls[s.CurrentTopic]
	c.mu.Unlock()

	lesson := fmt.Sprintf("lesson %d: %s", n, s.CurrentTopic)
	tokens(lesson)
	return Result{
		Delta: Delta{CurrentLesson: String(lesson)},
		Interrupt: &InterruptRequest{
			Kind: InterruptTopicReview,
			Payload: map[string]any{
				"topic":  s.CurrentTopic,
				"lesson": lesson,
			},
		},
	}, nil
}

func (c *scriptedCaps) invokeAnswer(_ context.Context, s State, tokens TokenSink) (Result, error) {
	c.mu.Lock()
	c.answerCalls++
	c.mu.Unlock()

	answer := "answer: " + s.PendingQuestion
	tokens(answer)
	return Result{
		Delta: Delta{
			AppendQuestions: []QA{{
				Topic:    s.CurrentTopic,
				Question: s.PendingQuestion,
				Answer:   answer,
			}},
			PendingQuestion: String(""),
			Messages:        []Message{{Role: RoleAssistant, Content: answer}},
		},
		Interrupt: &InterruptRequest{
			Kind: InterruptTopicReview,
			Payload: map[string]any{
				"topic":  s.CurrentTopic,
				"lesson": s.CurrentLesson,
			},
		},
	}, nil
}

func (c *scriptedCaps) invokeSummary(_ context.Context, s State, _ TokenSink) (Result, error) {
	c.mu.Lock()
	c.summaryCalls++
	c.mu.Unlock()

	return Result{
		Delta: Delta{SessionSummary: String(fmt.Sprintf("covered %d topics", len(s.LessonHistory)))},
	}, nil
}

// newTestEngine wires a scripted capability set to an in-memory store.
func newTestEngine(caps CapabilitySet, opts Options) *Engine {
	engine, err := New(store.NewMemStore[Checkpoint](), caps, emit.NewNullEmitter(), opts)
	if err != nil {
		panic(err)
	}
	return engine
}

// drain collects every event from a stream until it closes.
func drain(stream *emit.Stream) []emit.Event {
	var events []emit.Event
	for ev := range stream.Events() {
		events = append(events, ev)
	}
	return events
}

// eventTypes projects the event type sequence, skipping token events, which
// are best-effort and may be dropped under backpressure.
func eventTypes(events []emit.Event) []emit.EventType {
	var types []emit.EventType
	for _, ev := range events {
		if ev.Type == emit.TypeToken {
			continue
		}
		types = append(types, ev.Type)
	}
	return types
}

// lastInterrupt returns the final interrupt event in a stream, if any.
func lastInterrupt(events []emit.Event) (emit.Event, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == emit.TypeInterrupt {
			return events[i], true
		}
	}
	return emit.Event{}, false
}

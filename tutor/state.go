// Package tutor provides the workflow orchestration engine for multi-stage,
// human-in-the-loop tutoring sessions.
package tutor

import "fmt"

// WorkflowStage is the coarse phase of a session's lifecycle. It is stored
// in State and drives the Router's top-level dispatch.
type WorkflowStage string

const (
	// WorkflowPrerequisites covers prerequisite discovery and the human
	// selection that resolves it.
	WorkflowPrerequisites WorkflowStage = "prerequisites"

	// WorkflowRoadmap covers construction of the study roadmap.
	WorkflowRoadmap WorkflowStage = "roadmap"

	// WorkflowLearning covers the per-topic research, critique, generation
	// and review cycle.
	WorkflowLearning WorkflowStage = "learning"

	// WorkflowComplete is terminal.
	WorkflowComplete WorkflowStage = "complete"
)

// Lesson is one completed topic with its generated content.
type Lesson struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
}

// QA records one question asked during topic review and its answer.
type QA struct {
	Topic    string `json:"topic"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Message is one entry of the session's conversational audit trail. The
// trail is never used for counting or control decisions.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message role constants.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// State is the full serializable workflow record for one session.
//
// State is owned exclusively by the Engine: stage capabilities return
// Deltas, the interrupt controller injects validated human responses, and
// only the Engine merges either into State. Every persisted State satisfies
// Validate.
type State struct {
	// InitialTopic is the main topic the session set out to learn.
	InitialTopic string `json:"initial_topic"`

	// Stage is the coarse workflow phase.
	Stage WorkflowStage `json:"workflow_stage"`

	// Prerequisites holds all discovered prerequisites in discovery order.
	Prerequisites []string `json:"prerequisites"`

	// KnownPrerequisites and UnknownPrerequisites record the human
	// selection split, both in discovery order.
	KnownPrerequisites   []string `json:"known_prerequisites"`
	UnknownPrerequisites []string `json:"unknown_prerequisites"`

	// LearningRoadmap is the study order: each unresolved prerequisite
	// occupies exactly one slot, main topic last.
	LearningRoadmap []string `json:"learning_roadmap"`

	// CurrentTopicIndex is the position in LearningRoadmap. It is a valid
	// index while learning and equals len(LearningRoadmap) once the
	// roadmap is exhausted.
	CurrentTopicIndex int `json:"current_topic_index"`

	// Per-topic working fields, reset when a topic is approved.
	CurrentTopic     string `json:"current_topic"`
	CurrentResearch  string `json:"current_research"`
	ResearchApproved bool   `json:"research_approved"`
	CurrentLesson    string `json:"current_lesson"`

	// BestEffort is set when critique retries were exhausted and the
	// configured fallback generated a lesson anyway.
	BestEffort bool `json:"best_effort"`

	// PendingQuestion is set by an ask_question resume and cleared by the
	// answering stage. It keeps the Router a pure function of State.
	PendingQuestion string `json:"pending_question"`

	// LessonHistory holds every approved lesson in completion order.
	LessonHistory []Lesson `json:"lesson_history"`

	// QuestionsAsked grows only by explicit ask_question resume actions;
	// the count is len(QuestionsAsked), never derived from Messages.
	QuestionsAsked []QA `json:"questions_asked"`

	// Messages is the conversational audit trail.
	Messages []Message `json:"messages"`

	// RetryCount counts critique rejections for the current topic,
	// bounded by Options.MaxResearchRetries.
	RetryCount int `json:"retry_count"`

	// SessionSummary is generated when the roadmap is exhausted.
	SessionSummary string `json:"session_summary"`

	// WorkflowCompleted is set once, when the session reaches the
	// terminal stage.
	WorkflowCompleted bool `json:"workflow_completed"`
}

// NewState creates the initial State for a fresh session.
func NewState(topic string) State {
	return State{
		InitialTopic: topic,
		Stage:        WorkflowPrerequisites,
		Messages: []Message{
			{Role: RoleUser, Content: "I want to learn about " + topic},
		},
	}
}

// Validate checks the structural invariants every persisted State must
// satisfy.
func (s State) Validate() error {
	switch s.Stage {
	case WorkflowPrerequisites, WorkflowRoadmap, WorkflowLearning, WorkflowComplete:
	default:
		return fmt.Errorf("invalid workflow stage %q", s.Stage)
	}

	if s.InitialTopic == "" {
		return fmt.Errorf("initial topic is empty")
	}
	if s.CurrentTopicIndex < 0 {
		return fmt.Errorf("current topic index %d is negative", s.CurrentTopicIndex)
	}
	if s.RetryCount < 0 {
		return fmt.Errorf("retry count %d is negative", s.RetryCount)
	}

	switch s.Stage {
	case WorkflowLearning:
		if s.CurrentTopicIndex > len(s.LearningRoadmap) {
			return fmt.Errorf("current topic index %d out of range for roadmap of %d",
				s.CurrentTopicIndex, len(s.LearningRoadmap))
		}
	case WorkflowComplete:
		if s.CurrentTopicIndex != len(s.LearningRoadmap) {
			return fmt.Errorf("complete session has topic index %d, want %d",
				s.CurrentTopicIndex, len(s.LearningRoadmap))
		}
		if !s.WorkflowCompleted {
			return fmt.Errorf("complete session without workflow_completed flag")
		}
	}

	for i, qa := range s.QuestionsAsked {
		if qa.Question == "" {
			return fmt.Errorf("questions_asked[%d] has empty question", i)
		}
	}
	return nil
}

// Delta is a partial State update returned by a stage capability.
//
// Pointer fields distinguish "leave unchanged" (nil) from "set to this
// value", which lets a capability explicitly clear a string field. Slice
// fields with Replace semantics overwrite when non-nil; the Append* fields
// and Messages always append. Deltas are merged only by the Engine via
// State.Apply.
type Delta struct {
	// Replace when non-nil.
	Prerequisites        []string
	KnownPrerequisites   []string
	UnknownPrerequisites []string
	LearningRoadmap      []string

	// Set when non-nil.
	CurrentTopicIndex *int
	CurrentTopic      *string
	CurrentResearch   *string
	ResearchApproved  *bool
	CurrentLesson     *string
	BestEffort        *bool
	PendingQuestion   *string
	RetryCount        *int
	SessionSummary    *string

	// Always appended.
	AppendLessons   []Lesson
	AppendQuestions []QA
	Messages        []Message
}

// Apply merges a Delta into the State and returns the result. The receiver
// is not modified beyond its slice backing arrays never being shared with
// the returned value's appended fields.
func (s State) Apply(d Delta) State {
	if d.Prerequisites != nil {
		s.Prerequisites = d.Prerequisites
	}
	if d.KnownPrerequisites != nil {
		s.KnownPrerequisites = d.KnownPrerequisites
	}
	if d.UnknownPrerequisites != nil {
		s.UnknownPrerequisites = d.UnknownPrerequisites
	}
	if d.LearningRoadmap != nil {
		s.LearningRoadmap = d.LearningRoadmap
	}
	if d.CurrentTopicIndex != nil {
		s.CurrentTopicIndex = *d.CurrentTopicIndex
	}
	if d.CurrentTopic != nil {
		s.CurrentTopic = *d.CurrentTopic
	}
	if d.CurrentResearch != nil {
		s.CurrentResearch = *d.CurrentResearch
	}
	if d.ResearchApproved != nil {
		s.ResearchApproved = *d.ResearchApproved
	}
	if d.CurrentLesson != nil {
		s.CurrentLesson = *d.CurrentLesson
	}
	if d.BestEffort != nil {
		s.BestEffort = *d.BestEffort
	}
	if d.PendingQuestion != nil {
		s.PendingQuestion = *d.PendingQuestion
	}
	if d.RetryCount != nil {
		s.RetryCount = *d.RetryCount
	}
	if d.SessionSummary != nil {
		s.SessionSummary = *d.SessionSummary
	}
	if len(d.AppendLessons) > 0 {
		s.LessonHistory = append(append([]Lesson{}, s.LessonHistory...), d.AppendLessons...)
	}
	if len(d.AppendQuestions) > 0 {
		s.QuestionsAsked = append(append([]QA{}, s.QuestionsAsked...), d.AppendQuestions...)
	}
	if len(d.Messages) > 0 {
		s.Messages = append(append([]Message{}, s.Messages...), d.Messages...)
	}
	return s
}

// Helper constructors for Delta pointer fields.

// String returns a pointer to v for use in Delta fields.
func String(v string) *string { return &v }

// Int returns a pointer to v for use in Delta fields.
func Int(v int) *int { return &v }

// Bool returns a pointer to v for use in Delta fields.
func Bool(v bool) *bool { return &v }

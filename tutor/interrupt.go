package tutor

import (
	"fmt"
	"strings"
	"time"
)

// InterruptKind identifies which human decision a suspended session awaits.
type InterruptKind string

const (
	// InterruptPrerequisiteSelection asks the human which of the
	// discovered prerequisites they already know.
	InterruptPrerequisiteSelection InterruptKind = "prerequisite_selection"

	// InterruptTopicReview asks the human to review a generated lesson:
	// continue, ask a question, or regenerate.
	InterruptTopicReview InterruptKind = "topic_review"
)

// Interrupt is a durable marker that a run is paused awaiting a specific
// human decision. It exists only while its session is suspended and is
// cleared atomically by a validated resume.
//
// Payload carries exactly what a human-facing caller needs to present the
// choice (the discovered prerequisites; the rendered lesson and available
// actions). It is plain JSON data so a checkpoint round-trips byte-exact.
type Interrupt struct {
	Kind      InterruptKind  `json:"kind"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// InterruptRequest is how a stage capability signals "I need human input":
// returned alongside its delta, converted by the engine into the session's
// pending Interrupt.
type InterruptRequest struct {
	Kind    InterruptKind
	Payload map[string]any
}

// Action is a resume action supplied by the caller.
type Action string

const (
	// ActionSelectPrerequisites resolves a prerequisite_selection
	// interrupt with the list of prerequisites the user already knows.
	ActionSelectPrerequisites Action = "select_prerequisites"

	// ActionContinue approves the reviewed lesson and advances to the
	// next topic.
	ActionContinue Action = "continue"

	// ActionAskQuestion asks a question about the current topic; the
	// session answers it and re-raises the same review interrupt.
	ActionAskQuestion Action = "ask_question"

	// ActionRegenerate discards the current lesson and generates a new
	// one for the same topic.
	ActionRegenerate Action = "regenerate"
)

// Response is the caller-supplied answer to a pending interrupt.
type Response struct {
	// Action selects what to do; it must be valid for the pending
	// interrupt's kind.
	Action Action `json:"action"`

	// Question is required when Action is ask_question.
	Question string `json:"question,omitempty"`

	// SelectedPrerequisites lists the prerequisites the user already
	// knows; used with select_prerequisites. Entries not present in the
	// discovered list are ignored.
	SelectedPrerequisites []string `json:"selected_prerequisites,omitempty"`
}

// allowedActions is the closed action set per interrupt kind.
var allowedActions = map[InterruptKind][]Action{
	InterruptPrerequisiteSelection: {ActionSelectPrerequisites},
	InterruptTopicReview:           {ActionContinue, ActionAskQuestion, ActionRegenerate},
}

// validateResponse checks the response against the pending interrupt
// without mutating anything. A failure is always ErrInterruptMismatch
// (wrapped with detail).
func validateResponse(pending *Interrupt, resp Response) error {
	actions, ok := allowedActions[pending.Kind]
	if !ok {
		return fmt.Errorf("%w: unknown interrupt kind %q", ErrInterruptMismatch, pending.Kind)
	}

	valid := false
	for _, a := range actions {
		if resp.Action == a {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: action %q not allowed for %s interrupt",
			ErrInterruptMismatch, resp.Action, pending.Kind)
	}

	if resp.Action == ActionAskQuestion && strings.TrimSpace(resp.Question) == "" {
		return fmt.Errorf("%w: ask_question requires a question", ErrInterruptMismatch)
	}
	return nil
}

// injectResponse applies a validated response to the state and returns the
// updated copy. It is pure: the caller owns persistence and interrupt
// clearing.
func injectResponse(s State, pending Interrupt, resp Response) State {
	switch pending.Kind {
	case InterruptPrerequisiteSelection:
		return injectSelection(s, resp)
	case InterruptTopicReview:
		return injectReview(s, resp)
	}
	return s
}

// injectSelection splits the discovered prerequisites into known and
// unknown, preserving discovery order, and moves the session to the
// roadmap phase. Selections outside the discovered list are ignored.
func injectSelection(s State, resp Response) State {
	selected := make(map[string]bool, len(resp.SelectedPrerequisites))
	for _, p := range resp.SelectedPrerequisites {
		selected[p] = true
	}

	known := make([]string, 0, len(s.Prerequisites))
	unknown := make([]string, 0, len(s.Prerequisites))
	for _, p := range s.Prerequisites {
		if selected[p] {
			known = append(known, p)
		} else {
			unknown = append(unknown, p)
		}
	}

	s.KnownPrerequisites = known
	s.UnknownPrerequisites = unknown
	s.Stage = WorkflowRoadmap
	s.Messages = append(s.Messages, Message{
		Role:    RoleUser,
		Content: fmt.Sprintf("Known prerequisites: %s", joinOrNone(known)),
	})
	return s
}

// injectReview applies a topic_review decision.
func injectReview(s State, resp Response) State {
	switch resp.Action {
	case ActionContinue:
		s.LessonHistory = append(s.LessonHistory, Lesson{
			Topic:   s.CurrentTopic,
			Content: s.CurrentLesson,
		})
		s.CurrentTopicIndex++
		if s.CurrentTopicIndex < len(s.LearningRoadmap) {
			s.CurrentTopic = s.LearningRoadmap[s.CurrentTopicIndex]
		} else {
			s.CurrentTopic = ""
		}
		s.CurrentResearch = ""
		s.ResearchApproved = false
		s.CurrentLesson = ""
		s.RetryCount = 0
		s.BestEffort = false
		s.Messages = append(s.Messages, Message{
			Role:    RoleUser,
			Content: "Lesson approved, continue.",
		})

	case ActionAskQuestion:
		// The answer stage appends the QA pair; recording only the
		// pending question here keeps questions_asked growth tied to the
		// stage that actually produced an answer.
		s.PendingQuestion = resp.Question
		s.Messages = append(s.Messages, Message{
			Role:    RoleUser,
			Content: resp.Question,
		})

	case ActionRegenerate:
		s.CurrentLesson = ""
		s.Messages = append(s.Messages, Message{
			Role:    RoleUser,
			Content: "Please explain this topic differently.",
		})
	}
	return s
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

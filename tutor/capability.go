package tutor

import "context"

// Stage is a tag in the closed set of pipeline stages the Router can select.
type Stage string

const (
	// StagePrerequisites discovers the prerequisites for the main topic
	// and raises the prerequisite_selection interrupt.
	StagePrerequisites Stage = "prerequisites"

	// StageRoadmap builds the study roadmap from the unresolved
	// prerequisites plus the main topic.
	StageRoadmap Stage = "roadmap"

	// StageResearch gathers source material for the current topic.
	StageResearch Stage = "research"

	// StageCritique reviews the research and reports a verdict.
	StageCritique Stage = "critique"

	// StageGeneration authors the lesson and raises the topic_review
	// interrupt.
	StageGeneration Stage = "generation"

	// StageAnswer answers a pending review question and re-raises the
	// topic_review interrupt for the same topic.
	StageAnswer Stage = "answer"

	// StageSummary produces the session summary once the roadmap is
	// exhausted. Optional; skipped when no handler is configured.
	StageSummary Stage = "summary"

	// StageComplete is terminal: no capability is invoked for it.
	StageComplete Stage = "complete"
)

// TokenSink receives fine-grained output fragments while a capability runs.
// The engine forwards them as token events; they are best-effort telemetry
// and never a source of control-flow decisions. Sinks passed to
// capabilities are never nil.
type TokenSink func(chunk string)

// Result is the outcome of one capability invocation: a state delta, and
// optionally an interrupt request to suspend the session.
type Result struct {
	Delta     Delta
	Interrupt *InterruptRequest
}

// Capability is one pluggable unit of pipeline work. The engine treats an
// invocation as an atomic external call: no suspension occurs inside it,
// and it must be safe to invoke again with the same State if the engine
// retries after a crash before the checkpoint write.
//
// Return errors wrapped with Transient to request an engine-level retry
// with backoff; any other error aborts the run.
type Capability interface {
	Invoke(ctx context.Context, state State, tokens TokenSink) (Result, error)
}

// CapabilityFunc adapts a plain function to the Capability interface.
type CapabilityFunc func(ctx context.Context, state State, tokens TokenSink) (Result, error)

// Invoke implements Capability.
func (f CapabilityFunc) Invoke(ctx context.Context, state State, tokens TokenSink) (Result, error) {
	return f(ctx, state, tokens)
}

// CapabilitySet binds one handler to each routable stage. The set is closed
// and statically checkable: the engine validates it at construction, so a
// missing handler is a configuration error, never a runtime lookup miss.
//
// Summary is optional; when nil the engine completes the session without a
// summary stage.
type CapabilitySet struct {
	Prerequisites Capability
	Roadmap       Capability
	Research      Capability
	Critique      Capability
	Generation    Capability
	Answer        Capability
	Summary       Capability
}

// Validate reports the first missing required handler.
func (c CapabilitySet) Validate() error {
	required := []struct {
		stage Stage
		cap   Capability
	}{
		{StagePrerequisites, c.Prerequisites},
		{StageRoadmap, c.Roadmap},
		{StageResearch, c.Research},
		{StageCritique, c.Critique},
		{StageGeneration, c.Generation},
		{StageAnswer, c.Answer},
	}
	for _, r := range required {
		if r.cap == nil {
			return &ConfigError{Message: "missing capability for stage " + string(r.stage)}
		}
	}
	return nil
}

// handler returns the capability bound to the stage, or nil for stages the
// engine handles itself.
func (c CapabilitySet) handler(stage Stage) Capability {
	switch stage {
	case StagePrerequisites:
		return c.Prerequisites
	case StageRoadmap:
		return c.Roadmap
	case StageResearch:
		return c.Research
	case StageCritique:
		return c.Critique
	case StageGeneration:
		return c.Generation
	case StageAnswer:
		return c.Answer
	case StageSummary:
		return c.Summary
	}
	return nil
}

// ConfigError reports invalid engine configuration.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

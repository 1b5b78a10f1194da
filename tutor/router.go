package tutor

// Route is the pure decision function mapping current State to the next
// Stage. It encodes the pipeline topology and its conditional branches:
//
//	prerequisites ──(selection resolved)──▶ roadmap ──▶ learning
//	learning: research ▶ critique ▶ generation ▶ (review interrupt)
//	          critique rejection loops back to research while retries remain
//	          pending question takes priority (answer re-raises the review)
//	          roadmap exhaustion leads through summary to complete
//
// Route never inspects Messages and holds no state of its own; identical
// State always yields an identical Stage. The interrupt-driven transitions
// (selection resolved, review decisions) appear here only through the State
// fields the controller's injection updated.
func Route(s State) Stage {
	switch s.Stage {
	case WorkflowPrerequisites:
		return StagePrerequisites

	case WorkflowRoadmap:
		return StageRoadmap

	case WorkflowLearning:
		// An open review question outranks everything else for the topic.
		if s.PendingQuestion != "" {
			return StageAnswer
		}
		if s.CurrentTopicIndex >= len(s.LearningRoadmap) {
			if s.SessionSummary == "" {
				return StageSummary
			}
			return StageComplete
		}
		if s.CurrentResearch == "" {
			return StageResearch
		}
		if !s.ResearchApproved {
			return StageCritique
		}
		return StageGeneration

	case WorkflowComplete:
		return StageComplete
	}

	// Unknown stages are caught by validation before they reach here.
	return StageComplete
}

// BuildRoadmap constructs the study order from the unresolved prerequisites
// and the main topic.
//
// The unresolved list is treated as an ordered sequence of atomic topics to
// study as given: each occupies exactly one roadmap slot ahead of the main
// topic, regardless of how short the list is. The roadmap length is always
// len(unresolved)+1; the builder never decomposes a prerequisite into a
// sub-curriculum.
func BuildRoadmap(unresolved []string, mainTopic string) []string {
	roadmap := make([]string, 0, len(unresolved)+1)
	roadmap = append(roadmap, unresolved...)
	return append(roadmap, mainTopic)
}

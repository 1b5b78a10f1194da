package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/tutorgraph-go/tutor"
)

// roadmap builds the study order deterministically: each unresolved
// prerequisite is one atomic roadmap slot, in discovery order, with the
// main topic last. No model call is involved, so a prerequisite can never
// be decomposed or reordered into a different curriculum than the one the
// user approved.
func (s *stages) roadmap(_ context.Context, state tutor.State, _ tutor.TokenSink) (tutor.Result, error) {
	plan := tutor.BuildRoadmap(state.UnknownPrerequisites, state.InitialTopic)

	var lines []string
	for i, topic := range plan {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, topic))
	}
	announcement := fmt.Sprintf("Your learning roadmap:\n\n%s\n\nStarting with %s.",
		strings.Join(lines, "\n"), plan[0])

	return tutor.Result{
		Delta: tutor.Delta{
			LearningRoadmap:   plan,
			CurrentTopicIndex: tutor.Int(0),
			CurrentTopic:      tutor.String(plan[0]),
			Messages:          []tutor.Message{{Role: tutor.RoleAssistant, Content: announcement}},
		},
	}, nil
}

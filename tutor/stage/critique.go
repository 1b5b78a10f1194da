package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/tutorgraph-go/tutor"
	"github.com/dshills/tutorgraph-go/tutor/model"
)

const critiqueSystem = `You are an expert content reviewer for educational materials.
Your task is to evaluate research content for teaching purposes.

Assess if the research content is:
1. Accurate and factual
2. Comprehensive enough for learning
3. Well-structured and clear
4. Relevant to the topic

Respond with either 'APPROVED' if the content is good enough, or 'NEEDS_IMPROVEMENT'
followed by specific feedback on what needs to be better.`

// critique reviews the research digest and reports a verdict. The engine
// owns what happens on rejection; this stage only sets the approval flag.
func (s *stages) critique(ctx context.Context, state tutor.State, _ tutor.TokenSink) (tutor.Result, error) {
	out, err := s.cfg.Model.Chat(ctx, model.System(critiqueSystem, model.Message{
		Role:    model.RoleUser,
		Content: fmt.Sprintf("Please review this research content:\n\n%s", state.CurrentResearch),
	}))
	if err != nil {
		return tutor.Result{}, classify(tutor.StageCritique, err)
	}

	verdict := strings.ToUpper(out.Text)
	approved := strings.Contains(verdict, "APPROVED") && !strings.Contains(verdict, "NEEDS_IMPROVEMENT")

	assessment := "approved"
	if !approved {
		assessment = "needs refinement"
	}
	note := fmt.Sprintf("Research review for %s: %s.", state.CurrentTopic, assessment)

	return tutor.Result{
		Delta: tutor.Delta{
			ResearchApproved: tutor.Bool(approved),
			Messages:         []tutor.Message{{Role: tutor.RoleAssistant, Content: note}},
		},
	}, nil
}

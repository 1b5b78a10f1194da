package stage

import (
	"context"
	"fmt"

	"github.com/dshills/tutorgraph-go/tutor"
	"github.com/dshills/tutorgraph-go/tutor/model"
)

const generationSystem = `You are an expert educator creating clear, engaging educational content from research material.

Structure your lesson with:
1. Brief introduction to the topic
2. Key concepts explained simply
3. Practical examples where relevant
4. Summary of main points
5. Connection to next learning steps

Make the content accessible and engaging for students.`

// reviewActions is the action set advertised with every topic_review
// interrupt.
var reviewActions = []string{
	string(tutor.ActionContinue),
	string(tutor.ActionAskQuestion),
	string(tutor.ActionRegenerate),
}

// generation authors the lesson from approved research and raises the
// topic_review interrupt.
func (s *stages) generation(ctx context.Context, state tutor.State, tokens tutor.TokenSink) (tutor.Result, error) {
	out, err := s.cfg.Model.ChatStream(ctx, model.System(generationSystem, model.Message{
		Role: model.RoleUser,
		Content: fmt.Sprintf("Create a comprehensive lesson on: %s\n\nBased on this research:\n%s",
			state.CurrentTopic, state.CurrentResearch),
	}), tokens)
	if err != nil {
		return tutor.Result{}, classify(tutor.StageGeneration, err)
	}

	lesson := fmt.Sprintf("# Lesson: %s\n\n%s", state.CurrentTopic, out.Text)

	return tutor.Result{
		Delta: tutor.Delta{
			CurrentLesson: tutor.String(lesson),
			Messages:      []tutor.Message{{Role: tutor.RoleAssistant, Content: lesson}},
		},
		Interrupt: &tutor.InterruptRequest{
			Kind: tutor.InterruptTopicReview,
			Payload: map[string]any{
				"topic":       state.CurrentTopic,
				"lesson":      lesson,
				"best_effort": state.BestEffort,
				"actions":     reviewActions,
			},
		},
	}, nil
}

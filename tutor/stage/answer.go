package stage

import (
	"context"
	"fmt"

	"github.com/dshills/tutorgraph-go/tutor"
	"github.com/dshills/tutorgraph-go/tutor/model"
)

// answer responds to a pending review question in the context of the
// current lesson, records the exchange, and re-raises the review interrupt
// so the user can decide what to do next.
func (s *stages) answer(ctx context.Context, state tutor.State, tokens tutor.TokenSink) (tutor.Result, error) {
	if state.PendingQuestion == "" {
		return tutor.Result{}, fmt.Errorf("answer invoked with no pending question")
	}

	system := fmt.Sprintf(`You are an expert tutor answering student questions about %s.

Provide clear, helpful answers based on the lesson content.
If the question requires additional examples or clarification, provide them.
Keep your answer focused and educational.`, state.CurrentTopic)

	out, err := s.cfg.Model.ChatStream(ctx, model.System(system, model.Message{
		Role: model.RoleUser,
		Content: fmt.Sprintf("Student question about %s: %s\n\nLesson context:\n%s",
			state.CurrentTopic, state.PendingQuestion, state.CurrentLesson),
	}), tokens)
	if err != nil {
		return tutor.Result{}, classify(tutor.StageAnswer, err)
	}

	return tutor.Result{
		Delta: tutor.Delta{
			AppendQuestions: []tutor.QA{{
				Topic:    state.CurrentTopic,
				Question: state.PendingQuestion,
				Answer:   out.Text,
			}},
			PendingQuestion: tutor.String(""),
			Messages:        []tutor.Message{{Role: tutor.RoleAssistant, Content: out.Text}},
		},
		Interrupt: &tutor.InterruptRequest{
			Kind: tutor.InterruptTopicReview,
			Payload: map[string]any{
				"topic":       state.CurrentTopic,
				"lesson":      state.CurrentLesson,
				"question":    state.PendingQuestion,
				"answer":      out.Text,
				"best_effort": state.BestEffort,
				"actions":     reviewActions,
			},
		},
	}, nil
}

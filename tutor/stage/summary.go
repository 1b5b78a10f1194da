package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/tutorgraph-go/tutor"
	"github.com/dshills/tutorgraph-go/tutor/model"
)

const summarySystem = `You are an expert learning advisor creating a summary of a student's learning journey.

Create an engaging, insightful summary that:
1. Celebrates what was accomplished
2. Highlights the key concepts covered per topic
3. Notes the questions the student asked, showing their curiosity
4. Suggests sensible next steps`

// summary reviews the whole session once the roadmap is exhausted.
func (s *stages) summary(ctx context.Context, state tutor.State, tokens tutor.TokenSink) (tutor.Result, error) {
	var topics []string
	for _, lesson := range state.LessonHistory {
		topics = append(topics, lesson.Topic)
	}

	questions := "none"
	if len(state.QuestionsAsked) > 0 {
		var qs []string
		for _, qa := range state.QuestionsAsked {
			qs = append(qs, qa.Question)
		}
		questions = strings.Join(qs, "; ")
	}

	out, err := s.cfg.Model.ChatStream(ctx, model.System(summarySystem, model.Message{
		Role: model.RoleUser,
		Content: fmt.Sprintf("Main goal: %s\nTopics completed, in order: %s\nQuestions asked: %s",
			state.InitialTopic, strings.Join(topics, ", "), questions),
	}), tokens)
	if err != nil {
		return tutor.Result{}, classify(tutor.StageSummary, err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return tutor.Result{}, nil
	}

	return tutor.Result{
		Delta: tutor.Delta{
			SessionSummary: tutor.String(out.Text),
			Messages:       []tutor.Message{{Role: tutor.RoleAssistant, Content: out.Text}},
		},
	}, nil
}

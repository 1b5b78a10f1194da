package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/tutorgraph-go/tutor"
	"github.com/dshills/tutorgraph-go/tutor/model"
)

const prerequisitesSystem = `You are an expert educator with deep knowledge of learning sequences and dependencies.

Your task is to identify the ESSENTIAL and SPECIFIC prerequisites for learning the given topic.
Focus on:
- Direct conceptual dependencies (what must be understood first)
- Specific algorithms, techniques, or frameworks that are building blocks
- Mathematical concepts that are actually used in the topic
- Practical skills needed to implement or understand the topic

AVOID generic topics like "statistics" or "programming" unless they are specifically relevant.
BE SPECIFIC: instead of "machine learning basics", say "supervised learning" or "gradient descent".

Based on the search results and your expertise, identify 3-6 specific prerequisite topics.
Return ONLY the prerequisite names, one per line, no explanations or bullets.`

// prerequisites discovers what must be learned before the main topic and
// raises the selection interrupt.
func (s *stages) prerequisites(ctx context.Context, state tutor.State, tokens tutor.TokenSink) (tutor.Result, error) {
	query := fmt.Sprintf("prerequisites for learning %s", state.InitialTopic)
	results, err := s.cfg.Search.Search(ctx, query, s.cfg.MaxSearchResults)
	if err != nil {
		return tutor.Result{}, classify(tutor.StagePrerequisites, fmt.Errorf("prerequisite search: %w", err))
	}

	var digest strings.Builder
	for _, r := range results {
		fmt.Fprintf(&digest, "- %s: %s\n", r.Title, clip(r.Content, 300))
	}

	out, err := s.cfg.Model.ChatStream(ctx, model.System(prerequisitesSystem, model.Message{
		Role: model.RoleUser,
		Content: fmt.Sprintf("Topic to learn: %s\n\nSearch results:\n%s",
			state.InitialTopic, digest.String()),
	}), tokens)
	if err != nil {
		return tutor.Result{}, classify(tutor.StagePrerequisites, err)
	}

	prereqs := parseLines(out.Text)
	if len(prereqs) == 0 {
		return tutor.Result{}, fmt.Errorf("no prerequisites identified for %q", state.InitialTopic)
	}

	announcement := fmt.Sprintf(
		"I found %d prerequisites for learning %s:\n\n%s\n\nLet me know which of these you already know.",
		len(prereqs), state.InitialTopic, "- "+strings.Join(prereqs, "\n- "))

	return tutor.Result{
		Delta: tutor.Delta{
			Prerequisites: prereqs,
			Messages:      []tutor.Message{{Role: tutor.RoleAssistant, Content: announcement}},
		},
		Interrupt: &tutor.InterruptRequest{
			Kind: tutor.InterruptPrerequisiteSelection,
			Payload: map[string]any{
				"topic":         state.InitialTopic,
				"prerequisites": prereqs,
			},
		},
	}, nil
}

package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/tutorgraph-go/tutor"
)

// research gathers source material for the current topic from web search
// and compiles it into a digest for the critique and generation stages.
func (s *stages) research(ctx context.Context, state tutor.State, tokens tutor.TokenSink) (tutor.Result, error) {
	if state.CurrentTopic == "" {
		return tutor.Result{}, fmt.Errorf("research invoked with no current topic")
	}

	query := fmt.Sprintf("%s tutorial explanation", state.CurrentTopic)
	results, err := s.cfg.Search.Search(ctx, query, s.cfg.MaxSearchResults)
	if err != nil {
		return tutor.Result{}, classify(tutor.StageResearch, fmt.Errorf("research search: %w", err))
	}
	if len(results) == 0 {
		return tutor.Result{}, tutor.Transient(tutor.StageResearch,
			fmt.Errorf("no search results for %q", state.CurrentTopic))
	}

	var content strings.Builder
	fmt.Fprintf(&content, "Research for: %s\n\n", state.CurrentTopic)
	for i, r := range results {
		fmt.Fprintf(&content, "Source %d: %s\nURL: %s\nContent: %s\n\n",
			i+1, r.Title, r.URL, clip(r.Content, 500))
		tokens(fmt.Sprintf("[source] %s\n", r.Title))
	}

	note := fmt.Sprintf("Completed research on %s from %d sources.", state.CurrentTopic, len(results))
	return tutor.Result{
		Delta: tutor.Delta{
			CurrentResearch: tutor.String(content.String()),
			Messages:        []tutor.Message{{Role: tutor.RoleAssistant, Content: note}},
		},
	}, nil
}

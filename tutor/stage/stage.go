// Package stage provides the production capability set for the tutoring
// pipeline, backed by an LLM chat model and a web search client.
package stage

import (
	"strings"

	"github.com/dshills/tutorgraph-go/tutor"
	"github.com/dshills/tutorgraph-go/tutor/model"
	"github.com/dshills/tutorgraph-go/tutor/search"
)

// Config wires the external dependencies shared by all stages.
type Config struct {
	// Model is the chat model used for analysis and generation.
	Model model.ChatModel

	// Search is the web search backend for prerequisite discovery and
	// topic research.
	Search search.Client

	// MaxSearchResults bounds each research query. Default 5.
	MaxSearchResults int
}

// New builds the full capability set from the config.
//
//	caps, err := stage.New(stage.Config{
//	    Model:  openai.New(apiKey, "gpt-4o"),
//	    Search: search.NewTavilyClient(tavilyKey),
//	})
func New(cfg Config) (tutor.CapabilitySet, error) {
	if cfg.Model == nil {
		return tutor.CapabilitySet{}, &tutor.ConfigError{Message: "stage config requires a chat model"}
	}
	if cfg.Search == nil {
		return tutor.CapabilitySet{}, &tutor.ConfigError{Message: "stage config requires a search client"}
	}
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = 5
	}

	s := &stages{cfg: cfg}
	return tutor.CapabilitySet{
		Prerequisites: tutor.CapabilityFunc(s.prerequisites),
		Roadmap:       tutor.CapabilityFunc(s.roadmap),
		Research:      tutor.CapabilityFunc(s.research),
		Critique:      tutor.CapabilityFunc(s.critique),
		Generation:    tutor.CapabilityFunc(s.generation),
		Answer:        tutor.CapabilityFunc(s.answer),
		Summary:       tutor.CapabilityFunc(s.summary),
	}, nil
}

type stages struct {
	cfg Config
}

// classify wraps provider errors so the engine retries the transient ones.
func classify(st tutor.Stage, err error) error {
	if model.IsRetryable(err) {
		return tutor.Transient(st, err)
	}
	return err
}

// parseLines splits an LLM list response into trimmed non-empty lines,
// stripping common bullet prefixes.
func parseLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// clip truncates long source content for prompt assembly.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

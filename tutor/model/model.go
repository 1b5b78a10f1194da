// Package model provides LLM chat adapters for the tutoring pipeline.
package model

import (
	"context"
	"strings"
)

// ChatModel is the unified interface over LLM chat providers.
//
// Implementations handle provider-specific authentication, convert the
// shared Message format to the provider's wire shape, and respect context
// cancellation. Retry of transient failures is the caller's responsibility;
// adapters only classify (see IsRetryable).
//
// Example:
//
//	m := openai.New(os.Getenv("OPENAI_API_KEY"), "gpt-4o")
//	out, err := m.Chat(ctx, []model.Message{
//	    {Role: model.RoleUser, Content: "Explain backpropagation briefly."},
//	})
type ChatModel interface {
	// Chat sends the conversation and returns the complete response.
	Chat(ctx context.Context, messages []Message) (Response, error)

	// ChatStream behaves like Chat but additionally delivers text
	// fragments to onDelta as they arrive. The returned Response carries
	// the full accumulated text. onDelta may be nil.
	ChatStream(ctx context.Context, messages []Message, onDelta func(text string)) (Response, error)
}

// Message is a single turn of an LLM conversation.
type Message struct {
	Role    string
	Content string
}

// Standard role constants, aligned with the major providers' conventions.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Response is the output of one chat completion.
type Response struct {
	// Text is the generated response.
	Text string

	// TokensUsed is the total token count the provider reported, when
	// available. Zero means unreported.
	TokensUsed int
}

// System prefixes the conversation with a system message.
func System(instructions string, messages ...Message) []Message {
	return append([]Message{{Role: RoleSystem, Content: instructions}}, messages...)
}

// User builds a single-turn user conversation.
func User(content string) []Message {
	return []Message{{Role: RoleUser, Content: content}}
}

// IsRetryable reports whether a provider error looks transient: rate
// limits, timeouts, connection problems, or server errors. Classification
// is pattern-based because the SDKs surface these non-uniformly.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	patterns := []string{
		"rate limit",
		"rate_limit",
		"overloaded",
		"timeout",
		"deadline exceeded",
		"connection",
		"temporarily",
		"unavailable",
		"429",
		"500",
		"502",
		"503",
		"529",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

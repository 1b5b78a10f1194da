// Package search provides web search clients for the research stage.
package search

import "context"

// Client performs a web search and returns ranked results.
//
// Implementations must respect context cancellation and are expected to be
// safe for concurrent use across sessions.
type Client interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Result is one search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

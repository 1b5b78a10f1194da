package search

import (
	"context"
	"sync"
)

// MockClient is a test implementation of Client with canned results and
// error injection.
type MockClient struct {
	// Results is returned by every Search call.
	Results []Result

	// Err, when set, is returned instead.
	Err error

	mu      sync.Mutex
	queries []string
}

// Search implements Client.
func (m *MockClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if maxResults > 0 && len(m.Results) > maxResults {
		return m.Results[:maxResults], nil
	}
	return m.Results, nil
}

// Queries returns every query received so far.
func (m *MockClient) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.queries))
	copy(out, m.queries)
	return out
}

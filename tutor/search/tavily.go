package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTavilyURL is the production Tavily search endpoint.
const DefaultTavilyURL = "https://api.tavily.com/search"

// TavilyClient implements Client against the Tavily search API.
//
//	client := search.NewTavilyClient(os.Getenv("TAVILY_API_KEY"))
//	results, err := client.Search(ctx, "transformer architecture", 5)
type TavilyClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// TavilyOption customizes a TavilyClient.
type TavilyOption func(*TavilyClient)

// WithBaseURL overrides the endpoint, mainly for tests.
func WithBaseURL(url string) TavilyOption {
	return func(c *TavilyClient) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) TavilyOption {
	return func(c *TavilyClient) { c.client = client }
}

// NewTavilyClient creates a TavilyClient.
func NewTavilyClient(apiKey string, opts ...TavilyOption) *TavilyClient {
	c := &TavilyClient{
		apiKey:  apiKey,
		baseURL: DefaultTavilyURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []Result `json:"results"`
}

// Search implements Client.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	payload, err := json.Marshal(tavilyRequest{
		APIKey:     c.apiKey,
		Query:      query,
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var decoded tavilyResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return decoded.Results, nil
}

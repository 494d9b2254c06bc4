package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	tavilyEndpoint   = "https://api.tavily.com/search"
	searchMaxResults = 5
)

// WebSearchTool performs web searches through the Tavily API.
type WebSearchTool struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewWebSearchTool creates the web_search tool. The endpoint override is for
// tests.
func NewWebSearchTool(apiKey string) *WebSearchTool {
	return &WebSearchTool{
		apiKey:   apiKey,
		endpoint: tavilyEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (t *WebSearchTool) Name() string {
	return "web_search"
}

func (t *WebSearchTool) Description() string {
	return "Search the web for current information. Input is the search query; returns titles, snippets and URLs of the top results."
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

type tavilyResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type tavilyResponse struct {
	Results []tavilyResult `json:"results"`
}

func (t *WebSearchTool) Execute(ctx context.Context, input string) (*Observation, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if t.apiKey == "" {
		return nil, fmt.Errorf("web search is not configured: missing Tavily API key")
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:      t.apiKey,
		Query:       query,
		SearchDepth: "basic",
		MaxResults:  searchMaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search endpoint returned %d", resp.StatusCode)
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	if len(parsed.Results) == 0 {
		return &Observation{Content: "No results found."}, nil
	}

	var b strings.Builder
	b.WriteString("Search Results:\n")
	for _, r := range parsed.Results {
		fmt.Fprintf(&b, "- Title: %s\n  Snippet: %s\n  Link: %s\n\n", r.Title, r.Content, r.URL)
	}
	return &Observation{Content: b.String()}, nil
}

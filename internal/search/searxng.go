package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SearXNGConfig configures the SearXNG client.
type SearXNGConfig struct {
	BaseURL    string
	Timeout    time.Duration
	Language   string
	MaxResults int // per query, defaults to MaxResultsPerQuery
	Categories []string
	Engines    []string
}

// SearXNGClient queries a SearXNG instance via its JSON API.
type SearXNGClient struct {
	baseURL    string
	language   string
	maxResults int
	categories []string
	engines    []string
	client     *http.Client
}

// NewSearXNGClient creates a client for the given instance.
func NewSearXNGClient(cfg SearXNGConfig) *SearXNGClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = MaxResultsPerQuery
	}
	language := cfg.Language
	if language == "" {
		language = "en"
	}

	return &SearXNGClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		language:   language,
		maxResults: maxResults,
		categories: cfg.Categories,
		engines:    cfg.Engines,
		client:     &http.Client{Timeout: timeout},
	}
}

type searxngResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Engine  string  `json:"engine"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search executes one query and returns at most maxResults results.
func (c *SearXNGClient) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("language", c.language)
	if len(c.categories) > 0 {
		params.Set("categories", strings.Join(c.categories, ","))
	}
	if len(c.engines) > 0 {
		params.Set("engines", strings.Join(c.engines, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("searxng: create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng: unexpected status %d", resp.StatusCode)
	}

	var payload searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("searxng: decode response: %w", err)
	}

	items := payload.Results
	if len(items) > c.maxResults {
		items = items[:c.maxResults]
	}

	results := make([]Result, 0, len(items))
	for _, item := range items {
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.URL,
			Content: item.Content,
			Engine:  item.Engine,
			Score:   item.Score,
		})
	}
	return results, nil
}

var _ Searcher = (*SearXNGClient)(nil)

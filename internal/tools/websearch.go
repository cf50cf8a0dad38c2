package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/cloudwego/eino-ext/components/tool/bingsearch"
	duckduckgo "github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino-ext/components/tool/googlesearch"

	"github.com/delver-ai/delver/internal/config"
	"github.com/delver-ai/delver/internal/events"
	"github.com/delver-ai/delver/internal/search"
)

// WebSearchSpec is the catalog spec for the web_search tool. All providers
// share it: the model always sends a list of queries.
func WebSearchSpec() ToolSpec {
	return ToolSpec{
		Name:        "web_search",
		Description: "Search the web for information",
		Parameters: map[string]ParamSpec{
			"queries": {
				Type:        "array",
				Description: "List of search queries (max 10)",
				Required:    true,
				Items:       &ParamSpec{Type: "string"},
			},
		},
	}
}

// NewWebSearchTool creates the web_search tool for the configured provider.
// Supported: "searxng" (default), "duckduckgo", "google", "bing". The cache
// is optional and only consulted for searxng.
func NewWebSearchTool(ctx context.Context, cfg config.WebSearchConfig, cache search.QueryCache, bus *events.Bus) (tool.InvokableTool, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "searxng"
	}

	switch provider {
	case "searxng":
		return newSearxngTool(cfg, cache, bus), nil
	case "duckduckgo":
		return newDuckDuckGoTool(ctx, cfg)
	case "google":
		return newGoogleTool(ctx, cfg)
	case "bing":
		return newBingTool(ctx, cfg)
	default:
		return nil, fmt.Errorf("web_search: unknown provider %q", provider)
	}
}

type webSearchInput struct {
	Queries []string `json:"queries"`
}

// searcherTool runs a multi-query web search against a search.Searcher.
type searcherTool struct {
	searcher search.Searcher
}

func newSearxngTool(cfg config.WebSearchConfig, cache search.QueryCache, bus *events.Bus) tool.InvokableTool {
	slog.Info("web_search: using SearXNG provider", "url", cfg.SearxngURL)

	client := search.NewSearXNGClient(search.SearXNGConfig{
		BaseURL:    cfg.SearxngURL,
		Timeout:    parseTimeout(cfg.Timeout),
		Language:   cfg.Language,
		MaxResults: cfg.MaxResults,
	})
	return &searcherTool{
		searcher: &search.CachedSearcher{
			Provider: "searxng",
			Inner:    client,
			Cache:    cache,
			Bus:      bus,
		},
	}
}

func (t *searcherTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	spec := WebSearchSpec()
	return specToToolInfo(&spec), nil
}

func (t *searcherTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input webSearchInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("web_search: parse input: %w", err)
	}
	if len(input.Queries) == 0 {
		return "", fmt.Errorf("web_search: queries is required")
	}

	results := search.SearchAll(ctx, t.searcher, input.Queries)
	return search.FormatResults(results), nil
}

// multiQueryTool adapts a single-query provider tool to the shared
// queries-array schema.
type multiQueryTool struct {
	inner tool.InvokableTool
}

func (t *multiQueryTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	spec := WebSearchSpec()
	return specToToolInfo(&spec), nil
}

func (t *multiQueryTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error) {
	var input webSearchInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("web_search: parse input: %w", err)
	}
	if len(input.Queries) == 0 {
		return "", fmt.Errorf("web_search: queries is required")
	}

	queries := input.Queries
	if len(queries) > search.MaxQueriesPerCall {
		queries = queries[:search.MaxQueriesPerCall]
	}

	var sections []string
	for _, q := range queries {
		args, err := json.Marshal(map[string]string{"query": q})
		if err != nil {
			return "", fmt.Errorf("web_search: encode query: %w", err)
		}
		out, err := t.inner.InvokableRun(ctx, string(args), opts...)
		if err != nil {
			slog.Warn("search query failed", "query", q, "error", err)
			continue
		}
		sections = append(sections, fmt.Sprintf("Query: %s\n%s", q, out))
	}

	if len(sections) == 0 {
		return "No search results found.", nil
	}
	return strings.Join(sections, "\n\n"), nil
}

func newDuckDuckGoTool(ctx context.Context, cfg config.WebSearchConfig) (tool.InvokableTool, error) {
	slog.Info("web_search: using DuckDuckGo provider")

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = search.MaxResultsPerQuery
	}
	inner, err := duckduckgo.NewTextSearchTool(ctx, &duckduckgo.Config{
		ToolName:   "web_search",
		ToolDesc:   "Search the web using DuckDuckGo. Returns titles, URLs, and summaries.",
		MaxResults: maxResults,
		Timeout:    parseTimeout(cfg.Timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("web_search: init duckduckgo: %w", err)
	}
	return &multiQueryTool{inner: inner}, nil
}

func newGoogleTool(ctx context.Context, cfg config.WebSearchConfig) (tool.InvokableTool, error) {
	if cfg.GoogleAPIKey == "" || cfg.GoogleCX == "" {
		return nil, fmt.Errorf("web_search: google provider requires google_api_key and google_cx")
	}
	slog.Info("web_search: using Google provider")

	num := cfg.MaxResults
	if num <= 0 {
		num = search.MaxResultsPerQuery
	}
	inner, err := googlesearch.NewTool(ctx, &googlesearch.Config{
		APIKey:         cfg.GoogleAPIKey,
		SearchEngineID: cfg.GoogleCX,
		Num:            num,
		ToolName:       "web_search",
		ToolDesc:       "Search the web using Google. Returns titles, URLs, and snippets.",
	})
	if err != nil {
		return nil, fmt.Errorf("web_search: init google: %w", err)
	}
	return &multiQueryTool{inner: inner}, nil
}

func newBingTool(ctx context.Context, cfg config.WebSearchConfig) (tool.InvokableTool, error) {
	if cfg.BingAPIKey == "" {
		return nil, fmt.Errorf("web_search: bing provider requires bing_api_key")
	}
	slog.Info("web_search: using Bing provider")

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = search.MaxResultsPerQuery
	}
	inner, err := bingsearch.NewTool(ctx, &bingsearch.Config{
		APIKey:     cfg.BingAPIKey,
		MaxResults: maxResults,
		ToolName:   "web_search",
		ToolDesc:   "Search the web using Bing. Returns titles, URLs, and descriptions.",
		Timeout:    parseTimeout(cfg.Timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("web_search: init bing: %w", err)
	}
	return &multiQueryTool{inner: inner}, nil
}

func parseTimeout(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}

var (
	_ tool.InvokableTool = (*searcherTool)(nil)
	_ tool.InvokableTool = (*multiQueryTool)(nil)
)

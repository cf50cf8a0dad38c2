// Package search provides the web search layer: a SearXNG client, result
// formatting for model consumption, and a caching wrapper shared by all
// providers.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	// MaxQueriesPerCall caps the queries executed for a single tool call.
	MaxQueriesPerCall = 10
	// MaxResultsPerQuery caps the results kept per query.
	MaxResultsPerQuery = 5
	// SnippetLimit caps the snippet length rendered per result, in runes.
	SnippetLimit = 300
)

// Result is a single search result.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Engine  string  `json:"engine,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// Searcher executes a single query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// SearchAll runs the queries in order against s, capped at MaxQueriesPerCall.
// A failing query is logged and skipped; the remaining queries still run.
func SearchAll(ctx context.Context, s Searcher, queries []string) []Result {
	if len(queries) > MaxQueriesPerCall {
		queries = queries[:MaxQueriesPerCall]
	}

	var all []Result
	for _, q := range queries {
		results, err := s.Search(ctx, q)
		if err != nil {
			slog.Warn("search query failed", "query", q, "error", err)
			continue
		}
		all = append(all, results...)
	}
	return all
}

// FormatResults renders results for model consumption: numbered entries with
// title, URL, and a snippet capped at SnippetLimit runes. Truncation never
// splits a multi-byte rune.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No search results found."
	}

	entries := make([]string, 0, len(results))
	for i, r := range results {
		snippet := r.Content
		if runes := []rune(snippet); len(runes) > SnippetLimit {
			snippet = string(runes[:SnippetLimit]) + "..."
		}
		entries = append(entries, fmt.Sprintf("[%d] %s\n    URL: %s\n    %s", i+1, r.Title, r.URL, snippet))
	}
	return strings.Join(entries, "\n\n")
}

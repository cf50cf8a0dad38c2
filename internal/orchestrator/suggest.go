package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/cloudwego/eino/schema"
)

const suggestPromptFmt = `You are a search query optimizer. Your task is to analyze the user's question and generate effective search queries.

Today's date: %s

Given the user's question, generate 3-10 search queries that will help find the most relevant and comprehensive information.

Guidelines:
- Generate at least 3 queries, up to 10 queries for complex topics
- Cover different aspects and angles of the question
- Use specific, targeted keywords
- Include variations: definitions, comparisons, recent updates, expert opinions, use cases
- Consider including recent/latest if the topic may have updates
- Output ONLY a JSON array of query strings, nothing else

Example output:
["what is X", "X vs Y comparison", "X latest news 2024", "X best practices", "X tutorial"]`

var suggestJSONRe = regexp.MustCompile(`(?s)\[.*?\]`)

// SuggestQueries asks the model for optimized search queries covering the
// user's question from several angles. When the model output cannot be parsed
// the original query is returned as the single suggestion.
func (o *Orchestrator) SuggestQueries(ctx context.Context, query string) ([]string, error) {
	system := fmt.Sprintf(suggestPromptFmt, time.Now().Format("January 2, 2006"))

	ctx = o.withModelCallbacks(ctx)
	resp, err := o.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(query),
	})
	if err != nil {
		return nil, fmt.Errorf("suggest queries: %w", err)
	}

	var queries []string
	if match := suggestJSONRe.FindString(resp.Content); match != "" {
		if err := json.Unmarshal([]byte(match), &queries); err != nil {
			queries = nil
		}
	}
	if len(queries) == 0 {
		return []string{query}, nil
	}
	return queries, nil
}

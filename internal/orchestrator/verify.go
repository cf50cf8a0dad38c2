package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/schema"
)

const verifyPromptFmt = `You are a fact-checker. Your job is to verify if the given response is accurate and supported by the search results.

Check for:
1. Factual accuracy - Does the response match the information in search results?
2. Unsupported claims - Are there claims not backed by the search results?
3. Hallucinations - Is there made-up information not present in the sources?

Search Results:
%s

Response to verify:
%s

Output your verification as JSON:
{
  "passed": true/false,
  "issues": ["list of issues if any"],
  "feedback": "specific feedback for improvement if failed"
}

Output ONLY the JSON, nothing else.`

// Verification is the fact-checker's verdict on a synthesized answer.
type Verification struct {
	Passed   bool     `json:"passed"`
	Issues   []string `json:"issues,omitempty"`
	Feedback string   `json:"feedback,omitempty"`
}

var verifyJSONRe = regexp.MustCompile(`(?s)\{.*\}`)

// verify runs the fact-check pass. It is advisory: any model or parse failure
// counts as passed, so verification can never block an answer on its own.
func (o *Orchestrator) verify(ctx context.Context, query string, toolOutputs []string, answer string) Verification {
	resultContext := strings.Join(toolOutputs, "\n\n")
	if resultContext == "" {
		resultContext = "No search results available."
	}

	system := fmt.Sprintf(verifyPromptFmt, resultContext, answer)

	resp, err := o.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(query),
	})
	if err != nil {
		slog.Warn("verification call failed, assuming passed", "error", err)
		return Verification{Passed: true}
	}

	match := verifyJSONRe.FindString(resp.Content)
	if match == "" {
		return Verification{Passed: true}
	}

	var v Verification
	if err := json.Unmarshal([]byte(match), &v); err != nil {
		slog.Warn("verification output was not valid JSON, assuming passed", "error", err)
		return Verification{Passed: true}
	}

	if !v.Passed && len(v.Issues) > 0 {
		v.Feedback = strings.TrimSpace(fmt.Sprintf("Issues: %s. %s", strings.Join(v.Issues, ", "), v.Feedback))
	}
	return v
}

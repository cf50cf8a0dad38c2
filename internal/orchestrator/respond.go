package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

const respondPromptFmt = `You are a helpful research assistant. Based on the search results provided, generate a comprehensive and accurate response to the user's query.

Guidelines:
- Use the search results to provide factual, up-to-date information
- Cite sources when possible by mentioning the source
- Be concise but thorough
- If the search results are insufficient, acknowledge the limitations

Search Results:
%s`

// respond synthesizes the final answer from the accumulated tool outputs.
// The reasoning thoughts collected during the loop and any verification
// feedback are appended to the system prompt.
func (o *Orchestrator) respond(ctx context.Context, query string, toolOutputs, reasoning []string, feedback string) (string, error) {
	resultContext := strings.Join(toolOutputs, "\n\n")
	if resultContext == "" {
		resultContext = "No search results available."
	}

	system := fmt.Sprintf(respondPromptFmt, resultContext)

	if len(reasoning) > 0 {
		var b strings.Builder
		for _, r := range reasoning {
			b.WriteString("- ")
			b.WriteString(r)
			b.WriteByte('\n')
		}
		system += "\n\nResearch reasoning:\n" + strings.TrimRight(b.String(), "\n")
	}

	if feedback != "" {
		system += "\n\nA previous draft failed fact-checking. Address this feedback:\n" + feedback
	}

	resp, err := o.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(query),
	})
	if err != nil {
		return "", err
	}

	answer := strings.TrimSpace(resp.Content)
	if answer == "" {
		return "", fmt.Errorf("model returned an empty answer")
	}
	return answer, nil
}

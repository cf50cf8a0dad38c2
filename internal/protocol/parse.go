package protocol

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ToolCall is a single tool invocation emitted by the model.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

var (
	callBlockRe  = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(ToolCallStart) + `(.*?)` + regexp.QuoteMeta(ToolCallEnd))
	funcCallRe   = regexp.MustCompile(`(?s)(\w+)\((.*?)\)`)
	firstParamRe = regexp.MustCompile(`^\s*(\w+)=`)
	nextParamRe  = regexp.MustCompile(`,\s*(\w+)=`)
)

// ParseToolCalls extracts tool calls from an assistant response.
//
// Two syntaxes appear between the tool-call tokens, depending on how the
// model was tuned:
//
//	JSON:     {"name": "web_search", "arguments": {"queries": ["q1"]}}
//	Pythonic: [web_search(queries=["q1", "q2"])]
//
// JSON is tried first for blocks that look like JSON; anything else falls
// back to the pythonic form. Malformed blocks yield no calls rather than an
// error; garbage in the response is a protocol matter for the validator,
// not a parse failure.
func ParseToolCalls(response string) []ToolCall {
	var calls []ToolCall

	for _, m := range callBlockRe.FindAllStringSubmatch(response, -1) {
		block := strings.TrimSpace(m[1])

		if strings.HasPrefix(block, "{") || strings.HasPrefix(block, "[") {
			if parsed := parseJSONCalls(block); len(parsed) > 0 {
				calls = append(calls, parsed...)
				continue
			}
		}

		calls = append(calls, parsePythonicCalls(block)...)
	}

	return calls
}

func parseJSONCalls(block string) []ToolCall {
	var raw any
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return nil
	}

	items, ok := raw.([]any)
	if !ok {
		items = []any{raw}
	}

	var calls []ToolCall
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, ok := obj["name"].(string)
		if !ok || name == "" {
			continue
		}
		args, _ := obj["arguments"].(map[string]any)
		if args == nil {
			args = map[string]any{}
		}
		calls = append(calls, ToolCall{Name: name, Arguments: args})
	}
	return calls
}

func parsePythonicCalls(block string) []ToolCall {
	var calls []ToolCall
	for _, m := range funcCallRe.FindAllStringSubmatch(block, -1) {
		calls = append(calls, ToolCall{
			Name:      m[1],
			Arguments: parseNamedParams(m[2]),
		})
	}
	return calls
}

// parseNamedParams parses `key=value, key=value` pairs. A value runs up to
// the next `, key=` boundary or the end of the string, so commas inside
// quoted strings or arrays do not split a value. Values are decoded as JSON
// where possible, otherwise kept as unquoted strings.
func parseNamedParams(params string) map[string]any {
	args := map[string]any{}

	first := firstParamRe.FindStringSubmatchIndex(params)
	if first == nil {
		return args
	}

	type boundary struct {
		name       string
		valueStart int
	}
	bounds := []boundary{{name: params[first[2]:first[3]], valueStart: first[1]}}
	starts := []int{first[0]}

	for _, loc := range nextParamRe.FindAllStringSubmatchIndex(params[first[1]:], -1) {
		bounds = append(bounds, boundary{
			name:       params[first[1]+loc[2] : first[1]+loc[3]],
			valueStart: first[1] + loc[1],
		})
		starts = append(starts, first[1]+loc[0])
	}

	for i, b := range bounds {
		end := len(params)
		if i+1 < len(bounds) {
			end = starts[i+1]
		}
		value := strings.TrimSpace(params[b.valueStart:end])
		if value == "" {
			continue
		}
		args[b.name] = decodeParamValue(value)
	}
	return args
}

func decodeParamValue(value string) any {
	var decoded any
	if err := json.Unmarshal([]byte(value), &decoded); err == nil {
		return decoded
	}
	if strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) && len(value) >= 2 {
		return value[1 : len(value)-1]
	}
	return value
}

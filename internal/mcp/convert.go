// Package mcp exposes Delver over the Model Context Protocol: the registered
// tools directly, plus a research tool that runs the full loop and returns
// the synthesized answer.
package mcp

import (
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/delver-ai/delver/internal/tools"
)

// toolSpecToMCPTool converts a tools.ToolSpec to an mcp.Tool with JSON Schema.
func toolSpecToMCPTool(spec *tools.ToolSpec) *mcpsdk.Tool {
	props := make(map[string]any, len(spec.Parameters))
	var required []string

	for name, p := range spec.Parameters {
		props[name] = paramToSchema(p)
		if p.Required {
			required = append(required, name)
		}
	}

	// Sort required for deterministic output
	sort.Strings(required)

	inputSchema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		inputSchema["required"] = required
	}

	return &mcpsdk.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		InputSchema: inputSchema,
	}
}

func paramToSchema(p tools.ParamSpec) map[string]any {
	prop := map[string]any{
		"type":        p.Type,
		"description": p.Description,
	}
	if len(p.Enum) > 0 {
		prop["enum"] = p.Enum
	}
	if p.Default != nil {
		prop["default"] = p.Default
	}
	if p.Items != nil {
		prop["items"] = paramToSchema(*p.Items)
	}
	if len(p.Properties) > 0 {
		sub := make(map[string]any, len(p.Properties))
		for name, sp := range p.Properties {
			sub[name] = paramToSchema(sp)
		}
		prop["properties"] = sub
	}
	return prop
}

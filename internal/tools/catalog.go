package tools

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/delver-ai/delver/internal/protocol"
)

// catalogEntry is the JSON shape of one tool in the prompt catalog.
type catalogEntry struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Parameters  paramsSchema  `json:"parameters"`
}

type paramsSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]propertySchema `json:"properties"`
	Required   []string                  `json:"required,omitempty"`
}

type propertySchema struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Enum        []string        `json:"enum,omitempty"`
	Items       *propertySchema `json:"items,omitempty"`
}

// CatalogJSON renders the tool catalog embedded between the tool-list tokens:
// one pretty-printed JSON array, two-space indented. For preamble modes the
// reasoning tool leads; the terminal tool always closes the list.
func (r *Registry) CatalogJSON(profile protocol.Profile) (string, error) {
	var entries []catalogEntry

	if profile.RequiresPreamble {
		entries = append(entries, preambleEntry(profile.PreambleTool))
	}

	r.mu.RLock()
	for _, name := range r.order {
		entries = append(entries, specToEntry(r.specs[name]))
	}
	r.mu.RUnlock()

	entries = append(entries, terminalEntry(profile.TerminalTool))

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("tools: render catalog: %w", err)
	}
	return string(data), nil
}

func specToEntry(spec *ToolSpec) catalogEntry {
	entry := catalogEntry{
		Name:        spec.Name,
		Description: spec.Description,
		Parameters: paramsSchema{
			Type:       "object",
			Properties: map[string]propertySchema{},
		},
	}

	var required []string
	for name, p := range spec.Parameters {
		entry.Parameters.Properties[name] = propertyFromParam(p)
		if p.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	entry.Parameters.Required = required
	return entry
}

func propertyFromParam(p ParamSpec) propertySchema {
	prop := propertySchema{
		Type:        p.Type,
		Description: p.Description,
		Enum:        p.Enum,
	}
	if p.Items != nil {
		items := propertyFromParam(*p.Items)
		prop.Items = &items
	}
	return prop
}

func preambleEntry(name string) catalogEntry {
	return catalogEntry{
		Name:        name,
		Description: "Express your reasoning before each tool call",
		Parameters: paramsSchema{
			Type: "object",
			Properties: map[string]propertySchema{
				"thought": {
					Type:        "string",
					Description: "Your reasoning for the next step",
				},
			},
			Required: []string{"thought"},
		},
	}
}

func terminalEntry(name string) catalogEntry {
	return catalogEntry{
		Name:        name,
		Description: "Signal that research is complete",
		Parameters: paramsSchema{
			Type:       "object",
			Properties: map[string]propertySchema{},
		},
	}
}

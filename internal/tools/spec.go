// Package tools provides the tool registry: registration, catalog rendering
// for the system prompt, and dispatch of validated tool calls.
package tools

import (
	"github.com/cloudwego/eino/schema"
)

// ToolSpec describes a single callable tool.
type ToolSpec struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]ParamSpec `json:"parameters,omitempty"`
}

// ParamSpec describes a single tool parameter.
type ParamSpec struct {
	Type        string               `json:"type"` // "string", "number", "boolean", "integer", "array", "object"
	Description string               `json:"description"`
	Required    bool                 `json:"required"`
	Enum        []string             `json:"enum,omitempty"`
	Default     any                  `json:"default,omitempty"`
	Items       *ParamSpec           `json:"items,omitempty"`      // element schema for arrays
	Properties  map[string]ParamSpec `json:"properties,omitempty"` // sub-properties for objects
}

// specToToolInfo converts a ToolSpec to an Eino schema.ToolInfo.
func specToToolInfo(spec *ToolSpec) *schema.ToolInfo {
	info := &schema.ToolInfo{
		Name: spec.Name,
		Desc: spec.Description,
	}

	if len(spec.Parameters) > 0 {
		params := make(map[string]*schema.ParameterInfo, len(spec.Parameters))
		for name, p := range spec.Parameters {
			params[name] = &schema.ParameterInfo{
				Type:     paramTypeToDataType(p.Type),
				Desc:     p.Description,
				Required: p.Required,
				Enum:     p.Enum,
			}
		}
		info.ParamsOneOf = schema.NewParamsOneOfByParams(params)
	}

	return info
}

// paramTypeToDataType maps string type names to Eino DataType constants.
func paramTypeToDataType(t string) schema.DataType {
	switch t {
	case "string":
		return schema.String
	case "number":
		return schema.Number
	case "integer":
		return schema.Integer
	case "boolean":
		return schema.Boolean
	case "array":
		return schema.Array
	case "object":
		return schema.Object
	default:
		return schema.String
	}
}

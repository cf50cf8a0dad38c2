package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/delver-ai/delver/internal/orchestrator"
	"github.com/delver-ai/delver/internal/tools"
)

// researchRunner runs a full research loop and returns the report.
// *orchestrator.Service satisfies it.
type researchRunner interface {
	Run(ctx context.Context, query, mode string) (*orchestrator.Report, error)
}

// NewMCPServer creates an MCP server exposing tools from the registry. If
// filter is non-empty, only the named tool is exposed. With a non-nil runner
// the server also exposes a "research" tool that runs the full loop.
func NewMCPServer(registry *tools.Registry, runner researchRunner, filter string) *mcpsdk.Server {
	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "delver",
		Version: "0.1.0",
	}, nil)

	for _, name := range registry.Names() {
		if filter != "" && name != filter {
			continue
		}

		spec := registry.Spec(name)
		if spec == nil {
			continue
		}

		mcpTool := toolSpecToMCPTool(spec)

		// Capture tool in closure
		invokable := registry.Tool(name)
		toolName := name

		server.AddTool(mcpTool, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			args := string(req.Params.Arguments)
			result, err := invokable.InvokableRun(ctx, args)
			if err != nil {
				slog.Debug("mcp tool error", "tool", toolName, "error", err)
				return &mcpsdk.CallToolResult{
					IsError: true,
					Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
				}, nil
			}
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: result}},
			}, nil
		})

		slog.Debug("mcp tool registered", "tool", name)
	}

	if runner != nil && (filter == "" || filter == "research") {
		server.AddTool(researchToolSpec(), func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			var params struct {
				Query string `json:"query"`
				Mode  string `json:"mode"`
			}
			if err := json.Unmarshal(req.Params.Arguments, &params); err != nil || params.Query == "" {
				return &mcpsdk.CallToolResult{
					IsError: true,
					Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: "query is required"}},
				}, nil
			}

			report, err := runner.Run(ctx, params.Query, params.Mode)
			if err != nil {
				slog.Debug("mcp research error", "error", err)
				return &mcpsdk.CallToolResult{
					IsError: true,
					Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
				}, nil
			}
			return &mcpsdk.CallToolResult{
				Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: report.Answer}},
			}, nil
		})
	}

	return server
}

func researchToolSpec() *mcpsdk.Tool {
	return toolSpecToMCPTool(&tools.ToolSpec{
		Name:        "research",
		Description: "Run an iterative web research loop and return a synthesized answer with sources.",
		Parameters: map[string]tools.ParamSpec{
			"query": {
				Type:        "string",
				Description: "The research question",
				Required:    true,
			},
			"mode": {
				Type:        "string",
				Description: "Research depth",
				Enum:        []string{"speed", "balanced", "quality"},
			},
		},
	})
}

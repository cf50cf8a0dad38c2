package commands

import (
	"context"
	"log/slog"
	"os"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"

	"github.com/delver-ai/delver/internal/mcp"
)

// NewMCPServeCommand returns the mcp-serve subcommand.
func NewMCPServeCommand() *cli.Command {
	return &cli.Command{
		Name:      "mcp-serve",
		Usage:     "Expose research tools over MCP on stdio",
		ArgsUsage: "[tool]",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "tool"},
		},
		Action: runMCPServe,
	}
}

func runMCPServe(ctx context.Context, cmd *cli.Command) error {
	// Stdout carries the MCP stream, so all logging goes to stderr.
	level := slog.LevelWarn
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	rt, err := buildRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	server := mcp.NewMCPServer(rt.tools, rt.service, cmd.StringArg("tool"))
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

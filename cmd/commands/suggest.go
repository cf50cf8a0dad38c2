package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/delver-ai/delver/internal/orchestrator"
	"github.com/delver-ai/delver/internal/protocol"
)

// NewSuggestCommand returns the suggest subcommand.
func NewSuggestCommand() *cli.Command {
	return &cli.Command{
		Name:      "suggest",
		Usage:     "Generate follow-up research queries for a topic",
		ArgsUsage: "<query>",
		Action:    runSuggest,
	}
}

func runSuggest(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("usage: delver suggest <query>")
	}

	setupLogging(cmd)

	rt, err := buildRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	model, err := rt.models.Default(ctx)
	if err != nil {
		return fmt.Errorf("init model: %w", err)
	}

	o, err := orchestrator.New(model, rt.tools, rt.bus, orchestrator.Config{
		Mode:      protocol.Mode(rt.cfg.Research.Mode),
		ModelName: rt.models.DefaultName(),
	})
	if err != nil {
		return err
	}

	suggestions, err := o.SuggestQueries(ctx, query)
	if err != nil {
		return err
	}

	for i, s := range suggestions {
		fmt.Printf("%d. %s\n", i+1, s)
	}
	return nil
}

// Package commands holds the delver CLI subcommands.
package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/delver-ai/delver/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "delver",
		Usage: "Iterative web research with local and hosted LLMs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewAskCommand(),
			NewSuggestCommand(),
			NewGatewayCommand(),
			NewRunsCommand(),
			NewScheduleCommand(),
			NewSearxngCommand(),
			NewMCPServeCommand(),
			NewSecretCommand(),
			NewStatusCommand(),
		},
	}
}

package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/delver-ai/delver/internal/backend"
	"github.com/delver-ai/delver/internal/events"
)

// NewSearxngCommand returns the searxng subcommand group for managing the
// local search container.
func NewSearxngCommand() *cli.Command {
	return &cli.Command{
		Name:           "searxng",
		Usage:          "Manage the local SearXNG search container",
		DefaultCommand: "status",
		Commands: []*cli.Command{
			{
				Name:   "start",
				Usage:  "Start the search container",
				Action: runSearxngStart,
			},
			{
				Name:   "stop",
				Usage:  "Stop and remove the search container",
				Action: runSearxngStop,
			},
			{
				Name:   "status",
				Usage:  "Show the container state",
				Action: runSearxngStatus,
			},
			{
				Name:   "logs",
				Usage:  "Print recent container logs",
				Action: runSearxngLogs,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "tail",
						Usage: "Number of log lines to show",
						Value: 100,
					},
				},
			},
		},
	}
}

func newBackend(cmd *cli.Command) (*backend.Backend, *events.Bus) {
	cfg := loadConfig(cmd)
	bus := events.NewBus(cfg.Events.BufferSize)
	return backend.New(cfg.Backend, bus), bus
}

func runSearxngStart(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)
	b, bus := newBackend(cmd)
	defer bus.Close()

	if err := b.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("SearXNG running at %s\n", b.URL())
	return nil
}

func runSearxngStop(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)
	b, bus := newBackend(cmd)
	defer bus.Close()

	if err := b.Stop(ctx); err != nil {
		return err
	}
	fmt.Println("SearXNG stopped.")
	return nil
}

func runSearxngStatus(ctx context.Context, cmd *cli.Command) error {
	b, bus := newBackend(cmd)
	defer bus.Close()

	status, err := b.Status(ctx)
	if err != nil {
		return err
	}
	if status == "" {
		fmt.Println("Container: not found")
		return nil
	}
	fmt.Printf("Container: %s\n", status)
	if status == "running" {
		fmt.Printf("URL:       %s\n", b.URL())
	}
	return nil
}

func runSearxngLogs(ctx context.Context, cmd *cli.Command) error {
	b, bus := newBackend(cmd)
	defer bus.Close()

	logs, err := b.Logs(ctx, cmd.Int("tail"))
	if err != nil {
		return err
	}
	fmt.Print(logs)
	return nil
}

package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/delver-ai/delver/internal/config"
	"github.com/delver-ai/delver/internal/heartbeat"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show gateway liveness",
		Action: runStatus,
	}
}

func runStatus(ctx context.Context, cmd *cli.Command) error {
	status, hb, err := heartbeat.Check(config.HeartbeatPath(), 90*time.Second)
	if err != nil {
		return err
	}

	switch status {
	case heartbeat.StatusAlive:
		fmt.Printf("Gateway: alive (pid %d, up %s)\n", hb.PID, hb.Uptime)
	case heartbeat.StatusStale:
		age := time.Since(hb.Timestamp).Truncate(time.Second)
		fmt.Printf("Gateway: stale (last heartbeat %s ago, pid %d)\n", age, hb.PID)
	default:
		fmt.Println("Gateway: not running")
	}
	return nil
}

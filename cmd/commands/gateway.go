package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/delver-ai/delver/internal/config"
	"github.com/delver-ai/delver/internal/gateway"
	"github.com/delver-ai/delver/internal/heartbeat"
	"github.com/delver-ai/delver/internal/scheduler"
)

// NewGatewayCommand returns the gateway subcommand.
func NewGatewayCommand() *cli.Command {
	return &cli.Command{
		Name:  "gateway",
		Usage: "Run the HTTP and WebSocket gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Bind address (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides config)",
			},
		},
		Action: runGateway,
	}
}

func runGateway(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd)

	rt, err := buildRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	host := rt.cfg.Gateway.Host
	if cmd.IsSet("host") {
		host = cmd.String("host")
	}
	port := rt.cfg.Gateway.Port
	if cmd.IsSet("port") {
		port = cmd.Int("port")
	}

	entries, err := scheduler.LoadFile(rt.cfg.Scheduler.File)
	if err != nil {
		return err
	}
	sched := scheduler.New(scheduler.Config{
		Starter: rt.service,
		Bus:     rt.bus,
		Entries: entries,
	})
	sched.Start()
	defer sched.Stop()
	if len(entries) > 0 {
		slog.Info("Scheduler started", "entries", len(entries))
	}

	hb := heartbeat.NewWriter(config.HeartbeatPath())
	hb.Start()
	defer hb.Stop()

	// SIGHUP re-reads .env and the config file.
	reloader := config.NewReloader(cmd.String("config"), config.DotenvPath(), rt.cfg)
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for range hup {
			if err := reloader.Reload(); err != nil {
				slog.Warn("config reload failed", "error", err)
			}
		}
	}()

	server := gateway.NewServer(rt.bus, rt.store, rt.service, host, port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("Shutting down gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

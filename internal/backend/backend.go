// Package backend manages the local SearXNG container that serves as the
// default search provider. Commands run through a POSIX shell interpreter so
// the same code paths work wherever docker or podman is on PATH.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/delver-ai/delver/internal/config"
	"github.com/delver-ai/delver/internal/events"
)

const (
	defaultContainer = "delver-searxng"
	defaultImage     = "searxng/searxng:latest"
	defaultPort      = 8888
)

// Backend controls the lifecycle of the managed SearXNG container.
type Backend struct {
	container string
	image     string
	port      int
	bus       *events.Bus

	// run executes a shell command and returns its stdout. Swappable in tests.
	run func(ctx context.Context, cmd string) (string, error)
}

// New creates a backend manager from config, applying defaults for any unset
// fields.
func New(cfg config.BackendConfig, bus *events.Bus) *Backend {
	b := &Backend{
		container: cfg.ContainerName,
		image:     cfg.Image,
		port:      cfg.Port,
		bus:       bus,
	}
	if b.container == "" {
		b.container = defaultContainer
	}
	if b.image == "" {
		b.image = defaultImage
	}
	if b.port == 0 {
		b.port = defaultPort
	}
	b.run = runShell
	return b
}

// URL returns the base URL the search layer should use.
func (b *Backend) URL() string {
	return fmt.Sprintf("http://localhost:%d", b.port)
}

// Start launches the container, or restarts it if a stopped one exists.
func (b *Backend) Start(ctx context.Context) error {
	status, _ := b.Status(ctx)
	switch status {
	case "running":
		slog.Info("search backend already running", "container", b.container)
		return nil
	case "exited", "created":
		if _, err := b.run(ctx, "docker start "+b.container); err != nil {
			return fmt.Errorf("restart container %s: %w", b.container, err)
		}
	default:
		cmd := fmt.Sprintf("docker run -d --name %s -p %d:8080 %s", b.container, b.port, b.image)
		if _, err := b.run(ctx, cmd); err != nil {
			return fmt.Errorf("start container %s: %w", b.container, err)
		}
	}

	slog.Info("search backend started", "container", b.container, "url", b.URL())
	b.publish(events.BackendStartedPayload{
		Container: b.container,
		Image:     b.image,
		Port:      b.port,
	})
	return nil
}

// Stop stops and removes the container. A container that does not exist is
// not an error.
func (b *Backend) Stop(ctx context.Context) error {
	status, err := b.Status(ctx)
	if err != nil || status == "" {
		return nil
	}

	if _, err := b.run(ctx, "docker stop "+b.container); err != nil {
		return fmt.Errorf("stop container %s: %w", b.container, err)
	}
	if _, err := b.run(ctx, "docker rm "+b.container); err != nil {
		slog.Warn("removing stopped container failed", "container", b.container, "error", err)
	}

	slog.Info("search backend stopped", "container", b.container)
	b.publish(events.BackendStoppedPayload{Container: b.container})
	return nil
}

// Status returns the container state ("running", "exited", ...) or an empty
// string when the container does not exist.
func (b *Backend) Status(ctx context.Context) (string, error) {
	out, err := b.run(ctx, "docker inspect -f '{{.State.Status}}' "+b.container)
	if err != nil {
		return "", nil
	}
	return strings.TrimSpace(out), nil
}

// Logs returns the last tail lines of container output.
func (b *Backend) Logs(ctx context.Context, tail int) (string, error) {
	if tail <= 0 {
		tail = 100
	}
	out, err := b.run(ctx, fmt.Sprintf("docker logs --tail %d %s", tail, b.container))
	if err != nil {
		return "", fmt.Errorf("logs for %s: %w", b.container, err)
	}
	return out, nil
}

func (b *Backend) publish(payload events.EventPayload) {
	if b.bus == nil {
		return
	}
	b.bus.Publish(events.NewTypedEvent(events.SourceBackend, payload))
}

// runShell parses and executes one shell command line, returning its stdout.
// docker writes diagnostics to stderr, which is folded into the error.
func runShell(ctx context.Context, cmd string) (string, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(cmd), "")
	if err != nil {
		return "", fmt.Errorf("parse command: %w", err)
	}

	var stdout, stderr bytes.Buffer
	runner, err := interp.New(
		interp.StdIO(nil, &stdout, &stderr),
		interp.Env(expand.ListEnviron(os.Environ()...)),
	)
	if err != nil {
		return "", fmt.Errorf("init interpreter: %w", err)
	}

	if err := runner.Run(ctx, file); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return stdout.String(), fmt.Errorf("%s", msg)
	}
	return stdout.String(), nil
}

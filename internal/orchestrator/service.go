package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/delver-ai/delver/internal/config"
	"github.com/delver-ai/delver/internal/events"
	"github.com/delver-ai/delver/internal/models"
	"github.com/delver-ai/delver/internal/protocol"
	"github.com/delver-ai/delver/internal/sessions"
	"github.com/delver-ai/delver/internal/tools"
)

// Service starts research runs over shared dependencies. The gateway and the
// scheduler use it to launch runs asynchronously; each run gets its own
// orchestrator so requests can carry their own mode.
type Service struct {
	Models   *models.Registry
	Tools    *tools.Registry
	Bus      *events.Bus
	Store    sessions.Store
	Research config.ResearchConfig
}

func (s *Service) build(ctx context.Context, mode string) (*Orchestrator, error) {
	m, err := s.Models.Default(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve model: %w", err)
	}

	return New(m, s.Tools, s.Bus, Config{
		Mode:          protocol.Mode(mode),
		StrictMode:    s.Research.StrictMode,
		MaxIterations: s.Research.MaxIterations,
		ModelName:     s.Models.DefaultName(),
		Store:         s.Store,
	})
}

// Start creates a run record and launches the research loop in the
// background. It returns the run ID immediately; progress is observable on
// the event bus and in the run store.
func (s *Service) Start(ctx context.Context, query, mode string) (string, error) {
	if query == "" {
		return "", fmt.Errorf("empty query")
	}
	if mode == "" {
		mode = s.Research.Mode
	}

	o, err := s.build(ctx, mode)
	if err != nil {
		return "", err
	}

	run, err := s.Store.Create(query, mode, s.Models.DefaultName())
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}

	go func() {
		if _, err := o.Research(context.Background(), Request{Query: query, SessionID: run.ID}); err != nil {
			slog.Error("research run failed", "run", run.ID, "error", err)
		}
	}()

	return run.ID, nil
}

// Run executes a research run synchronously and returns the report. Callers
// that need the answer in-line, like the MCP server, use this instead of
// Start.
func (s *Service) Run(ctx context.Context, query, mode string) (*Report, error) {
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}
	if mode == "" {
		mode = s.Research.Mode
	}

	o, err := s.build(ctx, mode)
	if err != nil {
		return nil, err
	}
	return o.Research(ctx, Request{Query: query})
}

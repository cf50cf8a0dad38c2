package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/delver-ai/delver/internal/config"
	"github.com/delver-ai/delver/internal/events"
	"github.com/delver-ai/delver/internal/models"
	"github.com/delver-ai/delver/internal/orchestrator"
	"github.com/delver-ai/delver/internal/search"
	"github.com/delver-ai/delver/internal/sessions"
	"github.com/delver-ai/delver/internal/storage"
	"github.com/delver-ai/delver/internal/tools"
)

// runtime bundles the shared dependencies of the research commands.
type runtime struct {
	cfg     *config.Config
	bus     *events.Bus
	models  *models.Registry
	tools   *tools.Registry
	store   *sessions.FileStore
	service *orchestrator.Service

	logger *storage.EventLogger
	cache  *storage.QueryCache
	costs  *storage.CostTracker
}

// close releases the runtime in reverse construction order.
func (rt *runtime) close() {
	if rt.costs != nil {
		rt.costs.Close()
	}
	if rt.logger != nil {
		rt.logger.Close()
	}
	if rt.cache != nil {
		rt.cache.Close()
	}
	rt.bus.Close()
}

func setupLogging(cmd *cli.Command) {
	level := slog.LevelInfo
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func loadConfig(cmd *cli.Command) *config.Config {
	path := cmd.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		slog.Debug("config not found, using defaults", "path", path, "error", err)
		return config.Default()
	}
	return cfg
}

// buildRuntime wires the event bus, event log, model registry, web_search
// tool, run store, and research service from config.
func buildRuntime(ctx context.Context, cmd *cli.Command) (*runtime, error) {
	cfg := loadConfig(cmd)

	bus := events.NewBus(cfg.Events.BufferSize)

	rt := &runtime{
		cfg:    cfg,
		bus:    bus,
		logger: storage.NewEventLogger(config.EventLogDir(), bus),
		models: models.NewRegistry(cfg.Models),
		tools:  tools.NewRegistry(bus),
		store:  sessions.NewFileStore(config.SessionsDir()),
	}
	rt.costs = storage.NewCostTracker(bus, rt.store)

	var cache search.QueryCache
	if !cfg.WebSearch.CacheOff {
		qc, err := storage.NewQueryCache(config.CachePath(), cfg.WebSearch.CacheTTL.Duration())
		if err != nil {
			slog.Warn("query cache unavailable, searches will not be cached", "error", err)
		} else {
			rt.cache = qc
			cache = qc
		}
	}

	webSearch, err := tools.NewWebSearchTool(ctx, cfg.WebSearch, cache, bus)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("init web_search: %w", err)
	}
	if err := rt.tools.Register(tools.WebSearchSpec(), webSearch); err != nil {
		rt.close()
		return nil, err
	}

	rt.service = &orchestrator.Service{
		Models:   rt.models,
		Tools:    rt.tools,
		Bus:      bus,
		Store:    rt.store,
		Research: cfg.Research,
	}

	return rt, nil
}

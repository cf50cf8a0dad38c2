// Package scheduler runs research queries on a schedule: cron expressions,
// fixed intervals, or event triggers, declared in a YAML schedule file.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/delver-ai/delver/internal/events"
)

// DefaultCooldown is the minimum interval between two triggers of the same entry.
const DefaultCooldown = 60 * time.Second

// Starter launches a research run and returns its run ID.
// *orchestrator.Service satisfies it.
type Starter interface {
	Start(ctx context.Context, query, mode string) (string, error)
}

// Config holds dependencies for the scheduler.
type Config struct {
	Starter Starter
	Bus     *events.Bus
	Entries []Entry
}

// runtimeEntry is the internal representation of a schedule entry.
type runtimeEntry struct {
	entry    Entry
	cron     *CronExpr
	cooldown time.Duration
	runCount int
	enabled  bool
	lastRun  time.Time
}

// Scheduler manages cron-based, interval-based, and event-triggered research runs.
type Scheduler struct {
	starter Starter
	bus     *events.Bus

	mu      sync.Mutex
	entries map[string]*runtimeEntry

	done        chan struct{}
	unsubscribe func()
}

// New creates a scheduler from validated entries. Entries with an invalid
// cron expression are skipped with a warning.
func New(cfg Config) *Scheduler {
	s := &Scheduler{
		starter: cfg.Starter,
		bus:     cfg.Bus,
		entries: make(map[string]*runtimeEntry),
		done:    make(chan struct{}),
	}

	for _, e := range cfg.Entries {
		if e.Disabled {
			continue
		}

		re := &runtimeEntry{
			entry:    e,
			cooldown: time.Duration(e.CooldownSec) * time.Second,
			enabled:  true,
		}
		if re.cooldown == 0 {
			re.cooldown = DefaultCooldown
		}

		if e.CronSpec != "" {
			expr, err := ParseCron(e.CronSpec)
			if err != nil {
				slog.Warn("scheduler: invalid cron", "entry", e.Name, "error", err)
				continue
			}
			re.cron = expr
		}

		s.entries[e.Name] = re
		slog.Info("scheduler: registered entry", "entry", e.Name,
			"cron", e.CronSpec, "interval_sec", e.IntervalSec, "has_event", e.OnEvent != nil)
	}

	return s
}

// Start begins the cron/interval tickers and event subscription.
func (s *Scheduler) Start() {
	slog.Info("scheduler started", "entries", len(s.entries))

	s.unsubscribe = s.bus.Subscribe(s.handleEvent)
	go s.cronLoop()
	go s.intervalLoop()
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	close(s.done)
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	slog.Info("scheduler stopped")
}

// Entries returns a snapshot of all schedule entries.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Entry, 0, len(s.entries))
	for _, re := range s.entries {
		result = append(result, re.entry)
	}
	return result
}

func (s *Scheduler) cronLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.checkCron(now)
		}
	}
}

func (s *Scheduler) intervalLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.checkIntervals(now)
		}
	}
}

func (s *Scheduler) checkCron(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, re := range s.entries {
		if re.cron == nil || !re.enabled {
			continue
		}
		if !re.cron.Matches(now) {
			continue
		}
		if now.Sub(re.lastRun) < re.cooldown {
			continue
		}

		s.trigger(re, "cron")
	}
}

func (s *Scheduler) checkIntervals(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, re := range s.entries {
		if re.entry.IntervalSec <= 0 || !re.enabled {
			continue
		}
		interval := time.Duration(re.entry.IntervalSec) * time.Second
		if now.Sub(re.lastRun) < interval {
			continue
		}

		s.trigger(re, "interval")
	}
}

func (s *Scheduler) handleEvent(e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, re := range s.entries {
		if re.entry.OnEvent == nil || !re.enabled {
			continue
		}
		if !MatchEvent(e, re.entry.OnEvent) {
			continue
		}
		if now.Sub(re.lastRun) < re.cooldown {
			continue
		}

		s.trigger(re, "event:"+string(e.Type))
	}
}

// trigger launches a research run for the entry. Caller must hold s.mu.
func (s *Scheduler) trigger(re *runtimeEntry, trigger string) {
	re.lastRun = time.Now()
	re.runCount++

	runID, err := s.starter.Start(context.Background(), re.entry.Query, re.entry.Mode)
	if err != nil {
		slog.Error("scheduler: start research", "entry", re.entry.Name, "error", err)
		return
	}

	// Auto-disable at max runs
	if re.entry.MaxRuns > 0 && re.runCount >= re.entry.MaxRuns {
		re.enabled = false
		slog.Info("scheduler: entry reached max runs, disabled", "entry", re.entry.Name, "runs", re.runCount)
	}

	s.bus.Publish(events.NewTypedEvent(events.SourceScheduler, events.ScheduleTriggerPayload{
		Name:    re.entry.Name,
		Query:   re.entry.Query,
		Mode:    re.entry.Mode,
		Trigger: trigger,
		RunID:   runID,
	}))

	slog.Info("scheduler: triggered", "entry", re.entry.Name, "trigger", trigger, "run_id", runID)
}

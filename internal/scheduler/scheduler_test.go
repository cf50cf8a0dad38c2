package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/delver-ai/delver/internal/events"
)

type fakeStarter struct {
	mu      sync.Mutex
	queries []string
	modes   []string
}

func (f *fakeStarter) Start(ctx context.Context, query, mode string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	f.modes = append(f.modes, mode)
	return "run_test", nil
}

func (f *fakeStarter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func newTestScheduler(t *testing.T, entries ...Entry) (*Scheduler, *fakeStarter, *events.Bus) {
	t.Helper()
	bus := events.NewBus(64)
	t.Cleanup(func() { bus.Close() })

	starter := &fakeStarter{}
	s := New(Config{Starter: starter, Bus: bus, Entries: entries})
	return s, starter, bus
}

func TestNew_SkipsDisabledAndInvalidCron(t *testing.T) {
	s, _, _ := newTestScheduler(t,
		Entry{Name: "ok", Query: "q", CronSpec: "0 8 * * *"},
		Entry{Name: "off", Query: "q", CronSpec: "0 8 * * *", Disabled: true},
		Entry{Name: "broken", Query: "q", CronSpec: "not a cron"},
	)

	if len(s.Entries()) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(s.Entries()))
	}
	if s.Entries()[0].Name != "ok" {
		t.Fatalf("unexpected entry: %s", s.Entries()[0].Name)
	}
}

func TestCheckCron_Triggers(t *testing.T) {
	s, starter, bus := newTestScheduler(t,
		Entry{Name: "five", Query: "latest releases", Mode: "speed", CronSpec: "*/5 * * * *"},
	)

	at := time.Date(2026, 1, 1, 10, 5, 0, 0, time.UTC)
	s.checkCron(at)

	if starter.count() != 1 {
		t.Fatalf("expected 1 trigger, got %d", starter.count())
	}
	if starter.queries[0] != "latest releases" || starter.modes[0] != "speed" {
		t.Fatalf("unexpected start: %v %v", starter.queries, starter.modes)
	}

	// The trigger event lands on the bus asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for {
		found := false
		for _, e := range bus.History(16) {
			if e.Type == events.EventScheduleTrigger {
				found = true
				if e.Payload["name"] != "five" {
					t.Fatalf("unexpected payload: %v", e.Payload)
				}
			}
		}
		if found {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("schedule.trigger event never published")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCheckCron_NoMatchNoTrigger(t *testing.T) {
	s, starter, _ := newTestScheduler(t,
		Entry{Name: "noon", Query: "q", CronSpec: "0 12 * * *"},
	)

	at := time.Date(2026, 1, 1, 10, 7, 0, 0, time.UTC)
	s.checkCron(at)

	if starter.count() != 0 {
		t.Fatalf("expected no triggers, got %d", starter.count())
	}
}

func TestCheckCron_CooldownBlocks(t *testing.T) {
	s, starter, _ := newTestScheduler(t,
		Entry{Name: "five", Query: "q", CronSpec: "*/5 * * * *"},
	)

	s.mu.Lock()
	s.entries["five"].lastRun = time.Now()
	s.mu.Unlock()

	at := time.Now().Truncate(5 * time.Minute)
	s.checkCron(at)

	if starter.count() != 0 {
		t.Fatalf("expected cooldown to block trigger, got %d", starter.count())
	}
}

func TestCheckIntervals(t *testing.T) {
	s, starter, _ := newTestScheduler(t,
		Entry{Name: "often", Query: "q", IntervalSec: 30},
	)

	s.checkIntervals(time.Now())
	if starter.count() != 1 {
		t.Fatalf("expected 1 trigger, got %d", starter.count())
	}

	// Within the interval, no second trigger.
	s.checkIntervals(time.Now())
	if starter.count() != 1 {
		t.Fatalf("expected still 1 trigger, got %d", starter.count())
	}
}

func TestHandleEvent_Triggers(t *testing.T) {
	s, starter, _ := newTestScheduler(t,
		Entry{
			Name:    "on-backend",
			Query:   "q",
			OnEvent: &EventTrigger{Event: "backend.started"},
		},
	)

	s.handleEvent(makeEvent("backend.started", events.SourceBackend, nil))

	if starter.count() != 1 {
		t.Fatalf("expected 1 trigger, got %d", starter.count())
	}
}

func TestMaxRunsDisablesEntry(t *testing.T) {
	s, starter, _ := newTestScheduler(t,
		Entry{Name: "once", Query: "q", IntervalSec: 5, MaxRuns: 1, CooldownSec: 5},
	)

	s.checkIntervals(time.Now())
	if starter.count() != 1 {
		t.Fatalf("expected 1 trigger, got %d", starter.count())
	}

	// Entry is disabled now; even a late check must not fire again.
	s.mu.Lock()
	s.entries["once"].lastRun = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	s.checkIntervals(time.Now())
	if starter.count() != 1 {
		t.Fatalf("expected entry disabled after max runs, got %d triggers", starter.count())
	}
}

func TestStartStop(t *testing.T) {
	s, _, _ := newTestScheduler(t,
		Entry{Name: "noon", Query: "q", CronSpec: "0 12 * * *"},
	)

	s.Start()
	s.Stop()
}

package scheduler

import "fmt"

// EventTrigger describes an event-based trigger for a schedule entry.
type EventTrigger struct {
	Event  string            `yaml:"event" json:"event"`
	Filter map[string]string `yaml:"filter,omitempty" json:"filter,omitempty"`
}

// Entry is one scheduled research query, as declared in the schedule file.
// An entry fires on a cron expression, a fixed interval, an event trigger,
// or any combination of them.
type Entry struct {
	Name        string        `yaml:"name" json:"name"`
	Query       string        `yaml:"query" json:"query"`
	Mode        string        `yaml:"mode,omitempty" json:"mode,omitempty"`
	CronSpec    string        `yaml:"cron,omitempty" json:"cron,omitempty"`
	IntervalSec int           `yaml:"interval_sec,omitempty" json:"interval_sec,omitempty"`
	OnEvent     *EventTrigger `yaml:"on_event,omitempty" json:"on_event,omitempty"`
	CooldownSec int           `yaml:"cooldown_sec,omitempty" json:"cooldown_sec,omitempty"`
	MaxRuns     int           `yaml:"max_runs,omitempty" json:"max_runs,omitempty"`
	Disabled    bool          `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// Validate checks that the entry is complete enough to schedule.
func (e *Entry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("schedule entry must have a name")
	}
	if e.Query == "" {
		return fmt.Errorf("schedule entry %q must have a query", e.Name)
	}
	if e.CronSpec == "" && e.IntervalSec == 0 && e.OnEvent == nil {
		return fmt.Errorf("schedule entry %q must have cron, interval, or on_event trigger", e.Name)
	}
	if e.IntervalSec > 0 && e.IntervalSec < 5 {
		return fmt.Errorf("schedule entry %q: interval must be at least 5 seconds", e.Name)
	}
	return nil
}

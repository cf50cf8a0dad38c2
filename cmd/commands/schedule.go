package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/delver-ai/delver/internal/config"
	"github.com/delver-ai/delver/internal/events"
	"github.com/delver-ai/delver/internal/scheduler"
)

// NewScheduleCommand returns the schedule subcommand group.
func NewScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:           "schedule",
		Usage:          "Inspect scheduled research queries",
		DefaultCommand: "list",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List schedule entries from the schedule file",
				Action: runScheduleList,
			},
			{
				Name:   "history",
				Usage:  "Show past schedule triggers",
				Action: runScheduleHistory,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of triggers to show",
						Value: 20,
					},
				},
			},
		},
	}
}

func scheduleFilePath(cmd *cli.Command) string {
	cfg := loadConfig(cmd)
	return cfg.Scheduler.File
}

func runScheduleList(ctx context.Context, cmd *cli.Command) error {
	path := scheduleFilePath(cmd)
	entries, err := scheduler.LoadFile(path)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("No schedules defined. Add entries to %s.\n", path)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTRIGGER\tMODE\tENABLED\tQUERY")
	for _, e := range entries {
		trigger := "-"
		switch {
		case e.CronSpec != "":
			trigger = "cron " + e.CronSpec
		case e.IntervalSec > 0:
			trigger = fmt.Sprintf("every %ds", e.IntervalSec)
		case e.OnEvent != nil:
			trigger = "on " + e.OnEvent.Event
		}
		enabled := "yes"
		if e.Disabled {
			enabled = "no"
		}
		mode := e.Mode
		if mode == "" {
			mode = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Name, trigger, mode, enabled, truncate(e.Query, 50))
	}
	return w.Flush()
}

func runScheduleHistory(ctx context.Context, cmd *cli.Command) error {
	path := filepath.Join(config.EventLogDir(), "_global.jsonl")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No trigger history yet.")
			return nil
		}
		return err
	}
	defer f.Close()

	var triggers []events.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e events.Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue // skip malformed lines
		}
		if e.Type == events.EventScheduleTrigger {
			triggers = append(triggers, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if len(triggers) == 0 {
		fmt.Println("No trigger history yet.")
		return nil
	}

	limit := cmd.Int("limit")
	if limit > 0 && len(triggers) > limit {
		triggers = triggers[len(triggers)-limit:]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tNAME\tTRIGGER\tRUN")
	for _, e := range triggers {
		name, _ := e.Payload["name"].(string)
		trigger, _ := e.Payload["trigger"].(string)
		runID, _ := e.Payload["run_id"].(string)
		if runID == "" {
			runID = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), name, trigger, runID)
	}
	return w.Flush()
}

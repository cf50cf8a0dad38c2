package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/delver-ai/delver/internal/config"
	"github.com/delver-ai/delver/internal/sessions"
)

// NewRunsCommand returns the runs subcommand group.
func NewRunsCommand() *cli.Command {
	return &cli.Command{
		Name:           "runs",
		Usage:          "Inspect past research runs",
		DefaultCommand: "list",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List research runs",
				Action: runRunsList,
			},
			{
				Name:      "show",
				Usage:     "Show one run with its transcript",
				ArgsUsage: "<run-id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: runRunsShow,
			},
		},
	}
}

func runRunsList(ctx context.Context, cmd *cli.Command) error {
	store := sessions.NewFileStore(config.SessionsDir())
	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tMODE\tITER\tUPDATED\tQUERY")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.Status, r.Mode, r.Iterations,
			r.UpdatedAt.Format("2006-01-02 15:04"), truncate(r.Query, 60))
	}
	return w.Flush()
}

func runRunsShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("usage: delver runs show <run-id>")
	}

	store := sessions.NewFileStore(config.SessionsDir())
	run, err := store.Get(id)
	if err != nil {
		return fmt.Errorf("run %s not found", id)
	}

	fmt.Printf("ID:       %s\n", run.ID)
	fmt.Printf("Status:   %s\n", run.Status)
	fmt.Printf("Mode:     %s\n", run.Mode)
	if run.Model != "" {
		fmt.Printf("Model:    %s\n", run.Model)
	}
	fmt.Printf("Query:    %s\n", run.Query)
	fmt.Printf("Created:  %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	if run.Iterations > 0 {
		fmt.Printf("Iterations: %d\n", run.Iterations)
	}
	if run.Violations > 0 {
		fmt.Printf("Violations: %d\n", run.Violations)
	}
	if run.TokenUsage.Input > 0 || run.TokenUsage.Output > 0 {
		fmt.Printf("Tokens:   %d in / %d out\n", run.TokenUsage.Input, run.TokenUsage.Output)
	}
	if run.Error != "" {
		fmt.Printf("Error:    %s\n", run.Error)
	}

	turns, err := store.LoadTurns(id)
	if err != nil {
		return err
	}
	if len(turns) > 0 {
		fmt.Println("\nTranscript:")
		for _, t := range turns {
			label := t.Kind
			if t.Tool != "" {
				label = fmt.Sprintf("%s:%s", t.Kind, t.Tool)
			}
			fmt.Printf("  [%d] %-16s %s\n", t.Iteration, label, truncate(t.Content, 100))
		}
	}

	if run.Answer != "" {
		fmt.Println("\nAnswer:")
		fmt.Println(renderAnswer(run.Answer, false))
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

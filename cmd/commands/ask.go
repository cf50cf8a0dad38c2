package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/delver-ai/delver/internal/orchestrator"
	"github.com/delver-ai/delver/internal/protocol"
	"github.com/delver-ai/delver/internal/uploads"
)

// NewAskCommand returns the ask subcommand.
func NewAskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Run a research query and print the answer",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Research mode: speed, balanced, or quality (empty = config default)",
			},
			&cli.StringSliceFlag{
				Name:    "files",
				Aliases: []string{"f"},
				Usage:   "Glob patterns of files to include as context (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "verify",
				Usage: "Fact-check the answer and revise it on failure",
			},
			&cli.IntFlag{
				Name:  "iterations",
				Usage: "Override the iteration limit",
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Print the raw answer without markdown rendering",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Print reasoning steps and protocol violations to stderr",
			},
		},
		Action: runAsk,
	}
}

func runAsk(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("usage: delver ask <query>")
	}

	setupLogging(cmd)

	rt, err := buildRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	var files []protocol.UploadedFile
	if patterns := cmd.StringSlice("files"); len(patterns) > 0 {
		files, err = uploads.Collect(patterns)
		if err != nil {
			return fmt.Errorf("collect files: %w", err)
		}
	}

	mode := cmd.String("mode")
	if mode == "" {
		mode = rt.cfg.Research.Mode
	}
	maxIterations := rt.cfg.Research.MaxIterations
	if cmd.IsSet("iterations") {
		maxIterations = cmd.Int("iterations")
	}

	model, err := rt.models.Default(ctx)
	if err != nil {
		return fmt.Errorf("init model: %w", err)
	}

	o, err := orchestrator.New(model, rt.tools, rt.bus, orchestrator.Config{
		Mode:          protocol.Mode(mode),
		StrictMode:    rt.cfg.Research.StrictMode,
		MaxIterations: maxIterations,
		ModelName:     rt.models.DefaultName(),
		Verify:        cmd.Bool("verify"),
		Store:         rt.store,
	})
	if err != nil {
		return err
	}

	report, err := o.Research(ctx, orchestrator.Request{Query: query, Files: files})
	if err != nil {
		return err
	}

	if cmd.Bool("verbose") {
		for _, thought := range report.Reasoning {
			fmt.Fprintf(os.Stderr, "reasoning: %s\n", thought)
		}
		for _, v := range report.Violations {
			fmt.Fprintf(os.Stderr, "violation: %s (position %d)\n", v.Kind, v.Position)
		}
		if report.Verification != nil && !report.Verification.Passed {
			fmt.Fprintf(os.Stderr, "verification: failed, answer was revised\n")
		}
		fmt.Fprintf(os.Stderr, "iterations: %d, duration: %s\n",
			report.Iterations, report.Duration.Truncate(10*time.Millisecond))
	}

	fmt.Println(renderAnswer(report.Answer, cmd.Bool("plain")))
	return nil
}

// renderAnswer renders markdown for terminals and passes text through
// everywhere else.
func renderAnswer(answer string, plain bool) string {
	if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return answer
	}

	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 || width > 120 {
		width = 100
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return answer
	}
	out, err := r.Render(answer)
	if err != nil {
		return answer
	}
	return strings.TrimRight(out, "\n")
}

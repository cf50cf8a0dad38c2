// Package orchestrator runs the iterative research loop: compile the system
// prompt, call the model, parse and validate the emitted tool calls, dispatch
// them, and synthesize a final answer from the gathered results.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/delver-ai/delver/internal/callbacks"
	"github.com/delver-ai/delver/internal/events"
	"github.com/delver-ai/delver/internal/protocol"
	"github.com/delver-ai/delver/internal/sessions"
	"github.com/delver-ai/delver/internal/tools"
)

const defaultMaxIterations = 5

// Config controls one orchestrator instance.
type Config struct {
	Mode          protocol.Mode
	StrictMode    bool // reject unknown modes instead of falling back to speed
	MaxIterations int
	ModelName     string         // label for model events
	Verify        bool           // run the fact-check pass on the synthesized answer
	Store         sessions.Store // optional run persistence
}

// Request is one research run.
type Request struct {
	Query     string
	Files     []protocol.UploadedFile
	SessionID string
}

// Report is the outcome of a research run. Violations collects every protocol
// violation observed across all turns, including the terminal_missing record
// when the iteration limit elapsed without a done call.
type Report struct {
	Answer       string
	Iterations   int
	Reasoning    []string
	Violations   []protocol.Violation
	Verification *Verification
	Duration     time.Duration
}

// Orchestrator drives the research loop against a single model and tool
// registry. It is safe for concurrent runs; all per-run state lives on the
// stack of Research.
type Orchestrator struct {
	model    model.ToolCallingChatModel
	registry *tools.Registry
	bus      *events.Bus
	cfg      Config
	profile  protocol.Profile
	handler  einocb.Handler
}

// New creates an orchestrator. With StrictMode set, an unrecognized mode is a
// configuration error; otherwise it silently resolves to the speed profile.
func New(m model.ToolCallingChatModel, registry *tools.Registry, bus *events.Bus, cfg Config) (*Orchestrator, error) {
	if m == nil {
		return nil, fmt.Errorf("orchestrator: nil model")
	}
	if registry == nil {
		return nil, fmt.Errorf("orchestrator: nil tool registry")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}

	var profile protocol.Profile
	if cfg.StrictMode {
		p, err := protocol.ResolveProfileStrict(cfg.Mode)
		if err != nil {
			return nil, err
		}
		profile = p
	} else {
		profile = protocol.ResolveProfile(cfg.Mode)
	}

	o := &Orchestrator{
		model:    m,
		registry: registry,
		bus:      bus,
		cfg:      cfg,
		profile:  profile,
	}
	if bus != nil {
		o.handler = callbacks.NewEventBusHandler(bus, events.SourceOrchestrator)
	}
	return o, nil
}

// withModelCallbacks injects the event bus callback handler so raw LLM calls
// emit llm.call events with token usage.
func (o *Orchestrator) withModelCallbacks(ctx context.Context) context.Context {
	if o.handler == nil {
		return ctx
	}
	return einocb.InitCallbacks(ctx, &einocb.RunInfo{
		Name:      o.cfg.ModelName,
		Component: components.ComponentOfChatModel,
	}, o.handler)
}

// Research runs the full loop for one query and returns the synthesized
// answer. Soft violations append a protocol reminder to the tool responses
// so the next turn can correct course. The loop ends when the model calls
// the terminal tool, when a turn produces neither a dispatchable action nor
// corrective feedback, or when the iteration limit elapses.
func (o *Orchestrator) Research(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()

	var runID string
	if o.cfg.Store != nil {
		// Callers that already created the run record pass its ID as the
		// session ID; otherwise create one here.
		if req.SessionID != "" {
			if _, err := o.cfg.Store.Get(req.SessionID); err == nil {
				runID = req.SessionID
			}
		}
		if runID == "" {
			run, err := o.cfg.Store.Create(req.Query, string(o.profile.Mode), o.cfg.ModelName)
			if err != nil {
				slog.Warn("run persistence unavailable", "error", err)
			} else {
				runID = run.ID
				if req.SessionID == "" {
					req.SessionID = runID
				}
			}
		}
	}

	if req.SessionID != "" {
		ctx = events.ContextWithSessionID(ctx, req.SessionID)
	}
	ctx = o.withModelCallbacks(ctx)

	compiler := protocol.NewCompiler(o.profile.Mode)
	known := o.registry.Known()

	catalog, err := o.registry.CatalogJSON(o.profile)
	if err != nil {
		return nil, fmt.Errorf("render tool catalog: %w", err)
	}

	o.publish(ctx, events.ResearchStartedPayload{
		Query:         req.Query,
		Mode:          string(o.profile.Mode),
		MaxIterations: o.cfg.MaxIterations,
		FileCount:     len(req.Files),
	})

	var (
		report      Report
		toolOutputs []string
		terminal    bool
		infoCalls   int // info calls across all turns, for the terminal-time minimum
	)

	for i := 0; i < o.cfg.MaxIterations; i++ {
		report.Iterations = i + 1

		system := compiler.Compile(catalog, protocol.IterationContext{Index: i, Max: o.cfg.MaxIterations}, req.Files)

		// Wire-format transcript mirror, for observability only. The model
		// server applies the chat template itself; this records what the
		// model effectively sees.
		transcript := system + protocol.FormatUserMessage(req.Query)
		for _, out := range toolOutputs {
			transcript += protocol.FormatToolResponse(out)
		}
		o.publish(ctx, events.PromptCompiledPayload{
			Mode:      string(o.profile.Mode),
			Iteration: i + 1,
			Bytes:     len(transcript),
		})

		msgs := []*schema.Message{
			schema.SystemMessage(system),
			schema.UserMessage(req.Query),
		}
		if len(toolOutputs) > 0 {
			msgs = append(msgs, &schema.Message{
				Role:       schema.Tool,
				Content:    strings.Join(toolOutputs, "\n\n"),
				ToolCallID: "web_search",
			})
		}

		modelStart := time.Now()
		resp, err := o.model.Generate(ctx, msgs)
		if err != nil {
			o.publish(ctx, events.ResearchFailedPayload{Error: err.Error()})
			o.failRun(runID, err)
			return nil, fmt.Errorf("model generate: %w", err)
		}
		o.record(runID, sessions.Turn{Iteration: i + 1, Kind: "model", Content: resp.Content})

		calls := protocol.ParseToolCalls(resp.Content)
		o.publish(ctx, events.ModelResponsePayload{
			Model:     o.cfg.ModelName,
			Duration:  time.Since(modelStart),
			CallCount: len(calls),
		})

		verdict := protocol.ValidateTurn(o.profile, calls, known, infoCalls)
		infoCalls += verdict.State.Info
		o.recordViolations(ctx, &report, verdict.Violations)

		for _, call := range calls {
			if call.Name != o.profile.PreambleTool {
				continue
			}
			if thought, ok := call.Arguments["thought"].(string); ok && thought != "" {
				report.Reasoning = append(report.Reasoning, thought)
				o.record(runID, sessions.Turn{Iteration: i + 1, Kind: "reasoning", Content: thought})
			}
		}

		o.publish(ctx, events.ResearchIterationPayload{
			Index:     i + 1,
			Max:       o.cfg.MaxIterations,
			CallCount: len(calls),
		})

		terminal = verdict.State.Terminal

		acted := false
		for _, call := range verdict.Dispatch {
			if call.Name == o.profile.TerminalTool {
				continue
			}
			out, err := o.registry.Dispatch(ctx, call)
			if err != nil {
				slog.Warn("tool dispatch failed", "tool", call.Name, "error", err)
				continue
			}
			acted = true
			if out != "" {
				toolOutputs = append(toolOutputs, out)
				o.record(runID, sessions.Turn{Iteration: i + 1, Kind: "tool", Tool: call.Name, Content: out})
			}
		}

		corrected := false
		if note := protocol.CorrectiveFeedback(o.profile, verdict.Violations); note != "" {
			toolOutputs = append(toolOutputs, note)
			corrected = true
		}

		if terminal || (!acted && !corrected) {
			break
		}
	}

	if !terminal {
		v := protocol.TerminalMissing(report.Iterations)
		o.recordViolations(ctx, &report, []protocol.Violation{v})
	}

	answer, err := o.respond(ctx, req.Query, toolOutputs, report.Reasoning, "")
	if err != nil {
		o.publish(ctx, events.ResearchFailedPayload{Error: err.Error()})
		o.failRun(runID, err)
		return nil, fmt.Errorf("synthesize answer: %w", err)
	}
	report.Answer = answer

	if o.cfg.Verify {
		verification := o.verify(ctx, req.Query, toolOutputs, answer)
		report.Verification = &verification
		if !verification.Passed {
			revised, err := o.respond(ctx, req.Query, toolOutputs, report.Reasoning, verification.Feedback)
			if err != nil {
				slog.Warn("revision after failed verification errored, keeping first draft", "error", err)
			} else {
				report.Answer = revised
			}
		}
	}

	report.Duration = time.Since(start)

	o.publish(ctx, events.ResearchCompletedPayload{
		Answer:     report.Answer,
		Iterations: report.Iterations,
		Duration:   report.Duration,
	})
	o.publish(ctx, events.AnswerFinalPayload{Content: report.Answer})

	if o.cfg.Store != nil && runID != "" {
		if err := o.cfg.Store.Complete(runID, report.Answer, report.Iterations, len(report.Violations), report.Duration); err != nil {
			slog.Warn("completing run record failed", "run", runID, "error", err)
		}
	}

	return &report, nil
}

func (o *Orchestrator) record(runID string, turn sessions.Turn) {
	if o.cfg.Store == nil || runID == "" {
		return
	}
	if err := o.cfg.Store.AppendTurn(runID, turn); err != nil {
		slog.Warn("appending run turn failed", "run", runID, "error", err)
	}
}

func (o *Orchestrator) failRun(runID string, cause error) {
	if o.cfg.Store == nil || runID == "" {
		return
	}
	if err := o.cfg.Store.Fail(runID, cause.Error()); err != nil {
		slog.Warn("marking run failed errored", "run", runID, "error", err)
	}
}

func (o *Orchestrator) recordViolations(ctx context.Context, report *Report, violations []protocol.Violation) {
	for _, v := range violations {
		report.Violations = append(report.Violations, v)
		slog.Warn("protocol violation",
			"kind", v.Kind, "position", v.Position, "tool", v.Tool,
			"budget", v.Budget, "limit", v.Limit, "actual", v.Actual)
		o.publish(ctx, events.ProtocolViolationPayload{
			Kind:     string(v.Kind),
			Position: v.Position,
			Tool:     v.Tool,
			Budget:   string(v.Budget),
			Limit:    v.Limit,
			Actual:   v.Actual,
		})
	}
}

func (o *Orchestrator) publish(ctx context.Context, payload events.EventPayload) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(events.NewTypedEventWithSession(
		events.SourceOrchestrator, payload, events.SessionIDFromContext(ctx)))
}

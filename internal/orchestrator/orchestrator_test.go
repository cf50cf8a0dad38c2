package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/delver-ai/delver/internal/events"
	"github.com/delver-ai/delver/internal/protocol"
	"github.com/delver-ai/delver/internal/sessions"
	"github.com/delver-ai/delver/internal/tools"
)

// scriptedModel replays canned responses in order. The final responses in a
// script typically cover the synthesis (and verification) calls.
type scriptedModel struct {
	mu        sync.Mutex
	responses []string
	requests  [][]*schema.Message
	err       error
}

func (m *scriptedModel) Generate(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, msgs)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return schema.AssistantMessage("", nil), nil
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	return schema.AssistantMessage(next, nil), nil
}

func (m *scriptedModel) Stream(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (m *scriptedModel) WithTools(infos []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

type fakeSearchTool struct {
	result string
	calls  int
}

func (t *fakeSearchTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{Name: "web_search"}, nil
}

func (t *fakeSearchTool) InvokableRun(ctx context.Context, args string, opts ...tool.Option) (string, error) {
	t.calls++
	return t.result, nil
}

var _ tool.InvokableTool = (*fakeSearchTool)(nil)

func newTestRegistry(t *testing.T, searcher *fakeSearchTool) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry(nil)
	spec := tools.ToolSpec{
		Name:        "web_search",
		Description: "Search the web",
		Parameters: map[string]tools.ParamSpec{
			"queries": {
				Type:        "array",
				Description: "List of search queries (max 10)",
				Required:    true,
				Items:       &tools.ParamSpec{Type: "string"},
			},
		},
	}
	if err := reg.Register(spec, searcher); err != nil {
		t.Fatal(err)
	}
	return reg
}

func wire(calls ...string) string {
	var b strings.Builder
	for _, c := range calls {
		b.WriteString(protocol.ToolCallStart)
		b.WriteString(c)
		b.WriteString(protocol.ToolCallEnd)
	}
	return b.String()
}

func violationKinds(report *Report) []protocol.ViolationKind {
	kinds := make([]protocol.ViolationKind, 0, len(report.Violations))
	for _, v := range report.Violations {
		kinds = append(kinds, v.Kind)
	}
	return kinds
}

func hasViolation(report *Report, kind protocol.ViolationKind) bool {
	for _, v := range report.Violations {
		if v.Kind == kind {
			return true
		}
	}
	return false
}

func TestResearch_BalancedTwoTurns(t *testing.T) {
	m := &scriptedModel{responses: []string{
		wire(
			`[__reasoning_preamble(thought="Need current data"), web_search(queries=["go 1.25 release notes"])]`,
		),
		wire(
			`[__reasoning_preamble(thought="Enough gathered"), done()]`,
		),
		"Go 1.25 shipped in August 2025 with profile-guided inlining improvements.",
	}}
	searcher := &fakeSearchTool{result: "[1] Go 1.25 Release Notes\n    URL: https://go.dev/doc/go1.25\n    Highlights..."}

	o, err := New(m, newTestRegistry(t, searcher), nil, Config{Mode: protocol.ModeBalanced, MaxIterations: 5})
	if err != nil {
		t.Fatal(err)
	}

	report, err := o.Research(context.Background(), Request{Query: "what changed in go 1.25"})
	if err != nil {
		t.Fatal(err)
	}

	if report.Iterations != 2 {
		t.Errorf("iterations: got %d, want 2", report.Iterations)
	}
	if searcher.calls != 1 {
		t.Errorf("search tool calls: got %d, want 1", searcher.calls)
	}
	if len(report.Violations) != 0 {
		t.Errorf("unexpected violations: %v", violationKinds(report))
	}
	if len(report.Reasoning) != 2 {
		t.Errorf("reasoning thoughts: got %d, want 2", len(report.Reasoning))
	}
	if !strings.Contains(report.Answer, "Go 1.25") {
		t.Errorf("unexpected answer: %q", report.Answer)
	}

	// The second research turn must carry the first turn's tool output.
	if len(m.requests) != 3 {
		t.Fatalf("model requests: got %d, want 3", len(m.requests))
	}
	secondTurn := m.requests[1]
	last := secondTurn[len(secondTurn)-1]
	if last.Role != schema.Tool || !strings.Contains(last.Content, "go.dev/doc/go1.25") {
		t.Errorf("expected tool message with search results, got role %s content %q", last.Role, last.Content)
	}
}

func TestResearch_TerminalMissing(t *testing.T) {
	m := &scriptedModel{responses: []string{
		wire(`[web_search(queries=["q1"])]`),
		wire(`[web_search(queries=["q2"])]`),
		"best effort answer",
	}}
	searcher := &fakeSearchTool{result: "some results"}

	o, err := New(m, newTestRegistry(t, searcher), nil, Config{Mode: protocol.ModeSpeed, MaxIterations: 2})
	if err != nil {
		t.Fatal(err)
	}

	report, err := o.Research(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatal(err)
	}

	if report.Iterations != 2 {
		t.Errorf("iterations: got %d, want 2", report.Iterations)
	}
	if !hasViolation(report, protocol.ViolationTerminalMissing) {
		t.Errorf("expected terminal_missing, got %v", violationKinds(report))
	}
	if report.Answer != "best effort answer" {
		t.Errorf("unexpected answer: %q", report.Answer)
	}
}

func TestResearch_NoActionableCallsEndsRun(t *testing.T) {
	m := &scriptedModel{responses: []string{
		"I think the answer is probably 42.", // free text, no tool calls
		"synthesized answer",
	}}
	searcher := &fakeSearchTool{}

	o, err := New(m, newTestRegistry(t, searcher), nil, Config{Mode: protocol.ModeSpeed, MaxIterations: 5})
	if err != nil {
		t.Fatal(err)
	}

	report, err := o.Research(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatal(err)
	}

	if report.Iterations != 1 {
		t.Errorf("iterations: got %d, want 1", report.Iterations)
	}
	if searcher.calls != 0 {
		t.Errorf("search tool should not run, got %d calls", searcher.calls)
	}
	if report.Answer != "synthesized answer" {
		t.Errorf("unexpected answer: %q", report.Answer)
	}
}

func TestResearch_SoftViolationsDoNotBlockDispatch(t *testing.T) {
	// Balanced mode, web_search without a preamble: missing_preamble is
	// recorded but the call still dispatches.
	m := &scriptedModel{responses: []string{
		wire(`[web_search(queries=["q1"])]`),
		wire(`[__reasoning_preamble(thought="done now"), done()]`),
		"answer",
	}}
	searcher := &fakeSearchTool{result: "results"}

	o, err := New(m, newTestRegistry(t, searcher), nil, Config{Mode: protocol.ModeBalanced, MaxIterations: 5})
	if err != nil {
		t.Fatal(err)
	}

	report, err := o.Research(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatal(err)
	}

	if !hasViolation(report, protocol.ViolationMissingPreamble) {
		t.Errorf("expected missing_preamble, got %v", violationKinds(report))
	}
	if searcher.calls != 1 {
		t.Errorf("search tool calls: got %d, want 1", searcher.calls)
	}
}

func TestResearch_SoftViolationTriggersReprompt(t *testing.T) {
	// Balanced mode, first turn skips the preamble. The next model request
	// must carry a protocol reminder alongside the search results.
	m := &scriptedModel{responses: []string{
		wire(`[web_search(queries=["q1"])]`),
		wire(`[__reasoning_preamble(thought="done now"), done()]`),
		"answer",
	}}
	searcher := &fakeSearchTool{result: "results"}

	o, err := New(m, newTestRegistry(t, searcher), nil, Config{Mode: protocol.ModeBalanced, MaxIterations: 5})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.Research(context.Background(), Request{Query: "q"}); err != nil {
		t.Fatal(err)
	}

	if len(m.requests) < 2 {
		t.Fatalf("model requests: got %d, want at least 2", len(m.requests))
	}
	secondTurn := m.requests[1]
	last := secondTurn[len(secondTurn)-1]
	if last.Role != schema.Tool {
		t.Fatalf("expected tool message, got role %s", last.Role)
	}
	if !strings.Contains(last.Content, "Protocol reminder") || !strings.Contains(last.Content, protocol.PreambleToolName) {
		t.Errorf("expected a preamble reminder in the tool response, got %q", last.Content)
	}
}

func TestResearch_ModelErrorFailsRun(t *testing.T) {
	m := &scriptedModel{err: errors.New("backend down")}

	o, err := New(m, newTestRegistry(t, &fakeSearchTool{}), nil, Config{Mode: protocol.ModeSpeed})
	if err != nil {
		t.Fatal(err)
	}

	_, err = o.Research(context.Background(), Request{Query: "q"})
	if err == nil || !strings.Contains(err.Error(), "backend down") {
		t.Fatalf("expected model error, got %v", err)
	}
}

func TestResearch_PublishesEvents(t *testing.T) {
	bus := events.NewBus(64)
	defer bus.Close()

	m := &scriptedModel{responses: []string{
		wire(`[done()]`),
		"answer",
	}}

	o, err := New(m, newTestRegistry(t, &fakeSearchTool{}), bus, Config{Mode: protocol.ModeSpeed})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.Research(context.Background(), Request{Query: "q", SessionID: "sess-1"}); err != nil {
		t.Fatal(err)
	}

	want := []events.EventType{
		events.EventResearchStarted,
		events.EventPromptCompiled,
		events.EventResearchCompleted,
		events.EventAnswerFinal,
	}

	// Delivery is asynchronous; poll the ring buffer.
	deadline := time.Now().Add(2 * time.Second)
	for {
		history := bus.History(64)
		missing := ""
		for _, w := range want {
			found := false
			for _, e := range history {
				if e.Type == w {
					found = true
					break
				}
			}
			if !found {
				missing = string(w)
				break
			}
		}
		if missing == "" {
			for _, e := range history {
				if e.SessionID != "sess-1" {
					t.Errorf("event %s missing session id: %q", e.Type, e.SessionID)
				}
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("event %s never arrived, history: %v", missing, history)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestResearch_PersistsRun(t *testing.T) {
	store := sessions.NewFileStore(t.TempDir())
	m := &scriptedModel{responses: []string{
		wire(`[__reasoning_preamble(thought="wrap up"), web_search(queries=["q"]), __reasoning_preamble(thought="ok"), done()]`),
		"persisted answer",
	}}
	searcher := &fakeSearchTool{result: "search output"}

	o, err := New(m, newTestRegistry(t, searcher), nil, Config{
		Mode:      protocol.ModeBalanced,
		ModelName: "local",
		Store:     store,
	})
	if err != nil {
		t.Fatal(err)
	}

	report, err := o.Research(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatal(err)
	}

	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.Status != sessions.RunCompleted {
		t.Errorf("run status: got %s", run.Status)
	}
	if run.Answer != report.Answer {
		t.Errorf("run answer mismatch: %q vs %q", run.Answer, report.Answer)
	}

	turns, err := store.LoadTurns(run.ID)
	if err != nil {
		t.Fatal(err)
	}
	kinds := map[string]int{}
	for _, turn := range turns {
		kinds[turn.Kind]++
	}
	if kinds["model"] != 1 || kinds["reasoning"] != 2 || kinds["tool"] != 1 {
		t.Errorf("unexpected transcript shape: %v", kinds)
	}
}

func TestNew_StrictModeRejectsUnknownMode(t *testing.T) {
	m := &scriptedModel{}
	_, err := New(m, newTestRegistry(t, &fakeSearchTool{}), nil, Config{Mode: "turbo", StrictMode: true})
	var cfgErr *protocol.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestNew_LenientModeFallsBackToSpeed(t *testing.T) {
	m := &scriptedModel{responses: []string{wire(`[done()]`), "answer"}}
	o, err := New(m, newTestRegistry(t, &fakeSearchTool{}), nil, Config{Mode: "turbo"})
	if err != nil {
		t.Fatal(err)
	}
	if o.profile.Mode != protocol.ModeSpeed {
		t.Errorf("expected speed fallback, got %s", o.profile.Mode)
	}
}

// Package sessions persists research runs: per-run metadata plus the turn
// transcript as JSONL.
package sessions

import "time"

// RunStatus represents the lifecycle state of a research run.
type RunStatus string

const (
	RunActive    RunStatus = "active"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// TokenUsage tracks cumulative token consumption for a run.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Run holds metadata about one research run.
type Run struct {
	ID         string        `json:"id"`
	Query      string        `json:"query"`
	Mode       string        `json:"mode"`
	Model      string        `json:"model,omitempty"`
	Status     RunStatus     `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	TurnCount  int           `json:"turn_count"`
	Iterations int           `json:"iterations,omitempty"`
	FileCount  int           `json:"file_count,omitempty"`
	Violations int           `json:"violations,omitempty"`
	Answer     string        `json:"answer,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	TokenUsage TokenUsage    `json:"token_usage"`
}

// Turn is one entry in the run transcript, serializable to JSONL.
// Kind is "model" for raw model responses, "tool" for tool outputs,
// "reasoning" for preamble thoughts.
type Turn struct {
	Iteration int       `json:"iteration"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	Tool      string    `json:"tool,omitempty"`
	Ts        time.Time `json:"ts"`
}

// Store defines the persistence interface for research runs.
type Store interface {
	Create(query, mode, model string) (*Run, error)
	Get(id string) (*Run, error)
	List() ([]*Run, error)
	UpdateMeta(r *Run) error
	Complete(id, answer string, iterations, violations int, duration time.Duration) error
	Fail(id, errMsg string) error
	AppendTurn(runID string, turn Turn) error
	LoadTurns(runID string) ([]Turn, error)
}

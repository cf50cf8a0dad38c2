package events

import (
	"encoding/json"
	"time"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// =============================================================================
// RESEARCH RUN EVENTS
// =============================================================================

type ResearchStartedPayload struct {
	Query         string `json:"query"`
	Mode          string `json:"mode"`
	MaxIterations int    `json:"max_iterations"`
	FileCount     int    `json:"file_count,omitempty"`
}

func (ResearchStartedPayload) EventType() EventType { return EventResearchStarted }

type ResearchIterationPayload struct {
	Index     int `json:"index"`
	Max       int `json:"max"`
	CallCount int `json:"call_count"`
}

func (ResearchIterationPayload) EventType() EventType { return EventResearchIteration }

type ResearchCompletedPayload struct {
	Answer     string        `json:"answer"`
	Iterations int           `json:"iterations"`
	Duration   time.Duration `json:"duration"`
}

func (ResearchCompletedPayload) EventType() EventType { return EventResearchCompleted }

type ResearchFailedPayload struct {
	Error string `json:"error"`
}

func (ResearchFailedPayload) EventType() EventType { return EventResearchFailed }

// =============================================================================
// MODEL EVENTS
// =============================================================================

type PromptCompiledPayload struct {
	Mode      string `json:"mode"`
	Iteration int    `json:"iteration"`
	Bytes     int    `json:"bytes"`
}

func (PromptCompiledPayload) EventType() EventType { return EventPromptCompiled }

type ModelResponsePayload struct {
	Model     string        `json:"model"`
	Duration  time.Duration `json:"duration,omitempty"`
	CallCount int           `json:"call_count"`
	Error     string        `json:"error,omitempty"`
}

func (ModelResponsePayload) EventType() EventType { return EventModelResponse }

// LLMCallPayload is emitted by the model callback bridge around each raw LLM
// call. Phase is "request", "response", or "error"; token counts are set on
// the response phase when the provider reports usage.
type LLMCallPayload struct {
	Phase        string `json:"phase"`
	Model        string `json:"model"`
	MessageCount int    `json:"message_count,omitempty"`
	TokensInput  int    `json:"tokens_input,omitempty"`
	TokensOutput int    `json:"tokens_output,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (LLMCallPayload) EventType() EventType { return EventLLMCall }

// =============================================================================
// PROTOCOL EVENTS
// =============================================================================

type ProtocolViolationPayload struct {
	Kind     string `json:"kind"`
	Position int    `json:"position"`
	Tool     string `json:"tool,omitempty"`
	Budget   string `json:"budget,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Actual   int    `json:"actual,omitempty"`
}

func (ProtocolViolationPayload) EventType() EventType { return EventProtocolViolation }

// =============================================================================
// TOOL EVENTS
// =============================================================================

type ToolStatus string

const (
	ToolStatusStarted   ToolStatus = "started"
	ToolStatusCompleted ToolStatus = "completed"
	ToolStatusFailed    ToolStatus = "failed"
)

type ToolCallPayload struct {
	Status    ToolStatus     `json:"status"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Error     string         `json:"error,omitempty"`
}

func (ToolCallPayload) EventType() EventType { return EventToolCall }

type ToolResultPayload struct {
	Name     string        `json:"name"`
	Result   string        `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

func (ToolResultPayload) EventType() EventType { return EventToolResult }

// =============================================================================
// SEARCH EVENTS
// =============================================================================

type SearchQueryPayload struct {
	Provider string `json:"provider"`
	Query    string `json:"query"`
	Results  int    `json:"results"`
	Cached   bool   `json:"cached,omitempty"`
}

func (SearchQueryPayload) EventType() EventType { return EventSearchQuery }

// =============================================================================
// ANSWER EVENTS
// =============================================================================

type AnswerFinalPayload struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

func (AnswerFinalPayload) EventType() EventType { return EventAnswerFinal }

// =============================================================================
// SCHEDULER EVENTS
// =============================================================================

type ScheduleTriggerPayload struct {
	Name    string `json:"name"`
	Query   string `json:"query"`
	Mode    string `json:"mode,omitempty"`
	Trigger string `json:"trigger"`
	RunID   string `json:"run_id,omitempty"`
}

func (ScheduleTriggerPayload) EventType() EventType { return EventScheduleTrigger }

// =============================================================================
// BACKEND EVENTS
// =============================================================================

type BackendStartedPayload struct {
	Container string `json:"container"`
	Image     string `json:"image"`
	Port      int    `json:"port"`
}

func (BackendStartedPayload) EventType() EventType { return EventBackendStarted }

type BackendStoppedPayload struct {
	Container string `json:"container"`
}

func (BackendStoppedPayload) EventType() EventType { return EventBackendStopped }

// =============================================================================
// TYPED EVENT CONSTRUCTORS
// =============================================================================

func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return Event{
		ID:        generateEventID(),
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

func NewTypedEventWithSession(source EventSource, payload EventPayload, sessionID string) Event {
	return Event{
		ID:        generateEventID(),
		SessionID: sessionID,
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// =============================================================================
// TYPED PAYLOAD EXTRACTORS
// =============================================================================

func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}

func GetResearchStartedPayload(e Event) (ResearchStartedPayload, bool) {
	return ExtractPayload[ResearchStartedPayload](e)
}

func GetResearchCompletedPayload(e Event) (ResearchCompletedPayload, bool) {
	return ExtractPayload[ResearchCompletedPayload](e)
}

func GetProtocolViolationPayload(e Event) (ProtocolViolationPayload, bool) {
	return ExtractPayload[ProtocolViolationPayload](e)
}

func GetLLMCallPayload(e Event) (LLMCallPayload, bool) {
	return ExtractPayload[LLMCallPayload](e)
}

func GetToolCallPayload(e Event) (ToolCallPayload, bool) {
	return ExtractPayload[ToolCallPayload](e)
}

func GetToolResultPayload(e Event) (ToolResultPayload, bool) {
	return ExtractPayload[ToolResultPayload](e)
}

func GetSearchQueryPayload(e Event) (SearchQueryPayload, bool) {
	return ExtractPayload[SearchQueryPayload](e)
}

func GetAnswerFinalPayload(e Event) (AnswerFinalPayload, bool) {
	return ExtractPayload[AnswerFinalPayload](e)
}

package events

import (
	"testing"
	"time"
)

func TestTypedEvent_ResearchStarted(t *testing.T) {
	payload := ResearchStartedPayload{Query: "what is searxng", Mode: "balanced", MaxIterations: 5}
	evt := NewTypedEvent(SourceOrchestrator, payload)

	if evt.Type != EventResearchStarted {
		t.Fatalf("expected type %q, got %q", EventResearchStarted, evt.Type)
	}
	got, ok := ExtractPayload[ResearchStartedPayload](evt)
	if !ok {
		t.Fatal("ExtractPayload returned false")
	}
	if got.Query != "what is searxng" {
		t.Fatalf("expected query %q, got %q", "what is searxng", got.Query)
	}
	if got.MaxIterations != 5 {
		t.Fatalf("expected max_iterations 5, got %d", got.MaxIterations)
	}
}

func TestTypedEvent_ResearchCompleted(t *testing.T) {
	dur := 3 * time.Second
	payload := ResearchCompletedPayload{Answer: "the answer", Iterations: 2, Duration: dur}
	evt := NewTypedEvent(SourceOrchestrator, payload)

	got, ok := ExtractPayload[ResearchCompletedPayload](evt)
	if !ok {
		t.Fatal("ExtractPayload returned false")
	}
	if got.Duration != dur {
		t.Fatalf("expected duration %v, got %v", dur, got.Duration)
	}
	if got.Iterations != 2 {
		t.Fatalf("expected 2 iterations, got %d", got.Iterations)
	}
}

func TestTypedEvent_ToolCall(t *testing.T) {
	payload := ToolCallPayload{
		Status:    ToolStatusStarted,
		Name:      "web_search",
		Arguments: map[string]any{"queries": []any{"test"}},
	}
	evt := NewTypedEvent(SourceTools, payload)

	if evt.Type != EventToolCall {
		t.Fatalf("expected type %q, got %q", EventToolCall, evt.Type)
	}
	got, ok := ExtractPayload[ToolCallPayload](evt)
	if !ok {
		t.Fatal("ExtractPayload returned false")
	}
	if got.Status != ToolStatusStarted {
		t.Fatalf("expected status %q, got %q", ToolStatusStarted, got.Status)
	}
	if got.Name != "web_search" {
		t.Fatalf("expected name %q, got %q", "web_search", got.Name)
	}
}

func TestTypedEvent_ToolResult(t *testing.T) {
	dur := 750 * time.Millisecond
	payload := ToolResultPayload{Name: "web_search", Result: "3 results", Duration: dur}
	evt := NewTypedEvent(SourceTools, payload)

	if evt.Type != EventToolResult {
		t.Fatalf("expected type %q, got %q", EventToolResult, evt.Type)
	}
	got, ok := ExtractPayload[ToolResultPayload](evt)
	if !ok {
		t.Fatal("ExtractPayload returned false")
	}
	if got.Result != "3 results" {
		t.Fatalf("expected result %q, got %q", "3 results", got.Result)
	}
	if got.Duration != dur {
		t.Fatalf("expected duration %v, got %v", dur, got.Duration)
	}
}

func TestTypedEvent_SearchQuery(t *testing.T) {
	payload := SearchQueryPayload{Provider: "searxng", Query: "go 1.25", Results: 5, Cached: true}
	evt := NewTypedEvent(SourceSearch, payload)

	if evt.Type != EventSearchQuery {
		t.Fatalf("expected type %q, got %q", EventSearchQuery, evt.Type)
	}
	got, ok := ExtractPayload[SearchQueryPayload](evt)
	if !ok {
		t.Fatal("ExtractPayload returned false")
	}
	if !got.Cached {
		t.Fatal("expected cached flag to survive the round trip")
	}
	if got.Results != 5 {
		t.Fatalf("expected 5 results, got %d", got.Results)
	}
}

func TestTypedEventWithSession(t *testing.T) {
	payload := AnswerFinalPayload{Content: "done"}
	evt := NewTypedEventWithSession(SourceWS, payload, "sess_abc123")

	if evt.SessionID != "sess_abc123" {
		t.Fatalf("expected session_id %q, got %q", "sess_abc123", evt.SessionID)
	}
	if evt.Source != SourceWS {
		t.Fatalf("expected source %q, got %q", SourceWS, evt.Source)
	}
	got, ok := ExtractPayload[AnswerFinalPayload](evt)
	if !ok {
		t.Fatal("ExtractPayload returned false")
	}
	if got.Content != "done" {
		t.Fatalf("expected content %q, got %q", "done", got.Content)
	}
}

func TestExtractPayload_WrongType(t *testing.T) {
	// Create an answer event, try to extract as ToolCallPayload
	payload := AnswerFinalPayload{Content: "hello"}
	evt := NewTypedEvent(SourceOrchestrator, payload)

	got, ok := ExtractPayload[ToolCallPayload](evt)
	// Extraction succeeds (JSON round-trip) but fields are zero-valued
	if !ok {
		t.Fatal("ExtractPayload should succeed even for mismatched types (JSON is flexible)")
	}
	if got.Name != "" {
		t.Fatalf("expected empty name for wrong type extraction, got %q", got.Name)
	}
	if got.Status != "" {
		t.Fatalf("expected empty status for wrong type extraction, got %q", got.Status)
	}
}

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/tool"

	"github.com/delver-ai/delver/internal/events"
	"github.com/delver-ai/delver/internal/protocol"
)

// Registry holds the callable tools. Reserved protocol names are rejected at
// registration time so they can never collide with the catalog.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]tool.InvokableTool
	specs map[string]*ToolSpec
	bus   *events.Bus
}

// NewRegistry creates an empty registry.
func NewRegistry(bus *events.Bus) *Registry {
	return &Registry{
		tools: make(map[string]tool.InvokableTool),
		specs: make(map[string]*ToolSpec),
		bus:   bus,
	}
}

// Register adds a tool under spec.Name. It rejects reserved protocol names,
// the reserved "__" prefix, and duplicates.
func (r *Registry) Register(spec ToolSpec, t tool.InvokableTool) error {
	name := spec.Name
	if name == "" {
		return fmt.Errorf("tools: spec has no name")
	}
	if name == protocol.TerminalToolName || name == protocol.PreambleToolName {
		return fmt.Errorf("tools: %q is a reserved protocol name", name)
	}
	if strings.HasPrefix(name, "__") {
		return fmt.Errorf("tools: %q uses the reserved __ prefix", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tools: %q already registered", name)
	}
	r.tools[name] = t
	r.specs[name] = &spec
	r.order = append(r.order, name)
	return nil
}

// Known returns the set of registered names, as consumed by the protocol
// validator. Reserved names are not included; the validator knows them.
func (r *Registry) Known() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	known := make(map[string]bool, len(r.tools))
	for name := range r.tools {
		known[name] = true
	}
	return known
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Tool returns the tool for a name, or nil when absent.
func (r *Registry) Tool(name string) tool.InvokableTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Spec returns the spec for a name, or nil when absent.
func (r *Registry) Spec(name string) *ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.specs[name]
}

// Dispatch executes one validated tool call and returns its result text.
// Tool call and result events are published on the bus.
func (r *Registry) Dispatch(ctx context.Context, call protocol.ToolCall) (string, error) {
	t := r.Tool(call.Name)
	if t == nil {
		return "", fmt.Errorf("tools: %q not registered", call.Name)
	}

	args, err := json.Marshal(call.Arguments)
	if err != nil {
		return "", fmt.Errorf("tools: encode arguments for %q: %w", call.Name, err)
	}

	r.publish(ctx, events.ToolCallPayload{
		Status:    events.ToolStatusStarted,
		Name:      call.Name,
		Arguments: call.Arguments,
	})

	start := time.Now()
	result, err := t.InvokableRun(ctx, string(args))
	elapsed := time.Since(start)

	if err != nil {
		r.publish(ctx, events.ToolResultPayload{
			Name:     call.Name,
			Error:    err.Error(),
			Duration: elapsed,
		})
		return "", fmt.Errorf("tools: run %q: %w", call.Name, err)
	}

	r.publish(ctx, events.ToolResultPayload{
		Name:     call.Name,
		Result:   result,
		Duration: elapsed,
	})
	return result, nil
}

func (r *Registry) publish(ctx context.Context, payload events.EventPayload) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(events.NewTypedEventWithSession(
		events.SourceTools, payload, events.SessionIDFromContext(ctx)))
}

// Package tools exposes ledger operations as named tools with JSON-schema
// parameter descriptions, for callers that pick an operation by name and
// supply its arguments as a JSON object.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/eaglebank/servicepay/shared/metrics"
	"github.com/eaglebank/servicepay/shared/middleware"
	"github.com/eaglebank/servicepay/shared/models"
)

var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// ArgumentError reports arguments that decoded but failed validation.
type ArgumentError struct {
	Tool    string
	Details []middleware.ValidationError
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s", e.Tool)
}

// Tool describes one callable operation.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`

	invoke func(ctx context.Context, raw json.RawMessage) (any, error)
}

type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool whose arguments decode into A. Registering a name
// twice replaces the earlier tool.
func Register[A any](r *Registry, name, description string, parameters map[string]any, fn func(ctx context.Context, args A) any) {
	tool := Tool{
		Name:        name,
		Description: description,
		Parameters:  parameters,
		invoke: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args A
			if err := decodeArguments(raw, &args); err != nil {
				return nil, err
			}
			if details := middleware.ValidateRequest(args); details != nil {
				return nil, &ArgumentError{Tool: name, Details: details}
			}
			return fn(ctx, args), nil
		},
	}

	r.mu.Lock()
	r.tools[name] = tool
	r.mu.Unlock()
}

// Tools returns the catalog sorted by name.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Invoke runs the named tool. Business failures come back inside the result;
// the returned error only covers unknown tools and bad arguments.
func (r *Registry) Invoke(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	log.Printf("tool invoked: %s", name)

	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		metrics.ToolInvocations.WithLabelValues("unknown", metrics.OutcomeInvalid).Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	result, err := tool.invoke(ctx, raw)
	if err != nil {
		metrics.ToolInvocations.WithLabelValues(name, metrics.OutcomeInvalid).Inc()
		return nil, err
	}
	metrics.ToolInvocations.WithLabelValues(name, outcomeOf(result)).Inc()
	return result, nil
}

// An empty body is treated as an empty argument object.
func decodeArguments(raw json.RawMessage, out any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

func outcomeOf(result any) string {
	switch r := result.(type) {
	case models.BalanceResult:
		return metrics.ResultOutcome(r.ErrorMessage)
	case models.PaymentResult:
		return metrics.ResultOutcome(r.ErrorMessage)
	case models.BillResult:
		return metrics.ResultOutcome(r.ErrorMessage)
	default:
		return metrics.OutcomeOK
	}
}

// objectSchema builds a JSON-schema object with string-keyed properties.
func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func property(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

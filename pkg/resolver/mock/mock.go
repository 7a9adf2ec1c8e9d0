// Package mock provides a test double for the resolver.Invoker interface.
//
// Use Invoker in unit tests to script per-model outcomes and to verify which
// models were attempted in which order, without a live backend.
//
// Example:
//
//	inv := &mock.Invoker{
//	    Results: map[string]mock.Result{
//	        "flash": {Err: resolver.ErrModelUnavailable},
//	        "pro":   {Text: `{"ok": true}`},
//	    },
//	}
package mock

import (
	"context"
	"fmt"
	"sync"

	"metrovoice/pkg/resolver"
)

// Result scripts the outcome of invoking one model.
type Result struct {
	// Text is returned when Err is nil.
	Text string

	// Err, if non-nil, is returned instead of Text.
	Err error
}

// Call records a single invocation of Invoke.
type Call struct {
	// Model is the model identifier passed to Invoke.
	Model string

	// Prompt is the prompt passed to Invoke.
	Prompt resolver.Prompt
}

// Invoker is a mock implementation of resolver.Invoker. Models without an
// entry in Results fail with a generic error, so tests only script the
// models they care about.
type Invoker struct {
	mu sync.Mutex

	// Results maps a model identifier to its scripted outcome.
	Results map[string]Result

	// Calls records every invocation in order. Read after the test.
	Calls []Call
}

// Invoke records the call and returns the scripted result for model.
func (m *Invoker) Invoke(ctx context.Context, model string, p resolver.Prompt) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, Call{Model: model, Prompt: p})

	res, ok := m.Results[model]
	if !ok {
		return "", fmt.Errorf("mock: no scripted result for model %q", model)
	}
	return res.Text, res.Err
}

// Models returns the model identifiers attempted so far, in order.
func (m *Invoker) Models() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	for i, c := range m.Calls {
		out[i] = c.Model
	}
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (m *Invoker) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// Ensure Invoker implements resolver.Invoker at compile time.
var _ resolver.Invoker = (*Invoker)(nil)

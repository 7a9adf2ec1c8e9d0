// Package anyllm provides a resolver.Invoker backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// more. Use it when the model priority list targets a non-Gemini backend or a
// local inference server.
//
// The invoker is text-only: prompts carrying an inline image payload are
// rejected with an error so the resolver falls through rather than silently
// dropping the image.
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"metrovoice/pkg/resolver"
)

// Invoker implements resolver.Invoker by wrapping an any-llm-go provider.
// The backend is fixed at construction; the model is selected per call.
type Invoker struct {
	backend anyllmlib.Provider
	name    string
}

// Compile-time interface assertion.
var _ resolver.Invoker = (*Invoker)(nil)

// New creates an Invoker for the given backend name: one of "openai",
// "anthropic", "gemini", "ollama", "mistral", "groq".
//
// opts are any-llm-go configuration options (e.g. anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). Without an API key option the backend falls back to
// its conventional environment variable.
func New(backendName string, opts ...anyllmlib.Option) (*Invoker, error) {
	backend, err := createBackend(backendName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", backendName, err)
	}
	return &Invoker{backend: backend, name: backendName}, nil
}

func createBackend(name string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(name) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported backend %q; supported: openai, anthropic, gemini, ollama, mistral, groq", name)
	}
}

// Invoke sends the prompt to the named model on the configured backend and
// returns the raw text of the first choice.
func (i *Invoker) Invoke(ctx context.Context, model string, p resolver.Prompt) (string, error) {
	if len(p.ImageData) > 0 {
		return "", fmt.Errorf("anyllm: backend %q does not accept inline image payloads", i.name)
	}

	resp, err := i.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model: model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleUser, Content: p.Text},
		},
	})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("anyllm: model %q: %w: %v", model, resolver.ErrModelUnavailable, err)
		}
		return "", fmt.Errorf("anyllm: model %q: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: model %q returned no choices", model)
	}

	text := resp.Choices[0].Message.ContentString()
	if text == "" {
		return "", fmt.Errorf("anyllm: model %q returned an empty response", model)
	}
	return text, nil
}

// isNotFound reports whether err looks like a missing-model failure. any-llm
// normalises backend errors to text, so classification is string-based.
func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "404") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "model_not_found")
}

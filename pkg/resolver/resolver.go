// Package resolver implements the model-fallback resolution mechanism: given
// an ordered list of model identifiers and a prompt, try each model in turn
// and return the first response that decodes as JSON.
//
// Models are always attempted strictly sequentially, never in parallel, and a
// model is never retried. Sequential dispatch is an ordering guarantee: the
// first model in priority order that produces a parseable response always
// wins, and no call is ever billed after a success. Failures — whether the
// model is unavailable or the call errored for any other reason — cause
// fallthrough to the next model in the list.
//
// A Resolver never returns an error to its caller. Total resolution failure
// is reported as a "no result" value; user-facing messaging is the caller's
// responsibility.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// ErrModelUnavailable signals that the requested model does not exist or is
// not enrolled for the configured credential. Invokers wrap not-found style
// backend failures with this sentinel so the resolver can log them apart from
// auth, network, or malformed-content errors. Both classes fall through to
// the next model.
var ErrModelUnavailable = errors.New("resolver: model unavailable")

// Prompt is a single request to a generative model. ImageData, when set,
// carries an inline binary payload for image analysis; invokers that cannot
// handle images must return an error rather than silently dropping the
// payload.
type Prompt struct {
	Text      string
	ImageData []byte
	ImageMIME string
}

// Invoker dispatches one prompt to one named model and returns the raw text
// response. Implementations must be safe for concurrent use and must
// propagate context cancellation.
type Invoker interface {
	Invoke(ctx context.Context, model string, p Prompt) (string, error)
}

// Observer receives resolution outcomes for metrics recording. All methods
// may be called from any goroutine.
type Observer interface {
	// Attempt records one model invocation. status is one of "ok",
	// "unavailable", "error", or "invalid_json".
	Attempt(model, status string)

	// Resolved records a finished resolution. elapsed covers all attempts.
	Resolved(ok bool, elapsed time.Duration)
}

// Option is a functional option for configuring a Resolver.
type Option func(*Resolver)

// WithObserver attaches an Observer that receives per-attempt and
// per-resolution outcomes.
func WithObserver(o Observer) Option {
	return func(r *Resolver) { r.obs = o }
}

// Resolver tries an ordered list of models until one produces valid JSON.
// Safe for concurrent use; the Resolver itself holds no mutable state.
type Resolver struct {
	invoker Invoker
	obs     Observer
}

// New constructs a Resolver backed by the given invoker.
func New(invoker Invoker, opts ...Option) *Resolver {
	r := &Resolver{invoker: invoker}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve invokes each model in order with the prompt and returns the first
// response that decodes as JSON, with common Markdown code-fence wrapping
// stripped first. As soon as one model succeeds, no further models are tried.
//
// The second return value reports whether a result was obtained. When every
// model fails — or models is empty, or ctx is cancelled — Resolve returns
// (nil, false).
func (r *Resolver) Resolve(ctx context.Context, models []string, p Prompt) (json.RawMessage, bool) {
	start := time.Now()
	for _, model := range models {
		if ctx.Err() != nil {
			slog.Debug("resolver: context cancelled, abandoning resolution", "model", model)
			break
		}

		text, err := r.invoker.Invoke(ctx, model, p)
		if err != nil {
			if errors.Is(err, ErrModelUnavailable) {
				r.observe(model, "unavailable")
				slog.Debug("resolver: model unavailable, trying next", "model", model, "err", err)
			} else {
				r.observe(model, "error")
				slog.Warn("resolver: model call failed, trying next", "model", model, "err", err)
			}
			continue
		}

		raw, ok := ExtractJSON(text)
		if !ok {
			r.observe(model, "invalid_json")
			slog.Warn("resolver: response is not valid JSON, trying next", "model", model)
			continue
		}

		r.observe(model, "ok")
		if r.obs != nil {
			r.obs.Resolved(true, time.Since(start))
		}
		slog.Info("resolver: resolved", "model", model)
		return raw, true
	}

	if r.obs != nil {
		r.obs.Resolved(false, time.Since(start))
	}
	slog.Info("resolver: all models exhausted without a result", "models", len(models))
	return nil, false
}

func (r *Resolver) observe(model, status string) {
	if r.obs != nil {
		r.obs.Attempt(model, status)
	}
}

// ExtractJSON strips common Markdown code-fence wrapping from text and
// returns the content as raw JSON if it decodes. When the fenceless text
// still does not decode, a final pass extracts the outermost brace-delimited
// object, which covers models that wrap JSON in prose.
func ExtractJSON(text string) (json.RawMessage, bool) {
	candidate := StripFences(text)
	if json.Valid([]byte(candidate)) {
		return json.RawMessage(candidate), true
	}

	// Last resort: outermost object.
	open := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if open >= 0 && end > open {
		obj := candidate[open : end+1]
		if json.Valid([]byte(obj)) {
			return json.RawMessage(obj), true
		}
	}
	return nil, false
}

// StripFences removes a leading and trailing triple-backtick fence, with an
// optional language tag after the opening fence. Text without fences is
// returned trimmed but otherwise unchanged.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the language tag, e.g. "json", up to the first newline.
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		first := strings.TrimSpace(s[:nl])
		if first != "" && !strings.ContainsAny(first, "{}[]") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Package vision describes camera scenes for riders who cannot read signage:
// "which platform is this", "what does that board say". It follows the same
// ordered-fallthrough pattern as the JSON resolver but with no structured
// contract — the first model to return any text wins.
package vision

import (
	"context"
	"errors"
	"log/slog"

	"metrovoice/pkg/resolver"
)

// DegradedMessage is returned when no provider is configured. The caller can
// show it verbatim; it must never be narrated as if it were a real scene
// description.
const DegradedMessage = "Scene description is not available right now. Please ask station staff for help."

// DefaultPrompt is used when the caller supplies no instruction of its own.
const DefaultPrompt = "Describe this metro station scene for a rider with reading difficulty. Use simple words and short sentences. Read any signs out loud."

// Describer answers scene description requests. Safe for concurrent use.
type Describer struct {
	invoker resolver.Invoker
	models  []string
}

// New constructs a Describer. invoker may be nil when no credential is
// configured; Describe then returns DegradedMessage for every request.
func New(invoker resolver.Invoker, models []string) *Describer {
	return &Describer{invoker: invoker, models: models}
}

// Describe analyses the image and returns a plain-text description. Models
// are tried in order; the first non-empty response wins. When every model
// fails, the degraded message is returned with ok=false so the caller can
// distinguish a real description from the canned apology.
func (d *Describer) Describe(ctx context.Context, image []byte, mime, prompt string) (string, bool) {
	if d.invoker == nil || len(d.models) == 0 {
		slog.Debug("vision: no provider configured")
		return DegradedMessage, false
	}
	if prompt == "" {
		prompt = DefaultPrompt
	}

	p := resolver.Prompt{Text: prompt, ImageData: image, ImageMIME: mime}
	for _, model := range d.models {
		if ctx.Err() != nil {
			break
		}
		text, err := d.invoker.Invoke(ctx, model, p)
		if err != nil {
			if errors.Is(err, resolver.ErrModelUnavailable) {
				slog.Debug("vision: model unavailable, trying next", "model", model)
			} else {
				slog.Warn("vision: model call failed, trying next", "model", model, "err", err)
			}
			continue
		}
		if text != "" {
			return text, true
		}
	}
	return DegradedMessage, false
}

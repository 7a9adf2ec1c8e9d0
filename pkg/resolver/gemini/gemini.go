// Package gemini provides a resolver.Invoker backed by the Google Gemini API
// via google.golang.org/genai. It is the default invoker: the shipped model
// priority lists are Gemini model identifiers, and it is the only invoker
// that accepts inline image payloads for scene analysis.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"metrovoice/pkg/resolver"
)

// Invoker implements resolver.Invoker using a shared genai client. The model
// is selected per call, so one Invoker serves every entry of a model
// priority list.
type Invoker struct {
	client *genai.Client
}

// Compile-time interface assertion.
var _ resolver.Invoker = (*Invoker)(nil)

// New constructs an Invoker. apiKey must be non-empty; absence of a
// credential is handled one level up by not constructing an invoker at all.
func New(ctx context.Context, apiKey string) (*Invoker, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: apiKey must not be empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Invoker{client: client}, nil
}

// Invoke sends the prompt to the named Gemini model and returns the raw text
// response. Not-found style failures are wrapped with
// resolver.ErrModelUnavailable so the resolver can fall through quietly.
func (i *Invoker) Invoke(ctx context.Context, model string, p resolver.Prompt) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(p.Text)}
	if len(p.ImageData) > 0 {
		mime := p.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, genai.NewPartFromBytes(p.ImageData, mime))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := i.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("gemini: model %q: %w: %v", model, resolver.ErrModelUnavailable, err)
		}
		return "", fmt.Errorf("gemini: model %q: %w", model, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: model %q returned an empty response", model)
	}
	return text, nil
}

// isNotFound reports whether err indicates the model does not exist or is not
// enrolled for this credential.
func isNotFound(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "404") || strings.Contains(msg, "not found")
}

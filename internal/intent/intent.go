// Package intent extracts a (start, destination) station pair from a
// free-form speech transcript.
//
// Extraction is voice-assisted when a provider is configured: a constrained
// prompt embeds the verbatim transcript and the canonical station names, and
// the model may only answer with matched canonical names or null per slot.
// When no provider is configured or every model fails, Parse returns nil and
// callers fall back to direct substring matching against the station
// directory via FallbackMatch.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"metrovoice/internal/catalog"
	"metrovoice/pkg/resolver"
)

// Match is a partial extraction result. Either slot may be empty when the
// transcript did not name that endpoint.
type Match struct {
	Start       string `json:"start"`
	Destination string `json:"destination"`
}

// Parser performs voice-assisted slot filling over the station directory.
// Safe for concurrent use.
type Parser struct {
	resolver *resolver.Resolver
	models   []string
	stations *catalog.Stations
}

// New constructs a Parser. res may be nil; Parse then always returns nil and
// callers rely on FallbackMatch. The model list is typically shorter than the
// route planner's — slot filling needs one fast model, not a deep chain.
func New(res *resolver.Resolver, models []string, stations *catalog.Stations) *Parser {
	return &Parser{resolver: res, models: models, stations: stations}
}

// Parse extracts station slots from transcript via the model fallback chain.
// Returns nil on any failure to obtain or decode a result; the caller is
// expected to fall back to FallbackMatch.
func (p *Parser) Parse(ctx context.Context, transcript string) *Match {
	if p.resolver == nil || len(p.models) == 0 {
		slog.Debug("intent: no provider configured, skipping voice-assisted parsing")
		return nil
	}

	raw, ok := p.resolver.Resolve(ctx, p.models, resolver.Prompt{Text: p.buildPrompt(transcript)})
	if !ok {
		return nil
	}

	var m Match
	if err := json.Unmarshal(raw, &m); err != nil {
		slog.Warn("intent: response does not match the slot contract", "err", err)
		return nil
	}
	// Models occasionally echo the literal string "null" for an empty slot.
	if strings.EqualFold(m.Start, "null") {
		m.Start = ""
	}
	if strings.EqualFold(m.Destination, "null") {
		m.Destination = ""
	}
	if m.Start == "" && m.Destination == "" {
		return nil
	}
	return &m
}

func (p *Parser) buildPrompt(transcript string) string {
	return fmt.Sprintf(`You are a Metro Assistant.
User said: "%s"
Stations: %s

Return JSON ONLY:
{
    "start": "Matched Station Name" or null,
    "destination": "Matched Station Name" or null
}`, transcript, strings.Join(p.stations.Names(), ", "))
}

// destinationCue splits a transcript at phrases that introduce a destination
// ("to", "take me to", "towards"), so "from Central to Park Street" fills
// both slots.
var destinationCue = regexp.MustCompile(`(?i)\b(?:to|towards|toward)\b`)

// FallbackMatch fills slots by direct fuzzy matching against the station
// directory. The transcript is split at the first destination cue; the part
// before it matches the start slot, the part after it the destination slot.
// A transcript without a cue matches the destination only — "Riverside
// please" means the rider wants to go there.
func (p *Parser) FallbackMatch(transcript string) Match {
	var m Match

	loc := destinationCue.FindStringIndex(transcript)
	if loc == nil {
		if st, ok := p.stations.FindByFuzzyText(transcript); ok {
			m.Destination = st.Name
		}
		return m
	}

	before := transcript[:loc[0]]
	after := transcript[loc[1]:]

	if st, ok := p.stations.FindByFuzzyText(before); ok {
		m.Start = st.Name
	}
	if st, ok := p.stations.FindByFuzzyText(after); ok {
		m.Destination = st.Name
	}
	return m
}

// Resolve combines both strategies: voice-assisted parsing first, substring
// fallback when the parser yields nothing.
func (p *Parser) Resolve(ctx context.Context, transcript string) Match {
	if m := p.Parse(ctx, transcript); m != nil {
		return *m
	}
	return p.FallbackMatch(transcript)
}

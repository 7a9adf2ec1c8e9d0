// Package plan defines the navigation plan contract shared between the route
// planner, the static catalog, and the narrator.
//
// A NavigationPlan carries both the legacy flat fields (steps, audio_script,
// visual_icons) and the preferred smart_steps list. The JSON tags match the
// wire schema produced by the AI providers exactly; plans decoded from a
// provider response and plans loaded from the catalog are interchangeable.
//
// Plans are immutable once constructed. Nothing in this package mutates a
// plan after it has been returned to a caller.
package plan

import (
	"fmt"
	"strings"
)

// LineColor is one of the metro line colors a plan may reference.
type LineColor string

const (
	LineBlue   LineColor = "Blue"
	LineRed    LineColor = "Red"
	LineGreen  LineColor = "Green"
	LineYellow LineColor = "Yellow"
	LinePurple LineColor = "Purple"
)

// IsValid reports whether c is a recognised line color.
func (c LineColor) IsValid() bool {
	switch c {
	case LineBlue, LineRed, LineGreen, LineYellow, LinePurple:
		return true
	}
	return false
}

// StepType classifies a NavigationStep within a journey.
type StepType string

const (
	StepEntry    StepType = "entry"
	StepTicket   StepType = "ticket"
	StepPlatform StepType = "platform"
	StepBoard    StepType = "board"
	StepRide     StepType = "ride"
	StepTransfer StepType = "transfer"
	StepExit     StepType = "exit"
)

// IsValid reports whether t is a recognised step type.
func (t StepType) IsValid() bool {
	switch t {
	case StepEntry, StepTicket, StepPlatform, StepBoard, StepRide, StepTransfer, StepExit:
		return true
	}
	return false
}

// RouteRequest identifies the endpoints of a journey. Both fields must be
// non-empty; whether start and destination are distinct is a caller-level
// concern and is not enforced here.
type RouteRequest struct {
	StartStation       string `json:"start_station"`
	DestinationStation string `json:"destination_station"`
}

// Validate checks that both stations are present.
func (r RouteRequest) Validate() error {
	if strings.TrimSpace(r.StartStation) == "" {
		return fmt.Errorf("plan: start_station must not be empty")
	}
	if strings.TrimSpace(r.DestinationStation) == "" {
		return fmt.Errorf("plan: destination_station must not be empty")
	}
	return nil
}

// StepMetadata holds optional per-step details surfaced to the rider.
type StepMetadata struct {
	Platform   string `json:"platform,omitempty" yaml:"platform,omitempty"`
	Gate       string `json:"gate,omitempty" yaml:"gate,omitempty"`
	Cost       string `json:"cost,omitempty" yaml:"cost,omitempty"`
	TicketType string `json:"ticket_type,omitempty" yaml:"ticket_type,omitempty"`
	Landmark   string `json:"landmark,omitempty" yaml:"landmark,omitempty"`
}

// NavigationStep is one unit of a journey: a short display instruction paired
// with the full spoken text the narrator reads aloud.
type NavigationStep struct {
	// ID is unique within a plan, starting at 1.
	ID int `json:"id" yaml:"id"`

	// Type classifies the step (entry, ticket, platform, board, ride,
	// transfer, exit).
	Type StepType `json:"type" yaml:"type"`

	// Instruction is the short display text, e.g. "Go to Platform 2".
	Instruction string `json:"instruction" yaml:"instruction"`

	// AudioText is the full spoken text. Required and non-empty.
	AudioText string `json:"audio_text" yaml:"audio_text"`

	// VisualCue names a physical object to look for, e.g. "Blue Pillars".
	VisualCue string `json:"visual_cue,omitempty" yaml:"visual_cue,omitempty"`

	// Icon is a short display symbol.
	Icon string `json:"icon" yaml:"icon"`

	// Metadata carries optional platform/gate/cost/ticket/landmark details.
	Metadata *StepMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NavigationPlan is the full structured route and narration contract for one
// request. Step order is the narration and display order and is preserved
// exactly as received.
type NavigationPlan struct {
	LineColor          LineColor `json:"line_color" yaml:"line_color"`
	StartStation       string    `json:"start_station" yaml:"start_station"`
	DestinationStation string    `json:"destination_station" yaml:"destination_station"`
	TotalStops         int       `json:"total_stops" yaml:"total_stops"`
	TransferRequired   bool      `json:"transfer_required" yaml:"transfer_required"`

	// Steps, AudioScript and VisualIcons are the legacy flat fields. They are
	// always present in provider output and in catalog entries.
	Steps       []string `json:"steps" yaml:"steps"`
	AudioScript []string `json:"audio_script" yaml:"audio_script"`
	VisualIcons []string `json:"visual_icons" yaml:"visual_icons"`

	ConfidenceMessage string `json:"confidence_message" yaml:"confidence_message"`

	// AIInsight is an optional visible tip generated alongside the route.
	AIInsight string `json:"ai_insight,omitempty" yaml:"ai_insight,omitempty"`

	// SmartSteps is the preferred step representation. May be empty, in which
	// case the legacy fields are canonical.
	SmartSteps []NavigationStep `json:"smart_steps" yaml:"smart_steps"`
}

// StepCount returns the canonical number of steps: len(SmartSteps) when
// smart steps are present, else len(Steps).
func (p *NavigationPlan) StepCount() int {
	if len(p.SmartSteps) > 0 {
		return len(p.SmartSteps)
	}
	return len(p.Steps)
}

// Segments returns the ordered narration segments for this plan: the
// audio_text of each smart step when smart steps are present, else the legacy
// audio script, else the display steps. The returned slice is a copy.
func (p *NavigationPlan) Segments() []string {
	switch {
	case len(p.SmartSteps) > 0:
		out := make([]string, len(p.SmartSteps))
		for i, s := range p.SmartSteps {
			out[i] = s.AudioText
		}
		return out
	case len(p.AudioScript) > 0:
		out := make([]string, len(p.AudioScript))
		copy(out, p.AudioScript)
		return out
	default:
		out := make([]string, len(p.Steps))
		copy(out, p.Steps)
		return out
	}
}

// Validate checks the structural rules a plan must satisfy before it may be
// handed to the narrator: a recognised line color, both station names, a
// non-negative stop count, and at least one non-empty step list. Smart steps,
// when present, must each carry a positive ID, a valid type and non-empty
// audio text, with IDs unique within the plan.
func (p *NavigationPlan) Validate() error {
	if !p.LineColor.IsValid() {
		return fmt.Errorf("plan: line_color %q is invalid", p.LineColor)
	}
	if strings.TrimSpace(p.StartStation) == "" {
		return fmt.Errorf("plan: start_station must not be empty")
	}
	if strings.TrimSpace(p.DestinationStation) == "" {
		return fmt.Errorf("plan: destination_station must not be empty")
	}
	if p.TotalStops < 0 {
		return fmt.Errorf("plan: total_stops must not be negative, got %d", p.TotalStops)
	}
	if len(p.Steps) == 0 && len(p.SmartSteps) == 0 {
		return fmt.Errorf("plan: at least one of steps or smart_steps must be non-empty")
	}

	seen := make(map[int]struct{}, len(p.SmartSteps))
	for i, s := range p.SmartSteps {
		if s.ID < 1 {
			return fmt.Errorf("plan: smart_steps[%d]: id must be >= 1, got %d", i, s.ID)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("plan: smart_steps[%d]: duplicate id %d", i, s.ID)
		}
		seen[s.ID] = struct{}{}
		if !s.Type.IsValid() {
			return fmt.Errorf("plan: smart_steps[%d]: type %q is invalid", i, s.Type)
		}
		if strings.TrimSpace(s.AudioText) == "" {
			return fmt.Errorf("plan: smart_steps[%d]: audio_text must not be empty", i)
		}
	}
	return nil
}

// RouteKey builds the normalized catalog key for a start/destination pair:
// lower-cased, whitespace-stripped names joined by a dash. The key is
// direction-sensitive — RouteKey(a, b) and RouteKey(b, a) differ.
func RouteKey(start, destination string) string {
	return normalize(start) + "-" + normalize(destination)
}

// Key returns the catalog key for this request.
func (r RouteRequest) Key() string {
	return RouteKey(r.StartStation, r.DestinationStation)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

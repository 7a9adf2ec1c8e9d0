package catalog

import (
	"context"

	"metrovoice/pkg/plan"
)

// RouteSource looks up a precomputed navigation plan by its normalized route
// key (see plan.RouteKey). Implementations must be safe for concurrent use.
//
// A missing entry is not an error: Lookup returns (nil, nil) when no plan
// exists for the key.
type RouteSource interface {
	Lookup(ctx context.Context, key string) (*plan.NavigationPlan, error)
}

// StaticSource is a RouteSource over an in-memory map. It backs the shipped
// demo plans and test fixtures.
type StaticSource struct {
	routes map[string]plan.NavigationPlan
}

// Compile-time interface assertion.
var _ RouteSource = (*StaticSource)(nil)

// NewStaticSource builds a StaticSource from the given plans, keyed by
// each plan's own start/destination pair.
func NewStaticSource(plans []plan.NavigationPlan) *StaticSource {
	routes := make(map[string]plan.NavigationPlan, len(plans))
	for _, p := range plans {
		routes[plan.RouteKey(p.StartStation, p.DestinationStation)] = p
	}
	return &StaticSource{routes: routes}
}

// Lookup returns a copy of the plan for key, or (nil, nil) when absent.
func (s *StaticSource) Lookup(_ context.Context, key string) (*plan.NavigationPlan, error) {
	p, ok := s.routes[key]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Len returns the number of stored plans.
func (s *StaticSource) Len() int {
	return len(s.routes)
}

// DefaultRoutes returns the shipped demo plans: the fallback of last resort
// when no provider produces a route.
func DefaultRoutes() *StaticSource {
	return NewStaticSource(demoPlans())
}

func demoPlans() []plan.NavigationPlan {
	return []plan.NavigationPlan{
		{
			LineColor:          plan.LineBlue,
			StartStation:       "Central",
			DestinationStation: "Park Street",
			TotalStops:         5,
			TransferRequired:   false,
			Steps: []string{
				"Go to the Blue Line platform",
				"Stay on the train for five stops",
				"Get down at Park Street",
			},
			AudioScript: []string{
				"Start at Central Station.",
				"Take the Blue Line towards Park Street.",
				"It is 5 stops away.",
				"You will arrive in about 15 minutes.",
			},
			VisualIcons:       []string{"🚉", "➡️", "🏁"},
			ConfidenceMessage: "Route verified by Metro AI",
			AIInsight:         "✨ Tip: This is a direct line. The 3rd car usually has more empty seats!",
			SmartSteps: []plan.NavigationStep{
				{
					ID: 1, Type: plan.StepEntry, Icon: "🚉",
					Instruction: "Enter Central Station",
					AudioText:   "You are at Central Station. Enter through Gate 3.",
					Metadata:    &plan.StepMetadata{Gate: "3"},
				},
				{
					ID: 2, Type: plan.StepTicket, Icon: "🎟️",
					Instruction: "Buy Single Ticket",
					AudioText:   "Go to the machine. Buy a Single Journey Ticket. It costs 2 dollars.",
					VisualCue:   "Blue Ticket Machine",
					Metadata:    &plan.StepMetadata{Cost: "$2", TicketType: "Single Journey"},
				},
				{
					ID: 3, Type: plan.StepPlatform, Icon: "⬇️",
					Instruction: "Go to Platform 1",
					AudioText:   "Go down to Platform 1. Follow the Blue Line signs.",
					Metadata:    &plan.StepMetadata{Platform: "1"},
				},
				{
					ID: 4, Type: plan.StepBoard, Icon: "🚆",
					Instruction: "Board Blue Line",
					AudioText:   "The train is arriving. Board the Blue Line towards Airport.",
					VisualCue:   "Blue Train",
				},
				{
					ID: 5, Type: plan.StepRide, Icon: "⏱️",
					Instruction: "Ride 5 stops",
					AudioText:   "Relax. Stay on for 5 stops. I will tell you when to get off.",
				},
				{
					ID: 6, Type: plan.StepExit, Icon: "🏁",
					Instruction: "Exit at Park Street",
					AudioText:   "You have arrived at Park Street. Exit on the left side.",
					Metadata:    &plan.StepMetadata{Landmark: "City Mall 🛍️"},
				},
			},
		},
		{
			LineColor:          plan.LinePurple,
			StartStation:       "Central",
			DestinationStation: "Riverside",
			TotalStops:         8,
			TransferRequired:   true,
			Steps: []string{
				"Take Blue Line to Junction Station",
				"Transfer to Purple Line",
				"Take Purple Line to Riverside",
			},
			AudioScript: []string{
				"Take the Blue Line to Junction Station.",
				"Get off and transfer to the Purple Line.",
				"Ride 3 more stops to Riverside.",
			},
			VisualIcons:       []string{"🚆", "chk_transfer", "🏁"},
			ConfidenceMessage: "Route verified with 1 transfer",
			AIInsight:         "✨ Insight: This transfer at Junction Station has elevators near the front of the train.",
			SmartSteps: []plan.NavigationStep{
				{
					ID: 1, Type: plan.StepEntry, Icon: "🚉",
					Instruction: "Enter Central Station",
					AudioText:   "Enter Central Station through the main gate.",
				},
				{
					ID: 2, Type: plan.StepBoard, Icon: "🚆",
					Instruction: "Board Blue Line",
					AudioText:   "Board the Blue Line towards Junction Station.",
				},
				{
					ID: 3, Type: plan.StepTransfer, Icon: "🔁",
					Instruction: "Transfer at Junction",
					AudioText:   "Get off at Junction Station. Follow the Purple Line signs to Platform 4.",
					VisualCue:   "Follow Purple Footsteps",
					Metadata:    &plan.StepMetadata{Platform: "4"},
				},
				{
					ID: 4, Type: plan.StepBoard, Icon: "🚆",
					Instruction: "Board Purple Line",
					AudioText:   "Board the Purple Line towards Riverside.",
				},
				{
					ID: 5, Type: plan.StepExit, Icon: "🏁",
					Instruction: "Exit at Riverside",
					AudioText:   "You are at Riverside. Exit the station.",
				},
			},
		},
		{
			LineColor:          plan.LineGreen,
			StartStation:       "Downtown",
			DestinationStation: "Airport",
			TotalStops:         12,
			TransferRequired:   false,
			Steps:              []string{"Board Green Line", "Go to Airport"},
			AudioScript:        []string{"Take the Green Line directly to the Airport."},
			VisualIcons:        []string{"✈️"},
			ConfidenceMessage:  "Direct airport shuttle.",
		},
	}
}

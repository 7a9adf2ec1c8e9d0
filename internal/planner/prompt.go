package planner

import (
	"fmt"

	"metrovoice/pkg/plan"
)

// buildRoutePrompt renders the route request into the generation prompt. The
// instructions pin down reading-level constraints (simple words, short
// sentences, spelled-out numbers) and the exact JSON schema of the plan
// contract, with the legacy fields mandatory and smart_steps optional.
func buildRoutePrompt(req plan.RouteRequest) string {
	return fmt.Sprintf(`You are a helpful metro route assistant designed for riders with reading difficulty. Provide SIMPLE, CLEAR route guidance.

START STATION: %[1]s
DESTINATION STATION: %[2]s

IMPORTANT RULES:
1. Use SIMPLE words (avoid complex terms)
2. Use SHORT sentences
3. Use NUMBERS as words (e.g., "five stops" not "5 stops")
4. Be ENCOURAGING and REASSURING
5. Break down into CLEAR steps

Respond ONLY with valid JSON in this EXACT format:
{
  "line_color": "Blue",
  "start_station": "%[1]s",
  "destination_station": "%[2]s",
  "total_stops": 5,
  "transfer_required": false,
  "steps": [
    "Go to the Blue Line platform",
    "Stay on the train for five stops",
    "Get down at the destination"
  ],
  "audio_script": [
    "You are on the Blue Line.",
    "Stay on the train for five stops.",
    "Get down at the destination."
  ],
  "visual_icons": ["🚉", "➡️", "🏁"],
  "confidence_message": "You are on the right route.",
  "ai_insight": "Helpful tip",
  "smart_steps": [
    {
      "id": 1,
      "type": "entry",
      "instruction": "Short text (max 5 words)",
      "audio_text": "Spoken instruction (simple, clear, reassuring)",
      "icon": "🚉",
      "visual_cue": "visual object to look for",
      "metadata": {"platform": "number", "gate": "number", "cost": "price", "ticket_type": "type", "landmark": "name"}
    }
  ]
}

smart_steps is optional but preferred: break the journey into SMALL steps in the order entry, ticket, platform, board, ride, exit (add transfer steps with the 🔁 icon when a transfer is needed). Keep language SIMPLE and CLEAR.`,
		req.StartStation, req.DestinationStation)
}

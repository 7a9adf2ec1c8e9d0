package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"metrovoice/internal/narrator"
	"metrovoice/internal/observe"
	"metrovoice/pkg/plan"
)

// NarratorFactory builds a fresh narrator for one journey session, attached
// to the given event channel. The app supplies a factory closing over the
// configured synthesis backend and narration settings.
type NarratorFactory func(events chan<- narrator.Event) *narrator.Narrator

// JourneyHub upgrades /ws/journey connections into journey sessions. Each
// connection owns its own narrator; the system is single-user, so sessions
// share nothing beyond the planner.
type JourneyHub struct {
	planner    Planner
	newNarrate NarratorFactory
	metrics    *observe.Metrics
}

// NewJourneyHub constructs a JourneyHub. metrics may be nil.
func NewJourneyHub(p Planner, f NarratorFactory, m *observe.Metrics) *JourneyHub {
	return &JourneyHub{planner: p, newNarrate: f, metrics: m}
}

// command is a playback instruction received from the client.
type command struct {
	// Action is one of load, play, pause, resume, replay, next, previous,
	// jump, rate, stop.
	Action string `json:"action"`

	// StartStation and DestinationStation accompany load.
	StartStation       string `json:"start_station,omitempty"`
	DestinationStation string `json:"destination_station,omitempty"`

	// Index accompanies jump, and optionally play as a start offset.
	Index int `json:"index,omitempty"`

	// Rate accompanies rate.
	Rate float64 `json:"rate,omitempty"`
}

// sessionEvent is a message pushed to the client.
type sessionEvent struct {
	// Type is one of plan, step, finished, status, error.
	Type string `json:"type"`

	Plan    *plan.NavigationPlan `json:"plan,omitempty"`
	Index   int                  `json:"index,omitempty"`
	Segment string               `json:"segment,omitempty"`
	Status  narrator.Status      `json:"status,omitempty"`
	Message string               `json:"message,omitempty"`
}

const writeTimeout = 5 * time.Second

// ServeWS runs one journey session over a websocket connection. The session
// ends when the client disconnects or the request context is cancelled; the
// narrator is stopped either way so no speech outlives its journey.
func (h *JourneyHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("journey websocket accept failed", "error", err)
		return
	}

	sessionID := uuid.NewString()
	log := slog.With("session_id", sessionID)
	log.Info("journey session opened", "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := make(chan narrator.Event, 16)
	n := h.newNarrate(events)
	defer n.Stop()

	if h.metrics != nil {
		h.metrics.ActiveJourneys.Add(ctx, 1)
		defer h.metrics.ActiveJourneys.Add(context.Background(), -1)
	}

	s := &journeySession{
		conn:    conn,
		narrate: n,
		hub:     h,
		log:     log,
	}

	go s.forwardEvents(ctx, events)
	s.readLoop(ctx)

	conn.Close(websocket.StatusNormalClosure, "session ended")
	log.Info("journey session closed")
}

// journeySession holds the per-connection state of one journey.
type journeySession struct {
	conn    *websocket.Conn
	narrate *narrator.Narrator
	hub     *JourneyHub
	log     *slog.Logger

	segments []string
}

// readLoop consumes client commands until the connection drops.
func (s *journeySession) readLoop(ctx context.Context) {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				s.log.Warn("journey read failed", "error", err)
			}
			return
		}
		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.send(ctx, sessionEvent{Type: "error", Message: "malformed command"})
			continue
		}
		s.handle(ctx, cmd)
	}
}

func (s *journeySession) handle(ctx context.Context, cmd command) {
	switch cmd.Action {
	case "load":
		s.load(ctx, cmd)
	case "play":
		if len(s.segments) == 0 {
			s.send(ctx, sessionEvent{Type: "error", Message: "no plan loaded"})
			return
		}
		s.narrate.Play(s.segments, cmd.Index)
	case "pause":
		s.narrate.Pause()
	case "resume":
		s.narrate.Resume()
	case "replay":
		s.narrate.Replay()
	case "next":
		s.narrate.Next()
	case "previous":
		s.narrate.Previous()
	case "jump":
		s.narrate.JumpTo(cmd.Index)
	case "rate":
		s.narrate.SetRate(cmd.Rate)
	case "stop":
		s.narrate.Stop()
	default:
		s.send(ctx, sessionEvent{Type: "error", Message: "unknown action: " + cmd.Action})
		return
	}
	s.send(ctx, sessionEvent{Type: "status", Status: s.narrate.State(), Index: s.narrate.Index()})
}

// load resolves a route and replaces the session plan. A narration already
// in flight is stopped first; the latest load always wins.
func (s *journeySession) load(ctx context.Context, cmd command) {
	req := plan.RouteRequest{StartStation: cmd.StartStation, DestinationStation: cmd.DestinationStation}
	if err := req.Validate(); err != nil {
		s.send(ctx, sessionEvent{Type: "error", Message: err.Error()})
		return
	}
	np, err := s.hub.planner.PlanRoute(ctx, req)
	if err != nil {
		s.log.Error("journey plan failed", "error", err)
		s.send(ctx, sessionEvent{Type: "error", Message: "route planning failed"})
		return
	}
	if np == nil {
		s.send(ctx, sessionEvent{Type: "error", Message: "no route found"})
		return
	}
	s.narrate.Stop()
	s.segments = np.Segments()
	s.send(ctx, sessionEvent{Type: "plan", Plan: np})
}

// forwardEvents relays narrator events to the client.
func (s *journeySession) forwardEvents(ctx context.Context, events <-chan narrator.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			switch ev.Kind {
			case narrator.EventStep:
				if s.hub.metrics != nil {
					s.hub.metrics.NarratedSegments.Add(ctx, 1)
				}
				s.send(ctx, sessionEvent{Type: "step", Index: ev.Index, Segment: ev.Segment})
			case narrator.EventFinished:
				s.send(ctx, sessionEvent{Type: "finished", Index: ev.Index})
			}
		}
	}
}

func (s *journeySession) send(ctx context.Context, ev sessionEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.Error("journey event marshal failed", "error", err)
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := s.conn.Write(wctx, websocket.MessageText, data); err != nil && ctx.Err() == nil {
		s.log.Warn("journey write failed", "error", err)
	}
}

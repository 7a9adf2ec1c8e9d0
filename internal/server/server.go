// Package server exposes the metrovoice core over HTTP: route planning,
// intent parsing, the station directory, scene description, and a websocket
// journey session that drives the narrator.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metrovoice/internal/catalog"
	"metrovoice/internal/health"
	"metrovoice/internal/intent"
	"metrovoice/pkg/plan"
)

// Planner plans a route for a request. Implemented by *planner.Planner;
// tests substitute a stub.
type Planner interface {
	PlanRoute(ctx context.Context, req plan.RouteRequest) (*plan.NavigationPlan, error)
}

// Describer analyses a scene image. Implemented by *vision.Describer.
type Describer interface {
	Describe(ctx context.Context, image []byte, mime, prompt string) (string, bool)
}

// Server holds the handler dependencies. Construct with New and mount the
// routes with Handler.
type Server struct {
	planner   Planner
	intents   *intent.Parser
	stations  *catalog.Stations
	describer Describer
	journeys  *JourneyHub
	healthH   *health.Handler
}

// New constructs a Server. journeys may be nil to disable the websocket
// endpoint; describer may be nil to disable scene description.
func New(p Planner, parser *intent.Parser, stations *catalog.Stations, describer Describer, journeys *JourneyHub, healthH *health.Handler) *Server {
	return &Server{
		planner:   p,
		intents:   parser,
		stations:  stations,
		describer: describer,
		journeys:  journeys,
		healthH:   healthH,
	}
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	if s.healthH != nil {
		s.healthH.Register(mux)
	}
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/stations", s.handleStations)
	mux.HandleFunc("POST /api/route", s.handleRoute)
	mux.HandleFunc("POST /api/intent", s.handleIntent)
	mux.HandleFunc("POST /api/vision", s.handleVision)
	if s.journeys != nil {
		mux.HandleFunc("GET /ws/journey", s.journeys.ServeWS)
	}
	return mux
}

// ─── handlers ────────────────────────────────────────────────────────────────

func (s *Server) handleStations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.stations.All())
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req plan.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.planner.PlanRoute(r.Context(), req)
	if err != nil {
		slog.Error("server: route planning failed", "err", err)
		writeError(w, http.StatusInternalServerError, "route planning failed")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "no route found for this journey")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// intentRequest is the body of POST /api/intent.
type intentRequest struct {
	Transcript string `json:"transcript"`
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Transcript == "" {
		writeError(w, http.StatusBadRequest, "transcript must not be empty")
		return
	}
	writeJSON(w, http.StatusOK, s.intents.Resolve(r.Context(), req.Transcript))
}

// visionRequest is the body of POST /api/vision.
type visionRequest struct {
	ImageBase64 string `json:"image_base64"`
	MIMEType    string `json:"mime_type"`
	Prompt      string `json:"prompt"`
}

// visionResponse is the reply of POST /api/vision. Degraded reports whether
// the description is the canned no-provider apology.
type visionResponse struct {
	Description string `json:"description"`
	Degraded    bool   `json:"degraded"`
}

func (s *Server) handleVision(w http.ResponseWriter, r *http.Request) {
	if s.describer == nil {
		writeError(w, http.StatusNotFound, "scene description is not enabled")
		return
	}
	var req visionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	img, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil || len(img) == 0 {
		writeError(w, http.StatusBadRequest, "image_base64 must be a non-empty base64 payload")
		return
	}

	desc, ok := s.describer.Describe(r.Context(), img, req.MIMEType, req.Prompt)
	writeJSON(w, http.StatusOK, visionResponse{Description: desc, Degraded: !ok})
}

// ─── helpers ─────────────────────────────────────────────────────────────────

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("server: encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

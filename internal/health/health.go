// Package health serves liveness and readiness probes for the navigation
// service.
//
//   - /healthz — liveness; a process that can serve HTTP is alive.
//   - /readyz  — readiness; fails when a required dependency (route catalog,
//     model provider) is unreachable. Optional dependencies such as the
//     speech backend only mark the response degraded: the app keeps working
//     without audio, so they must not take the service out of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds each dependency probe on a /readyz request.
const probeTimeout = 5 * time.Second

// Probe checks one dependency. It must respect context cancellation and
// return nil when the dependency is usable.
type Probe func(ctx context.Context) error

// Handler evaluates registered probes on demand. Register probes before
// mounting; the probe sets are fixed once requests start flowing.
type Handler struct {
	required map[string]Probe
	optional map[string]Probe
}

// New creates an empty Handler.
func New() *Handler {
	return &Handler{
		required: make(map[string]Probe),
		optional: make(map[string]Probe),
	}
}

// Require registers a probe whose failure makes /readyz return 503.
func (h *Handler) Require(name string, p Probe) *Handler {
	h.required[name] = p
	return h
}

// Optional registers a probe whose failure only degrades the response.
// Readiness stays 200 so orchestrators do not restart a service that is
// merely missing its audio backend.
func (h *Handler) Optional(name string, p Probe) *Handler {
	h.optional[name] = p
	return h
}

// report is the JSON body for both endpoints.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// Healthz always returns 200.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeReport(w, http.StatusOK, report{Status: statusOK})
}

// Readyz runs every probe. Required failures yield 503; optional failures
// keep 200 but flip the status to degraded.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := report{
		Status: statusOK,
		Checks: make(map[string]string, len(h.required)+len(h.optional)),
	}
	code := http.StatusOK

	for name, p := range h.required {
		if err := h.run(r.Context(), p); err != nil {
			rep.Checks[name] = "fail: " + err.Error()
			rep.Status = statusFail
			code = http.StatusServiceUnavailable
		} else {
			rep.Checks[name] = statusOK
		}
	}
	for name, p := range h.optional {
		if err := h.run(r.Context(), p); err != nil {
			rep.Checks[name] = "degraded: " + err.Error()
			if rep.Status == statusOK {
				rep.Status = statusDegraded
			}
		} else {
			rep.Checks[name] = statusOK
		}
	}

	writeReport(w, code, rep)
}

func (h *Handler) run(ctx context.Context, p Probe) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return p(ctx)
}

// Register mounts both endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeReport(w http.ResponseWriter, status int, rep report) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}

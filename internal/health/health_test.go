package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"metrovoice/internal/health"
)

func TestHealthzAlwaysOK(t *testing.T) {
	t.Parallel()

	h := health.New().Require("catalog", func(context.Context) error {
		return errors.New("down")
	})

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Healthz status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errors.New("unreachable") }

	tests := []struct {
		name       string
		setup      func(*health.Handler)
		wantCode   int
		wantStatus string
	}{
		{
			name:       "no probes",
			setup:      func(*health.Handler) {},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "required passing",
			setup: func(h *health.Handler) {
				h.Require("catalog", ok)
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "required failing",
			setup: func(h *health.Handler) {
				h.Require("catalog", ok).Require("database", fail)
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
		},
		{
			name: "optional failing stays ready",
			setup: func(h *health.Handler) {
				h.Require("catalog", ok).Optional("speech", fail)
			},
			wantCode:   http.StatusOK,
			wantStatus: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := health.New()
			tt.setup(h)

			rec := httptest.NewRecorder()
			h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("Readyz status = %d, want %d", rec.Code, tt.wantCode)
			}
			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Fatalf("status = %q, want %q", body.Status, tt.wantStatus)
			}
		})
	}
}

func TestRegisterMountsRoutes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	health.New().Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

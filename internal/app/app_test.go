package app_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"metrovoice/internal/app"
	"metrovoice/internal/config"
	resolvermock "metrovoice/pkg/resolver/mock"
	speechmock "metrovoice/pkg/speech/mock"
)

// testConfig returns a validated default config bound to an ephemeral port.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromReader(strings.NewReader("server:\n  listen_addr: \"127.0.0.1:0\"\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return cfg
}

func TestNew_CatalogOnly(t *testing.T) {
	t.Parallel()

	// No API key in the default config, so New must come up without a model
	// invoker and serve purely from the static catalog.
	application, err := app.New(context.Background(), testConfig(t),
		app.WithSynthesizer(speechmock.New()),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if application == nil {
		t.Fatal("New() returned nil app")
	}

	p, err := application.Plan(context.Background(), "Central", "Park Street")
	if err != nil {
		t.Fatalf("Plan() returned error: %v", err)
	}
	if p == nil {
		t.Fatal("Plan() returned nil for a catalog route")
	}
	if p.StartStation != "Central" || p.DestinationStation != "Park Street" {
		t.Errorf("plan stations = %q -> %q, want Central -> Park Street",
			p.StartStation, p.DestinationStation)
	}
}

func TestNew_WithInvoker(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	inv := &resolvermock.Invoker{} // every model errors, catalog answers

	application, err := app.New(context.Background(), cfg,
		app.WithInvoker(inv),
		app.WithSynthesizer(speechmock.New()),
	)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	p, err := application.Plan(context.Background(), "Central", "Park Street")
	if err != nil {
		t.Fatalf("Plan() returned error: %v", err)
	}
	if p == nil {
		t.Fatal("Plan() returned nil, want catalog fallback plan")
	}

	// The full model chain must have been attempted before falling back.
	if got, want := len(inv.Models()), len(cfg.Providers.RouteModels); got != want {
		t.Errorf("attempted %d models, want %d", got, want)
	}
}

func TestPlan_UnknownRoute(t *testing.T) {
	t.Parallel()

	application, err := app.New(context.Background(), testConfig(t),
		app.WithSynthesizer(speechmock.New()),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	p, err := application.Plan(context.Background(), "Nowhere", "Elsewhere")
	if err != nil {
		t.Fatalf("Plan() returned error: %v", err)
	}
	if p != nil {
		t.Errorf("Plan() = %v, want nil for unknown route", p)
	}
}

func TestPlan_InvalidRequest(t *testing.T) {
	t.Parallel()

	application, err := app.New(context.Background(), testConfig(t),
		app.WithSynthesizer(speechmock.New()),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if _, err := application.Plan(context.Background(), "", "Park Street"); err == nil {
		t.Fatal("Plan() with empty start expected error, got nil")
	}
}

func TestNarrate_UnavailableBackend(t *testing.T) {
	t.Parallel()

	syn := &speechmock.Synthesizer{Unavailable: true}
	application, err := app.New(context.Background(), testConfig(t),
		app.WithSynthesizer(syn),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	p, err := application.Plan(context.Background(), "Central", "Park Street")
	if err != nil || p == nil {
		t.Fatalf("Plan() = (%v, %v), want plan", p, err)
	}
	if err := application.Narrate(context.Background(), p); err == nil {
		t.Fatal("Narrate() with unavailable backend expected error, got nil")
	}
}

func TestApp_Shutdown(t *testing.T) {
	t.Parallel()

	syn := speechmock.New()
	application, err := app.New(context.Background(), testConfig(t),
		app.WithSynthesizer(syn),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
	if syn.CancelCount != 1 {
		t.Errorf("CancelAll call count = %d, want 1", syn.CancelCount)
	}

	// Shutdown is idempotent.
	if err := application.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown() error: %v", err)
	}
	if syn.CancelCount != 1 {
		t.Errorf("CancelAll call count after repeat = %d, want 1", syn.CancelCount)
	}
}

func TestApp_RunAndShutdown(t *testing.T) {
	t.Parallel()

	application, err := app.New(context.Background(), testConfig(t),
		app.WithSynthesizer(speechmock.New()),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(ctx)
	}()

	// Give the listener a moment to bind.
	time.Sleep(50 * time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within 5s after context cancellation")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
}

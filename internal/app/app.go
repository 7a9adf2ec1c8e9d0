// Package app wires all metrovoice subsystems into a running service.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems from config, Run serves HTTP until the context is cancelled,
// and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithInvoker,
// WithRouteSource, WithSynthesizer). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"metrovoice/internal/catalog"
	"metrovoice/internal/config"
	"metrovoice/internal/health"
	"metrovoice/internal/intent"
	"metrovoice/internal/narrator"
	"metrovoice/internal/observe"
	"metrovoice/internal/planner"
	"metrovoice/internal/server"
	"metrovoice/internal/vision"
	"metrovoice/pkg/plan"
	"metrovoice/pkg/resolver"
	"metrovoice/pkg/resolver/anyllm"
	"metrovoice/pkg/resolver/gemini"
	"metrovoice/pkg/speech"
	"metrovoice/pkg/speech/console"
	"metrovoice/pkg/speech/coqui"
	speechmock "metrovoice/pkg/speech/mock"
)

// shutdownGrace bounds how long an HTTP drain may take during Shutdown.
const shutdownGrace = 10 * time.Second

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	invoker  resolver.Invoker
	routes   catalog.RouteSource
	stations *catalog.Stations
	synth    speech.Synthesizer
	metrics  *observe.Metrics

	planner *planner.Planner
	intents *intent.Parser
	scenes  *vision.Describer

	srv  *http.Server
	pool *pgxpool.Pool

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithInvoker injects a model invoker instead of creating one from config.
func WithInvoker(inv resolver.Invoker) Option {
	return func(a *App) { a.invoker = inv }
}

// WithRouteSource injects a fallback catalog instead of creating one from config.
func WithRouteSource(src catalog.RouteSource) Option {
	return func(a *App) { a.routes = src }
}

// WithSynthesizer injects a speech backend instead of creating one from config.
func WithSynthesizer(syn speech.Synthesizer) Option {
	return func(a *App) { a.synth = syn }
}

// WithMetrics injects an instrument set. Without it the app runs unmetered.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. Initialisation is
// synchronous: invoker construction, catalog connection, narrator backend
// probing, and HTTP route assembly all happen here.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if err := a.initInvoker(ctx); err != nil {
		return nil, fmt.Errorf("app: init invoker: %w", err)
	}
	if err := a.initCatalog(ctx); err != nil {
		return nil, fmt.Errorf("app: init catalog: %w", err)
	}
	if err := a.initSpeech(); err != nil {
		return nil, fmt.Errorf("app: init speech: %w", err)
	}

	a.stations = catalog.DefaultStations()

	var res *resolver.Resolver
	if a.invoker != nil {
		var ropts []resolver.Option
		if a.metrics != nil {
			ropts = append(ropts, resolver.WithObserver(observe.ResolverObserver{M: a.metrics}))
		}
		res = resolver.New(a.invoker, ropts...)
	}

	var popts []planner.Option
	if a.metrics != nil {
		popts = append(popts, planner.WithMetrics(a.metrics))
	}
	a.planner = planner.New(res, cfg.Providers.RouteModels, a.routes, popts...)
	a.intents = intent.New(res, cfg.Providers.IntentModels, a.stations)
	a.scenes = vision.New(a.invoker, cfg.Providers.VisionModels)

	a.srv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           a.buildHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return a, nil
}

// initInvoker creates the configured model invoker. An empty API key leaves
// the invoker nil so every plan falls straight through to the catalog.
func (a *App) initInvoker(ctx context.Context) error {
	if a.invoker != nil {
		return nil
	}
	if a.cfg.Providers.APIKey == "" {
		slog.Info("no provider credential, running catalog-only")
		return nil
	}

	switch a.cfg.Providers.Backend {
	case config.BackendGemini:
		inv, err := gemini.New(ctx, a.cfg.Providers.APIKey)
		if err != nil {
			return err
		}
		a.invoker = inv

	case config.BackendAnyLLM:
		opts := []anyllmlib.Option{anyllmlib.WithAPIKey(a.cfg.Providers.APIKey)}
		if a.cfg.Providers.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(a.cfg.Providers.BaseURL))
		}
		inv, err := anyllm.New(a.cfg.Providers.AnyLLMBackend, opts...)
		if err != nil {
			return err
		}
		a.invoker = inv

	default:
		return fmt.Errorf("unknown provider backend %q", a.cfg.Providers.Backend)
	}

	slog.Info("model invoker ready",
		"backend", a.cfg.Providers.Backend,
		"route_models", len(a.cfg.Providers.RouteModels))
	return nil
}

// initCatalog creates the fallback route catalog.
func (a *App) initCatalog(ctx context.Context) error {
	if a.routes != nil {
		return nil
	}

	switch a.cfg.Catalog.Source {
	case config.CatalogStatic:
		a.routes = catalog.DefaultRoutes()

	case config.CatalogFile:
		src, err := catalog.NewFileSource(a.cfg.Catalog.Path)
		if err != nil {
			return fmt.Errorf("load routes file %q: %w", a.cfg.Catalog.Path, err)
		}
		a.routes = src
		slog.Info("loaded route catalog", "path", a.cfg.Catalog.Path)

	case config.CatalogPostgres:
		pool, err := pgxpool.New(ctx, a.cfg.Catalog.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		src := catalog.NewPostgresSource(pool)
		if err := src.Migrate(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("migrate route schema: %w", err)
		}
		a.pool = pool
		a.routes = src
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})

	default:
		return fmt.Errorf("unknown catalog source %q", a.cfg.Catalog.Source)
	}
	return nil
}

// initSpeech creates the narration backend.
func (a *App) initSpeech() error {
	if a.synth != nil {
		return nil
	}

	switch a.cfg.Narration.Backend {
	case config.NarrationConsole:
		a.synth = console.New(os.Stdout)

	case config.NarrationCoqui:
		cq := a.cfg.Narration.Coqui
		opts := []coqui.Option{coqui.WithLanguage(cq.Language)}
		if cq.Speaker != "" {
			opts = append(opts, coqui.WithSpeaker(cq.Speaker))
		}
		if cq.APIMode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(cq.APIMode)))
		}
		// Synthesized WAV audio is discarded server-side; the journey
		// session streams segment text and clients render audio locally.
		syn, err := coqui.New(cq.BaseURL, io.Discard, opts...)
		if err != nil {
			return err
		}
		a.synth = syn

	case config.NarrationNone:
		a.synth = &speechmock.Synthesizer{Unavailable: true}

	default:
		return fmt.Errorf("unknown narration backend %q", a.cfg.Narration.Backend)
	}
	return nil
}

// buildHandler assembles the health probes, journey hub, and HTTP routes.
func (a *App) buildHandler() http.Handler {
	probes := health.New()
	probes.Require("catalog", func(ctx context.Context) error {
		// A miss is fine; the probe only cares that lookups work at all.
		_, err := a.routes.Lookup(ctx, "central-parkstreet")
		return err
	})
	probes.Optional("provider", func(context.Context) error {
		if a.invoker == nil {
			return errors.New("no model provider configured")
		}
		return nil
	})
	probes.Optional("speech", func(context.Context) error {
		if !a.synth.Available() {
			return errors.New("speech backend unavailable")
		}
		return nil
	})

	gap := time.Duration(a.cfg.Narration.SegmentGapMS) * time.Millisecond
	journeys := server.NewJourneyHub(a.planner, func(events chan<- narrator.Event) *narrator.Narrator {
		return narrator.New(a.synth,
			narrator.WithRate(a.cfg.Narration.Rate),
			narrator.WithSegmentGap(gap),
			narrator.WithEvents(events),
		)
	}, a.metrics)

	return server.New(a.planner, a.intents, a.stations, a.scenes, journeys, probes).Handler()
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("listening", "addr", a.srv.Addr)
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return a.srv.Shutdown(drainCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Plan resolves a single route outside the HTTP server, for one-shot CLI use.
func (a *App) Plan(ctx context.Context, start, dest string) (*plan.NavigationPlan, error) {
	req := plan.RouteRequest{StartStation: start, DestinationStation: dest}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return a.planner.PlanRoute(ctx, req)
}

// Narrate speaks a plan's segments through the configured backend and blocks
// until the sequence finishes or ctx is cancelled.
func (a *App) Narrate(ctx context.Context, np *plan.NavigationPlan) error {
	if !a.synth.Available() {
		return errors.New("speech backend unavailable")
	}

	events := make(chan narrator.Event, 16)
	n := narrator.New(a.synth,
		narrator.WithRate(a.cfg.Narration.Rate),
		narrator.WithSegmentGap(time.Duration(a.cfg.Narration.SegmentGapMS)*time.Millisecond),
		narrator.WithEvents(events),
	)
	defer n.Stop()

	n.Play(np.Segments(), 0)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if ev.Kind == narrator.EventFinished {
				return nil
			}
		}
	}
}

// Shutdown stops any in-flight speech and tears down subsystems in order.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		a.synth.CancelAll()

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
	})
	return shutdownErr
}

// Package planner resolves a route request into a navigation plan: first
// through the model-fallback resolver, then — when no model produces a
// structurally valid plan — through the static route catalog.
//
// Resolution failure never surfaces as an error to the caller. A request
// that cannot be planned yields (nil, nil); user-facing messaging is the
// delivery layer's concern.
package planner

import (
	"context"
	"encoding/json"
	"log/slog"

	"metrovoice/internal/catalog"
	"metrovoice/internal/observe"
	"metrovoice/pkg/plan"
	"metrovoice/pkg/resolver"
)

// Option is a functional option for configuring a Planner.
type Option func(*Planner)

// WithMetrics attaches metric instruments; the planner records catalog
// fallbacks into them.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Planner) { p.metrics = m }
}

// Planner builds route plans. Safe for concurrent use; every call is
// independent and nothing is persisted between calls.
type Planner struct {
	resolver *resolver.Resolver
	models   []string
	fallback catalog.RouteSource
	metrics  *observe.Metrics
}

// New constructs a Planner.
//
// res may be nil when no provider credential is configured; the planner then
// skips remote resolution entirely and serves from fallback only. models is
// the ordered priority list handed to the resolver on every request —
// configuration, not hard-coded logic.
func New(res *resolver.Resolver, models []string, fallback catalog.RouteSource, opts ...Option) *Planner {
	p := &Planner{resolver: res, models: models, fallback: fallback}
	for _, o := range opts {
		o(p)
	}
	return p
}

// PlanRoute resolves req into a plan.
//
// When a provider is configured, each model in the priority list is tried in
// order; the first response that parses as JSON and passes structural
// validation wins. Otherwise — or when every model fails — the route catalog
// is consulted under the normalized route key. (nil, nil) means no plan
// could be produced; a non-nil error is only returned for catalog I/O
// failures.
func (p *Planner) PlanRoute(ctx context.Context, req plan.RouteRequest) (*plan.NavigationPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if resolved := p.resolve(ctx, req); resolved != nil {
		return resolved, nil
	}

	key := req.Key()
	entry, err := p.fallback.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		slog.Info("planner: no plan available", "key", key)
		return nil, nil
	}
	if p.metrics != nil {
		p.metrics.CatalogFallbacks.Add(ctx, 1)
	}
	slog.Info("planner: served from catalog", "key", key)
	return entry, nil
}

// resolve runs the model fallback chain and returns the first structurally
// valid plan, or nil.
func (p *Planner) resolve(ctx context.Context, req plan.RouteRequest) *plan.NavigationPlan {
	if p.resolver == nil || len(p.models) == 0 {
		slog.Debug("planner: no provider configured, skipping remote resolution")
		return nil
	}

	raw, ok := p.resolver.Resolve(ctx, p.models, resolver.Prompt{Text: buildRoutePrompt(req)})
	if !ok {
		return nil
	}

	var np plan.NavigationPlan
	if err := json.Unmarshal(raw, &np); err != nil {
		slog.Warn("planner: response does not match the plan contract", "err", err)
		return nil
	}
	if err := np.Validate(); err != nil {
		slog.Warn("planner: resolved plan failed validation", "err", err)
		return nil
	}
	return &np
}

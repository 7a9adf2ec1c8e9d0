package catalog_test

import (
	"context"
	"testing"

	"metrovoice/internal/catalog"
	"metrovoice/pkg/plan"
)

func TestDefaultRoutes_BlueLine(t *testing.T) {
	t.Parallel()

	src := catalog.DefaultRoutes()

	p, err := src.Lookup(context.Background(), plan.RouteKey("Central", "Park Street"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p == nil {
		t.Fatal("Lookup returned nil plan for the shipped Blue Line route")
	}
	if p.LineColor != plan.LineBlue {
		t.Errorf("LineColor = %q, want Blue", p.LineColor)
	}
	if p.TotalStops != 5 {
		t.Errorf("TotalStops = %d, want 5", p.TotalStops)
	}
	if len(p.SmartSteps) != 6 {
		t.Errorf("len(SmartSteps) = %d, want 6", len(p.SmartSteps))
	}
	if p.TransferRequired {
		t.Error("TransferRequired = true, want false")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("shipped plan fails validation: %v", err)
	}
}

func TestDefaultRoutes_TransferPlan(t *testing.T) {
	t.Parallel()

	src := catalog.DefaultRoutes()

	p, err := src.Lookup(context.Background(), plan.RouteKey("Central", "Riverside"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p == nil {
		t.Fatal("Lookup returned nil plan for the transfer route")
	}
	if !p.TransferRequired {
		t.Error("TransferRequired = false, want true")
	}

	var hasTransferStep bool
	for _, s := range p.SmartSteps {
		if s.Type == plan.StepTransfer {
			hasTransferStep = true
		}
	}
	if !hasTransferStep {
		t.Error("transfer plan has no transfer step")
	}
}

func TestDefaultRoutes_LegacyOnlyPlan(t *testing.T) {
	t.Parallel()

	src := catalog.DefaultRoutes()

	// The Green Line airport shuttle ships without smart steps; narration
	// falls back to the audio script.
	p, err := src.Lookup(context.Background(), plan.RouteKey("Downtown", "Airport"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p == nil {
		t.Fatal("Lookup returned nil plan for the Green Line route")
	}
	if p.TotalStops != 12 {
		t.Errorf("TotalStops = %d, want 12", p.TotalStops)
	}
	if len(p.SmartSteps) != 0 {
		t.Fatalf("len(SmartSteps) = %d, want 0", len(p.SmartSteps))
	}
	segs := p.Segments()
	if len(segs) != 1 || segs[0] != "Take the Green Line directly to the Airport." {
		t.Errorf("Segments() = %v, want the audio script", segs)
	}
}

func TestStaticSource_DirectionSensitive(t *testing.T) {
	t.Parallel()

	src := catalog.DefaultRoutes()

	// The catalog only ships Central -> Park Street; the return trip misses.
	p, err := src.Lookup(context.Background(), plan.RouteKey("Park Street", "Central"))
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p != nil {
		t.Errorf("reverse lookup = %+v, want nil (miss)", p)
	}
}

func TestStaticSource_MissIsNotAnError(t *testing.T) {
	t.Parallel()

	src := catalog.NewStaticSource(nil)

	p, err := src.Lookup(context.Background(), "nowhere-nada")
	if err != nil {
		t.Fatalf("Lookup on empty source: %v", err)
	}
	if p != nil {
		t.Errorf("Lookup on empty source = %+v, want nil", p)
	}
	if src.Len() != 0 {
		t.Errorf("Len() = %d, want 0", src.Len())
	}
}

func TestStaticSource_LookupReturnsCopy(t *testing.T) {
	t.Parallel()

	src := catalog.DefaultRoutes()
	key := plan.RouteKey("Central", "Park Street")

	first, _ := src.Lookup(context.Background(), key)
	first.StartStation = "Mutated"

	second, _ := src.Lookup(context.Background(), key)
	if second.StartStation != "Central" {
		t.Error("Lookup aliases stored plan, want a copy per call")
	}
}

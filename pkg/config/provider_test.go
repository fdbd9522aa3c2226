package config

import (
	"context"
	"testing"
	"time"

	"locbridge/pkg/model"
	"locbridge/pkg/store"
)

func TestUnifiedProvider(t *testing.T) {
	ctx := context.Background()
	base := DefaultConfig()
	base.Location.Timeout = Duration(8 * time.Second)
	base.Location.DistanceFilter = 20

	st := store.NewMemoryStore()
	p := NewProvider(base, st)

	t.Run("Defaults_And_Fallbacks", func(t *testing.T) {
		if got := p.Timeout(ctx); got != 8*time.Second {
			t.Errorf("expected 8s, got %v", got)
		}
		if got := p.DistanceFilter(ctx); got != 20 {
			t.Errorf("expected 20, got %v", got)
		}
		if !p.HighAccuracy(ctx) {
			t.Error("expected high accuracy default true")
		}
		if p.CoordType(ctx) != "gcj02" {
			t.Errorf("unexpected coord type %q", p.CoordType(ctx))
		}
	})

	t.Run("Store_Overrides", func(t *testing.T) {
		_ = st.SetState(ctx, KeyTimeout, "2s")
		_ = st.SetState(ctx, KeyDistanceFilter, "5.5")
		_ = st.SetState(ctx, KeyHighAccuracy, "false")

		if got := p.Timeout(ctx); got != 2*time.Second {
			t.Errorf("expected 2s, got %v", got)
		}
		if got := p.DistanceFilter(ctx); got != 5.5 {
			t.Errorf("expected 5.5, got %v", got)
		}
		if p.HighAccuracy(ctx) {
			t.Error("expected high accuracy override false")
		}
	})

	t.Run("Invalid_Values_Fall_Back", func(t *testing.T) {
		_ = st.SetState(ctx, KeyInterval, "soon")
		if got := p.Interval(ctx); got != 10*time.Second {
			t.Errorf("expected fallback 10s, got %v", got)
		}
	})

	t.Run("RequestDefaults", func(t *testing.T) {
		o := model.ResolveOptions(p.RequestDefaults(ctx)...)
		if o.Timeout != 2*time.Second || o.DistanceFilter != 5.5 || o.EnableHighAccuracy {
			t.Errorf("unexpected resolved defaults %+v", o)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		if err := p.ResetSettings(ctx); err != nil {
			t.Fatal(err)
		}
		if got := p.Timeout(ctx); got != 8*time.Second {
			t.Errorf("expected base timeout after reset, got %v", got)
		}
	})

	t.Run("SetBase", func(t *testing.T) {
		next := DefaultConfig()
		next.Location.Timeout = Duration(4 * time.Second)
		p.SetBase(next)
		if got := p.Timeout(ctx); got != 4*time.Second {
			t.Errorf("expected 4s from new base, got %v", got)
		}
	})
}

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()
	p := NewProvider(DefaultConfig(), store.NewMemoryStore())

	ms := func(v int64) *int64 { return &v }
	f := func(v float64) *float64 { return &v }
	b := func(v bool) *bool { return &v }

	err := p.UpdateSettings(ctx, model.RequestOptions{
		Timeout:            ms(2500),
		Interval:           ms(3000),
		DistanceFilter:     f(12),
		EnableHighAccuracy: b(false),
	})
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	s := p.Settings(ctx)
	if s.Timeout != 2500*time.Millisecond || s.Interval != 3*time.Second || s.DistanceFilter != 12 || s.HighAccuracy {
		t.Errorf("unexpected settings %+v", s)
	}

	invalid := []model.RequestOptions{
		{Timeout: ms(0)},
		{MaximumAge: ms(-1)},
		{Interval: ms(-5)},
		{DistanceFilter: f(-1)},
	}
	for _, o := range invalid {
		if err := p.UpdateSettings(ctx, o); err == nil {
			t.Errorf("expected error for %+v", o)
		}
	}

	readOnly := NewProvider(DefaultConfig(), nil)
	if err := readOnly.UpdateSettings(ctx, model.RequestOptions{Timeout: ms(1)}); err == nil {
		t.Error("expected error without store")
	}
}

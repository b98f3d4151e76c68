package fencestore

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammed-shakir/geofence-helper/internal/core/observability"
)

func TestParseCache_HitReturnsIndependentCopy(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.Init(reg, true)

	pc := NewParseCache(8)
	raw := `["[A]","1,2","3,4"]`

	first, err := pc.Parse("F", TypePolygon, raw)
	if err != nil {
		t.Fatal(err)
	}
	first[0].Polygon[0].Lat = 99

	second, err := pc.Parse("F", TypePolygon, raw)
	if err != nil {
		t.Fatal(err)
	}
	if second[0].Polygon[0].Lat != 1 {
		t.Fatalf("cached polygon was mutated through a previous result: %v", second[0].Polygon)
	}
	if pc.Len() != 1 {
		t.Fatalf("len=%d want 1", pc.Len())
	}

	count, err := testutil.GatherAndCount(reg, "fence_parse_cache_total")
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected hit and miss series, got %d", count)
	}
}

func TestParseCache_KeyIncludesFenceName(t *testing.T) {
	pc := NewParseCache(8)
	raw := `["1,2","3,4"]`

	a, _ := pc.Parse("Alpha", TypePolygon, raw)
	b, _ := pc.Parse("Beta", TypePolygon, raw)
	if a[0].Name != "Alpha" || b[0].Name != "Beta" {
		t.Fatalf("headerless area names leaked across fences: %q %q", a[0].Name, b[0].Name)
	}
}

func TestParseCache_NilAndErrors(t *testing.T) {
	var pc *ParseCache
	if NewParseCache(0) != nil {
		t.Fatal("size 0 should disable the cache")
	}
	if _, err := pc.Parse("F", TypePolygon, `["[A]","1,2"]`); err != nil {
		t.Fatalf("nil cache parse: %v", err)
	}

	pc = NewParseCache(4)
	if _, err := pc.Parse("F", TypePolygon, `["[A]","bad"]`); err == nil {
		t.Fatal("expected parse error")
	}
	if pc.Len() != 0 {
		t.Fatal("errors must not be cached")
	}
}

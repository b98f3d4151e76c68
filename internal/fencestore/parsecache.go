package fencestore

import (
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/geofence-helper/internal/cache/keys"
	"github.com/mohammed-shakir/geofence-helper/internal/core/observability"
)

// ParseCache memoizes ParseFenceData by content digest. Stored fence rows are
// re-read on every request; only the parse of unchanged text is reused.
// A nil *ParseCache parses every time.
type ParseCache struct {
	lru *lru.Cache[uint64, []Area]
}

func NewParseCache(size int) *ParseCache {
	if size <= 0 {
		return nil
	}
	c, _ := lru.New[uint64, []Area](size)
	return &ParseCache{lru: c}
}

func (c *ParseCache) Parse(fenceName, fenceType, raw string) ([]Area, error) {
	if c == nil {
		return ParseFenceData(fenceName, fenceType, raw)
	}
	key := keys.ParseDigest(fenceName, fenceType, raw)
	if areas, ok := c.lru.Get(key); ok {
		observability.IncParseCache("hit")
		return cloneAreas(areas), nil
	}
	observability.IncParseCache("miss")

	areas, err := ParseFenceData(fenceName, fenceType, raw)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, cloneAreas(areas))
	return areas, nil
}

func (c *ParseCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func cloneAreas(in []Area) []Area {
	out := make([]Area, len(in))
	for i, a := range in {
		out[i] = Area{Name: a.Name, Polygon: slices.Clone(a.Polygon)}
	}
	return out
}

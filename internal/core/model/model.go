// Package model defines core domain types shared across the service.
package model

import "strconv"

type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// shortest round-trip decimal, "1" rather than "1.0"
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Polygon is an implicitly closed ring; the first vertex is not repeated.
type Polygon []Coordinate

// FenceSet maps fence names to polygons and remembers insertion order.
// The zero value is an empty, usable set.
type FenceSet struct {
	names []string
	polys map[string]Polygon
}

func NewFenceSet() *FenceSet {
	return &FenceSet{polys: map[string]Polygon{}}
}

// Add inserts name unless already present; reports whether it was added.
func (s *FenceSet) Add(name string, p Polygon) bool {
	if s.polys == nil {
		s.polys = map[string]Polygon{}
	}
	if _, ok := s.polys[name]; ok {
		return false
	}
	s.names = append(s.names, name)
	s.polys[name] = p
	return true
}

func (s *FenceSet) Get(name string) (Polygon, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.polys[name]
	return p, ok
}

func (s *FenceSet) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Names returns fence names in insertion order.
func (s *FenceSet) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *FenceSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Selection is a set of fence names picked by the caller.
type Selection map[string]struct{}

func NewSelection(names ...string) Selection {
	sel := make(Selection, len(names))
	for _, n := range names {
		sel[n] = struct{}{}
	}
	return sel
}

func (s Selection) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

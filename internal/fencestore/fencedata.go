package fencestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/geofence-helper/internal/core/model"
)

var ErrMalformedFence = errors.New("malformed fence data")

const (
	TypePolygon = "polygon"
	TypeGeoJSON = "geojson"
)

// Area is one simple polygon inside a stored fence.
type Area struct {
	Name    string
	Polygon model.Polygon
}

// ParseFenceData decodes the fence_data column. Polygon fences are a list of
// lines where "[Name]" opens an area and "lat,lon" appends a vertex; GeoJSON
// fences hold a FeatureCollection, Feature or bare geometry. Areas without
// vertices are dropped.
func ParseFenceData(fenceName, fenceType, raw string) ([]Area, error) {
	switch strings.ToLower(strings.TrimSpace(fenceType)) {
	case "", TypePolygon:
		lines, err := parseListLiteral(raw)
		if err != nil {
			return nil, err
		}
		return parseLines(fenceName, lines)
	case TypeGeoJSON:
		return parseGeoJSON(fenceName, raw)
	default:
		return nil, fmt.Errorf("%w: unsupported fence type %q", ErrMalformedFence, fenceType)
	}
}

func parseLines(fenceName string, lines []string) ([]Area, error) {
	var areas []Area
	cur := -1
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			areas = append(areas, Area{Name: strings.TrimSpace(line[1 : len(line)-1])})
			cur = len(areas) - 1
			continue
		}
		c, err := parseCoordinate(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedFence, i+1, err)
		}
		if cur < 0 {
			areas = append(areas, Area{Name: fenceName})
			cur = 0
		}
		areas[cur].Polygon = append(areas[cur].Polygon, c)
	}
	return dropEmpty(areas), nil
}

func parseCoordinate(line string) (model.Coordinate, error) {
	lat, lon, ok := strings.Cut(line, ",")
	if !ok {
		return model.Coordinate{}, fmt.Errorf("expected lat,lon: %q", line)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("lat: %w", err)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("lon: %w", err)
	}
	return model.Coordinate{Lat: la, Lon: lo}, nil
}

// parseListLiteral accepts a JSON array of strings, the same list written with
// single quotes, or plain newline separated text.
func parseListLiteral(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") || !strings.ContainsAny(raw, `"'`) {
		return strings.Split(raw, "\n"), nil
	}

	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, nil
	}

	body := raw[1 : len(raw)-1]
	for i := 0; i < len(body); {
		switch ch := body[i]; {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == ',':
			i++
		case ch == '\'' || ch == '"':
			s, n, err := readQuoted(body[i:], ch)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
			i += n
		default:
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", ErrMalformedFence, ch, i+1)
		}
	}
	return out, nil
}

// reads a quoted string starting at s[0]; returns the value and bytes consumed
func readQuoted(s string, quote byte) (string, int, error) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("%w: dangling escape", ErrMalformedFence)
			}
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[i])
			}
		case quote:
			return b.String(), i + 1, nil
		default:
			b.WriteByte(s[i])
		}
	}
	return "", 0, fmt.Errorf("%w: unterminated string", ErrMalformedFence)
}

func parseGeoJSON(fenceName, raw string) ([]Area, error) {
	data := []byte(strings.TrimSpace(raw))
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFence, err)
	}

	var features []*geojson.Feature
	switch probe.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFence, err)
		}
		features = fc.Features
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFence, err)
		}
		features = []*geojson.Feature{f}
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFence, err)
		}
		features = []*geojson.Feature{geojson.NewFeature(g.Geometry())}
	}

	// Part names are relative to the fence; addAreas adds the fence prefix.
	var areas []Area
	for i, f := range features {
		base := f.Properties.MustString("name", "")
		if base == "" && len(features) > 1 {
			base = strconv.Itoa(i + 1)
		}
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			areas = append(areas, Area{Name: base, Polygon: outerRing(g)})
		case orb.MultiPolygon:
			for j, p := range g {
				name := base
				switch {
				case len(g) == 1:
				case name == "":
					name = strconv.Itoa(j + 1)
				default:
					name = fmt.Sprintf("%s_%d", base, j+1)
				}
				areas = append(areas, Area{Name: name, Polygon: outerRing(p)})
			}
		default:
			return nil, fmt.Errorf("%w: feature %d has unsupported geometry %T", ErrMalformedFence, i+1, f.Geometry)
		}
	}
	areas = dropEmpty(areas)
	if len(areas) == 1 && areas[0].Name == "" {
		areas[0].Name = fenceName
	}
	return areas, nil
}

// outer ring only, closing vertex removed, positions flipped to lat/lon
func outerRing(p orb.Polygon) model.Polygon {
	if len(p) == 0 {
		return nil
	}
	ring := p[0]
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	out := make(model.Polygon, 0, len(ring))
	for _, pt := range ring {
		out = append(out, model.Coordinate{Lat: pt.Lat(), Lon: pt.Lon()})
	}
	return out
}

func dropEmpty(areas []Area) []Area {
	out := areas[:0]
	for _, a := range areas {
		if len(a.Polygon) > 0 {
			out = append(out, a)
		}
	}
	return out
}

// ReservedNames are results-view query parameters; a fence with one of these
// names could never be selected, so it is left out of the set.
var ReservedNames = []string{"mode", "type"}

// addAreas splits a stored fence into set entries: a single area keeps its
// own name, several areas become "{fence}_{area}". First name wins. Entries
// named after a reserved parameter are skipped and returned.
func addAreas(set *model.FenceSet, fenceName string, areas []Area) (skipped []string) {
	for _, a := range areas {
		name := a.Name
		if len(areas) > 1 {
			name = fenceName + "_" + a.Name
		}
		if slices.Contains(ReservedNames, name) {
			skipped = append(skipped, name)
			continue
		}
		set.Add(name, a.Polygon)
	}
	return skipped
}

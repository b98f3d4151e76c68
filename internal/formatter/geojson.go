package formatter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mohammed-shakir/geofence-helper/internal/core/model"
)

// field order mirrors what downstream tools have always received
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string            `json:"type"`
	Properties featureProperties `json:"properties"`
	Geometry   polygonGeometry   `json:"geometry"`
}

type featureProperties struct {
	Name string `json:"name"`
}

type polygonGeometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

type poracleElem struct {
	Name string       `json:"name"`
	Path [][2]float64 `json:"path"`
}

// GeoJSON positions are [lon, lat]
func newFeature(name string, p model.Polygon) (feature, error) {
	if len(p) == 0 {
		return feature{}, fmt.Errorf("fence %q: %w", name, ErrEmptyPolygon)
	}
	ring := make([][2]float64, 0, len(p))
	for _, c := range p {
		ring = append(ring, [2]float64{c.Lon, c.Lat})
	}
	return feature{
		Type:       "Feature",
		Properties: featureProperties{Name: name},
		Geometry: polygonGeometry{
			Type:        "Polygon",
			Coordinates: [][][2]float64{ring},
		},
	}, nil
}

func newFeatureCollection(features ...feature) featureCollection {
	if features == nil {
		features = []feature{}
	}
	return featureCollection{Type: "FeatureCollection", Features: features}
}

// poracle paths keep [lat, lon]
func newPoracleElem(name string, p model.Polygon) (poracleElem, error) {
	if len(p) == 0 {
		return poracleElem{}, fmt.Errorf("fence %q: %w", name, ErrEmptyPolygon)
	}
	path := make([][2]float64, 0, len(p))
	for _, c := range p {
		path = append(path, [2]float64{c.Lat, c.Lon})
	}
	return poracleElem{Name: name, Path: path}, nil
}

func geoJSONPerFence(fences []namedPolygon, style Style) (string, error) {
	var b strings.Builder
	for _, f := range fences {
		ft, err := newFeature(f.name, f.poly)
		if err != nil {
			return "", err
		}
		s, err := jsonRender(newFeatureCollection(ft), style)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func geoJSONMerged(fences []namedPolygon, style Style) (string, error) {
	features := make([]feature, 0, len(fences))
	for _, f := range fences {
		ft, err := newFeature(f.name, f.poly)
		if err != nil {
			return "", err
		}
		features = append(features, ft)
	}
	return jsonRender(newFeatureCollection(features...), style)
}

func poraclePerFence(fences []namedPolygon, style Style) (string, error) {
	var b strings.Builder
	for _, f := range fences {
		el, err := newPoracleElem(f.name, f.poly)
		if err != nil {
			return "", err
		}
		s, err := jsonRender(el, style)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func poracleMerged(fences []namedPolygon, style Style) (string, error) {
	elems := make([]poracleElem, 0, len(fences))
	for _, f := range fences {
		el, err := newPoracleElem(f.name, f.poly)
		if err != nil {
			return "", err
		}
		elems = append(elems, el)
	}
	return jsonRender(elems, style)
}

const indentUnit = "    "

// jsonRender indents with four spaces. PrettyPrint and Copy swap the indent
// for &emsp; or a tab and the newlines for <br /> so a browser keeps the shape.
func jsonRender(v any, style Style) (string, error) {
	raw, err := json.MarshalIndent(v, "", indentUnit)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	out := string(raw)
	switch style {
	case PrettyPrint:
		out = strings.ReplaceAll(out, indentUnit, "&emsp;")
		return strings.ReplaceAll(out, "\n", htmlBreak) + htmlBreak, nil
	case Copy:
		out = strings.ReplaceAll(out, indentUnit, "\t")
		return strings.ReplaceAll(out, "\n", htmlBreak) + htmlBreak, nil
	default:
		return out, nil
	}
}

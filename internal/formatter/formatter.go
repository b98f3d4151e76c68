// Package formatter turns named fence polygons into the text formats consumed
// by map frontends, alerting bots and SQL seed scripts.
package formatter

import (
	"fmt"
	"html"
	"slices"
	"strings"

	"github.com/mohammed-shakir/geofence-helper/internal/core/model"
)

const htmlBreak = "<br />"

type namedPolygon struct {
	name string
	poly model.Polygon
}

// Format renders the selected fences in mode. Output follows the iteration
// order of fences, not the order of the selection. Nothing is returned on error.
func Format(mode Mode, sel model.Selection, fences *model.FenceSet, style Style) (string, error) {
	if !mode.Valid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
	switch style {
	case Script, PrettyPrint, Copy:
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidStyle, style)
	}

	picked, err := selectFences(sel, fences)
	if err != nil {
		return "", err
	}

	switch mode {
	case SQLPolygon:
		return sqlPolygons(picked)
	case PMSF:
		return pmsf(picked, style, false)
	case PMSFArray:
		return pmsf(picked, style, true)
	case PokeAlarm:
		return pokeAlarm(picked, style), nil
	case GeoJSON:
		return geoJSONPerFence(picked, style)
	case GeoJSONMerged:
		return geoJSONMerged(picked, style)
	case Poracle:
		return poraclePerFence(picked, style)
	case PoracleMerged:
		return poracleMerged(picked, style)
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidMode, mode)
}

func selectFences(sel model.Selection, fences *model.FenceSet) ([]namedPolygon, error) {
	var missing []string
	for name := range sel {
		if !fences.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("%w: %s", ErrUnknownFence, strings.Join(missing, ", "))
	}

	out := make([]namedPolygon, 0, len(sel))
	for _, name := range fences.Names() {
		if !sel.Contains(name) {
			continue
		}
		p, _ := fences.Get(name)
		out = append(out, namedPolygon{name: name, poly: p})
	}
	return out, nil
}

func lineBreak(style Style) string {
	if style == Script {
		return "\n"
	}
	return htmlBreak
}

// displayName escapes names that end up in an HTML page (pp and copy).
func displayName(name string, style Style) string {
	if style == Script {
		return name
	}
	return html.EscapeString(name)
}

func sqlPolygons(fences []namedPolygon) (string, error) {
	var b strings.Builder
	for _, f := range fences {
		s, err := sqlPolygonString(f.poly)
		if err != nil {
			return "", fmt.Errorf("fence %q: %w", f.name, err)
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func pmsf(fences []namedPolygon, style Style, array bool) (string, error) {
	nl := lineBreak(style)
	var b strings.Builder
	for _, f := range fences {
		name := displayName(f.name, style)
		s, err := sqlPolygonString(f.poly)
		if err != nil {
			return "", fmt.Errorf("fence %q: %w", f.name, err)
		}
		if array {
			b.WriteString(`$fencearr["` + name + `"] = '`)
		} else {
			b.WriteString("$" + name + " = '")
		}
		b.WriteString(s)
		b.WriteString("';")
		b.WriteString(nl)
	}
	return b.String(), nil
}

// empty polygons yield a bare section header
func pokeAlarm(fences []namedPolygon, style Style) string {
	nl := lineBreak(style)
	var b strings.Builder
	for _, f := range fences {
		b.WriteString("[" + displayName(f.name, style) + "]" + nl)
		for _, c := range f.poly {
			b.WriteString(model.FormatFloat(c.Lat))
			b.WriteByte(',')
			b.WriteString(model.FormatFloat(c.Lon))
			b.WriteString(nl)
		}
	}
	return b.String()
}

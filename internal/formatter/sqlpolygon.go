package formatter

import (
	"strings"

	"github.com/mohammed-shakir/geofence-helper/internal/core/model"
)

// "lat lon," per vertex, closed by repeating the first vertex without a comma
func sqlPolygonString(p model.Polygon) (string, error) {
	if len(p) == 0 {
		return "", ErrEmptyPolygon
	}
	var b strings.Builder
	for _, c := range p {
		writePair(&b, c)
		b.WriteByte(',')
	}
	writePair(&b, p[0])
	return b.String(), nil
}

func writePair(b *strings.Builder, c model.Coordinate) {
	b.WriteString(model.FormatFloat(c.Lat))
	b.WriteByte(' ')
	b.WriteString(model.FormatFloat(c.Lon))
}

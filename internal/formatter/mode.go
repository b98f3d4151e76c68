package formatter

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidMode  = errors.New("invalid mode")
	ErrUnknownFence = errors.New("unknown fence")
	ErrEmptyPolygon = errors.New("empty polygon")
	ErrInvalidStyle = errors.New("invalid render style")
)

// Mode selects the output format.
type Mode int

const (
	PMSF Mode = iota + 1
	PMSFArray
	PokeAlarm
	SQLPolygon
	GeoJSON
	GeoJSONMerged
	Poracle
	PoracleMerged
)

var modeNames = map[Mode]string{
	PMSF:          "pmsf",
	PMSFArray:     "pmsfarray",
	PokeAlarm:     "pokealarm",
	SQLPolygon:    "sqlpolygon",
	GeoJSON:       "geojson",
	GeoJSONMerged: "geojson_merged",
	Poracle:       "poracle",
	PoracleMerged: "poracle_merged",
}

// Modes lists every mode in display order.
func Modes() []Mode {
	return []Mode{PMSF, PMSFArray, PokeAlarm, SQLPolygon, GeoJSON, GeoJSONMerged, Poracle, PoracleMerged}
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// ParseMode is case-sensitive, matching the identifiers used in links.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Style controls line endings and JSON whitespace.
type Style int

const (
	Script Style = iota
	PrettyPrint
	Copy
)

func (s Style) String() string {
	switch s {
	case Script:
		return "script"
	case PrettyPrint:
		return "pp"
	case Copy:
		return "copy"
	default:
		return fmt.Sprintf("Style(%d)", int(s))
	}
}

// ParseStyle defaults to Script for an empty value.
func ParseStyle(s string) (Style, error) {
	switch strings.TrimSpace(s) {
	case "", "script":
		return Script, nil
	case "pp":
		return PrettyPrint, nil
	case "copy":
		return Copy, nil
	default:
		return Script, fmt.Errorf("%w: %q", ErrInvalidStyle, s)
	}
}

package render

import (
	"math"
	"strconv"
	"strings"

	"mapdesc_service/internal/core/round"
	"mapdesc_service/internal/domain/model"
)

// FormatMeters renders a length: below 100 m to the meter, below 1 km to 5 m,
// otherwise to 10 m.
func FormatMeters(m float64) string {
	m = math.Max(0, m)
	var r float64
	switch {
	case m >= 1000:
		r = round.Half(m/10) * 10
	case m >= 100:
		r = round.Half(m/5) * 5
	default:
		r = round.Half(m)
	}
	return strconv.FormatFloat(r, 'f', 0, 64) + " m"
}

// FormatArea renders an area in hectares from 1 ha up, else in square meters.
func FormatArea(sqm float64) string {
	sqm = math.Max(0, sqm)
	if sqm >= 10000 {
		ha := sqm / 10000
		digits := 1
		if ha >= 10 {
			digits = 0
		}
		return "~" + round.Fixed(ha, digits) + " ha"
	}
	return "~" + strconv.FormatFloat(round.Half(sqm), 'f', 0, 64) + " m^2"
}

// modifiersSuffix renders " [bridge, layer=1]".
func modifiersSuffix(mods []model.Modifier) string {
	if len(mods) == 0 {
		return ""
	}
	labels := make([]string, 0, len(mods))
	for _, m := range mods {
		if m.Value != nil {
			labels = append(labels, m.Name+"="+*m.Value)
			continue
		}
		labels = append(labels, m.Name)
	}
	return " [" + strings.Join(labels, ", ") + "]"
}

// normalizeLabel turns a tag value into display text.
func normalizeLabel(v string) string {
	return strings.ReplaceAll(v, "_", " ")
}

func phrase(loc *model.Location) string {
	if loc == nil {
		return ""
	}
	return loc.Phrase
}

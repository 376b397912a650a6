package location

import "mapdesc_service/internal/domain/model"

var hyphenated = map[string]string{
	"northeast": "north-east",
	"northwest": "north-west",
	"southeast": "south-east",
	"southwest": "south-west",
}

var edgeAdjective = map[string]string{
	"north": "northern",
	"south": "southern",
	"east":  "eastern",
	"west":  "western",
}

var cornerName = map[string]string{
	"northeast": "top-right",
	"northwest": "top-left",
	"southeast": "bottom-right",
	"southwest": "bottom-left",
}

// Phrase renders the human-readable text of a zone and direction.
func Phrase(zone model.Zone, dir string) string {
	d := dir
	if h, ok := hyphenated[dir]; ok {
		d = h
	}
	switch zone {
	case model.ZoneCenter:
		return "near the center of the map"
	case model.ZoneOffset:
		return "a little " + d + " of the center of the map"
	case model.ZonePart:
		return "in the " + d + " part of the map"
	case model.ZoneCorner:
		if c, ok := cornerName[dir]; ok {
			return "near the " + c + " corner of the map"
		}
	case model.ZoneEdge:
		if a, ok := edgeAdjective[dir]; ok {
			return "near the " + a + " edge of the map"
		}
	}
	return "somewhere on the map"
}

// Weight is the salience multiplier of a compact location.
func Weight(loc *model.CompactLocation) float64 {
	if loc == nil {
		return 1.0
	}
	diagonal := IsDiagonal(loc.Dir)
	switch loc.Kind {
	case model.KindCenter:
		return 1.0
	case model.KindPart:
		if diagonal {
			return 0.85
		}
		return 0.9
	case model.KindCorner:
		return 0.7
	default:
		if diagonal {
			return 0.7
		}
		return 0.8
	}
}

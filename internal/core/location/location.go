// Package location maps a point inside the map rectangle to a qualitative
// radial zone and compass direction.
package location

import (
	"math"

	"github.com/paulmach/orb"

	"mapdesc_service/internal/domain/model"
)

// Compass directions, indexed by 45 degree sector counter-clockwise from east.
var directions = [8]string{"east", "northeast", "north", "northwest", "west", "southwest", "south", "southeast"}

const (
	centerRadius = 0.25
	offsetRadius = 0.5
	partRadius   = 0.75
)

// Classify returns the location of p within bbox, or nil when the box has no
// area.
func Classify(p orb.Point, bbox model.BBox) *model.Location {
	w, h := bbox.Width(), bbox.Height()
	if !(w > 0) || !(h > 0) {
		return nil
	}
	if math.IsNaN(p[0]) || math.IsNaN(p[1]) {
		return nil
	}
	nx := clamp01((p[0] - bbox.MinX) / w)
	ny := clamp01((p[1] - bbox.MinY) / h)
	dx := (nx - 0.5) * 2
	dy := (ny - 0.5) * 2
	r := math.Max(math.Abs(dx), math.Abs(dy))

	if r <= centerRadius {
		return &model.Location{Zone: model.ZoneCenter, Phrase: Phrase(model.ZoneCenter, "")}
	}
	dir := Direction(dx, dy)
	var zone model.Zone
	switch {
	case r <= offsetRadius:
		zone = model.ZoneOffset
	case r <= partRadius:
		zone = model.ZonePart
	case IsDiagonal(dir):
		zone = model.ZoneCorner
	default:
		zone = model.ZoneEdge
	}
	return &model.Location{Zone: zone, Dir: dir, Phrase: Phrase(zone, dir)}
}

// Compact classifies and returns the compact form.
func Compact(p orb.Point, bbox model.BBox) *model.CompactLocation {
	return Classify(p, bbox).Compact()
}

// Direction quantizes a vector into one of 8 compass directions; +y is north.
func Direction(dx, dy float64) string {
	deg := math.Atan2(dy, dx) * 180 / math.Pi
	sector := int(math.Floor(deg/45+0.5)) % 8
	if sector < 0 {
		sector += 8
	}
	return directions[sector]
}

// IsDiagonal reports whether dir is one of the four intercardinal directions.
func IsDiagonal(dir string) bool {
	switch dir {
	case "northeast", "northwest", "southeast", "southwest":
		return true
	}
	return false
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}
	return math.Max(0, math.Min(1, v))
}

// Package spatial holds the planar and geodetic measurements shared by the
// renderer and the acquisition adapters.
package spatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"mapdesc_service/internal/domain/model"
)

// Length is the planar length of a polyline in map units.
func Length(ls orb.LineString) float64 {
	if len(ls) < 2 {
		return 0
	}
	return planar.Length(ls)
}

// LinesLength sums the planar length of several polylines.
func LinesLength(lines []orb.LineString) float64 {
	var total float64
	for _, ls := range lines {
		total += Length(ls)
	}
	return total
}

func closed(r orb.Ring) orb.Ring {
	if len(r) > 0 && r[0] != r[len(r)-1] {
		r = append(append(orb.Ring{}, r...), r[0])
	}
	return r
}

// RingArea is the absolute shoelace area of a ring, closed or not.
func RingArea(r orb.Ring) float64 {
	if len(r) < 3 {
		return 0
	}
	return math.Abs(planar.Area(closed(r)))
}

// PolygonArea is the outer ring area minus the holes. Without a usable outer
// ring it falls back to the area of the feature bounds.
func PolygonArea(f *model.Feature) float64 {
	if f.Geometry != nil {
		outer := model.RingPoints(f.Geometry.Outer)
		if len(outer) >= 3 {
			area := RingArea(outer)
			for _, h := range f.Geometry.Holes {
				area -= RingArea(model.RingPoints(h))
			}
			return math.Max(0, area)
		}
	}
	if b, ok := f.Extent(); ok {
		return (b.Max[0] - b.Min[0]) * (b.Max[1] - b.Min[1])
	}
	return 0
}

// BoundAreaKm2 approximates the area of a lon/lat bound in km² as the
// great-circle width along the middle parallel times the height along the
// middle meridian.
func BoundAreaKm2(b orb.Bound) float64 {
	latMid := (b.Min.Lat() + b.Max.Lat()) / 2
	lonMid := (b.Min.Lon() + b.Max.Lon()) / 2
	width := Haversine(orb.Point{b.Min.Lon(), latMid}, orb.Point{b.Max.Lon(), latMid})
	height := Haversine(orb.Point{lonMid, b.Min.Lat()}, orb.Point{lonMid, b.Max.Lat()})
	return width * height
}

// Haversine is the great-circle distance between two lon/lat points in km.
func Haversine(a, b orb.Point) float64 {
	const earthRadiusKm = 6371
	dLat := (b.Lat() - a.Lat()) * math.Pi / 180
	dLon := (b.Lon() - a.Lon()) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat()*math.Pi/180)*math.Cos(b.Lat()*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

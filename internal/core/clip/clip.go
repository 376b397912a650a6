// Package clip cuts polylines to the visible map rectangle.
package clip

import (
	"math"

	"github.com/paulmach/orb"

	"mapdesc_service/internal/domain/model"
)

const joinEpsilon = 1e-9

// LineString clips coords against bbox with Liang-Barsky per segment. Adjacent
// visible pieces are joined when their endpoints coincide; a nil coordinate
// or a fully hidden segment starts a new polyline. Results shorter than two
// points are dropped.
func LineString(coords []model.Coord, bbox model.BBox) []orb.LineString {
	var (
		out     []orb.LineString
		current orb.LineString
		prev    *orb.Point
	)
	flush := func() {
		if len(current) >= 2 {
			out = append(out, current)
		}
		current = nil
	}
	for _, c := range coords {
		p, ok := c.Point()
		if !ok {
			flush()
			prev = nil
			continue
		}
		if prev == nil {
			pp := p
			prev = &pp
			continue
		}
		a, b, visible := Segment(*prev, p, bbox)
		*prev = p
		if !visible {
			flush()
			continue
		}
		if near(a, b) {
			// repeated vertex
			continue
		}
		if len(current) > 0 && near(current[len(current)-1], a) {
			current = append(current, b)
			continue
		}
		flush()
		current = orb.LineString{a, b}
	}
	flush()
	return out
}

// Points clips an already parsed polyline.
func Points(ls orb.LineString, bbox model.BBox) []orb.LineString {
	coords := make([]model.Coord, len(ls))
	for i, p := range ls {
		coords[i] = model.CoordOf(p)
	}
	return LineString(coords, bbox)
}

// Segment clips the segment p0-p1 to bbox. A degenerate segment is visible
// only when it lies inside the box; a fully clipped one is reported hidden.
func Segment(p0, p1 orb.Point, bbox model.BBox) (orb.Point, orb.Point, bool) {
	dx := p1[0] - p0[0]
	dy := p1[1] - p0[1]
	t0, t1 := 0.0, 1.0
	checks := [4][2]float64{
		{-dx, p0[0] - bbox.MinX},
		{dx, bbox.MaxX - p0[0]},
		{-dy, p0[1] - bbox.MinY},
		{dy, bbox.MaxY - p0[1]},
	}
	for _, c := range checks {
		p, q := c[0], c[1]
		if p == 0 {
			if q < 0 {
				return orb.Point{}, orb.Point{}, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return orb.Point{}, orb.Point{}, false
			}
			if r > t0 {
				t0 = r
			}
		} else {
			if r < t0 {
				return orb.Point{}, orb.Point{}, false
			}
			if r < t1 {
				t1 = r
			}
		}
	}
	a := orb.Point{p0[0] + t0*dx, p0[1] + t0*dy}
	b := orb.Point{p0[0] + t1*dx, p0[1] + t1*dy}
	if a == b && (dx != 0 || dy != 0) {
		return orb.Point{}, orb.Point{}, false
	}
	return a, b, true
}

func near(a, b orb.Point) bool {
	return math.Abs(a[0]-b[0]) <= joinEpsilon && math.Abs(a[1]-b[1]) <= joinEpsilon
}

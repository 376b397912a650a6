package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrDegenerateBBox is returned for boxes with inverted or zero extent.
var ErrDegenerateBBox = errors.New("degenerate bounding box")

// Geometry type discriminators used by the raw document.
const (
	GeometryPoint      = "point"
	GeometryLineString = "line_string"
	GeometryPolygon    = "polygon"
)

// BBox is an axis-aligned rectangle in local planar map units (meters).
type BBox struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// NewBBox builds a validated box.
func NewBBox(minX, minY, maxX, maxY float64) (BBox, error) {
	b := BBox{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
	if err := b.Validate(); err != nil {
		return BBox{}, err
	}
	return b, nil
}

// BBoxFromBound converts an orb bound.
func BBoxFromBound(b orb.Bound) BBox {
	return BBox{MinX: b.Min[0], MinY: b.Min[1], MaxX: b.Max[0], MaxY: b.Max[1]}
}

// Validate rejects non-finite, inverted and zero-area boxes.
func (b BBox) Validate() error {
	for _, v := range []float64{b.MinX, b.MinY, b.MaxX, b.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate", ErrDegenerateBBox)
		}
	}
	if b.MinX > b.MaxX || b.MinY > b.MaxY {
		return fmt.Errorf("%w: min exceeds max", ErrDegenerateBBox)
	}
	if b.MinX == b.MaxX || b.MinY == b.MaxY {
		return fmt.Errorf("%w: zero width or height", ErrDegenerateBBox)
	}
	return nil
}

func (b BBox) Width() float64  { return b.MaxX - b.MinX }
func (b BBox) Height() float64 { return b.MaxY - b.MinY }

// MaxSide is the longer of the two sides.
func (b BBox) MaxSide() float64 { return math.Max(b.Width(), b.Height()) }

func (b BBox) Center() orb.Point {
	return orb.Point{(b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2}
}

func (b BBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.MinX, b.MinY}, Max: orb.Point{b.MaxX, b.MaxY}}
}

func (b BBox) Contains(p orb.Point) bool {
	return b.MinX <= p[0] && p[0] <= b.MaxX && b.MinY <= p[1] && p[1] <= b.MaxY
}

// Intersect returns the overlap of two boxes. A zero-area overlap (shared edge)
// is still reported as an intersection.
func (b BBox) Intersect(o BBox) (BBox, bool) {
	r := BBox{
		MinX: math.Max(b.MinX, o.MinX),
		MinY: math.Max(b.MinY, o.MinY),
		MaxX: math.Min(b.MaxX, o.MaxX),
		MaxY: math.Min(b.MaxY, o.MaxY),
	}
	if r.MinX > r.MaxX || r.MinY > r.MaxY {
		return BBox{}, false
	}
	return r, true
}

// Coord is a raw [x, y] coordinate. A nil Coord inside a line is a break marker.
type Coord []float64

// Point returns the coordinate as an orb point when it is well formed.
func (c Coord) Point() (orb.Point, bool) {
	if len(c) < 2 {
		return orb.Point{}, false
	}
	if math.IsNaN(c[0]) || math.IsNaN(c[1]) || math.IsInf(c[0], 0) || math.IsInf(c[1], 0) {
		return orb.Point{}, false
	}
	return orb.Point{c[0], c[1]}, true
}

// CoordOf converts an orb point back to the raw representation.
func CoordOf(p orb.Point) Coord { return Coord{p[0], p[1]} }

// Geometry is the raw feature geometry: a point, a polyline or a polygon with holes.
type Geometry struct {
	Type        string
	Point       Coord
	Coordinates []Coord
	Closed      *bool
	Outer       []Coord
	Holes       [][]Coord
}

type geometryJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates,omitempty"`
	Closed      *bool           `json:"closed,omitempty"`
	Outer       []Coord         `json:"outer,omitempty"`
	Holes       [][]Coord       `json:"holes,omitempty"`
}

// UnmarshalJSON tolerates malformed coordinate arrays: they decode as empty.
func (g *Geometry) UnmarshalJSON(data []byte) error {
	var aux geometryJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*g = Geometry{Type: aux.Type, Closed: aux.Closed, Outer: aux.Outer, Holes: aux.Holes}
	raw := bytes.TrimSpace(aux.Coordinates)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if g.Type == GeometryPoint {
		var c Coord
		if json.Unmarshal(raw, &c) == nil {
			g.Point = c
		}
		return nil
	}
	var coords []Coord
	if json.Unmarshal(raw, &coords) != nil {
		return nil
	}
	if g.Type == GeometryPolygon && g.Outer == nil {
		g.Outer = coords
		return nil
	}
	g.Coordinates = coords
	return nil
}

func (g Geometry) MarshalJSON() ([]byte, error) {
	aux := geometryJSON{Type: g.Type, Closed: g.Closed}
	switch g.Type {
	case GeometryPoint:
		if g.Point != nil {
			raw, err := json.Marshal(g.Point)
			if err != nil {
				return nil, err
			}
			aux.Coordinates = raw
		}
	case GeometryPolygon:
		aux.Outer = g.Outer
		aux.Holes = g.Holes
		if aux.Holes == nil {
			aux.Holes = [][]Coord{}
		}
	default:
		if g.Coordinates != nil {
			raw, err := json.Marshal(g.Coordinates)
			if err != nil {
				return nil, err
			}
			aux.Coordinates = raw
		}
	}
	return json.Marshal(aux)
}

// LinePoints returns the well formed vertices of a polyline, skipping break markers.
func (g *Geometry) LinePoints() orb.LineString {
	ls := make(orb.LineString, 0, len(g.Coordinates))
	for _, c := range g.Coordinates {
		if p, ok := c.Point(); ok {
			ls = append(ls, p)
		}
	}
	return ls
}

// RingPoints converts a raw ring, dropping malformed vertices.
func RingPoints(coords []Coord) orb.Ring {
	r := make(orb.Ring, 0, len(coords))
	for _, c := range coords {
		if p, ok := c.Point(); ok {
			r = append(r, p)
		}
	}
	return r
}

// Average is the arithmetic mean of the points; false when empty.
func Average(points []orb.Point) (orb.Point, bool) {
	if len(points) == 0 {
		return orb.Point{}, false
	}
	var sx, sy float64
	for _, p := range points {
		sx += p[0]
		sy += p[1]
	}
	n := float64(len(points))
	return orb.Point{sx / n, sy / n}, true
}

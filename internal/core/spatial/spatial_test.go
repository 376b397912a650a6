package spatial

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"mapdesc_service/internal/domain/model"
)

func TestPolygonArea(t *testing.T) {
	tests := []struct {
		name string
		f    *model.Feature
		want float64
	}{
		{
			name: "open ring",
			f: &model.Feature{Geometry: &model.Geometry{Type: model.GeometryPolygon,
				Outer: []model.Coord{{0, 0}, {10, 0}, {10, 10}, {0, 10}}}},
			want: 100,
		},
		{
			name: "with hole",
			f: &model.Feature{Geometry: &model.Geometry{Type: model.GeometryPolygon,
				Outer: []model.Coord{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
				Holes: [][]model.Coord{{{2, 2}, {4, 2}, {4, 4}, {2, 4}, {2, 2}}}}},
			want: 96,
		},
		{
			name: "bounds fallback",
			f:    &model.Feature{Bounds: &model.BBox{MinX: 0, MinY: 0, MaxX: 5, MaxY: 4}},
			want: 20,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PolygonArea(tt.f); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("PolygonArea = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLength(t *testing.T) {
	if got := Length(orb.LineString{{0, 0}, {3, 4}, {3, 10}}); got != 11 {
		t.Errorf("Length = %v, want 11", got)
	}
	if got := Length(orb.LineString{{1, 1}}); got != 0 {
		t.Errorf("Length of a point = %v, want 0", got)
	}
}

func TestGeodetic(t *testing.T) {
	// One degree of latitude is about 111 km.
	if d := Haversine(orb.Point{24.9, 60.1}, orb.Point{24.9, 61.1}); math.Abs(d-111.2) > 0.5 {
		t.Errorf("Haversine = %v", d)
	}
	b := orb.Bound{Min: orb.Point{24.90, 60.10}, Max: orb.Point{24.92, 60.11}}
	if a := BoundAreaKm2(b); a < 1.0 || a > 1.3 {
		t.Errorf("BoundAreaKm2 = %v", a)
	}
}

func TestBoundAreaKm2UsesGreatCircleSides(t *testing.T) {
	// At 60°N a degree of longitude is half a degree of latitude.
	b := orb.Bound{Min: orb.Point{24.0, 59.5}, Max: orb.Point{26.0, 60.5}}
	width := Haversine(orb.Point{24.0, 60.0}, orb.Point{26.0, 60.0})
	height := Haversine(orb.Point{25.0, 59.5}, orb.Point{25.0, 60.5})
	if math.Abs(width-height) > 1 {
		t.Fatalf("width %v and height %v should be close at 60°N", width, height)
	}
	if a := BoundAreaKm2(b); math.Abs(a-width*height) > 1e-9 {
		t.Errorf("BoundAreaKm2 = %v, want %v", a, width*height)
	}
}

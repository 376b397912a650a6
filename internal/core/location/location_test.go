package location

import (
	"testing"

	"github.com/paulmach/orb"

	"mapdesc_service/internal/domain/model"
)

var box = model.BBox{MinX: 0, MinY: 0, MaxX: 100, MaxY: 200}

func TestClassifyCenterBox(t *testing.T) {
	// Every point strictly inside the central Chebyshev box is "center".
	for x := 38.0; x <= 62.0; x += 2 {
		for y := 76.0; y <= 124.0; y += 4 {
			loc := Classify(orb.Point{x, y}, box)
			if loc == nil || loc.Zone != model.ZoneCenter {
				t.Fatalf("Classify(%v,%v) = %+v, want center", x, y, loc)
			}
			if loc.Dir != "" {
				t.Errorf("center location has direction %q", loc.Dir)
			}
		}
	}
}

func TestClassifyBands(t *testing.T) {
	tests := []struct {
		name   string
		p      orb.Point
		zone   model.Zone
		dir    string
		phrase string
	}{
		{"offset north", orb.Point{50, 140}, model.ZoneOffset, "north", "a little north of the center of the map"},
		{"offset northwest", orb.Point{30, 140}, model.ZoneOffset, "northwest", "a little north-west of the center of the map"},
		{"part east", orb.Point{80, 100}, model.ZonePart, "east", "in the east part of the map"},
		{"part southwest", orb.Point{20, 40}, model.ZonePart, "southwest", "in the south-west part of the map"},
		{"edge south", orb.Point{50, 5}, model.ZoneEdge, "south", "near the southern edge of the map"},
		{"edge west", orb.Point{2, 100}, model.ZoneEdge, "west", "near the western edge of the map"},
		{"corner northwest", orb.Point{1, 199}, model.ZoneCorner, "northwest", "near the top-left corner of the map"},
		{"corner southeast", orb.Point{99, 1}, model.ZoneCorner, "southeast", "near the bottom-right corner of the map"},
		{"clamped outside", orb.Point{500, 100}, model.ZoneEdge, "east", "near the eastern edge of the map"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := Classify(tt.p, box)
			if loc == nil {
				t.Fatal("got nil location")
			}
			if loc.Zone != tt.zone || loc.Dir != tt.dir || loc.Phrase != tt.phrase {
				t.Errorf("got %+v, want zone=%s dir=%s phrase=%q", loc, tt.zone, tt.dir, tt.phrase)
			}
		})
	}
}

func TestClassifyDegenerate(t *testing.T) {
	if loc := Classify(orb.Point{0, 0}, model.BBox{MinX: 0, MinY: 0, MaxX: 0, MaxY: 10}); loc != nil {
		t.Errorf("expected nil for zero-width box, got %+v", loc)
	}
}

func TestDirectionQuadrants(t *testing.T) {
	tests := []struct {
		dx, dy float64
		want   string
	}{
		{1, 0, "east"},
		{0, 1, "north"},
		{-1, 0, "west"},
		{0, -1, "south"},
		{1, 1, "northeast"},
		{-1, 1, "northwest"},
		{-1, -1, "southwest"},
		{1, -1, "southeast"},
		{1, 0.3, "east"},
	}
	for _, tt := range tests {
		if got := Direction(tt.dx, tt.dy); got != tt.want {
			t.Errorf("Direction(%v,%v) = %s, want %s", tt.dx, tt.dy, got, tt.want)
		}
	}
}

func TestWeight(t *testing.T) {
	tests := []struct {
		loc  *model.CompactLocation
		want float64
	}{
		{&model.CompactLocation{Kind: model.KindCenter}, 1.0},
		{&model.CompactLocation{Kind: model.KindPart, Dir: "north"}, 0.9},
		{&model.CompactLocation{Kind: model.KindPart, Dir: "northeast"}, 0.85},
		{&model.CompactLocation{Kind: model.KindNearEdge, Dir: "west"}, 0.8},
		{&model.CompactLocation{Kind: model.KindCorner, Dir: "southwest"}, 0.7},
	}
	for _, tt := range tests {
		if got := Weight(tt.loc); got != tt.want {
			t.Errorf("Weight(%+v) = %v, want %v", tt.loc, got, tt.want)
		}
	}
}

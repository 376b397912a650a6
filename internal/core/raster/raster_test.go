package raster

import (
	"testing"

	"mapdesc_service/internal/domain/model"
)

var boundary = &model.BBox{MinX: 0, MinY: 0, MaxX: 600, MaxY: 600}

func rect(minX, minY, maxX, maxY float64) []model.Coord {
	return []model.Coord{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}
}

func polygonGeom(outer []model.Coord, holes ...[]model.Coord) *model.Geometry {
	return &model.Geometry{Type: model.GeometryPolygon, Outer: outer, Holes: holes}
}

func TestAnalyzeFullFill(t *testing.T) {
	got := Analyze(polygonGeom(rect(0, 0, 600, 600)), boundary, 1, Options{})
	if got == nil {
		t.Fatal("expected a result")
	}
	if got.Coverage.CoveragePercent != 100 {
		t.Errorf("coverage = %v, want 100", got.Coverage.CoveragePercent)
	}
	if len(got.Components) != 1 {
		t.Fatalf("components = %d, want 1", len(got.Components))
	}
	if edges := got.Components[0].Edges; len(edges) != 4 {
		t.Errorf("component edges = %v, want all four", edges)
	}
	if len(got.EdgesTouched) != 4 {
		t.Fatalf("edgesTouched = %v, want 4 entries", got.EdgesTouched)
	}
	for i, e := range got.EdgesTouched {
		if e.Edge != edgeOrder[i] || e.Percent != 100 {
			t.Errorf("edgesTouched[%d] = %+v", i, e)
		}
	}
	if got.RefinedFrom != 0 {
		t.Errorf("unexpected refinement from %d", got.RefinedFrom)
	}
	if got.Shape == nil || got.Shape.Type != model.ShapeRegular || got.Shape.FillRatio != 1 {
		t.Errorf("shape = %+v, want regular with full fill", got.Shape)
	}
}

func TestAnalyzeOutside(t *testing.T) {
	got := Analyze(polygonGeom(rect(700, 700, 800, 800)), boundary, 1, Options{})
	if got == nil {
		t.Fatal("expected a zero result")
	}
	if got.Coverage.CoveragePercent != 0 || got.Coverage.GridSize != GridBase {
		t.Errorf("coverage = %+v", got.Coverage)
	}
	if len(got.Components) != 0 || len(got.EdgesTouched) != 0 || got.Shape != nil {
		t.Errorf("expected empty analysis, got %+v", got)
	}
}

func TestAnalyzeInvalid(t *testing.T) {
	tests := []struct {
		name     string
		geom     *model.Geometry
		boundary *model.BBox
	}{
		{"no boundary", polygonGeom(rect(0, 0, 10, 10)), nil},
		{"two points", polygonGeom([]model.Coord{{0, 0}, {1, 1}, {0, 0}}), boundary},
		{"nil geometry", nil, boundary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Analyze(tt.geom, tt.boundary, 1, Options{}); got != nil {
				t.Errorf("expected nil, got %+v", got)
			}
		})
	}
}

func TestAnalyzeHole(t *testing.T) {
	got := Analyze(polygonGeom(rect(0, 0, 600, 600), rect(150, 150, 450, 450)), boundary, 1, Options{})
	if got.Coverage.CoveragePercent != 75 {
		t.Errorf("coverage = %v, want 75", got.Coverage.CoveragePercent)
	}
	if len(got.Components) != 1 {
		t.Errorf("ring should be one component, got %d", len(got.Components))
	}
}

func TestAnalyzeRefinesSplitAreas(t *testing.T) {
	geom := &model.Geometry{
		Type: model.GeometryPolygon,
		Outer: []model.Coord{
			{0, 0}, {100, 0}, {100, 100}, {500, 100}, {500, 0}, {600, 0},
			{600, 200}, {0, 200}, {0, 0},
		},
	}
	got := Analyze(geom, boundary, 1, Options{})
	if len(got.Components) != 1 {
		t.Fatalf("connected shape split into %d components", len(got.Components))
	}

	split := &model.Geometry{
		Type: model.GeometryPolygon,
		Outer: []model.Coord{
			{0, 0}, {100, 0}, {100, 100}, {500, 100}, {500, 0}, {600, 0},
			{600, 100.5}, {0, 100.5}, {0, 0},
		},
	}
	got = Analyze(split, boundary, 1, Options{})
	if got.RefinedFrom != GridBase {
		t.Errorf("refinedFrom = %d, want %d", got.RefinedFrom, GridBase)
	}
	if got.Coverage.GridSize != GridRefined {
		t.Errorf("gridSize = %d, want %d", got.Coverage.GridSize, GridRefined)
	}
	if got.ShapeGridSize != GridBase {
		t.Errorf("shapeGridSize = %d, want %d", got.ShapeGridSize, GridBase)
	}
}

func TestAnalyzeThinOrientation(t *testing.T) {
	tests := []struct {
		name  string
		outer []model.Coord
		deg   float64
	}{
		{"horizontal strip", rect(0, 280, 600, 320), 0},
		{"vertical strip", rect(280, 0, 320, 600), 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Analyze(polygonGeom(tt.outer), boundary, 1, Options{})
			if got.Shape == nil {
				t.Fatal("missing shape")
			}
			if got.Shape.Type != model.ShapeThin || got.Shape.OrientationDeg != tt.deg {
				t.Errorf("shape = %+v, want thin at %v", got.Shape, tt.deg)
			}
		})
	}
}

package grouping

import (
	"bytes"
	"encoding/json"
	"testing"

	"mapdesc_service/internal/core/rules"
	"mapdesc_service/internal/domain/model"
)

const rawDoc = `{
  "meta": {"boundary": {"minX": 0, "minY": 0, "maxX": 1000, "maxY": 1000}},
  "ways": [
    {"elementType": "way", "osmType": "way", "osmId": 1,
     "tags": {"highway": "primary", "name": "Main St", "surface": "asphalt"},
     "geometry": {"type": "line_string", "coordinates": [[-100, 500], [500, 500], [1100, 500]]},
     "bounds": {"minX": -100, "minY": 500, "maxX": 1100, "maxY": 500}},
    {"elementType": "way", "osmType": "way", "osmId": 2,
     "tags": {"railway": "abandoned"},
     "geometry": {"type": "line_string", "coordinates": [[0, 0], [10, 10]]}},
    "not a feature",
    {"osmId": 3}
  ],
  "areas": [
    {"elementType": "area", "osmType": "way", "osmId": 10,
     "tags": {"building": "yes"},
     "geometry": {"type": "polygon", "outer": [[100, 100], [200, 100], [200, 200], [100, 200], [100, 100]], "holes": []}},
    {"elementType": "area", "osmType": "way", "osmId": 11,
     "tags": {"landuse": "residential"},
     "geometry": {"type": "polygon", "outer": [[0, 0], [1000, 0], [1000, 1000], [0, 1000]]}}
  ],
  "nodes": [
    {"elementType": "node", "osmType": "node", "osmId": 20,
     "tags": {"shop": "bakery", "name": "Crumbs"},
     "geometry": {"type": "point", "coordinates": [950, 950]}},
    {"elementType": "node", "osmType": "node", "osmId": 21,
     "tags": {"created_by": "x"},
     "geometry": {"type": "point", "coordinates": [1, 1]}}
  ]
}`

func decode(t *testing.T) *model.RawDocument {
	t.Helper()
	var doc model.RawDocument
	if err := json.Unmarshal([]byte(rawDoc), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &doc
}

func engine(t *testing.T) *Engine {
	t.Helper()
	rs, err := rules.Default()
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	return New(rs, Options{})
}

func TestGroup(t *testing.T) {
	doc := decode(t)
	if doc.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", doc.Skipped)
	}
	grouped, stats := engine(t).Group(doc)

	if stats.Features != 6 || stats.Classified != 4 || stats.Ignored != 1 || stats.Unclassified != 1 {
		t.Errorf("stats = %+v", stats)
	}
	var keys []string
	for _, m := range grouped.Mains {
		keys = append(keys, m.Key)
	}
	if len(keys) != 5 || keys[0] != "A" || keys[4] != "E" {
		t.Errorf("main keys = %v, want A..E in ruleset order", keys)
	}
	if grouped.Main("E").Count() != 0 {
		t.Errorf("E should be empty")
	}

	roads := grouped.Main("A").Sub("A1_major_roads")
	if roads == nil || len(roads.Features) != 1 {
		t.Fatalf("A1_major_roads = %+v", roads)
	}
	road := roads.Features[0]
	cls := road.Classification
	if cls.LocationStart == nil || cls.LocationStart.Zone != model.ZoneEdge || cls.LocationStart.Dir != "west" {
		t.Errorf("locationStart = %+v", cls.LocationStart)
	}
	if cls.LocationCenter == nil || cls.LocationCenter.Zone != model.ZoneCenter {
		t.Errorf("locationCenter = %+v", cls.LocationCenter)
	}
	if road.Semantics == nil || road.Semantics.Surface.Class != "paved" {
		t.Errorf("semantics = %+v", road.Semantics)
	}
	vis := road.VisibleGeometry
	if vis == nil || len(vis.Lines) != 1 || vis.Lines[0][0][0] != 0 || vis.Lines[0][2][0] != 1000 {
		t.Errorf("visibleGeometry = %+v", vis)
	}

	building := grouped.Main("C").Sub("C3_other_buildings").Features[0]
	if building.VisibleGeometry == nil || building.VisibleGeometry.Area == nil {
		t.Fatal("building should be rasterized")
	}
	if got := building.VisibleGeometry.Area.Coverage.CoveragePercent; got != 1 {
		t.Errorf("building coverage = %v, want 1", got)
	}
	residential := grouped.Main("B").Sub("B3_residential").Features[0]
	if residential.VisibleGeometry != nil {
		t.Errorf("land use polygons are not rasterized")
	}

	poi := grouped.Main("D").Sub("D3_commercial").Features[0]
	if poi.Classification.Location == nil || poi.Classification.Location.Zone != model.ZoneCorner {
		t.Errorf("poi location = %+v", poi.Classification.Location)
	}
}

func TestGroupIsDeterministic(t *testing.T) {
	e := engine(t)
	first, _ := e.Group(decode(t))
	second, _ := e.Group(decode(t))
	a, err := json.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("grouping the same document twice produced different output")
	}
}

func TestAttachLocationsWithoutBoundary(t *testing.T) {
	doc := decode(t)
	doc.Meta = nil
	grouped, _ := engine(t).Group(doc)
	road := grouped.Main("A").Sub("A1_major_roads").Features[0]
	// The map box now comes from the feature bounds.
	if road.Classification.LocationCenter == nil {
		t.Fatal("expected a center location from feature bounds")
	}
	if lines := road.VisibleGeometry.Lines; len(lines) != 1 || len(lines[0]) != 3 {
		t.Errorf("unclipped line = %v", lines)
	}
	building := grouped.Main("C").Sub("C3_other_buildings").Features[0]
	if building.VisibleGeometry != nil {
		t.Errorf("rasterization needs a boundary")
	}
}

package segments

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"

	"mapdesc_service/internal/domain/model"
)

func newDoc(t *testing.T, raw string) *model.RawDocument {
	t.Helper()
	var doc model.RawDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, f := range doc.Features() {
		if f.GeometryType() == model.GeometryLineString {
			f.VisibleGeometry = &model.VisibleGeometry{Lines: []orb.LineString{f.Geometry.LinePoints()}}
		}
	}
	return &doc
}

const crossroads = `{
  "meta": {"boundary": {"minX": 0, "minY": 0, "maxX": 100, "maxY": 100}},
  "ways": [
    {"elementType": "way", "osmType": "way", "osmId": 1, "tags": {"name": "Elm St"},
     "geometry": {"type": "line_string", "coordinates": [[0, 50], [50, 50], [100, 50]]}},
    {"elementType": "way", "osmType": "way", "osmId": 2, "tags": {"name": "Oak St"},
     "geometry": {"type": "line_string", "coordinates": [[50, 0], [50, 50], [50, 100]]}}
  ]
}`

func findWay(doc *model.RawDocument, id int64) *model.Feature {
	for _, f := range doc.Features() {
		if f.OSMID == id {
			return f
		}
	}
	return nil
}

func countType(events []model.Event, typ string) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestInferredJunction(t *testing.T) {
	tests := []struct {
		name          string
		connectivity  bool
		wantConnector int
		wantJunction  int
	}{
		{"enabled", true, 1, 1},
		{"disabled", false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(t, crossroads)
			b := NewBuilder(doc, Options{Connectivity: tt.connectivity})

			connectors := b.Connectors()
			if len(connectors) != tt.wantConnector {
				t.Fatalf("connectors = %d, want %d", len(connectors), tt.wantConnector)
			}
			if tt.wantConnector == 1 {
				c := connectors[0]
				if c.Type != model.ConnectorJunction || !c.Inferred || c.Key != "50.000,50.000" {
					t.Errorf("connector = %+v", c)
				}
			}

			segs := b.Segments(findWay(doc, 1))
			if len(segs) != 1 {
				t.Fatalf("segments = %d", len(segs))
			}
			events := segs[0].Events
			if got := countType(events, model.EventJunction); got != tt.wantJunction {
				t.Errorf("junction events = %d, want %d", got, tt.wantJunction)
			}
			if got := countType(events, model.EventMapEdgeCrossing); got != 2 {
				t.Errorf("edge events = %d, want 2", got)
			}
			if tt.wantJunction == 1 {
				j := events[1]
				if j.Type != model.EventJunction || j.T != 0.5 {
					t.Fatalf("events = %+v", events)
				}
				if len(j.Connections) != 1 || j.Connections[0].Name != "Oak St" {
					t.Errorf("connections = %+v", j.Connections)
				}
			}
		})
	}
}

func TestExplicitConnectorWins(t *testing.T) {
	doc := newDoc(t, `{
  "meta": {"boundary": {"minX": 0, "minY": 0, "maxX": 100, "maxY": 100}},
  "ways": [
    {"elementType": "way", "osmType": "way", "osmId": 1, "tags": {"name": "Elm St"},
     "geometry": {"type": "line_string", "coordinates": [[0, 50], [50, 50], [100, 50]]}},
    {"elementType": "way", "osmType": "way", "osmId": 2, "tags": {"name": "Oak St"},
     "geometry": {"type": "line_string", "coordinates": [[50, 0], [50, 50], [50, 100]]}}
  ],
  "nodes": [
    {"elementType": "node", "osmType": "node", "osmId": 9, "primaryRepresentation": "RoadCrossing",
     "geometry": {"type": "point", "coordinates": [50, 50]}}
  ]
}`)
	b := NewBuilder(doc, Options{Connectivity: true})
	connectors := b.Connectors()
	if len(connectors) != 1 {
		t.Fatalf("connectors = %d", len(connectors))
	}
	if c := connectors[0]; c.Type != model.ConnectorCrossing || c.Inferred || c.OSMID != 9 {
		t.Errorf("connector = %+v", c)
	}
}

func TestCaseInsensitiveNames(t *testing.T) {
	doc := newDoc(t, `{
  "ways": [
    {"elementType": "way", "osmId": 1, "tags": {"name": "Elm St"},
     "geometry": {"type": "line_string", "coordinates": [[0, 0], [10, 0]]}},
    {"elementType": "way", "osmId": 2, "tags": {"name": "ELM ST"},
     "geometry": {"type": "line_string", "coordinates": [[10, 0], [10, 10]]}}
  ]
}`)
	b := NewBuilder(doc, Options{Connectivity: true})
	if n := len(b.Connectors()); n != 0 {
		t.Errorf("connectors = %d, want 0", n)
	}
	names := b.NamesAt(orb.Point{10, 0})
	if len(names) != 2 {
		t.Errorf("names = %v", names)
	}
}

func TestTerminateAndContinuesAs(t *testing.T) {
	doc := newDoc(t, `{
  "meta": {"boundary": {"minX": 0, "minY": 0, "maxX": 100, "maxY": 100}},
  "ways": [
    {"elementType": "way", "osmType": "way", "osmId": 1, "tags": {"name": "Pine St"},
     "geometry": {"type": "line_string", "coordinates": [[20, 20], [30, 20]]}},
    {"elementType": "way", "osmType": "way", "osmId": 2, "tags": {"highway": "service"},
     "geometry": {"type": "line_string", "coordinates": [[30, 20], [40, 20]]}}
  ]
}`)
	b := NewBuilder(doc, Options{Connectivity: true})
	events := b.Segments(findWay(doc, 1))[0].Events
	if len(events) != 2 {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Type != model.EventTerminate || events[0].T != 0 {
		t.Errorf("first event = %+v", events[0])
	}
	next := events[1]
	if next.Type != model.EventContinuesAs || next.T != 1 || next.ContinuesAs == nil || next.ContinuesAs.OSMID != 2 {
		t.Errorf("second event = %+v", next)
	}
}

func TestSamples(t *testing.T) {
	doc := newDoc(t, crossroads)
	b := NewBuilder(doc, Options{Connectivity: true})
	samples := b.Segments(findWay(doc, 1))[0].Samples
	want := []string{model.KindNearEdge, model.KindCenter, model.KindCenter, model.KindCenter, model.KindNearEdge}
	if len(samples) != len(want) {
		t.Fatalf("samples = %d", len(samples))
	}
	for i, s := range samples {
		if s.T != SampleFractions[i] || s.Zone == nil || s.Zone.Kind != want[i] {
			t.Errorf("sample %d = %+v, want kind %s", i, s, want[i])
		}
	}
	if samples[0].Zone.Dir != "west" || samples[4].Zone.Dir != "east" {
		t.Errorf("edge directions = %s, %s", samples[0].Zone.Dir, samples[4].Zone.Dir)
	}
}

func TestRoadGroupOrdersByLength(t *testing.T) {
	doc := newDoc(t, `{
  "ways": [
    {"elementType": "way", "osmType": "way", "osmId": 1, "tags": {"name": "Main St"},
     "geometry": {"type": "line_string", "coordinates": [[0, 0], [10, 0]]}},
    {"elementType": "way", "osmType": "way", "osmId": 2, "tags": {"name": "Main St"},
     "geometry": {"type": "line_string", "coordinates": [[10, 0], [40, 0]]}}
  ]
}`)
	b := NewBuilder(doc, Options{Connectivity: true})
	rg := b.RoadGroup("Main St", doc.Features())
	if len(rg.Ways) != 2 || rg.Ways[0].OSMID != 2 || rg.Ways[0].Length != 30 {
		t.Fatalf("ways = %+v", rg.Ways)
	}
	if len(rg.VisibleGeometry) != 2 || rg.VisibleGeometry[0].OSMID != 2 || len(rg.VisibleGeometry[0].Segments) != 1 {
		t.Errorf("buckets = %+v", rg.VisibleGeometry)
	}
}

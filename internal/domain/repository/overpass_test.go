package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/serjvanilla/go-overpass"
)

func TestParseBBox(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    orb.Bound
		wantErr string
	}{
		{
			name: "valid",
			in:   "60.1, 24.9,60.2,25.0",
			want: orb.Bound{Min: orb.Point{24.9, 60.1}, Max: orb.Point{25.0, 60.2}},
		},
		{name: "too few", in: "1,2,3", wantErr: "4 components"},
		{name: "bad number", in: "a,2,3,4", wantErr: "invalid minLat"},
		{name: "latitude", in: "-91,0,10,10", wantErr: "latitude"},
		{name: "longitude", in: "0,0,10,181", wantErr: "longitude"},
		{name: "inverted", in: "10,0,0,10", wantErr: "minLat must be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBBox(tt.in)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToOSM(t *testing.T) {
	n1 := &overpass.Node{Meta: overpass.Meta{ID: 2, Tags: map[string]string{"amenity": "cafe", "name": "Kahvila"}}, Lat: 60.1, Lon: 24.9}
	n2 := &overpass.Node{Meta: overpass.Meta{ID: 1}, Lat: 60.2, Lon: 25.0}
	way := &overpass.Way{Meta: overpass.Meta{ID: 10, Tags: map[string]string{"highway": "residential"}}, Nodes: []*overpass.Node{n2, n1}}
	rel := &overpass.Relation{
		Meta: overpass.Meta{ID: 20, Tags: map[string]string{"type": "multipolygon"}},
		Members: []overpass.RelationMember{
			{Type: overpass.ElementTypeWay, Way: way, Role: "outer"},
			{Type: overpass.ElementTypeNode, Node: n1},
		},
	}
	result := &overpass.Result{
		Nodes:     map[int64]*overpass.Node{2: n1, 1: n2},
		Ways:      map[int64]*overpass.Way{10: way},
		Relations: map[int64]*overpass.Relation{20: rel},
	}

	b := orb.Bound{Min: orb.Point{24.8, 60.0}, Max: orb.Point{25.1, 60.3}}
	o := toOSM(result, b)

	if o.Bounds.MinLat != 60.0 || o.Bounds.MaxLon != 25.1 {
		t.Errorf("unexpected bounds %+v", o.Bounds)
	}
	if len(o.Nodes) != 2 || o.Nodes[0].ID != 1 || o.Nodes[1].ID != 2 {
		t.Fatalf("nodes not sorted by id: %+v", o.Nodes)
	}
	if o.Nodes[1].Tags.Find("name") != "Kahvila" {
		t.Errorf("tags lost: %v", o.Nodes[1].Tags)
	}
	if o.Nodes[1].Tags[0].Key != "amenity" {
		t.Errorf("tags not sorted: %v", o.Nodes[1].Tags)
	}
	if len(o.Ways) != 1 || len(o.Ways[0].Nodes) != 2 || o.Ways[0].Nodes[0].ID != 1 {
		t.Fatalf("unexpected ways: %+v", o.Ways)
	}
	if o.Ways[0].Nodes[1].Lat != 60.1 {
		t.Errorf("way node coordinates lost: %+v", o.Ways[0].Nodes[1])
	}
	if len(o.Relations) != 1 || len(o.Relations[0].Members) != 1 {
		t.Fatalf("unexpected relations: %+v", o.Relations)
	}
	m := o.Relations[0].Members[0]
	if m.Type != osm.TypeWay || m.Ref != 10 || m.Role != "outer" {
		t.Errorf("unexpected member %+v", m)
	}
}

func TestBuildAreaQuery(t *testing.T) {
	b := orb.Bound{Min: orb.Point{24.9, 60.1}, Max: orb.Point{25.0, 60.2}}
	q := buildAreaQuery(b, 30*time.Second)
	if !strings.Contains(q, "[timeout:30]") {
		t.Errorf("missing timeout: %s", q)
	}
	if !strings.Contains(q, "way(60.100000,24.900000,60.200000,25.000000)") {
		t.Errorf("bbox must be south,west,north,east: %s", q)
	}
}

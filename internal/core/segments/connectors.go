// Package segments derives road connectors and walks every visible line
// segment to produce location samples and ordered path events.
package segments

import (
	"sort"

	"github.com/paulmach/orb"
	"golang.org/x/text/cases"

	"mapdesc_service/internal/core/round"
	"mapdesc_service/internal/domain/model"
)

var roleConnector = map[string]string{
	"junction":  model.ConnectorJunction,
	"connector": model.ConnectorConnector,
	"crossing":  model.ConnectorCrossing,
}

// CoordKey is the matching key of a coordinate, fixed to three decimals.
func CoordKey(p orb.Point) string {
	return round.Fixed(p[0], 3) + "," + round.Fixed(p[1], 3)
}

type wayRef struct {
	conn model.Connection
	// folded is the case-folded name, empty for unnamed ways.
	folded string
}

// index maps coordinate keys to the ways passing through them.
type index struct {
	ways   map[string][]wayRef
	names  map[string][]string
	points map[string]orb.Point
}

func buildIndex(features []*model.Feature) *index {
	fold := cases.Fold()
	idx := &index{
		ways:   make(map[string][]wayRef),
		names:  make(map[string][]string),
		points: make(map[string]orb.Point),
	}
	for _, f := range features {
		if f.ElementType != model.ElementWay || f.GeometryType() != model.GeometryLineString {
			continue
		}
		name := f.Name()
		ref := wayRef{conn: model.Connection{OSMType: f.OSMType, OSMID: f.OSMID, Name: name}}
		if name != "" {
			ref.folded = fold.String(name)
		}
		if f.Classification != nil {
			ref.conn.SubClass = f.Classification.SubClass
		}
		seen := make(map[string]bool)
		for _, c := range f.Geometry.Coordinates {
			p, ok := c.Point()
			if !ok {
				continue
			}
			key := CoordKey(p)
			if seen[key] {
				continue
			}
			seen[key] = true
			if _, ok := idx.points[key]; !ok {
				idx.points[key] = p
			}
			idx.ways[key] = append(idx.ways[key], ref)
			if name != "" && !contains(idx.names[key], name) {
				idx.names[key] = append(idx.names[key], name)
			}
		}
	}
	return idx
}

// others returns the ways at key other than self.
func (idx *index) others(key string, self model.Connection) []wayRef {
	var out []wayRef
	for _, r := range idx.ways[key] {
		if r.conn.OSMID == self.OSMID && r.conn.OSMType == self.OSMType {
			continue
		}
		out = append(out, r)
	}
	return out
}

// explicitConnectors collects point features marked as junctions, connectors
// or crossings, by classification role or primary representation.
func explicitConnectors(features []*model.Feature) map[string]*model.Connector {
	out := make(map[string]*model.Connector)
	for _, f := range features {
		if f.GeometryType() != model.GeometryPoint {
			continue
		}
		p, ok := f.Geometry.Point.Point()
		if !ok {
			continue
		}
		var typ string
		if f.Classification != nil {
			typ = roleConnector[f.Classification.Role]
		}
		if typ == "" {
			switch f.PrimaryRepresentation {
			case model.ConnectorJunction, model.ConnectorConnector, model.ConnectorCrossing:
				typ = f.PrimaryRepresentation
			}
		}
		if typ == "" {
			continue
		}
		key := CoordKey(p)
		if _, dup := out[key]; dup {
			continue
		}
		out[key] = &model.Connector{
			Key:        key,
			Coordinate: p,
			Type:       typ,
			OSMType:    f.OSMType,
			OSMID:      f.OSMID,
			Name:       f.Name(),
		}
	}
	return out
}

// inferConnectors adds a RoadJunction wherever two or more distinctly named
// ways share a coordinate. Existing entries win.
func (idx *index) inferConnectors(into map[string]*model.Connector) {
	for key, refs := range idx.ways {
		if _, ok := into[key]; ok {
			continue
		}
		distinct := make(map[string]bool)
		for _, r := range refs {
			if r.folded != "" {
				distinct[r.folded] = true
			}
		}
		if len(distinct) < 2 {
			continue
		}
		into[key] = &model.Connector{
			Key:        key,
			Coordinate: idx.points[key],
			Type:       model.ConnectorJunction,
			Inferred:   true,
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedConnectors(m map[string]*model.Connector) []*model.Connector {
	out := make([]*model.Connector, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

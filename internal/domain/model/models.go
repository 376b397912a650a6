package model

import (
	"bytes"
	"encoding/json"

	"github.com/paulmach/orb"
)

// Segment event types, in tie-break priority order.
const (
	EventMapEdgeCrossing = "map_edge_crossing"
	EventJunction        = "junction"
	EventContinuesAs     = "continues_as"
	EventTerminate       = "terminate"
)

// Connector types.
const (
	ConnectorJunction  = "RoadJunction"
	ConnectorConnector = "RoadConnector"
	ConnectorCrossing  = "RoadCrossing"
)

// Connector is a point where named ways meet.
type Connector struct {
	Key        string    `json:"key"`
	Coordinate orb.Point `json:"coordinate"`
	Type       string    `json:"type"`
	Inferred   bool      `json:"inferred,omitempty"`
	OSMType    string    `json:"osmType,omitempty"`
	OSMID      int64     `json:"osmId,omitempty"`
	Name       string    `json:"name,omitempty"`
}

// Connection is another feature meeting at a junction.
type Connection struct {
	OSMType  string `json:"osmType,omitempty"`
	OSMID    int64  `json:"osmId"`
	Name     string `json:"name,omitempty"`
	SubClass string `json:"subClass,omitempty"`
}

// Event is one ordered occurrence along a visible segment.
type Event struct {
	Type          string           `json:"type"`
	T             float64          `json:"t"`
	Zone          *CompactLocation `json:"zone,omitempty"`
	Edge          string           `json:"edge,omitempty"`
	ConnectorType string           `json:"connectorType,omitempty"`
	Inferred      bool             `json:"inferred,omitempty"`
	Connections   []Connection     `json:"connections,omitempty"`
	ContinuesAs   *Connection      `json:"continuesAs,omitempty"`
}

// Sample is a location sample at arc-length fraction T.
type Sample struct {
	T    float64          `json:"t"`
	Zone *CompactLocation `json:"zone"`
}

// Segment is one visible polyline of a way.
type Segment struct {
	Coordinates orb.LineString `json:"coordinates"`
	Length      float64        `json:"length"`
	Samples     []Sample       `json:"samples"`
	Events      []Event        `json:"events"`
}

// WayBucket collects the visible segments of one member way.
type WayBucket struct {
	OSMType  string    `json:"osmType,omitempty"`
	OSMID    int64     `json:"osmId"`
	Segments []Segment `json:"segments"`
}

// WayMember is a road group member.
type WayMember struct {
	OSMType string  `json:"osmType,omitempty"`
	OSMID   int64   `json:"osmId"`
	Name    string  `json:"name,omitempty"`
	Length  float64 `json:"length"`
}

// RoadGroup is the set of ways sharing a display label within a subclass.
type RoadGroup struct {
	DisplayLabel    string      `json:"displayLabel"`
	Ways            []WayMember `json:"ways"`
	VisibleGeometry []WayBucket `json:"visibleGeometry"`
}

// FamilyMultiplier is one tag-richness family contributing to a score.
type FamilyMultiplier struct {
	Family     string  `json:"family"`
	Multiplier float64 `json:"multiplier"`
}

// TagRichness is the tag-richness breakdown of a score.
type TagRichness struct {
	Multiplier float64            `json:"multiplier"`
	Families   []FamilyMultiplier `json:"families"`
}

// ImportanceScore is the numeric salience of a group with its factors.
type ImportanceScore struct {
	Final                 int          `json:"final"`
	Base                  float64      `json:"base"`
	LengthMultiplier      *float64     `json:"lengthMultiplier,omitempty"`
	SizeMultiplier        *float64     `json:"sizeMultiplier,omitempty"`
	TagRichnessMultiplier float64      `json:"tagRichnessMultiplier"`
	TagRichness           *TagRichness `json:"tagRichness,omitempty"`
	LocationMultiplier    float64      `json:"locationMultiplier"`
}

// MemberRef points at a grouped feature.
type MemberRef struct {
	OSMType string `json:"osmType,omitempty"`
	OSMID   int64  `json:"osmId"`
}

// Group aggregates features sharing a display label and location.
type Group struct {
	Label           *string          `json:"label"`
	DisplayLabel    string           `json:"displayLabel"`
	Location        string           `json:"location,omitempty"`
	Count           int              `json:"count"`
	TotalLength     *float64         `json:"totalLength,omitempty"`
	TotalArea       *float64         `json:"totalArea,omitempty"`
	Members         []MemberRef      `json:"members"`
	ImportanceScore *ImportanceScore `json:"importanceScore,omitempty"`
	Road            *RoadGroup       `json:"road,omitempty"`
	Cooked          string           `json:"cooked"`

	// Features are the grouped features; not serialized.
	Features []*Feature `json:"-"`
}

// HasName reports a named group.
func (g *Group) HasName() bool { return g.Label != nil && *g.Label != "" }

// SubclassEntry is the rendered content of one subclass.
type SubclassEntry struct {
	Key    string   `json:"key"`
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Count  int      `json:"count"`
	Groups []*Group `json:"groups"`
	Cooked []string `json:"cooked"`
	More   int      `json:"more,omitempty"`
}

// MainEntry is the rendered content of one main class.
type MainEntry struct {
	Key        string           `json:"key"`
	Name       string           `json:"name"`
	Subclasses []*SubclassEntry `json:"subclasses"`
}

// MapContent is the final content tree: one entry per main class keyed by its
// code, plus the boundary echo.
type MapContent struct {
	Boundary *BBox
	Classes  []*MainEntry
}

func (c MapContent) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	buf.WriteString(`"boundary":`)
	raw, err := json.Marshal(c.Boundary)
	if err != nil {
		return nil, err
	}
	buf.Write(raw)
	for _, m := range c.Classes {
		buf.WriteByte(',')
		if err := writeKey(&buf, m.Key); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Class returns the main entry for key or nil.
func (c *MapContent) Class(key string) *MainEntry {
	for _, m := range c.Classes {
		if m.Key == key {
			return m
		}
	}
	return nil
}

// Sub returns the subclass entry for key or nil.
func (m *MainEntry) Sub(key string) *SubclassEntry {
	for _, s := range m.Subclasses {
		if s.Key == key {
			return s
		}
	}
	return nil
}

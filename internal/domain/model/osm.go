package model

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// Element type discriminators of the raw document.
const (
	ElementNode = "node"
	ElementWay  = "way"
	ElementArea = "area"
)

// NamePreference is the order in which tags are consulted for a display name.
var NamePreference = []string{"name", "name:en", "name:fi", "name:sv", "loc_name", "short_name"}

// TagSource is one underlying OSM element contributing tags to a feature.
type TagSource struct {
	OSMType string            `json:"osmType,omitempty"`
	OSMID   int64             `json:"osmId,omitempty"`
	Tags    map[string]string `json:"tags"`
}

// Feature is one OSM element as exported by the 3D generator, augmented in
// place by the grouping engine.
type Feature struct {
	ElementType           string            `json:"elementType"`
	OSMType               string            `json:"osmType,omitempty"`
	OSMID                 int64             `json:"osmId,omitempty"`
	Layer                 *int              `json:"layer,omitempty"`
	Tags                  map[string]string `json:"tags,omitempty"`
	Representations       []string          `json:"representations,omitempty"`
	PrimaryRepresentation string            `json:"primaryRepresentation,omitempty"`
	Geometry              *Geometry         `json:"geometry,omitempty"`
	Bounds                *BBox             `json:"bounds,omitempty"`
	Center                Coord             `json:"center,omitempty"`
	TagSources            []TagSource       `json:"tagSources,omitempty"`

	Classification  *Classification  `json:"_classification,omitempty"`
	Semantics       *Semantics       `json:"semantics,omitempty"`
	VisibleGeometry *VisibleGeometry `json:"visibleGeometry,omitempty"`
}

// GeometryType returns the geometry discriminator or "".
func (f *Feature) GeometryType() string {
	if f.Geometry == nil {
		return ""
	}
	return f.Geometry.Type
}

// Tag returns a trimmed tag value.
func (f *Feature) Tag(key string) string {
	return strings.TrimSpace(f.Tags[key])
}

// Name returns the first non-empty name tag in NamePreference order.
func (f *Feature) Name() string {
	for _, key := range NamePreference {
		if v := f.Tag(key); v != "" {
			return v
		}
	}
	return ""
}

// Ref identifies the feature as "type/id" for logs and grouping keys.
func (f *Feature) Ref() string {
	t := f.OSMType
	if t == "" {
		t = f.ElementType
	}
	return fmt.Sprintf("%s/%d", t, f.OSMID)
}

// Sources returns the tag sources of the feature, defaulting to its own tags.
func (f *Feature) Sources() []TagSource {
	if len(f.TagSources) > 0 {
		return f.TagSources
	}
	return []TagSource{{OSMType: f.OSMType, OSMID: f.OSMID, Tags: f.Tags}}
}

// Extent returns the feature bounds, derived from the geometry when absent.
func (f *Feature) Extent() (orb.Bound, bool) {
	if f.Bounds != nil {
		return f.Bounds.Bound(), true
	}
	if f.Geometry == nil {
		return orb.Bound{}, false
	}
	var pts []orb.Point
	switch f.Geometry.Type {
	case GeometryPoint:
		if p, ok := f.Geometry.Point.Point(); ok {
			pts = append(pts, p)
		}
	case GeometryLineString:
		pts = f.Geometry.LinePoints()
	case GeometryPolygon:
		pts = RingPoints(f.Geometry.Outer)
	}
	if len(pts) == 0 {
		return orb.Bound{}, false
	}
	b := orb.Bound{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b = b.Extend(p)
	}
	return b, true
}

// IsBuilding reports whether the feature is a building by class or by tag.
func (f *Feature) IsBuilding() bool {
	if c := f.Classification; c != nil {
		if strings.HasPrefix(c.MainClass, "C") || strings.HasPrefix(c.SubClass, "C") {
			return true
		}
	}
	_, b := f.Tags["building"]
	_, bp := f.Tags["building:part"]
	return b || bp
}

// IsWaterArea reports a B1_* water area.
func (f *Feature) IsWaterArea() bool {
	c := f.Classification
	return c != nil && c.MainClass == "B" && strings.HasPrefix(c.SubClass, "B1_")
}

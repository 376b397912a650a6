package render

import (
	"strings"

	"mapdesc_service/internal/core/segments"
	"mapdesc_service/internal/core/spatial"
	"mapdesc_service/internal/domain/model"
)

// Subclass kinds decide how features are summarized, grouped and sorted.
const (
	KindLinear       = "linear"
	KindConnectivity = "connectivity"
	KindBuilding     = "building"
	KindPOI          = "poi"
	KindArea         = "area"
	KindBoundary     = "boundary"
)

const unnamed = "(unnamed)"

// SubclassKind returns the kind of a subclass. Boundaries (E) are areas when
// the first feature is a polygon.
func SubclassKind(mainKey, subKey string, items []*model.Feature) string {
	switch {
	case mainKey == "A" && subKey == "A5_connectivity_nodes":
		return KindConnectivity
	case mainKey == "C":
		return KindBuilding
	case mainKey == "D":
		return KindPOI
	case mainKey == "B":
		return KindArea
	case mainKey == "E":
		if len(items) > 0 && items[0].GeometryType() == model.GeometryPolygon {
			return KindArea
		}
		return KindBoundary
	}
	return KindLinear
}

var areaTypeLabels = map[string]string{
	"B1_lakes":            "lake",
	"B1_ponds":            "pond",
	"B1_reservoirs":       "reservoir",
	"B1_sea_coast":        "sea",
	"B1_riverbanks":       "riverbank",
	"B1_other_water":      "water",
	"B2_parks_recreation": "park",
	"B2_forests":          "forest",
	"B2_fields_open":      "open land",
	"B3_residential":      "residential area",
	"B3_commercial":       "commercial area",
	"B3_industrial":       "industrial area",
	"B_other_areas":       "area",
	"E1_admin_boundaries": "admin boundary",
	"E2_coastlines":       "coastline",
	"E3_fences_walls":     "fence/wall",
}

func areaTypeLabel(sub string) string {
	if l, ok := areaTypeLabels[sub]; ok {
		return l
	}
	return "area"
}

var poiCategories = map[string]string{
	"D1_transport":        "transport",
	"D2_civic":            "civic",
	"D3_commercial":       "commercial",
	"D4_leisure_cultural": "leisure",
}

// summary is the per-feature rendering before grouping.
type summary struct {
	label    string
	name     string
	location string
	length   float64
	area     float64
	// coverage is the rasterized coverage percent of buildings and water.
	coverage float64
	// loc is the location bucket used for scoring.
	loc *model.CompactLocation
}

func summarize(f *model.Feature, kind string, seg *segments.Builder) summary {
	cls := f.Classification
	if cls == nil {
		cls = &model.Classification{}
	}
	switch kind {
	case KindConnectivity:
		return summarizeConnectivity(f, cls, seg)
	case KindBuilding:
		return summarizeBuilding(f, cls)
	case KindPOI:
		return summarizePOI(f, cls)
	case KindArea:
		return summarizeArea(f, cls)
	case KindBoundary:
		s := summary{
			label:    areaTypeLabel(cls.SubClass),
			name:     f.Name(),
			location: phrase(cls.LocationCenter),
			length:   segments.VisibleLength(f),
			loc:      cls.LocationCenter.Compact(),
		}
		if s.name != "" {
			s.label += ": " + s.name
		}
		return s
	}
	return summarizeLinear(f, cls)
}

func summarizeLinear(f *model.Feature, cls *model.Classification) summary {
	name := f.Name()
	label := name
	if label == "" {
		label = unnamed
	}
	start, end, center := phrase(cls.LocationStart), phrase(cls.LocationEnd), phrase(cls.LocationCenter)
	var text string
	switch {
	case start != "" && start == end:
		text = start
	case start != "" && end != "":
		text = start + " -> " + end
	case start != "":
		text = start
	default:
		text = end
	}
	if center != "" {
		if text == "" {
			text = "(center: " + center + ")"
		} else {
			text += " (center: " + center + ")"
		}
	}
	return summary{
		label:    label + modifiersSuffix(cls.Modifiers),
		name:     name,
		location: text,
		length:   segments.VisibleLength(f),
		loc:      cls.LocationCenter.Compact(),
	}
}

func summarizeConnectivity(f *model.Feature, cls *model.Classification, seg *segments.Builder) summary {
	role := cls.Role
	if role == "" {
		role = "node"
	}
	var names []string
	if f.GeometryType() == model.GeometryPoint && seg != nil {
		if p, ok := f.Geometry.Point.Point(); ok {
			names = seg.NamesAt(p)
		}
	}
	s := summary{loc: cls.Location.Compact()}
	if len(names) > 0 {
		s.name = strings.Join(names, " x ")
		s.label = role + ": " + s.name
	} else {
		s.label = role + ": " + unnamed
	}
	return s
}

func summarizeBuilding(f *model.Feature, cls *model.Classification) summary {
	var typ string
	switch building := normalizeLabel(f.Tag("building")); {
	case f.Tag("amenity") != "":
		typ = normalizeLabel(f.Tag("amenity"))
	case f.Tag("building:use") != "":
		typ = normalizeLabel(f.Tag("building:use"))
	case building != "" && building != "yes":
		typ = building + " building"
	case cls.SubClass == "C1_landmark":
		typ = "landmark building"
	case cls.SubClass == "C2_public":
		typ = "public building"
	default:
		typ = "building"
	}
	parts := []string{typ}
	name := f.Name()
	if name != "" {
		parts = append(parts, name)
	}
	if street, number := f.Tag("addr:street"), f.Tag("addr:housenumber"); street != "" && number != "" {
		parts = append(parts, street+" "+number)
	}
	s := summary{
		label:    strings.Join(parts, ", "),
		name:     name,
		location: phrase(cls.LocationCenter),
		loc:      cls.LocationCenter.Compact(),
	}
	if vis := f.VisibleGeometry; vis != nil && vis.Area != nil {
		s.coverage = vis.Area.Coverage.CoveragePercent
	}
	return s
}

func summarizePOI(f *model.Feature, cls *model.Classification) summary {
	label := "poi"
	if c, ok := poiCategories[cls.SubClass]; ok {
		label = c
	}
	for _, key := range []string{"public_transport", "railway", "amenity", "shop", "tourism", "leisure"} {
		if v := f.Tag(key); v != "" {
			label = normalizeLabel(v)
			break
		}
	}
	name := f.Name()
	if name != "" {
		label += ": " + name
	}
	return summary{
		label:    label,
		name:     name,
		location: phrase(cls.Location),
		loc:      cls.Location.Compact(),
	}
}

func summarizeArea(f *model.Feature, cls *model.Classification) summary {
	label := areaTypeLabel(cls.SubClass)
	name := f.Name()
	if name != "" {
		label += ": " + name
	} else {
		label += " " + unnamed
	}
	s := summary{
		label:    label,
		name:     name,
		location: phrase(cls.LocationCenter),
		area:     spatial.PolygonArea(f),
		loc:      cls.LocationCenter.Compact(),
	}
	// Rasterized areas report their dominant zone.
	if vis := f.VisibleGeometry; vis != nil && vis.Area != nil && len(vis.Area.Coverage.Segments) > 0 {
		top := vis.Area.Coverage.Segments[0]
		s.loc = (&model.Location{Zone: top.Zone, Dir: top.Dir}).Compact()
	}
	if vis := f.VisibleGeometry; vis != nil && vis.Area != nil {
		s.coverage = vis.Area.Coverage.CoveragePercent
	}
	return s
}

package render

import (
	"math"
	"strings"

	"mapdesc_service/internal/core/location"
	"mapdesc_service/internal/core/round"
	"mapdesc_service/internal/domain/model"
)

const (
	minLengthMultiplier = 0.2
	maxLengthMultiplier = 1.0
	maxTagRichness      = 2.5

	defaultBase        = 20.0
	namedBuildingBase  = 60.0
	plainBuildingBase  = 30.0
	poiBase            = 50.0
	waterBase          = 10.0
	waterCoverageScale = 1.8
)

// linearBase ranks roads, rail and waterways.
var linearBase = map[string]float64{
	"A1_major_roads":      100,
	"A1_minor_roads":      70,
	"A1_service_roads":    40,
	"A3_railways":         60,
	"A3_trams_light_rail": 50,
	"A4_rivers_canals":    60,
	"A2_footways":         30,
	"A2_cycleways":        30,
	"A2_paths_tracks":     25,
	"A4_other_waterways":  25,
}

type tagFamily struct {
	name       string
	multiplier float64
	match      func(key string) bool
}

func keyIn(keys ...string) func(string) bool {
	return func(k string) bool {
		for _, key := range keys {
			if k == key {
				return true
			}
		}
		return false
	}
}

var tagFamilies = []tagFamily{
	{"wikipedia", 1.35, func(k string) bool { return k == "wikipedia" || strings.HasPrefix(k, "wikipedia:") }},
	{"wikidata", 1.25, keyIn("wikidata")},
	{"commons", 1.15, keyIn("wikimedia_commons")},
	{"website", 1.15, keyIn("website", "contact:website", "url")},
	{"operator_brand", 1.10, keyIn("operator", "brand")},
	{"localized_names", 1.05, func(k string) bool { return strings.HasPrefix(k, "name:") }},
}

// scoreInput is what one group contributes to its score.
type scoreInput struct {
	mainKey, subKey, kind string
	group                 *model.Group
	coverage              float64
	loc                   *model.CompactLocation
	// cohortCoverage is the largest coverage among buildings sharing the
	// group's named/unnamed state.
	cohortCoverage float64
	maxSide        float64
}

func score(in scoreInput) *model.ImportanceScore {
	g := in.group
	base := baseScore(in)
	s := &model.ImportanceScore{Base: round.To(base, 2)}
	value := base

	switch in.kind {
	case KindLinear:
		if in.maxSide > 0 && g.TotalLength != nil {
			ratio := math.Min(1, *g.TotalLength/in.maxSide)
			m := round.To(minLengthMultiplier+(maxLengthMultiplier-minLengthMultiplier)*ratio, 4)
			s.LengthMultiplier = &m
			value *= m
		}
	case KindBuilding:
		if in.cohortCoverage > 0 {
			m := round.To(in.coverage/in.cohortCoverage, 4)
			s.SizeMultiplier = &m
			value *= m
		}
	}

	richness := tagRichness(g.Features)
	s.TagRichnessMultiplier = richness.Multiplier
	if richness.Multiplier > 1 {
		s.TagRichness = richness
	}
	value *= richness.Multiplier

	if g.Road != nil {
		s.LocationMultiplier = roadLocationMultiplier(g.Road)
	} else {
		s.LocationMultiplier = location.Weight(in.loc)
	}
	value *= s.LocationMultiplier

	s.Final = int(round.Half(value))
	return s
}

func baseScore(in scoreInput) float64 {
	switch in.kind {
	case KindLinear:
		if b, ok := linearBase[in.subKey]; ok {
			return b
		}
	case KindBuilding:
		if in.group.HasName() {
			return namedBuildingBase
		}
		return plainBuildingBase
	case KindPOI:
		return poiBase
	case KindArea:
		if strings.HasPrefix(in.subKey, "B1_") {
			return waterBase + waterCoverageScale*math.Min(100, in.coverage)
		}
	}
	return defaultBase
}

// tagRichness multiplies the families present on any member, capped.
func tagRichness(features []*model.Feature) *model.TagRichness {
	present := make(map[string]bool)
	mark := func(tags map[string]string) {
		for key, v := range tags {
			if v == "" {
				continue
			}
			for _, fam := range tagFamilies {
				if fam.match(key) {
					present[fam.name] = true
				}
			}
		}
	}
	for _, f := range features {
		mark(f.Tags)
		for _, src := range f.TagSources {
			mark(src.Tags)
		}
	}
	tr := &model.TagRichness{Multiplier: 1, Families: []model.FamilyMultiplier{}}
	for _, fam := range tagFamilies {
		if !present[fam.name] {
			continue
		}
		tr.Multiplier *= fam.multiplier
		tr.Families = append(tr.Families, model.FamilyMultiplier{Family: fam.name, Multiplier: fam.multiplier})
	}
	tr.Multiplier = round.To(math.Min(maxTagRichness, tr.Multiplier), 4)
	return tr
}

// roadLocationMultiplier averages sample weights over every visible segment,
// weighted by segment length when known.
func roadLocationMultiplier(rg *model.RoadGroup) float64 {
	var (
		weighted, totalLen float64
		sum                float64
		n                  int
	)
	for _, bucket := range rg.VisibleGeometry {
		for _, seg := range bucket.Segments {
			if len(seg.Samples) == 0 {
				continue
			}
			var segSum float64
			for _, s := range seg.Samples {
				w := location.Weight(s.Zone)
				segSum += w
				sum += w
				n++
			}
			if seg.Length > 0 {
				weighted += seg.Length * segSum / float64(len(seg.Samples))
				totalLen += seg.Length
			}
		}
	}
	switch {
	case totalLen > 0:
		return round.To(weighted/totalLen, 4)
	case n > 0:
		return round.To(sum/float64(n), 4)
	}
	return 1
}

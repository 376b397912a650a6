// Package render collapses grouped features into labelled, salience-ordered
// groups with cooked text lines and importance scores.
package render

import (
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"mapdesc_service/internal/core/round"
	"mapdesc_service/internal/core/rules"
	"mapdesc_service/internal/core/segments"
	"mapdesc_service/internal/domain/model"
)

type Options struct {
	Logger *zap.Logger
}

type Renderer struct {
	rules *rules.Ruleset
	seg   *segments.Builder
	log   *zap.Logger
}

// New returns a renderer. seg supplies road names at connector coordinates
// and the road segment events; it may be nil.
func New(rs *rules.Ruleset, seg *segments.Builder, opts Options) *Renderer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{rules: rs, seg: seg, log: log}
}

// groupState accumulates one group while features are folded in.
type groupState struct {
	group    *model.Group
	coverage float64
	loc      *model.CompactLocation
	longest  float64
}

// Build renders every main class in key order. Subclasses follow the
// ruleset order, then any extra subclass in grouped order.
func (r *Renderer) Build(grouped *model.Grouped) []*model.MainEntry {
	start := time.Now()
	maxSide := r.maxSide(grouped)

	keys := make(map[string]bool)
	for _, c := range r.rules.Classes {
		keys[c.Key] = true
	}
	for _, m := range grouped.Mains {
		keys[m.Key] = true
	}
	mainKeys := make([]string, 0, len(keys))
	for k := range keys {
		mainKeys = append(mainKeys, k)
	}
	sort.Strings(mainKeys)

	out := make([]*model.MainEntry, 0, len(mainKeys))
	groups := 0
	for _, mainKey := range mainKeys {
		class := r.rules.Class(mainKey)
		entry := &model.MainEntry{Key: mainKey, Name: mainKey, Subclasses: []*model.SubclassEntry{}}
		if class != nil {
			entry.Name = class.Name
		}
		main := grouped.Main(mainKey)
		if main == nil {
			out = append(out, entry)
			continue
		}
		for _, subKey := range subclassOrder(class, main) {
			items := main.Sub(subKey).Features
			kind := SubclassKind(mainKey, subKey, items)
			name := subKey
			if class != nil {
				name = class.SubclassName(subKey)
			}
			sub := &model.SubclassEntry{
				Key:    subKey,
				Name:   name,
				Kind:   kind,
				Count:  len(items),
				Groups: r.buildGroups(mainKey, subKey, kind, items, maxSide),
			}
			groups += len(sub.Groups)
			entry.Subclasses = append(entry.Subclasses, sub)
		}
		out = append(out, entry)
	}
	r.log.Info("rendered map groups",
		zap.Int("main_classes", len(out)),
		zap.Int("groups", groups),
		zap.Duration("elapsed", time.Since(start)))
	return out
}

func (r *Renderer) maxSide(grouped *model.Grouped) float64 {
	if grouped.Boundary != nil {
		return grouped.Boundary.MaxSide()
	}
	if r.seg != nil && r.seg.MapBBox() != nil {
		return r.seg.MapBBox().MaxSide()
	}
	return 0
}

func subclassOrder(class *rules.Class, main *model.MainGroup) []string {
	var keys []string
	seen := make(map[string]bool)
	if class != nil {
		for _, s := range class.Subclasses {
			if sg := main.Sub(s.Key); sg != nil && len(sg.Features) > 0 {
				keys = append(keys, s.Key)
				seen[s.Key] = true
			}
		}
	}
	for _, sg := range main.Subs {
		if !seen[sg.Key] && len(sg.Features) > 0 {
			keys = append(keys, sg.Key)
			seen[sg.Key] = true
		}
	}
	return keys
}

func (r *Renderer) buildGroups(mainKey, subKey, kind string, items []*model.Feature, maxSide float64) []*model.Group {
	roads := mainKey == "A" && kind == KindLinear
	index := make(map[string]*groupState)
	var states []*groupState

	for _, f := range items {
		s := summarize(f, kind, r.seg)
		key := s.label + "||" + s.location
		if roads {
			// Named roads merge regardless of location; unnamed ones never merge.
			key = s.label
			if s.name == "" {
				key += "#" + f.Ref()
			}
		}
		st, ok := index[key]
		if !ok {
			st = &groupState{
				group: &model.Group{
					DisplayLabel: s.label,
					Location:     s.location,
					Members:      []model.MemberRef{},
				},
				loc:     s.loc,
				longest: -1,
			}
			index[key] = st
			states = append(states, st)
		}
		g := st.group
		if g.Label == nil && s.name != "" {
			name := s.name
			g.Label = &name
		}
		g.Count++
		g.Members = append(g.Members, model.MemberRef{OSMType: f.OSMType, OSMID: f.OSMID})
		g.Features = append(g.Features, f)
		st.coverage += s.coverage

		switch kind {
		case KindLinear, KindBoundary:
			total := s.length
			if g.TotalLength != nil {
				total += *g.TotalLength
			}
			g.TotalLength = &total
		case KindArea:
			total := s.area
			if g.TotalArea != nil {
				total += *g.TotalArea
			}
			g.TotalArea = &total
		}
		if roads && s.length > st.longest {
			st.longest = s.length
			g.Location = s.location
			st.loc = s.loc
		}
	}

	if roads && r.seg != nil {
		for _, st := range states {
			st.group.Road = r.seg.RoadGroup(st.group.DisplayLabel, st.group.Features)
		}
	}

	cohort := map[bool]float64{}
	if kind == KindBuilding {
		for _, st := range states {
			named := st.group.HasName()
			if st.coverage > cohort[named] {
				cohort[named] = st.coverage
			}
		}
	}

	groups := make([]*model.Group, 0, len(states))
	for _, st := range states {
		g := st.group
		if g.TotalLength != nil {
			v := round.To(*g.TotalLength, 2)
			g.TotalLength = &v
		}
		if g.TotalArea != nil {
			v := round.To(*g.TotalArea, 2)
			g.TotalArea = &v
		}
		g.ImportanceScore = score(scoreInput{
			mainKey:        mainKey,
			subKey:         subKey,
			kind:           kind,
			group:          g,
			coverage:       st.coverage,
			loc:            st.loc,
			cohortCoverage: cohort[g.HasName()],
			maxSide:        maxSide,
		})
		g.Cooked = CookedLine(g, kind)
		groups = append(groups, g)
	}
	sortGroups(groups, kind)
	return groups
}

func metric(g *model.Group, kind string) float64 {
	switch kind {
	case KindLinear, KindBoundary:
		if g.TotalLength != nil {
			return *g.TotalLength
		}
	case KindArea:
		if g.TotalArea != nil {
			return *g.TotalArea
		}
	case KindConnectivity:
		return float64(g.Count)
	}
	return 0
}

// sortGroups orders named before unnamed, then by descending metric, then
// by label.
func sortGroups(groups []*model.Group, kind string) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.HasName() != b.HasName() {
			return a.HasName()
		}
		if ma, mb := metric(a, kind), metric(b, kind); ma != mb {
			return ma > mb
		}
		return a.DisplayLabel < b.DisplayLabel
	})
}

// CookedLine renders one group as a line of text.
func CookedLine(g *model.Group, kind string) string {
	var size string
	switch kind {
	case KindLinear, KindBoundary:
		if g.TotalLength != nil && *g.TotalLength > 0 {
			size = FormatMeters(*g.TotalLength)
		}
	case KindArea:
		if g.TotalArea != nil && *g.TotalArea > 0 {
			size = FormatArea(*g.TotalArea)
		}
	}

	head := g.DisplayLabel
	sep := " — "
	if g.Count > 1 {
		head = strconv.Itoa(g.Count) + " x " + g.DisplayLabel
		if size != "" {
			size = "total " + size
		}
	} else if kind == KindArea {
		sep = ", "
	}

	line := head
	if size != "" {
		line += sep + size
	}
	if g.Location != "" {
		line += " — " + g.Location
	}
	return line
}

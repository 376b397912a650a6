// Package semantics normalizes street-level OSM tags (surface, lanes, width,
// speed, crossings, accessibility) into typed facts, merging values across
// the tag sources of a feature.
package semantics

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"mapdesc_service/internal/domain/model"
)

var typeRank = map[string]int{"relation": 0, "way": 1, "node": 2}

// sortedSources orders sources relations first, then ways, then nodes, each by id.
func sortedSources(f *model.Feature) []model.TagSource {
	var sources []model.TagSource
	for _, s := range f.TagSources {
		if s.Tags != nil {
			sources = append(sources, s)
		}
	}
	if len(sources) == 0 {
		if f.Tags == nil {
			return nil
		}
		return []model.TagSource{{OSMType: f.OSMType, OSMID: f.OSMID, Tags: f.Tags}}
	}
	rank := func(t string) int {
		if r, ok := typeRank[t]; ok {
			return r
		}
		return 3
	}
	sort.SliceStable(sources, func(i, j int) bool {
		ri, rj := rank(sources[i].OSMType), rank(sources[j].OSMType)
		if ri != rj {
			return ri < rj
		}
		return sources[i].OSMID < sources[j].OSMID
	})
	return sources
}

// rawValues records every consulted tag with its distinct values in order.
type rawValues map[string][]string

func (r rawValues) add(key, value string) {
	for _, v := range r[key] {
		if v == value {
			return
		}
	}
	r[key] = append(r[key], value)
}

func (r rawValues) finalize() map[string]any {
	if len(r) == 0 {
		return nil
	}
	out := make(map[string]any, len(r))
	for k, vs := range r {
		if len(vs) == 1 {
			out[k] = vs[0]
		} else {
			out[k] = append([]string(nil), vs...)
		}
	}
	return out
}

// reader reads the tags of one source, recording what it consults.
type reader struct {
	tags map[string]string
	raw  rawValues
}

func (r reader) has(key string) bool {
	_, ok := r.tags[key]
	return ok
}

// get returns the trimmed value and whether the key is present.
func (r reader) get(key string) (string, bool) {
	v, ok := r.tags[key]
	if !ok {
		return "", false
	}
	r.raw.add(key, v)
	return strings.TrimSpace(v), true
}

// lower returns the trimmed lowercase value, "" when missing or blank.
func (r reader) lower(key string) string {
	v, _ := r.get(key)
	return strings.ToLower(v)
}

// family accumulates one attribute over all sources.
type family struct {
	values  []parsed
	touched bool
}

func (f *family) add(v parsed, touched bool) {
	f.values = append(f.values, v)
	f.touched = f.touched || touched
}

func (f *family) value() *model.Value { return valueOf(f.values, f.touched) }

// Build extracts the semantics of a feature. It returns nil when none of the
// recognized tag families is present on any source.
func Build(f *model.Feature) *model.Semantics {
	sources := sortedSources(f)
	if len(sources) == 0 {
		return nil
	}
	raw := rawValues{}

	var (
		surfaceValues, surfaceClasses                           family
		smoothness, lit, oneway, sidewalk, cycleway, segregated family
		kerb, wheelchair, access                                family
		crossTypes, crossMarkings, crossTactile                 family
		widths, speeds                                          []measure
		widthTouched, speedTouched                              bool
		laneEntries                                             []lanes
		lanesTouched                                            bool
		inclines                                                []incline
		inclineTouched                                          bool
		stepCounts                                              []parsed
		stepsTouched                                            bool
	)

	for _, src := range sources {
		r := reader{tags: src.Tags, raw: raw}

		v, c, ok := parseSurface(r)
		surfaceValues.add(v, ok)
		surfaceClasses.add(c, ok)

		smoothness.add(parseFamilyEnum(r, "smoothness", smoothnessValues))
		lit.add(parseFamilyYesNo(r, "lit"))

		l, ok := parseLanes(r)
		laneEntries = append(laneEntries, l)
		lanesTouched = lanesTouched || ok

		w, ok := parseWidth(r, l.total)
		widths = append(widths, w)
		widthTouched = widthTouched || ok

		oneway.add(parseOneway(r))

		s, ok := parseMaxspeed(r)
		speeds = append(speeds, s)
		speedTouched = speedTouched || ok

		sidewalk.add(parseFamilyEnum(r, "sidewalk", sidewalkValues))
		cycleway.add(parseCycleway(r))
		segregated.add(parseFamilyYesNo(r, "segregated"))

		if ct, cm, tp, ok := parseCrossing(r); ok {
			crossTypes.add(ct, true)
			crossMarkings.add(cm, true)
			crossTactile.add(tp, true)
		}

		kerb.add(parseFamilyEnum(r, "kerb", kerbValues))

		in, ok := parseIncline(r)
		if ok {
			inclines = append(inclines, in)
			inclineTouched = true
		}

		sc, ok := parseSteps(r)
		if ok {
			stepCounts = append(stepCounts, sc)
			stepsTouched = true
		}

		wheelchair.add(parseFamilyEnum(r, "wheelchair", wheelchairValues))
		access.add(parseFamilyEnum(r, "access", accessValues))
	}

	out := &model.Semantics{}
	touched := false
	if sv, sc := uniformOrMixed(surfaceValues.values, surfaceValues.touched),
		uniformOrMixed(surfaceClasses.values, surfaceClasses.touched); sv != "" || sc != "" {
		out.Surface = &model.SurfaceFact{Class: sc, Value: sv}
		touched = true
	}
	assign := func(dst **model.Value, fam *family) {
		if v := fam.value(); v != nil {
			*dst = v
			touched = true
		}
	}
	assign(&out.Smoothness, &smoothness)
	assign(&out.Lit, &lit)
	assign(&out.Oneway, &oneway)
	assign(&out.Sidewalk, &sidewalk)
	assign(&out.Cycleway, &cycleway)
	assign(&out.Segregated, &segregated)
	assign(&out.Kerb, &kerb)
	assign(&out.Wheelchair, &wheelchair)
	assign(&out.Access, &access)

	if m := mergeMeasures(widths, widthTouched); m != nil {
		out.WidthM = m
		touched = true
	}
	if l := mergeLanes(laneEntries, lanesTouched); l != nil {
		out.Lanes = l
		touched = true
	}
	if m := mergeMeasures(speeds, speedTouched); m != nil {
		out.MaxspeedKmh = m
		touched = true
	}
	if crossTypes.touched {
		out.Crossing = &model.CrossingFact{
			Type:          uniformOrMixed(crossTypes.values, true),
			Markings:      uniformOrMixed(crossMarkings.values, true),
			TactilePaving: uniformOrMixed(crossTactile.values, true),
		}
		touched = true
	}
	if in := mergeIncline(inclines, inclineTouched); in != nil {
		out.Incline = in
		touched = true
	}
	if stepsTouched {
		out.Steps = &model.StepsFact{}
		if v := uniformOrMixed(stepCounts, true); v != model.Mixed && v != model.Unknown {
			if n := parseCount(v); n != nil {
				out.Steps.StepCount = n
			}
		}
		touched = true
	}
	if !touched {
		return nil
	}
	out.Raw = raw.finalize()
	return out
}

func parseFamilyEnum(r reader, key string, allowed map[string]bool) (parsed, bool) {
	v, ok := r.get(key)
	return parseEnum(v, ok, allowed), ok
}

func parseFamilyYesNo(r reader, key string) (parsed, bool) {
	v, ok := r.get(key)
	return parseYesNo(v, ok), ok
}

// parseSurface reads surface, then tracktype on tracks, then material.
func parseSurface(r reader) (value, class parsed, touched bool) {
	if r.has("surface") {
		v := r.lower("surface")
		if v == "" {
			return unknownValue, unknownValue, true
		}
		return knownValue(v), surfaceClass(v), true
	}
	if r.has("tracktype") {
		highway := r.lower("highway")
		track := r.lower("tracktype")
		if highway == "track" {
			if track == "" {
				return unknownValue, unknownValue, true
			}
			return knownValue(track), surfaceClass(track), true
		}
	}
	if r.has("material") {
		m := r.lower("material")
		if m == "" {
			return unknownValue, unknownValue, true
		}
		return knownValue(m), surfaceClass(m), true
	}
	return absentValue, absentValue, false
}

func parseOneway(r reader) (parsed, bool) {
	if !r.has("oneway") {
		return absentValue, false
	}
	switch r.lower("oneway") {
	case "yes", "true", "1":
		return knownValue("yes"), true
	case "no", "false", "0":
		return knownValue("no"), true
	case "reversible":
		return knownValue("reversible"), true
	}
	return unknownValue, true
}

// parseLanes prefers lanes:forward + lanes:backward over plain lanes.
func parseLanes(r reader) (lanes, bool) {
	fwdRaw, hasFwd := r.get("lanes:forward")
	bwdRaw, hasBwd := r.get("lanes:backward")
	totalRaw, hasTotal := r.get("lanes")
	if !hasFwd && !hasBwd && !hasTotal {
		return lanes{}, false
	}
	fwd, bwd := parseCount(fwdRaw), parseCount(bwdRaw)
	if hasFwd && hasBwd && fwd != nil && bwd != nil {
		total := *fwd + *bwd
		return lanes{total: &total, forward: fwd, backward: bwd, source: "lanes:forward/backward"}, true
	}
	if total := parseCount(totalRaw); hasTotal && total != nil {
		return lanes{total: total, source: "lanes"}, true
	}
	return lanes{source: model.Unknown}, true
}

// parseWidth reads width, then est_width, then lane_width times the lane count.
func parseWidth(r reader, laneCount *float64) (measure, bool) {
	if v, ok := r.get("width"); ok {
		return measure{v: parseMeters(v), source: "width"}, true
	}
	if v, ok := r.get("est_width"); ok {
		return measure{v: parseMeters(v), source: "est_width"}, true
	}
	if v, ok := r.get("lane_width"); ok {
		lw := parseMeters(v)
		if lw == nil || laneCount == nil {
			return measure{source: "lane_width*lanes"}, true
		}
		w := *lw * *laneCount
		return measure{v: &w, source: "lane_width*lanes"}, true
	}
	return measure{}, false
}

// parseMaxspeed prefers equal maxspeed:forward and maxspeed:backward over maxspeed.
func parseMaxspeed(r reader) (measure, bool) {
	fwdRaw, hasFwd := r.get("maxspeed:forward")
	bwdRaw, hasBwd := r.get("maxspeed:backward")
	directional := hasFwd || hasBwd
	if directional {
		fwd, bwd := parseSpeed(fwdRaw), parseSpeed(bwdRaw)
		if hasFwd && hasBwd && fwd != nil && bwd != nil && *fwd == *bwd {
			return measure{v: fwd, source: "maxspeed:forward/backward"}, true
		}
	}
	if v, ok := r.get("maxspeed"); ok {
		return measure{v: parseSpeed(v), source: "maxspeed"}, true
	}
	if directional {
		return measure{source: model.Unknown}, true
	}
	return measure{}, false
}

func parseCycleway(r reader) (parsed, bool) {
	if v, ok := r.get("cycleway"); ok {
		return parseEnum(v, true, cyclewayValues), true
	}
	leftRaw, hasLeft := r.get("cycleway:left")
	rightRaw, hasRight := r.get("cycleway:right")
	if !hasLeft && !hasRight {
		return absentValue, false
	}
	left := parseEnum(leftRaw, hasLeft, cyclewayValues)
	right := parseEnum(rightRaw, hasRight, cyclewayValues)
	if left.state == unknown || right.state == unknown {
		return unknownValue, true
	}
	if left.state == known && right.state == known && left.value != right.value {
		return knownValue(model.Mixed), true
	}
	if left.state == known {
		return left, true
	}
	return right, true
}

// parseCrossing is active on highway=crossing or any crossing detail tag.
func parseCrossing(r reader) (kind, markings, tactile parsed, touched bool) {
	if r.has("highway") && r.lower("highway") == "crossing" {
		touched = true
	}
	crossingRaw, hasCrossing := "", false
	if r.has("crossing") {
		crossingRaw, hasCrossing = r.get("crossing")
		touched = true
	}
	if r.has("crossing:markings") || r.has("tactile_paving") {
		touched = true
	}
	if !touched {
		return absentValue, absentValue, absentValue, false
	}
	kind = parseEnum(crossingRaw, hasCrossing, crossingTypes)
	mv, mok := r.get("crossing:markings")
	tv, tok := r.get("tactile_paving")
	markings = parseYesNo(mv, mok)
	tactile = parseYesNo(tv, tok)
	orUnknown := func(p parsed) parsed {
		if p.state == absent {
			return unknownValue
		}
		return p
	}
	return orUnknown(kind), orUnknown(markings), orUnknown(tactile), true
}

// parseIncline reads up/down, N% or a:b ratios. The sign gives the direction.
func parseIncline(r reader) (incline, bool) {
	v, ok := r.get("incline")
	if !ok {
		return incline{}, false
	}
	text := strings.ToLower(v)
	if text == "up" || text == "down" {
		return incline{value: knownValue(text)}, true
	}
	var num, percent float64
	switch {
	case strings.HasSuffix(text, "%"):
		n, ok := parseNumber(strings.TrimSuffix(text, "%"))
		if !ok {
			return incline{value: knownValue(model.Unknown)}, true
		}
		num, percent = n, math.Abs(n)
	case strings.Contains(text, ":"):
		parts := strings.SplitN(text, ":", 2)
		n, ok1 := parseNumber(parts[0])
		d, ok2 := parseNumber(parts[1])
		if !ok1 || !ok2 || d == 0 {
			return incline{value: knownValue(model.Unknown)}, true
		}
		num, percent = n, 100*math.Abs(n)/d
	default:
		return incline{value: knownValue(model.Unknown)}, true
	}
	dir := "up"
	switch {
	case num == 0:
		dir = "level"
	case num < 0:
		dir = "down"
	}
	return incline{value: knownValue(dir), percent: &percent}, true
}

// parseSteps is active on highway=steps or a step_count tag.
func parseSteps(r reader) (parsed, bool) {
	touched := r.has("highway") && r.lower("highway") == "steps"
	v, ok := r.get("step_count")
	if ok {
		touched = true
	}
	if !touched {
		return absentValue, false
	}
	// compared as integers so that "05" and "5" agree
	if n := parseCount(v); ok && n != nil {
		return knownValue(strconv.Itoa(int(*n))), true
	}
	return unknownValue, true
}

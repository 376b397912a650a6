package semantics

import "mapdesc_service/internal/domain/model"

func set(values ...string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

var (
	pavedSurfaces = set("asphalt", "concrete", "concrete:lanes", "concrete:plates", "paved",
		"paving_stones", "sett", "bricks", "cobblestone")
	unpavedSurfaces = set("unpaved", "gravel", "fine_gravel", "pebblestone", "dirt", "earth",
		"ground", "mud", "sand", "grass", "grass_paver", "woodchips", "snow", "ice")
	smoothnessValues = set("excellent", "good", "intermediate", "bad", "very_bad", "horrible",
		"very_horrible", "impassable")
	sidewalkValues   = set("both", "left", "right", "no", "separate")
	cyclewayValues   = set("lane", "track", "shared_lane", "shared", "no")
	wheelchairValues = set("yes", "no", "limited")
	accessValues     = set("yes", "no", "permissive", "private", "destination", "customers")
	crossingTypes    = set("uncontrolled", "traffic_signals", "marked", "island")
	kerbValues       = set("flush", "lowered", "raised")
)

type state uint8

const (
	absent state = iota
	unknown
	known
)

// parsed is an enum value that may be absent or present but unreadable.
type parsed struct {
	value string
	state state
}

func knownValue(v string) parsed { return parsed{value: v, state: known} }

var (
	absentValue  = parsed{}
	unknownValue = parsed{state: unknown}
)

// uniformOrMixed merges per-source values: "" when the family was never
// touched, unknown when nothing was readable, mixed on disagreement.
func uniformOrMixed(values []parsed, touched bool) string {
	if !touched {
		return ""
	}
	first := ""
	for _, v := range values {
		if v.state != known {
			continue
		}
		if first == "" {
			first = v.value
			continue
		}
		if v.value != first {
			return model.Mixed
		}
	}
	if first == "" {
		return model.Unknown
	}
	return first
}

func valueOf(values []parsed, touched bool) *model.Value {
	v := uniformOrMixed(values, touched)
	if v == "" {
		return nil
	}
	return &model.Value{Value: v}
}

// measure is a numeric value with its provenance; v is nil when unreadable.
type measure struct {
	v      *float64
	source string
}

func mergeMeasures(entries []measure, touched bool) *model.Measure {
	if !touched {
		return nil
	}
	var knownEntries []measure
	for _, e := range entries {
		if e.v != nil {
			knownEntries = append(knownEntries, e)
		}
	}
	if len(knownEntries) == 0 {
		return &model.Measure{Source: model.Unknown}
	}
	value := *knownEntries[0].v
	source := knownEntries[0].source
	for _, e := range knownEntries[1:] {
		if *e.v != value {
			return &model.Measure{Source: model.Unknown}
		}
		if e.source != source {
			source = model.Unknown
		}
	}
	if source == "" {
		source = model.Unknown
	}
	return &model.Measure{Value: &value, Source: source}
}

type lanes struct {
	total, forward, backward *float64
	source                   string
}

func mergeLanes(entries []lanes, touched bool) *model.LanesFact {
	if !touched {
		return nil
	}
	var total *float64
	for _, e := range entries {
		if e.total == nil {
			continue
		}
		if total == nil {
			total = e.total
			continue
		}
		if *e.total != *total {
			return &model.LanesFact{Source: model.Unknown}
		}
	}
	if total == nil {
		return &model.LanesFact{Source: model.Unknown}
	}
	out := &model.LanesFact{
		Total:    total,
		Forward:  uniformNumber(entries, func(l lanes) *float64 { return l.forward }),
		Backward: uniformNumber(entries, func(l lanes) *float64 { return l.backward }),
		Source:   model.Unknown,
	}
	var sources []string
	for _, e := range entries {
		if e.source != "" {
			sources = append(sources, e.source)
		}
	}
	if len(sources) > 0 {
		out.Source = sources[0]
		for _, s := range sources[1:] {
			if s != sources[0] {
				out.Source = model.Unknown
				break
			}
		}
	}
	return out
}

func uniformNumber(entries []lanes, get func(lanes) *float64) *float64 {
	var first *float64
	for _, e := range entries {
		v := get(e)
		if v == nil {
			continue
		}
		if first == nil {
			first = v
			continue
		}
		if *v != *first {
			return nil
		}
	}
	return first
}

type incline struct {
	value   parsed
	percent *float64
}

func mergeIncline(entries []incline, touched bool) *model.InclineFact {
	if !touched {
		return nil
	}
	values := make([]parsed, len(entries))
	percents := make([]measure, len(entries))
	for i, e := range entries {
		values[i] = e.value
		percents[i] = measure{v: e.percent, source: "incline"}
	}
	return &model.InclineFact{
		Value:   uniformOrMixed(values, true),
		Percent: mergeMeasures(percents, true).Value,
	}
}

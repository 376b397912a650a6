package model

// Unknown marks a tag that was present but could not be interpreted.
const Unknown = "unknown"

// Mixed marks disagreeing values across tag sources.
const Mixed = "mixed"

// Value is a single normalized enum value.
type Value struct {
	Value string `json:"value"`
}

// SurfaceFact carries the paved/unpaved class and the raw surface value.
type SurfaceFact struct {
	Class string `json:"class"`
	Value string `json:"value"`
}

// Measure is a numeric value with the tag it came from. Value is nil when the
// source tag was unparseable.
type Measure struct {
	Value  *float64 `json:"value"`
	Source string   `json:"source"`
}

// LanesFact is the lane count, split by direction when tagged.
type LanesFact struct {
	Total    *float64 `json:"total"`
	Forward  *float64 `json:"forward,omitempty"`
	Backward *float64 `json:"backward,omitempty"`
	Source   string   `json:"source"`
}

// CrossingFact describes a pedestrian crossing.
type CrossingFact struct {
	Type          string `json:"type"`
	Markings      string `json:"markings"`
	TactilePaving string `json:"tactile_paving"`
}

// InclineFact is a direction (up/down/level) with an absolute percent.
type InclineFact struct {
	Value   string   `json:"value"`
	Percent *float64 `json:"percent,omitempty"`
}

// StepsFact describes a staircase.
type StepsFact struct {
	StepCount *float64 `json:"step_count"`
}

// Semantics is the normalized, merged view of the recognized tag families.
// Raw values are strings, or string lists when sources disagree.
type Semantics struct {
	Raw         map[string]any `json:"raw"`
	Surface     *SurfaceFact   `json:"surface,omitempty"`
	Smoothness  *Value         `json:"smoothness,omitempty"`
	Lit         *Value         `json:"lit,omitempty"`
	WidthM      *Measure       `json:"width_m,omitempty"`
	Lanes       *LanesFact     `json:"lanes,omitempty"`
	Oneway      *Value         `json:"oneway,omitempty"`
	MaxspeedKmh *Measure       `json:"maxspeed_kmh,omitempty"`
	Sidewalk    *Value         `json:"sidewalk,omitempty"`
	Cycleway    *Value         `json:"cycleway,omitempty"`
	Segregated  *Value         `json:"segregated,omitempty"`
	Crossing    *CrossingFact  `json:"crossing,omitempty"`
	Kerb        *Value         `json:"kerb,omitempty"`
	Incline     *InclineFact   `json:"incline,omitempty"`
	Steps       *StepsFact     `json:"steps,omitempty"`
	Wheelchair  *Value         `json:"wheelchair,omitempty"`
	Access      *Value         `json:"access,omitempty"`
}

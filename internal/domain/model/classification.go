package model

// Modifier is a named qualifier attached by a modifier rule, e.g. bridge or layer.
type Modifier struct {
	Name  string  `json:"name"`
	Value *string `json:"value"`
}

// Classification is the rule matcher's verdict plus the locations attached by
// the grouping engine.
type Classification struct {
	MainClass     string     `json:"mainClass"`
	SubClass      string     `json:"subClass"`
	RuleID        string     `json:"ruleId,omitempty"`
	Ignore        bool       `json:"ignore,omitempty"`
	Role          string     `json:"role,omitempty"`
	POIImportance string     `json:"poiImportance,omitempty"`
	Modifiers     []Modifier `json:"modifiers"`

	Location       *Location `json:"location,omitempty"`
	LocationStart  *Location `json:"locationStart,omitempty"`
	LocationEnd    *Location `json:"locationEnd,omitempty"`
	LocationCenter *Location `json:"locationCenter,omitempty"`
}

// Zone is a radial band of the map rectangle.
type Zone string

const (
	ZoneCenter Zone = "center"
	ZoneOffset Zone = "offset_of_center"
	ZonePart   Zone = "part"
	ZoneEdge   Zone = "edge"
	ZoneCorner Zone = "corner"
)

// Location is a qualitative position within the map.
type Location struct {
	Zone   Zone   `json:"zone"`
	Dir    string `json:"dir,omitempty"`
	Phrase string `json:"phrase"`
}

// Compact location kinds.
const (
	KindCenter   = "center"
	KindPart     = "part"
	KindNearEdge = "near_edge"
	KindCorner   = "corner"
)

// CompactLocation is the short form used for segment samples and events.
type CompactLocation struct {
	Kind string `json:"kind"`
	Dir  string `json:"dir,omitempty"`
}

// Compact converts a location into its compact form.
func (l *Location) Compact() *CompactLocation {
	if l == nil {
		return nil
	}
	switch l.Zone {
	case ZoneCenter, ZoneOffset:
		return &CompactLocation{Kind: KindCenter, Dir: l.Dir}
	case ZonePart:
		return &CompactLocation{Kind: KindPart, Dir: l.Dir}
	case ZoneCorner:
		return &CompactLocation{Kind: KindCorner, Dir: l.Dir}
	default:
		return &CompactLocation{Kind: KindNearEdge, Dir: l.Dir}
	}
}

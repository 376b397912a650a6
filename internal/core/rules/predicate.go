package rules

import "mapdesc_service/internal/domain/model"

// Inputs names the feature fields the predicates read.
type Inputs struct {
	ElementTypeField           string `json:"elementTypeField,omitempty"`
	GeometryTypeField          string `json:"geometryTypeField,omitempty"`
	PrimaryRepresentationField string `json:"primaryRepresentationField,omitempty"`
	RepresentationsField       string `json:"representationsField,omitempty"`
	TagsField                  string `json:"tagsField,omitempty"`
}

// DefaultInputs matches the raw document field names.
var DefaultInputs = Inputs{
	ElementTypeField:           "elementType",
	GeometryTypeField:          "geometry.type",
	PrimaryRepresentationField: "primaryRepresentation",
	RepresentationsField:       "representations",
	TagsField:                  "tags",
}

// field resolves a (possibly dotted) field path on a feature. Unknown paths
// resolve to nothing.
func field(f *model.Feature, path string) []string {
	var v string
	switch path {
	case "elementType":
		v = f.ElementType
	case "osmType":
		v = f.OSMType
	case "geometry.type":
		v = f.GeometryType()
	case "primaryRepresentation":
		v = f.PrimaryRepresentation
	case "representations":
		return f.Representations
	default:
		return nil
	}
	if v == "" {
		return nil
	}
	return []string{v}
}

func (in Inputs) tags(f *model.Feature) map[string]string {
	if in.TagsField != "tags" {
		return nil
	}
	return f.Tags
}

// Predicate is a node of the rule condition tree. The set of implementations
// is closed: ElementTypeIn, GeometryTypeIn, FieldAny, TagsAny, TagsAll,
// AnyOf and AllOf.
type Predicate interface {
	Match(f *model.Feature, in Inputs) bool
	predicate()
}

// ElementTypeIn matches the element type against a list.
type ElementTypeIn []string

// GeometryTypeIn matches the geometry type against a list.
type GeometryTypeIn []string

// FieldAny matches when a scalar or list field holds any of Values. Field
// selects the input mapping: "primaryRepresentation" or "representations".
type FieldAny struct {
	Field  string
	Values []string
}

// TagCondition tests one tag key.
type TagCondition struct {
	Key      string
	AnyValue bool
	Values   []string
}

// TagsAny matches when at least one condition holds. Conditions whose key is
// absent are skipped. An empty list matches.
type TagsAny []TagCondition

// TagsAll matches when every condition holds; an absent key fails.
type TagsAll []TagCondition

// AnyOf is a short-circuit OR. An empty list never matches.
type AnyOf []Predicate

// AllOf is a short-circuit AND. An empty list always matches.
type AllOf []Predicate

func (ElementTypeIn) predicate()  {}
func (GeometryTypeIn) predicate() {}
func (FieldAny) predicate()       {}
func (TagsAny) predicate()        {}
func (TagsAll) predicate()        {}
func (AnyOf) predicate()          {}
func (AllOf) predicate()          {}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func (p ElementTypeIn) Match(f *model.Feature, in Inputs) bool {
	if in.ElementTypeField == "" {
		return false
	}
	vals := field(f, in.ElementTypeField)
	return len(vals) == 1 && contains(p, vals[0])
}

func (p GeometryTypeIn) Match(f *model.Feature, in Inputs) bool {
	if in.GeometryTypeField == "" {
		return false
	}
	vals := field(f, in.GeometryTypeField)
	return len(vals) == 1 && contains(p, vals[0])
}

func (p FieldAny) Match(f *model.Feature, in Inputs) bool {
	var path string
	switch p.Field {
	case "primaryRepresentation":
		path = in.PrimaryRepresentationField
	case "representations":
		path = in.RepresentationsField
	}
	if path == "" || len(p.Values) == 0 {
		return false
	}
	for _, v := range field(f, path) {
		if contains(p.Values, v) {
			return true
		}
	}
	return false
}

func (c TagCondition) holds(value string) bool {
	if c.AnyValue {
		return value != ""
	}
	return contains(c.Values, value)
}

func (p TagsAny) Match(f *model.Feature, in Inputs) bool {
	if len(p) == 0 {
		return true
	}
	tags := in.tags(f)
	for _, c := range p {
		v, ok := tags[c.Key]
		if !ok {
			continue
		}
		if c.holds(v) {
			return true
		}
	}
	return false
}

func (p TagsAll) Match(f *model.Feature, in Inputs) bool {
	tags := in.tags(f)
	for _, c := range p {
		v, ok := tags[c.Key]
		if !ok || !c.holds(v) {
			return false
		}
	}
	return true
}

func (p AnyOf) Match(f *model.Feature, in Inputs) bool {
	for _, sub := range p {
		if sub.Match(f, in) {
			return true
		}
	}
	return false
}

func (p AllOf) Match(f *model.Feature, in Inputs) bool {
	for _, sub := range p {
		if !sub.Match(f, in) {
			return false
		}
	}
	return true
}

// Package rules classifies features with a declarative, ordered ruleset.
package rules

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ErrMalformedRuleset marks a ruleset document with a structural defect.
var ErrMalformedRuleset = errors.New("malformed ruleset")

//go:embed default_ruleset.json
var defaultRuleset []byte

// Subclass is a subclass code with its display name.
type Subclass struct {
	Key  string
	Name string
}

// Class is a main class with its ordered subclasses.
type Class struct {
	Key        string
	Name       string
	Subclasses []Subclass
}

// Classes keeps the document order of the "classes" object.
type Classes []Class

// Action is what a matching rule assigns.
type Action struct {
	Ignore                bool
	IgnoreWhenOptionFalse string
	Role                  string
	POIImportance         string
}

// Rule is a compiled classification rule.
type Rule struct {
	ID        string
	MainClass string
	SubClass  string
	When      Predicate
	Action    Action
}

// ModifierSpec names a modifier and, optionally, the tag holding its value.
type ModifierSpec struct {
	Name         string `json:"name"`
	ValueFromTag string `json:"valueFromTag,omitempty"`
}

// ModifierRule attaches modifiers to every feature it matches.
type ModifierRule struct {
	ID        string
	When      Predicate
	Modifiers []ModifierSpec
}

// Ruleset is a loaded, validated ruleset.
type Ruleset struct {
	Version       string
	Inputs        Inputs
	Options       map[string]bool
	Classes       Classes
	Rules         []Rule
	ModifierRules []ModifierRule
	Fallbacks     []Rule
}

// Class returns the main class definition or nil.
func (rs *Ruleset) Class(key string) *Class {
	for i := range rs.Classes {
		if rs.Classes[i].Key == key {
			return &rs.Classes[i]
		}
	}
	return nil
}

// Default returns the ruleset embedded in the binary.
func Default() (*Ruleset, error) {
	rs, err := Parse(defaultRuleset)
	if err != nil {
		return nil, errors.Wrap(err, "embedded ruleset")
	}
	return rs, nil
}

// Load reads a ruleset file; an empty path selects the embedded default.
func Load(path string) (*Ruleset, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open ruleset %s", path)
	}
	defer f.Close()
	rs, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "ruleset %s", path)
	}
	return rs, nil
}

// Read parses a ruleset from r.
func Read(r io.Reader) (*Ruleset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return Parse(data)
}

type tagConditionJSON struct {
	Key         *string  `json:"key"`
	AnyValue    bool     `json:"anyValue,omitempty"`
	Values      []string `json:"values,omitempty"`
	Description string   `json:"description,omitempty"`
}

type predicateJSON struct {
	ElementTypes             *[]string           `json:"elementTypes,omitempty"`
	GeometryTypes            *[]string           `json:"geometryTypes,omitempty"`
	PrimaryRepresentationAny *[]string           `json:"primaryRepresentationAny,omitempty"`
	RepresentationsAny       *[]string           `json:"representationsAny,omitempty"`
	TagsAny                  *[]tagConditionJSON `json:"tagsAny,omitempty"`
	TagsAll                  *[]tagConditionJSON `json:"tagsAll,omitempty"`
	AnyOf                    *[]subPredicateJSON `json:"anyOf,omitempty"`
	AllOf                    *[]subPredicateJSON `json:"allOf,omitempty"`
}

type subPredicateJSON struct {
	predicateJSON
	Description string `json:"description,omitempty"`
	Comment     string `json:"comment,omitempty"`
}

type actionJSON struct {
	Ignore                bool            `json:"ignore,omitempty"`
	IgnoreWhenOptionFalse string          `json:"ignoreWhenOptionFalse,omitempty"`
	Role                  string          `json:"role,omitempty"`
	POIImportance         json.RawMessage `json:"poiImportance,omitempty"`
}

type ruleJSON struct {
	predicateJSON
	ID          string         `json:"id"`
	MainClass   string         `json:"mainClass"`
	SubClass    string         `json:"subClass"`
	Description string         `json:"description,omitempty"`
	Comment     string         `json:"comment,omitempty"`
	Actions     *actionJSON    `json:"actions,omitempty"`
	Modifiers   []ModifierSpec `json:"modifiers,omitempty"`
}

type rulesetJSON struct {
	Version       string          `json:"version,omitempty"`
	Description   string          `json:"description,omitempty"`
	Inputs        *Inputs         `json:"inputs,omitempty"`
	Options       map[string]bool `json:"options,omitempty"`
	Classes       Classes         `json:"classes"`
	Rules         []ruleJSON      `json:"rules"`
	ModifierRules []ruleJSON      `json:"modifierRules,omitempty"`
	Fallbacks     []ruleJSON      `json:"fallbacks,omitempty"`
}

// Parse decodes and validates a ruleset document. Unknown keys, rules
// missing id/mainClass/subClass and tag conditions without a key are
// rejected with ErrMalformedRuleset.
func Parse(data []byte) (*Ruleset, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc rulesetJSON
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrapf(ErrMalformedRuleset, "decode: %v", err)
	}

	rs := &Ruleset{
		Version: doc.Version,
		Inputs:  DefaultInputs,
		Options: doc.Options,
		Classes: doc.Classes,
	}
	if doc.Inputs != nil {
		rs.Inputs = *doc.Inputs
	}
	if rs.Options == nil {
		rs.Options = map[string]bool{}
	}

	seen := make(map[string]bool, len(doc.Rules))
	for i, rj := range doc.Rules {
		r, err := compileRule(rj, true)
		if err != nil {
			return nil, errors.Wrapf(err, "rules[%d]", i)
		}
		if seen[r.ID] {
			return nil, errors.Wrapf(ErrMalformedRuleset, "rules[%d]: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
		rs.Rules = append(rs.Rules, r)
	}
	for i, rj := range doc.Fallbacks {
		r, err := compileRule(rj, false)
		if err != nil {
			return nil, errors.Wrapf(err, "fallbacks[%d]", i)
		}
		rs.Fallbacks = append(rs.Fallbacks, r)
	}
	for i, rj := range doc.ModifierRules {
		if len(rj.Modifiers) == 0 {
			return nil, errors.Wrapf(ErrMalformedRuleset, "modifierRules[%d] %q: no modifiers", i, rj.ID)
		}
		for j, m := range rj.Modifiers {
			if m.Name == "" {
				return nil, errors.Wrapf(ErrMalformedRuleset, "modifierRules[%d].modifiers[%d]: missing name", i, j)
			}
		}
		when, err := compilePredicate(rj.predicateJSON)
		if err != nil {
			return nil, errors.Wrapf(err, "modifierRules[%d]", i)
		}
		rs.ModifierRules = append(rs.ModifierRules, ModifierRule{ID: rj.ID, When: when, Modifiers: rj.Modifiers})
	}
	return rs, nil
}

func compileRule(rj ruleJSON, requireID bool) (Rule, error) {
	switch {
	case requireID && rj.ID == "":
		return Rule{}, errors.Wrap(ErrMalformedRuleset, "missing id")
	case rj.MainClass == "":
		return Rule{}, errors.Wrapf(ErrMalformedRuleset, "%q: missing mainClass", rj.ID)
	case rj.SubClass == "":
		return Rule{}, errors.Wrapf(ErrMalformedRuleset, "%q: missing subClass", rj.ID)
	}
	when, err := compilePredicate(rj.predicateJSON)
	if err != nil {
		return Rule{}, errors.Wrapf(err, "%q", rj.ID)
	}
	r := Rule{ID: rj.ID, MainClass: rj.MainClass, SubClass: rj.SubClass, When: when}
	if a := rj.Actions; a != nil {
		r.Action = Action{
			Ignore:                a.Ignore,
			IgnoreWhenOptionFalse: a.IgnoreWhenOptionFalse,
			Role:                  a.Role,
			POIImportance:         rawString(a.POIImportance),
		}
	}
	return r, nil
}

// rawString renders a JSON scalar as text; strings are unquoted.
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

// compilePredicate turns the keys of one rule object into a conjunction,
// evaluated in a fixed key order.
func compilePredicate(p predicateJSON) (Predicate, error) {
	var all AllOf
	if p.ElementTypes != nil {
		all = append(all, ElementTypeIn(*p.ElementTypes))
	}
	if p.GeometryTypes != nil {
		all = append(all, GeometryTypeIn(*p.GeometryTypes))
	}
	if p.PrimaryRepresentationAny != nil {
		all = append(all, FieldAny{Field: "primaryRepresentation", Values: *p.PrimaryRepresentationAny})
	}
	if p.RepresentationsAny != nil {
		all = append(all, FieldAny{Field: "representations", Values: *p.RepresentationsAny})
	}
	if p.TagsAny != nil {
		conds, err := compileConditions(*p.TagsAny)
		if err != nil {
			return nil, errors.Wrap(err, "tagsAny")
		}
		all = append(all, TagsAny(conds))
	}
	if p.TagsAll != nil {
		conds, err := compileConditions(*p.TagsAll)
		if err != nil {
			return nil, errors.Wrap(err, "tagsAll")
		}
		all = append(all, TagsAll(conds))
	}
	if p.AnyOf != nil {
		subs, err := compileSubs(*p.AnyOf)
		if err != nil {
			return nil, errors.Wrap(err, "anyOf")
		}
		all = append(all, AnyOf(subs))
	}
	if p.AllOf != nil {
		subs, err := compileSubs(*p.AllOf)
		if err != nil {
			return nil, errors.Wrap(err, "allOf")
		}
		all = append(all, AllOf(subs))
	}
	if len(all) == 1 {
		return all[0], nil
	}
	return all, nil
}

func compileSubs(subs []subPredicateJSON) ([]Predicate, error) {
	out := make([]Predicate, 0, len(subs))
	for i, s := range subs {
		p, err := compilePredicate(s.predicateJSON)
		if err != nil {
			return nil, errors.Wrapf(err, "[%d]", i)
		}
		out = append(out, p)
	}
	return out, nil
}

func compileConditions(in []tagConditionJSON) ([]TagCondition, error) {
	out := make([]TagCondition, 0, len(in))
	for i, c := range in {
		if c.Key == nil || strings.TrimSpace(*c.Key) == "" {
			return nil, errors.Wrapf(ErrMalformedRuleset, "condition %d: missing key", i)
		}
		if !c.AnyValue && len(c.Values) == 0 {
			return nil, errors.Wrapf(ErrMalformedRuleset, "condition %d (%s): needs anyValue or values", i, *c.Key)
		}
		out = append(out, TagCondition{Key: *c.Key, AnyValue: c.AnyValue, Values: c.Values})
	}
	return out, nil
}

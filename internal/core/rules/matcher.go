package rules

import "mapdesc_service/internal/domain/model"

// Classify returns the classification of the first matching rule, else of
// the first matching fallback, else nil. overrides take precedence over the
// ruleset's default options.
func (rs *Ruleset) Classify(f *model.Feature, overrides map[string]bool) *model.Classification {
	if f == nil {
		return nil
	}
	for _, r := range rs.Rules {
		if !r.When.Match(f, rs.Inputs) {
			continue
		}
		ignore := r.Action.Ignore
		if name := r.Action.IgnoreWhenOptionFalse; name != "" && !rs.option(name, overrides) {
			ignore = true
		}
		return &model.Classification{
			MainClass:     r.MainClass,
			SubClass:      r.SubClass,
			RuleID:        r.ID,
			Ignore:        ignore,
			Role:          r.Action.Role,
			POIImportance: r.Action.POIImportance,
			Modifiers:     []model.Modifier{},
		}
	}
	for _, r := range rs.Fallbacks {
		if !r.When.Match(f, rs.Inputs) {
			continue
		}
		return &model.Classification{
			MainClass: r.MainClass,
			SubClass:  r.SubClass,
			RuleID:    r.ID,
			Modifiers: []model.Modifier{},
		}
	}
	return nil
}

func (rs *Ruleset) option(name string, overrides map[string]bool) bool {
	if v, ok := overrides[name]; ok {
		return v
	}
	return rs.Options[name]
}

// Modifiers collects the modifiers of every matching modifier rule, in
// ruleset order.
func (rs *Ruleset) Modifiers(f *model.Feature) []model.Modifier {
	out := []model.Modifier{}
	for _, mr := range rs.ModifierRules {
		if !mr.When.Match(f, rs.Inputs) {
			continue
		}
		for _, spec := range mr.Modifiers {
			m := model.Modifier{Name: spec.Name}
			if spec.ValueFromTag != "" {
				if v, ok := rs.Inputs.tags(f)[spec.ValueFromTag]; ok {
					value := v
					m.Value = &value
				}
			}
			out = append(out, m)
		}
	}
	return out
}

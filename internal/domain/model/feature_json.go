package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// UnmarshalJSON decodes a feature field by field. A malformed field is
// dropped on its own and never takes the rest of the feature with it: scalar
// tag values become strings, and ids and layers may be numbers or numeric
// strings. Only a non-object input is an error.
func (f *Feature) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*f = Feature{
		ElementType:           looseString(fields["elementType"]),
		OSMType:               looseString(fields["osmType"]),
		OSMID:                 looseInt(fields["osmId"]),
		Layer:                 looseIntPtr(fields["layer"]),
		Tags:                  looseTags(fields["tags"]),
		Representations:       looseStrings(fields["representations"]),
		PrimaryRepresentation: looseString(fields["primaryRepresentation"]),
	}

	if raw, ok := present(fields, "geometry"); ok {
		var g Geometry
		if json.Unmarshal(raw, &g) == nil {
			f.Geometry = &g
		}
	}
	if raw, ok := present(fields, "bounds"); ok {
		var b BBox
		if json.Unmarshal(raw, &b) == nil {
			f.Bounds = &b
		}
	}
	if raw, ok := present(fields, "center"); ok {
		var c Coord
		if json.Unmarshal(raw, &c) == nil {
			f.Center = c
		}
	}
	if raw, ok := present(fields, "tagSources"); ok {
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) == nil {
			for _, item := range items {
				var src map[string]json.RawMessage
				if json.Unmarshal(item, &src) != nil {
					continue
				}
				f.TagSources = append(f.TagSources, TagSource{
					OSMType: looseString(src["osmType"]),
					OSMID:   looseInt(src["osmId"]),
					Tags:    looseTags(src["tags"]),
				})
			}
		}
	}

	// augmentation written by an earlier run
	if raw, ok := present(fields, "_classification"); ok {
		var c Classification
		if json.Unmarshal(raw, &c) == nil {
			f.Classification = &c
		}
	}
	if raw, ok := present(fields, "semantics"); ok {
		var s Semantics
		if json.Unmarshal(raw, &s) == nil {
			f.Semantics = &s
		}
	}
	if raw, ok := present(fields, "visibleGeometry"); ok {
		var v VisibleGeometry
		if json.Unmarshal(raw, &v) == nil {
			f.VisibleGeometry = &v
		}
	}
	return nil
}

func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw := bytes.TrimSpace(fields[key])
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	return raw, true
}

// scalarText returns the text of a JSON string, number or boolean.
func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return "", false
		}
		return s, true
	case '{', '[', 'n':
		return "", false
	}
	return string(raw), true
}

func looseString(raw json.RawMessage) string {
	s, _ := scalarText(raw)
	return s
}

func looseNumber(raw json.RawMessage) (int64, bool) {
	s, ok := scalarText(raw)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != math.Trunc(v) || math.Abs(v) > 1<<53 {
		return 0, false
	}
	return int64(v), true
}

func looseInt(raw json.RawMessage) int64 {
	n, _ := looseNumber(raw)
	return n
}

func looseIntPtr(raw json.RawMessage) *int {
	n, ok := looseNumber(raw)
	if !ok {
		return nil
	}
	v := int(n)
	return &v
}

func looseTags(raw json.RawMessage) map[string]string {
	var m map[string]json.RawMessage
	if json.Unmarshal(raw, &m) != nil || m == nil {
		return nil
	}
	tags := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := scalarText(v); ok {
			tags[k] = s
		}
	}
	return tags
}

func looseStrings(raw json.RawMessage) []string {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := scalarText(item); ok {
			out = append(out, s)
		}
	}
	return out
}

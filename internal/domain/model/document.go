package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Meta holds the map rectangle exported by the 3D generator.
type Meta struct {
	Boundary     *BBox `json:"boundary,omitempty"`
	DataBoundary *BBox `json:"dataBoundary,omitempty"`
}

// FeatureList is one top-level list of the raw document, e.g. "ways".
type FeatureList struct {
	Key      string
	Features []*Feature
}

// RawDocument is the raw metadata document. Top-level list order and in-list
// order are preserved on decode and encode.
type RawDocument struct {
	Meta  *Meta
	Lists []*FeatureList

	// Skipped counts list entries that were not feature objects.
	Skipped int
}

// Features returns every feature in document order.
func (d *RawDocument) Features() []*Feature {
	var out []*Feature
	for _, l := range d.Lists {
		out = append(out, l.Features...)
	}
	return out
}

// Boundary returns the explicit map boundary, if any.
func (d *RawDocument) Boundary() *BBox {
	if d.Meta == nil || d.Meta.Boundary == nil {
		return nil
	}
	if d.Meta.Boundary.Validate() != nil {
		return nil
	}
	return d.Meta.Boundary
}

// MapBBox returns the rectangle used for locations: meta.boundary, then
// meta.dataBoundary, then the union of all feature bounds.
func (d *RawDocument) MapBBox() *BBox {
	if b := d.Boundary(); b != nil {
		return b
	}
	if d.Meta != nil && d.Meta.DataBoundary != nil && d.Meta.DataBoundary.Validate() == nil {
		return d.Meta.DataBoundary
	}
	var (
		union BBox
		found bool
	)
	for _, f := range d.Features() {
		ext, ok := f.Extent()
		if !ok {
			continue
		}
		b := BBoxFromBound(ext)
		if !found {
			union, found = b, true
			continue
		}
		union = BBoxFromBound(union.Bound().Union(b.Bound()))
	}
	if !found || union.Validate() != nil {
		return nil
	}
	return &union
}

func (d *RawDocument) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("raw document must be a JSON object")
	}
	*d = RawDocument{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("read %q: %w", key, err)
		}
		if key == "meta" {
			var m Meta
			if json.Unmarshal(raw, &m) == nil {
				d.Meta = &m
			}
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '[' {
			continue
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("read list %q: %w", key, err)
		}
		list := &FeatureList{Key: key, Features: make([]*Feature, 0, len(items))}
		for _, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) == 0 || item[0] != '{' {
				d.Skipped++
				continue
			}
			var f Feature
			if err := json.Unmarshal(item, &f); err != nil || f.ElementType == "" {
				d.Skipped++
				continue
			}
			list.Features = append(list.Features, &f)
		}
		d.Lists = append(d.Lists, list)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("read document end: %w", err)
	}
	return nil
}

func (d RawDocument) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	if d.Meta != nil {
		raw, err := json.Marshal(d.Meta)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`"meta":`)
		buf.Write(raw)
		first = false
	}
	for _, l := range d.Lists {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(l.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		features := l.Features
		if features == nil {
			features = []*Feature{}
		}
		raw, err := json.Marshal(features)
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

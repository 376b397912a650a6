package model

import (
	"bytes"
	"encoding/json"
)

// SubGroup is the ordered list of features of one subclass.
type SubGroup struct {
	Key      string
	Features []*Feature
}

// MainGroup holds the subclasses of one main class in insertion order.
type MainGroup struct {
	Key  string
	Subs []*SubGroup
}

// Sub returns the subclass group or nil.
func (m *MainGroup) Sub(key string) *SubGroup {
	for _, s := range m.Subs {
		if s.Key == key {
			return s
		}
	}
	return nil
}

// Count is the number of features across all subclasses.
func (m *MainGroup) Count() int {
	n := 0
	for _, s := range m.Subs {
		n += len(s.Features)
	}
	return n
}

// Grouped is the mainClass -> subClass -> features tree.
type Grouped struct {
	Boundary *BBox
	Mains    []*MainGroup
}

// Main returns the main class group or nil.
func (g *Grouped) Main(key string) *MainGroup {
	for _, m := range g.Mains {
		if m.Key == key {
			return m
		}
	}
	return nil
}

// EnsureMain returns the main class group, appending it when missing.
func (g *Grouped) EnsureMain(key string) *MainGroup {
	if m := g.Main(key); m != nil {
		return m
	}
	m := &MainGroup{Key: key}
	g.Mains = append(g.Mains, m)
	return m
}

// Add appends a feature under main/sub, keeping insertion order.
func (g *Grouped) Add(main, sub string, f *Feature) {
	m := g.EnsureMain(main)
	s := m.Sub(sub)
	if s == nil {
		s = &SubGroup{Key: sub}
		m.Subs = append(m.Subs, s)
	}
	s.Features = append(s.Features, f)
}

// Features returns all grouped features in tree order.
func (g *Grouped) Features() []*Feature {
	var out []*Feature
	for _, m := range g.Mains {
		for _, s := range m.Subs {
			out = append(out, s.Features...)
		}
	}
	return out
}

func (g Grouped) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range g.Mains {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, m.Key); err != nil {
			return nil, err
		}
		buf.WriteByte('{')
		for j, s := range m.Subs {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(&buf, s.Key); err != nil {
				return nil, err
			}
			raw, err := json.Marshal(s.Features)
			if err != nil {
				return nil, err
			}
			buf.Write(raw)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	raw, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(raw)
	buf.WriteByte(':')
	return nil
}

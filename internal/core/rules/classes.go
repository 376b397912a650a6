package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UnmarshalJSON decodes the "classes" object keeping key order:
//
//	{"A": {"name": "Linear features", "subclasses": {"A1_major_roads": "Major roads"}}}
func (c *Classes) UnmarshalJSON(data []byte) error {
	*c = nil
	return walkObject(data, func(key string, raw json.RawMessage) error {
		var body struct {
			Name       string          `json:"name"`
			Subclasses json.RawMessage `json:"subclasses"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return fmt.Errorf("class %s: %w", key, err)
		}
		class := Class{Key: key, Name: body.Name}
		if class.Name == "" {
			class.Name = key
		}
		if len(bytes.TrimSpace(body.Subclasses)) > 0 {
			err := walkObject(body.Subclasses, func(sub string, raw json.RawMessage) error {
				var name string
				if err := json.Unmarshal(raw, &name); err != nil {
					return fmt.Errorf("subclass %s: %w", sub, err)
				}
				class.Subclasses = append(class.Subclasses, Subclass{Key: sub, Name: name})
				return nil
			})
			if err != nil {
				return fmt.Errorf("class %s: %w", key, err)
			}
		}
		*c = append(*c, class)
		return nil
	})
}

// SubclassName returns the display name of a subclass, or the key itself.
func (c *Class) SubclassName(key string) string {
	for _, s := range c.Subclasses {
		if s.Key == key {
			return s.Name
		}
	}
	return key
}

// walkObject calls fn for every member of a JSON object in document order.
func walkObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}

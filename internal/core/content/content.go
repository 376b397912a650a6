// Package content assembles the final map content tree and its plain-text
// rendering.
package content

import (
	"strconv"
	"strings"

	"mapdesc_service/internal/domain/model"
)

// MaxGroupsPerSubclass caps the cooked lines of one subclass.
const MaxGroupsPerSubclass = 10

// Assemble attaches the cooked lines to every subclass and echoes the
// boundary. Entries are modified in place.
func Assemble(entries []*model.MainEntry, boundary *model.BBox) *model.MapContent {
	for _, m := range entries {
		for _, sub := range m.Subclasses {
			shown := sub.Groups
			sub.More = 0
			if len(shown) > MaxGroupsPerSubclass {
				sub.More = len(shown) - MaxGroupsPerSubclass
				shown = shown[:MaxGroupsPerSubclass]
			}
			sub.Cooked = make([]string, 0, len(shown)+1)
			for _, g := range shown {
				sub.Cooked = append(sub.Cooked, "- "+g.Cooked)
			}
			if sub.More > 0 {
				sub.Cooked = append(sub.Cooked, moreLine(sub.More))
			}
		}
	}
	return &model.MapContent{Boundary: boundary, Classes: entries}
}

func moreLine(n int) string {
	return "- ... (+" + strconv.Itoa(n) + " more)"
}

// Text renders the content tree as indented plain text.
func Text(c *model.MapContent) string {
	var b strings.Builder
	for _, m := range c.Classes {
		b.WriteString(m.Key + " — " + m.Name + "\n")
		if len(m.Subclasses) == 0 {
			b.WriteString("  (no items)\n\n")
			continue
		}
		for _, sub := range m.Subclasses {
			b.WriteString("  " + sub.Key + " — " + sub.Name + " (" + strconv.Itoa(sub.Count) + ")\n")
			for _, line := range sub.Cooked {
				b.WriteString("    " + line + "\n")
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

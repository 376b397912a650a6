package content

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"mapdesc_service/internal/domain/model"
)

func entries(groups int) []*model.MainEntry {
	sub := &model.SubclassEntry{Key: "D3_commercial", Name: "Shops", Kind: "poi", Count: groups}
	for i := 0; i < groups; i++ {
		sub.Groups = append(sub.Groups, &model.Group{
			DisplayLabel: fmt.Sprintf("shop %02d", i),
			Count:        1,
			Members:      []model.MemberRef{},
			Cooked:       fmt.Sprintf("shop %02d — near the center of the map", i),
		})
	}
	return []*model.MainEntry{
		{Key: "C", Name: "Buildings", Subclasses: []*model.SubclassEntry{}},
		{Key: "D", Name: "Points of interest", Subclasses: []*model.SubclassEntry{sub}},
	}
}

func TestAssembleCapsCookedLines(t *testing.T) {
	tests := []struct {
		groups    int
		wantLines int
		wantMore  int
	}{
		{3, 3, 0},
		{10, 10, 0},
		{13, 11, 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.groups), func(t *testing.T) {
			c := Assemble(entries(tt.groups), nil)
			sub := c.Class("D").Sub("D3_commercial")
			if len(sub.Cooked) != tt.wantLines || sub.More != tt.wantMore {
				t.Fatalf("cooked = %d lines, more = %d", len(sub.Cooked), sub.More)
			}
			if len(sub.Groups) != tt.groups {
				t.Errorf("groups must not be trimmed")
			}
			if tt.wantMore > 0 && sub.Cooked[10] != "- ... (+3 more)" {
				t.Errorf("last line = %q", sub.Cooked[10])
			}
		})
	}
}

func TestText(t *testing.T) {
	c := Assemble(entries(2), nil)
	want := strings.Join([]string{
		"C — Buildings",
		"  (no items)",
		"",
		"D — Points of interest",
		"  D3_commercial — Shops (2)",
		"    - shop 00 — near the center of the map",
		"    - shop 01 — near the center of the map",
	}, "\n")
	if got := Text(c); got != want {
		t.Errorf("text =\n%s\nwant\n%s", got, want)
	}
}

func TestContentJSONKeys(t *testing.T) {
	b := model.BBox{MaxX: 10, MaxY: 10}
	raw, err := json.Marshal(Assemble(entries(1), &b))
	if err != nil {
		t.Fatal(err)
	}
	s := string(raw)
	if !strings.HasPrefix(s, `{"boundary":{`) {
		t.Errorf("boundary must come first: %s", s)
	}
	if strings.Index(s, `"C":`) > strings.Index(s, `"D":`) {
		t.Errorf("main classes out of order: %s", s)
	}
}

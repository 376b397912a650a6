package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/osm"

	"mapdesc_service/internal/core/rules"
	"mapdesc_service/internal/domain/model"
	"mapdesc_service/internal/domain/repository"
)

const describeDoc = `{
  "meta": {"boundary": {"minX": 0, "minY": 0, "maxX": 1000, "maxY": 1000}},
  "ways": [
    {"elementType": "way", "osmType": "way", "osmId": 1,
     "tags": {"highway": "primary", "name": "Main St"},
     "geometry": {"type": "line_string", "coordinates": [[0, 500], [1000, 500]]}}
  ],
  "nodes": [
    {"elementType": "node", "osmType": "node", "osmId": 20,
     "tags": {"shop": "bakery", "name": "Crumbs"},
     "geometry": {"type": "point", "coordinates": [950, 950]}}
  ]
}`

type fakeRecorder struct {
	runs []*model.Run
}

func (r *fakeRecorder) SaveRun(_ context.Context, run *model.Run) error {
	r.runs = append(r.runs, run)
	return nil
}

type fakePublisher struct {
	runID     string
	artifacts []model.Artifact
}

func (p *fakePublisher) Publish(_ context.Context, runID string, artifacts []model.Artifact) error {
	p.runID = runID
	p.artifacts = artifacts
	return nil
}

type fakeFetcher struct {
	o *osm.OSM
}

func (f fakeFetcher) FetchArea(context.Context, orb.Bound) (*osm.OSM, error) {
	return f.o, nil
}

func decodeDoc(t *testing.T, raw string) *model.RawDocument {
	t.Helper()
	var doc model.RawDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &doc
}

func newService(t *testing.T, opts Options, rec repository.RunRecorder, pub Publisher, fetcher Fetcher) *DescriptionService {
	t.Helper()
	rs, err := rules.Default()
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	return NewDescriptionService(rs, opts, rec, pub, fetcher)
}

func TestDescribeMainStreet(t *testing.T) {
	svc := newService(t, Options{Connectivity: true}, nil, nil, nil)
	res := svc.Describe(decodeDoc(t, describeDoc))

	main := res.Content.Class("A")
	if main == nil {
		t.Fatal("main class A missing")
	}
	sub := main.Sub("A1_major_roads")
	if sub == nil || len(sub.Groups) != 1 {
		t.Fatalf("expected one A1_major_roads group, got %+v", sub)
	}
	g := sub.Groups[0]
	if !strings.Contains(g.Cooked, "Main St") || !strings.Contains(g.Cooked, " m") {
		t.Errorf("unexpected cooked line %q", g.Cooked)
	}
	if g.ImportanceScore == nil || g.ImportanceScore.Final <= 0 {
		t.Errorf("missing importance score: %+v", g.ImportanceScore)
	}
	if !strings.Contains(res.Text, "Main St") || !strings.Contains(res.Text, "Crumbs") {
		t.Errorf("text rendering incomplete:\n%s", res.Text)
	}
	if res.Content.Boundary == nil || res.Content.Boundary.MaxX != 1000 {
		t.Errorf("boundary not echoed: %+v", res.Content.Boundary)
	}
}

func TestRunWritesRecordsAndPublishes(t *testing.T) {
	dir := t.TempDir()
	rec := &fakeRecorder{}
	pub := &fakePublisher{}
	svc := newService(t, Options{OutputDir: dir}, rec, pub, nil)

	_, run, err := svc.Run(context.Background(), "test.json", decodeDoc(t, describeDoc))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, name := range []string{FileGrouped, FileAugmented, FileContent, FileText, FileGeoJSON} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, FileGeoJSON))
	if err != nil {
		t.Fatal(err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		t.Fatalf("invalid geojson: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Errorf("expected 2 geojson features, got %d", len(fc.Features))
	}

	augmented, err := os.ReadFile(filepath.Join(dir, FileAugmented))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(augmented, []byte(`"_classification"`)) {
		t.Errorf("augmented document lacks classification")
	}

	if len(rec.runs) != 1 || run.ID == "" || run.InputName != "test.json" {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.ClassCounts["A"] != 1 || run.ClassCounts["D"] != 1 || run.Classified != 2 {
		t.Errorf("unexpected counts: %+v", run)
	}
	if pub.runID != run.ID || len(pub.artifacts) != 5 {
		t.Errorf("publisher got run %q with %d artifacts", pub.runID, len(pub.artifacts))
	}
}

func TestArtifactsAreDeterministic(t *testing.T) {
	svc := newService(t, Options{Connectivity: true}, nil, nil, nil)

	first, err := svc.Artifacts(svc.Describe(decodeDoc(t, describeDoc)))
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Artifacts(svc.Describe(decodeDoc(t, describeDoc)))
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		if !bytes.Equal(first[i].Data, second[i].Data) {
			t.Errorf("%s differs between runs", first[i].Name)
		}
	}
}

func TestPrettyJSON(t *testing.T) {
	svc := newService(t, Options{PrettyJSON: true}, nil, nil, nil)
	artifacts, err := svc.Artifacts(svc.Describe(decodeDoc(t, describeDoc)))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(artifacts[2].Data, []byte("\n  ")) {
		t.Errorf("content json is not indented")
	}
}

func TestClassify(t *testing.T) {
	svc := newService(t, Options{}, nil, nil, nil)

	road := &model.Feature{
		ElementType: model.ElementWay,
		OSMType:     "way",
		OSMID:       5,
		Tags:        map[string]string{"highway": "primary", "name": "Main St"},
		Geometry: &model.Geometry{
			Type:        model.GeometryLineString,
			Coordinates: []model.Coord{{0, 500}, {1000, 500}},
		},
	}
	boundary := &model.BBox{MaxX: 1000, MaxY: 1000}
	cls := svc.Classify(road, boundary)
	if cls == nil || cls.SubClass != "A1_major_roads" {
		t.Fatalf("unexpected classification %+v", cls)
	}
	if cls.LocationCenter == nil {
		t.Errorf("center location missing")
	}

	junk := &model.Feature{ElementType: model.ElementNode, Tags: map[string]string{"created_by": "x"}}
	if cls := svc.Classify(junk, nil); cls != nil && !cls.Ignore {
		t.Errorf("expected unclassified or ignored, got %+v", cls)
	}
}

func TestFetch(t *testing.T) {
	if _, _, err := newService(t, Options{}, nil, nil, nil).Fetch(context.Background(), orb.Bound{}); !errors.Is(err, ErrNoFetcher) {
		t.Fatalf("expected ErrNoFetcher, got %v", err)
	}

	o := &osm.OSM{
		Bounds: &osm.Bounds{MinLat: 60.17, MaxLat: 60.18, MinLon: 24.93, MaxLon: 24.95},
		Nodes: osm.Nodes{
			{ID: 1, Lat: 60.175, Lon: 24.94, Tags: osm.Tags{{Key: "name", Value: "Crumbs"}, {Key: "shop", Value: "bakery"}}},
		},
	}
	rec := &fakeRecorder{}
	svc := newService(t, Options{}, rec, nil, fakeFetcher{o: o})

	b := orb.Bound{Min: orb.Point{24.93, 60.17}, Max: orb.Point{24.95, 60.18}}
	res, run, err := svc.Fetch(context.Background(), b)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !strings.HasPrefix(run.InputName, "overpass:60.17") {
		t.Errorf("unexpected input name %q", run.InputName)
	}
	if !strings.Contains(res.Text, "Crumbs") {
		t.Errorf("fetched node not described:\n%s", res.Text)
	}
}

func TestRunAssignsDistinctIDsWithoutStore(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, Options{}, nil, pub, nil)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		_, run, err := svc.Run(context.Background(), "test.json", decodeDoc(t, describeDoc))
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if pub.runID == "" || pub.runID != run.ID {
			t.Fatalf("published under %q, run id %q", pub.runID, run.ID)
		}
		if seen[pub.runID] {
			t.Fatalf("run id %q reused", pub.runID)
		}
		seen[pub.runID] = true
	}
}

func TestDescribeKeepsFeaturesWithMalformedFields(t *testing.T) {
	const raw = `{
  "meta": {"boundary": {"minX": 0, "minY": 0, "maxX": 1000, "maxY": 1000}},
  "ways": [
    {"elementType": "way", "osmType": "way", "osmId": 1,
     "tags": {"highway": "primary", "name": "Main St", "lanes": 2},
     "geometry": {"type": "line_string", "coordinates": [[0, 500], [1000, 500]]}},
    {"elementType": "way", "osmType": "way", "osmId": "2", "layer": "1",
     "tags": {"highway": "residential", "name": "Elm St", "bridge": "yes"},
     "geometry": {"type": "line_string", "coordinates": [[500, 0], [500, 1000]]}}
  ]
}`
	svc := newService(t, Options{}, nil, nil, nil)
	res := svc.Describe(decodeDoc(t, raw))

	if res.Stats.Features != 2 || res.Stats.Classified != 2 {
		t.Fatalf("stats = %+v", res.Stats)
	}
	var names []string
	for _, f := range res.Grouped.Main("A").Subs {
		for _, feat := range f.Features {
			names = append(names, feat.Name())
		}
	}
	if len(names) != 2 {
		t.Fatalf("grouped names = %v", names)
	}
	main := res.Grouped.Features()[0]
	if main.Semantics == nil || main.Semantics.Lanes == nil || main.Semantics.Lanes.Total == nil || *main.Semantics.Lanes.Total != 2 {
		t.Errorf("numeric lanes tag not interpreted: %+v", main.Semantics)
	}
	if !strings.Contains(res.Text, "Elm St") {
		t.Errorf("text lacks Elm St:\n%s", res.Text)
	}
}

package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"mapdesc_service/internal/core/content"
	"mapdesc_service/internal/core/grouping"
	"mapdesc_service/internal/core/render"
	"mapdesc_service/internal/core/rules"
	"mapdesc_service/internal/core/segments"
	"mapdesc_service/internal/core/semantics"
	"mapdesc_service/internal/domain/model"
	"mapdesc_service/internal/domain/repository"
	"mapdesc_service/internal/infrastructure/osmimport"
)

// Output file names of a run.
const (
	FileGrouped   = "map-meta.json"
	FileAugmented = "map-meta.augmented.json"
	FileContent   = "map-content.json"
	FileText      = "map-content.txt"
	FileGeoJSON   = "map-meta.geojson"
)

// ErrNoFetcher is returned by Fetch when no Overpass endpoint is wired.
var ErrNoFetcher = errors.New("overpass fetcher is not configured")

type Fetcher interface {
	FetchArea(ctx context.Context, b orb.Bound) (*osm.OSM, error)
}

type Publisher interface {
	Publish(ctx context.Context, runID string, artifacts []model.Artifact) error
}

type Options struct {
	Overrides    map[string]bool
	Connectivity bool
	PrettyJSON   bool
	DebugOSMID   int64
	// OutputDir receives the artifacts of Run; empty skips writing.
	OutputDir string
	Logger    *zap.Logger
}

// Result holds every product of one description.
type Result struct {
	Grouped   *model.Grouped
	Augmented *model.RawDocument
	Content   *model.MapContent
	Text      string
	Stats     grouping.Stats
}

type DescriptionService struct {
	rules     *rules.Ruleset
	opts      Options
	log       *zap.Logger
	recorder  repository.RunRecorder
	publisher Publisher
	fetcher   Fetcher
	converter *osmimport.Converter
}

func NewDescriptionService(
	rs *rules.Ruleset,
	opts Options,
	recorder repository.RunRecorder,
	publisher Publisher,
	fetcher Fetcher,
) *DescriptionService {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if recorder == nil {
		recorder = repository.NopRecorder{}
	}
	return &DescriptionService{
		rules:     rs,
		opts:      opts,
		log:       log,
		recorder:  recorder,
		publisher: publisher,
		fetcher:   fetcher,
		converter: osmimport.NewConverter(log),
	}
}

func (s *DescriptionService) Ruleset() *rules.Ruleset { return s.rules }

// Describe runs the whole pipeline over doc. Features of doc are augmented in
// place; the returned Augmented is doc itself.
func (s *DescriptionService) Describe(doc *model.RawDocument) *Result {
	start := time.Now()

	engine := grouping.New(s.rules, grouping.Options{
		Overrides:  s.opts.Overrides,
		Logger:     s.log,
		DebugOSMID: s.opts.DebugOSMID,
	})
	grouped, stats := engine.Group(doc)

	seg := segments.NewBuilder(doc, segments.Options{
		Connectivity: s.opts.Connectivity,
		Logger:       s.log,
	})
	entries := render.New(s.rules, seg, render.Options{Logger: s.log}).Build(grouped)
	mc := content.Assemble(entries, doc.Boundary())

	s.log.Info("described map",
		zap.Int("main_classes", len(mc.Classes)),
		zap.Int("connectors", len(seg.Connectors())),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{
		Grouped:   grouped,
		Augmented: doc,
		Content:   mc,
		Text:      content.Text(mc),
		Stats:     stats,
	}
}

// Classify classifies a single feature. Locations are attached when a
// boundary is given. Nil means the feature matched no rule.
func (s *DescriptionService) Classify(f *model.Feature, boundary *model.BBox) *model.Classification {
	cls := s.rules.Classify(f, s.opts.Overrides)
	if cls == nil {
		return nil
	}
	cls.Modifiers = s.rules.Modifiers(f)
	f.Classification = cls
	if sem := semantics.Build(f); sem != nil {
		f.Semantics = sem
	}
	if boundary != nil && boundary.Validate() == nil {
		grouping.AttachLocations(f, *boundary)
	}
	return cls
}

// Artifacts serializes the result into the output files, compact unless
// PrettyJSON is set.
func (s *DescriptionService) Artifacts(res *Result) ([]model.Artifact, error) {
	grouped, err := s.marshal(res.Grouped)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal grouped map: %w", err)
	}
	augmented, err := s.marshal(res.Augmented)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal augmented document: %w", err)
	}
	mc, err := s.marshal(res.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal map content: %w", err)
	}
	fc, err := s.marshal(FeatureCollection(res.Grouped))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal geojson: %w", err)
	}

	return []model.Artifact{
		{Name: FileGrouped, ContentType: "application/json", Data: grouped},
		{Name: FileAugmented, ContentType: "application/json", Data: augmented},
		{Name: FileContent, ContentType: "application/json", Data: mc},
		{Name: FileText, ContentType: "text/plain; charset=utf-8", Data: []byte(res.Text + "\n")},
		{Name: FileGeoJSON, ContentType: "application/geo+json", Data: fc},
	}, nil
}

func (s *DescriptionService) marshal(v any) ([]byte, error) {
	if s.opts.PrettyJSON {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// Run describes doc, writes the artifacts to the output directory, records
// the run and publishes the artifacts when a publisher is wired.
func (s *DescriptionService) Run(ctx context.Context, inputName string, doc *model.RawDocument) (*Result, *model.Run, error) {
	start := time.Now()
	res := s.Describe(doc)

	artifacts, err := s.Artifacts(res)
	if err != nil {
		return nil, nil, err
	}
	if s.opts.OutputDir != "" {
		if err := WriteArtifacts(s.opts.OutputDir, artifacts); err != nil {
			return nil, nil, err
		}
	}

	run := &model.Run{
		ID:           uuid.NewString(),
		InputName:    inputName,
		Features:     res.Stats.Features,
		Classified:   res.Stats.Classified,
		Ignored:      res.Stats.Ignored,
		Unclassified: res.Stats.Unclassified,
		ClassCounts:  classCounts(res.Grouped),
		Elapsed:      time.Since(start),
	}
	if err := s.recorder.SaveRun(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("failed to record run: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, run.ID, artifacts); err != nil {
			return nil, nil, fmt.Errorf("failed to publish artifacts: %w", err)
		}
	}
	return res, run, nil
}

// Fetch downloads the bbox from Overpass and describes it.
func (s *DescriptionService) Fetch(ctx context.Context, b orb.Bound) (*Result, *model.Run, error) {
	if s.fetcher == nil {
		return nil, nil, ErrNoFetcher
	}
	o, err := s.fetcher.FetchArea(ctx, b)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch area: %w", err)
	}
	doc, err := s.converter.Convert(o)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to convert area: %w", err)
	}
	name := fmt.Sprintf("overpass:%f,%f,%f,%f", b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon())
	return s.Run(ctx, name, doc)
}

// WriteArtifacts writes every artifact into dir, creating it when missing.
func WriteArtifacts(dir string, artifacts []model.Artifact) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	for _, a := range artifacts {
		if err := os.WriteFile(filepath.Join(dir, a.Name), a.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", a.Name, err)
		}
	}
	return nil
}

func classCounts(g *model.Grouped) map[string]int {
	counts := make(map[string]int, len(g.Mains))
	for _, m := range g.Mains {
		counts[m.Key] = m.Count()
	}
	return counts
}

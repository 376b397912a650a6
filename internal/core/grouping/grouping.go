// Package grouping classifies every feature of a raw document, augments it
// with semantics, locations and visible geometry, and sorts it into the
// mainClass -> subClass tree.
package grouping

import (
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"mapdesc_service/internal/core/clip"
	"mapdesc_service/internal/core/location"
	"mapdesc_service/internal/core/raster"
	"mapdesc_service/internal/core/rules"
	"mapdesc_service/internal/core/semantics"
	"mapdesc_service/internal/domain/model"
)

// Options tune a grouping run.
type Options struct {
	// Overrides replace the ruleset's named boolean options.
	Overrides map[string]bool
	Logger    *zap.Logger
	// DebugOSMID traces the rasterizer for one feature.
	DebugOSMID int64
}

// Engine runs the classification stage.
type Engine struct {
	rules *rules.Ruleset
	opts  Options
	log   *zap.Logger
}

func New(rs *rules.Ruleset, opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{rules: rs, opts: opts, log: log}
}

// Stats counts what happened to the features of one run.
type Stats struct {
	Features     int
	Classified   int
	Ignored      int
	Unclassified int
}

// Group classifies and augments every feature of doc in place and returns
// the grouped tree. Main classes of the ruleset are always present, in
// ruleset order; features keep document order within a subclass.
func (e *Engine) Group(doc *model.RawDocument) (*model.Grouped, Stats) {
	start := time.Now()
	grouped := &model.Grouped{Boundary: doc.Boundary()}
	for _, c := range e.rules.Classes {
		grouped.EnsureMain(c.Key)
	}
	mapBBox := doc.MapBBox()
	boundary := doc.Boundary()
	rasterOpts := raster.Options{Logger: e.log, DebugOSMID: e.opts.DebugOSMID}

	var stats Stats
	for _, f := range doc.Features() {
		stats.Features++
		cls := e.rules.Classify(f, e.opts.Overrides)
		if cls == nil {
			stats.Unclassified++
			continue
		}
		if cls.Ignore {
			stats.Ignored++
			continue
		}
		stats.Classified++

		if sem := semantics.Build(f); sem != nil {
			f.Semantics = sem
		}
		cls.Modifiers = e.rules.Modifiers(f)
		f.Classification = cls
		if mapBBox != nil {
			AttachLocations(f, *mapBBox)
		}
		attachVisibleGeometry(f, boundary, rasterOpts)
		grouped.Add(cls.MainClass, cls.SubClass, f)
	}

	e.log.Info("grouped map data",
		zap.Int("features", stats.Features),
		zap.Int("classified", stats.Classified),
		zap.Int("ignored", stats.Ignored),
		zap.Int("unclassified", stats.Unclassified),
		zap.Int("skipped_entries", doc.Skipped),
		zap.Duration("elapsed", time.Since(start)))
	return grouped, stats
}

// AttachLocations sets the location fields of a classified feature: point ->
// location; line -> start, end and center; polygon and others -> center.
// Points of interest without a location fall back to their center.
func AttachLocations(f *model.Feature, bbox model.BBox) {
	cls := f.Classification
	if cls == nil {
		return
	}
	var (
		geomType string
		g        = f.Geometry
	)
	if g != nil {
		geomType = g.Type
	}
	switch geomType {
	case model.GeometryPoint:
		if p, ok := g.Point.Point(); ok {
			cls.Location = location.Classify(p, bbox)
		}
		return
	case model.GeometryLineString:
		if len(g.Coordinates) > 0 {
			if p, ok := g.Coordinates[0].Point(); ok {
				cls.LocationStart = location.Classify(p, bbox)
			}
			if p, ok := g.Coordinates[len(g.Coordinates)-1].Point(); ok {
				cls.LocationEnd = location.Classify(p, bbox)
			}
			if c, ok := centerOf(g.LinePoints(), f); ok {
				cls.LocationCenter = location.Classify(c, bbox)
			}
		}
	case model.GeometryPolygon:
		if c, ok := centerOf(model.RingPoints(g.Outer), f); ok {
			cls.LocationCenter = location.Classify(c, bbox)
		}
	default:
		if c, ok := centerOf(nil, f); ok {
			cls.LocationCenter = location.Classify(c, bbox)
		}
	}
	if cls.MainClass == "D" && cls.Location == nil && cls.LocationCenter != nil {
		cls.Location = cls.LocationCenter
	}
}

// centerOf averages the points, falling back to the center of the bounds.
func centerOf(points []orb.Point, f *model.Feature) (orb.Point, bool) {
	if c, ok := model.Average(points); ok {
		return c, true
	}
	if f.Bounds != nil {
		return f.Bounds.Center(), true
	}
	return orb.Point{}, false
}

// attachVisibleGeometry clips lines to the boundary and rasterizes building
// and water polygons. Other polygons are left untouched.
func attachVisibleGeometry(f *model.Feature, boundary *model.BBox, opts raster.Options) {
	g := f.Geometry
	if g == nil {
		return
	}
	switch g.Type {
	case model.GeometryLineString:
		if boundary == nil {
			var lines []orb.LineString
			if ls := g.LinePoints(); len(ls) >= 2 {
				lines = append(lines, ls)
			}
			f.VisibleGeometry = &model.VisibleGeometry{Lines: lines}
			return
		}
		f.VisibleGeometry = &model.VisibleGeometry{Lines: clip.LineString(g.Coordinates, *boundary)}
	case model.GeometryPolygon:
		if !f.IsBuilding() && !f.IsWaterArea() {
			return
		}
		if vis := raster.Analyze(g, boundary, f.OSMID, opts); vis != nil {
			f.VisibleGeometry = &model.VisibleGeometry{Area: vis}
		}
	}
}

// Package osmimport turns OSM data into the raw metadata document consumed by
// the description pipeline, projecting coordinates to local meters.
package osmimport

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmgeojson"
	"go.uber.org/zap"

	"mapdesc_service/internal/core/round"
	"mapdesc_service/internal/domain/model"
)

// ErrNoData is returned when the input has no usable bounds.
var ErrNoData = errors.New("osm data has no bounds")

// Decode reads an OSM XML document.
func Decode(r io.Reader) (*osm.OSM, error) {
	o := &osm.OSM{}
	if err := xml.NewDecoder(r).Decode(o); err != nil {
		return nil, fmt.Errorf("decode osm xml: %w", err)
	}
	return o, nil
}

// Converter projects OSM data around the south-west corner of its bounds.
type Converter struct {
	log *zap.Logger
}

func NewConverter(logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{log: logger}
}

// projection maps lon/lat to meters east/north of origin.
type projection struct {
	origin orb.Point
	scale  float64
}

func newProjection(b orb.Bound) projection {
	latMid := (b.Min.Lat() + b.Max.Lat()) / 2
	return projection{
		origin: mercator(b.Min),
		// Масштаб Меркатора на средней широте
		scale: math.Cos(latMid * math.Pi / 180),
	}
}

func mercator(p orb.Point) orb.Point {
	return project.Point(p, project.WGS84.ToMercator)
}

func (pr projection) point(p orb.Point) orb.Point {
	m := mercator(p)
	return orb.Point{
		round.To((m[0]-pr.origin[0])*pr.scale, 3),
		round.To((m[1]-pr.origin[1])*pr.scale, 3),
	}
}

func (pr projection) coords(ls []orb.Point) []model.Coord {
	out := make([]model.Coord, 0, len(ls))
	for _, p := range ls {
		out = append(out, model.CoordOf(pr.point(p)))
	}
	return out
}

// Bounds returns the declared bounds, or the bound of every node.
func Bounds(o *osm.OSM) (orb.Bound, bool) {
	if o.Bounds != nil {
		return orb.Bound{
			Min: orb.Point{o.Bounds.MinLon, o.Bounds.MinLat},
			Max: orb.Point{o.Bounds.MaxLon, o.Bounds.MaxLat},
		}, true
	}
	if len(o.Nodes) == 0 {
		return orb.Bound{}, false
	}
	b := orb.Bound{Min: o.Nodes[0].Point(), Max: o.Nodes[0].Point()}
	for _, n := range o.Nodes[1:] {
		b = b.Extend(n.Point())
	}
	return b, true
}

// Convert builds the raw document: tagged nodes become points, open ways
// lines, and closed area ways and multipolygons polygons with holes.
func (c *Converter) Convert(o *osm.OSM) (*model.RawDocument, error) {
	bound, ok := Bounds(o)
	if !ok || bound.Max[0] <= bound.Min[0] || bound.Max[1] <= bound.Min[1] {
		return nil, ErrNoData
	}
	fc, err := osmgeojson.Convert(o,
		osmgeojson.NoMeta(true),
		osmgeojson.NoRelationMembership(true),
	)
	if err != nil {
		return nil, fmt.Errorf("convert osm to geojson: %w", err)
	}

	pr := newProjection(bound)
	ne := pr.point(bound.Max)
	boundary := model.BBox{MinX: 0, MinY: 0, MaxX: ne[0], MaxY: ne[1]}

	nodes := &model.FeatureList{Key: "nodes"}
	ways := &model.FeatureList{Key: "ways"}
	areas := &model.FeatureList{Key: "areas"}
	skipped := 0
	for _, f := range fc.Features {
		feature := c.feature(f, pr)
		if feature == nil {
			skipped++
			continue
		}
		switch feature.ElementType {
		case model.ElementNode:
			nodes.Features = append(nodes.Features, feature)
		case model.ElementWay:
			ways.Features = append(ways.Features, feature)
		default:
			areas.Features = append(areas.Features, feature)
		}
	}
	for _, l := range []*model.FeatureList{nodes, ways, areas} {
		sort.SliceStable(l.Features, func(i, j int) bool { return l.Features[i].OSMID < l.Features[j].OSMID })
	}

	c.log.Info("imported osm data",
		zap.Int("nodes", len(nodes.Features)),
		zap.Int("ways", len(ways.Features)),
		zap.Int("areas", len(areas.Features)),
		zap.Int("skipped", skipped),
		zap.Float64("width_m", boundary.MaxX),
		zap.Float64("height_m", boundary.MaxY))

	return &model.RawDocument{
		Meta:  &model.Meta{Boundary: &boundary},
		Lists: []*model.FeatureList{nodes, ways, areas},
	}, nil
}

func (c *Converter) feature(f *geojson.Feature, pr projection) *model.Feature {
	tags := tagsOf(f.Properties["tags"])
	osmType := f.Properties.MustString("type", "")
	out := &model.Feature{
		OSMType: osmType,
		OSMID:   idOf(f),
		Tags:    tags,
	}
	if layer, ok := tags["layer"]; ok {
		if l, err := strconv.Atoi(strings.TrimSpace(layer)); err == nil {
			out.Layer = &l
		}
	}

	switch g := f.Geometry.(type) {
	case orb.Point:
		if len(tags) == 0 {
			return nil
		}
		out.ElementType = model.ElementNode
		p := pr.point(g)
		out.Geometry = &model.Geometry{Type: model.GeometryPoint, Point: model.CoordOf(p)}
	case orb.LineString:
		if len(g) < 2 {
			return nil
		}
		out.ElementType = model.ElementWay
		out.Geometry = &model.Geometry{Type: model.GeometryLineString, Coordinates: pr.coords(g)}
	case orb.Polygon:
		if !polygon(out, g, pr) {
			return nil
		}
	case orb.MultiPolygon:
		// The largest member stands for the whole multipolygon.
		var best orb.Polygon
		bestArea := -1.0
		for _, p := range g {
			if len(p) == 0 || len(p[0]) < 3 {
				continue
			}
			if a := math.Abs(planar.Area(p[0])); a > bestArea {
				best, bestArea = p, a
			}
		}
		if best == nil || !polygon(out, best, pr) {
			return nil
		}
	default:
		c.log.Debug("skipping unsupported geometry",
			zap.String("type", osmType), zap.Int64("id", out.OSMID), zap.String("geometry", g.GeoJSONType()))
		return nil
	}

	if ext, ok := out.Extent(); ok {
		b := model.BBoxFromBound(ext)
		out.Bounds = &b
	}
	return out
}

func polygon(out *model.Feature, g orb.Polygon, pr projection) bool {
	if len(g) == 0 || len(g[0]) < 3 {
		return false
	}
	out.ElementType = model.ElementArea
	geom := &model.Geometry{Type: model.GeometryPolygon, Outer: pr.coords(g[0]), Holes: [][]model.Coord{}}
	for _, h := range g[1:] {
		if len(h) >= 3 {
			geom.Holes = append(geom.Holes, pr.coords(h))
		}
	}
	out.Geometry = geom
	return true
}

func tagsOf(v interface{}) map[string]string {
	switch t := v.(type) {
	case map[string]string:
		return t
	case osm.Tags:
		return t.Map()
	case map[string]interface{}:
		out := make(map[string]string, len(t))
		for k, val := range t {
			if s, ok := val.(string); ok {
				out[k] = s
			}
		}
		return out
	}
	return map[string]string{}
}

// idOf reads the element id from the properties, falling back to the
// "type/id" feature id.
func idOf(f *geojson.Feature) int64 {
	switch v := f.Properties["id"].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	if s, ok := f.ID.(string); ok {
		var (
			typ string
			id  int64
		)
		if _, err := fmt.Sscanf(strings.Replace(s, "/", " ", 1), "%s %d", &typ, &id); err == nil {
			return id
		}
	}
	return 0
}

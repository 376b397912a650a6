package segments

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"mapdesc_service/internal/core/location"
	"mapdesc_service/internal/core/round"
	"mapdesc_service/internal/core/spatial"
	"mapdesc_service/internal/domain/model"
)

// SampleFractions are the arc-length positions sampled along every segment.
var SampleFractions = []float64{0, 0.25, 0.5, 0.75, 1}

var eventPriority = map[string]int{
	model.EventMapEdgeCrossing: 0,
	model.EventJunction:        1,
	model.EventContinuesAs:     2,
	model.EventTerminate:       3,
}

type Options struct {
	// Connectivity enables junctions inferred from shared coordinates.
	Connectivity bool
	Logger       *zap.Logger
}

// Builder answers connectivity questions for one document.
type Builder struct {
	boundary   *model.BBox
	mapBBox    *model.BBox
	idx        *index
	connectors map[string]*model.Connector
	log        *zap.Logger
}

// NewBuilder indexes the ways and connectors of doc. Call it after grouping
// so classification roles are available.
func NewBuilder(doc *model.RawDocument, opts Options) *Builder {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	features := doc.Features()
	b := &Builder{
		boundary: doc.Boundary(),
		mapBBox:  doc.MapBBox(),
		idx:      buildIndex(features),
		log:      log,
	}
	b.connectors = explicitConnectors(features)
	explicit := len(b.connectors)
	if opts.Connectivity {
		b.idx.inferConnectors(b.connectors)
	}
	log.Debug("connectors indexed",
		zap.Int("explicit", explicit),
		zap.Int("inferred", len(b.connectors)-explicit),
		zap.Bool("connectivity", opts.Connectivity))
	return b
}

// Connectors returns every connector ordered by coordinate key.
func (b *Builder) Connectors() []*model.Connector {
	return sortedConnectors(b.connectors)
}

// NamesAt returns the distinct way names passing through p, in document order.
func (b *Builder) NamesAt(p orb.Point) []string {
	names := b.idx.names[CoordKey(p)]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// MapBBox is the rectangle used for location samples.
func (b *Builder) MapBBox() *model.BBox { return b.mapBBox }

// Segments walks the visible lines of f.
func (b *Builder) Segments(f *model.Feature) []model.Segment {
	if f.VisibleGeometry == nil {
		return nil
	}
	self := model.Connection{OSMType: f.OSMType, OSMID: f.OSMID}
	out := make([]model.Segment, 0, len(f.VisibleGeometry.Lines))
	for _, ls := range f.VisibleGeometry.Lines {
		if len(ls) < 2 {
			continue
		}
		out = append(out, b.segment(ls, self))
	}
	return out
}

func (b *Builder) segment(ls orb.LineString, self model.Connection) model.Segment {
	cum := cumulative(ls)
	total := cum[len(cum)-1]
	seg := model.Segment{
		Coordinates: ls,
		Length:      round.To(total, 2),
		Samples:     make([]model.Sample, 0, len(SampleFractions)),
		Events:      []model.Event{},
	}
	for _, t := range SampleFractions {
		seg.Samples = append(seg.Samples, model.Sample{T: t, Zone: b.zone(pointAt(ls, cum, t))})
	}

	fraction := func(i int) float64 {
		if total == 0 {
			if i == 0 {
				return 0
			}
			return 1
		}
		return round.To(cum[i]/total, 4)
	}

	junctions := make(map[string]bool)
	for i, p := range ls {
		key := CoordKey(p)
		c, ok := b.connectors[key]
		if !ok || junctions[key] {
			continue
		}
		junctions[key] = true
		ev := model.Event{
			Type:          model.EventJunction,
			T:             fraction(i),
			Zone:          b.zone(p),
			ConnectorType: c.Type,
			Inferred:      c.Inferred,
		}
		for _, r := range b.idx.others(key, self) {
			if r.conn.Name != "" {
				ev.Connections = append(ev.Connections, r.conn)
			}
		}
		seg.Events = append(seg.Events, ev)
	}

	last := len(ls) - 1
	for _, i := range []int{0, last} {
		p := ls[i]
		edge := b.edgeOf(p)
		if edge != "" {
			seg.Events = append(seg.Events, model.Event{
				Type: model.EventMapEdgeCrossing,
				T:    fraction(i),
				Zone: b.zone(p),
				Edge: edge,
			})
			continue
		}
		if junctions[CoordKey(p)] {
			continue
		}
		if others := b.idx.others(CoordKey(p), self); len(others) == 1 {
			next := others[0].conn
			seg.Events = append(seg.Events, model.Event{
				Type:        model.EventContinuesAs,
				T:           fraction(i),
				Zone:        b.zone(p),
				ContinuesAs: &next,
			})
			continue
		}
		seg.Events = append(seg.Events, model.Event{
			Type: model.EventTerminate,
			T:    fraction(i),
			Zone: b.zone(p),
		})
	}

	sort.SliceStable(seg.Events, func(i, j int) bool {
		if seg.Events[i].T != seg.Events[j].T {
			return seg.Events[i].T < seg.Events[j].T
		}
		return eventPriority[seg.Events[i].Type] < eventPriority[seg.Events[j].Type]
	})
	return seg
}

func (b *Builder) zone(p orb.Point) *model.CompactLocation {
	if b.mapBBox == nil {
		return nil
	}
	return location.Compact(p, *b.mapBBox)
}

// edgeOf names the boundary edge or corner p lies on, or "".
func (b *Builder) edgeOf(p orb.Point) string {
	if b.boundary == nil {
		return ""
	}
	bb := *b.boundary
	eps := math.Max(1e-6, 1e-6*bb.MaxSide())
	var ns, ew string
	switch {
	case math.Abs(p[1]-bb.MaxY) <= eps:
		ns = "north"
	case math.Abs(p[1]-bb.MinY) <= eps:
		ns = "south"
	}
	switch {
	case math.Abs(p[0]-bb.MaxX) <= eps:
		ew = "east"
	case math.Abs(p[0]-bb.MinX) <= eps:
		ew = "west"
	}
	return ns + ew
}

func cumulative(ls orb.LineString) []float64 {
	cum := make([]float64, len(ls))
	for i := 1; i < len(ls); i++ {
		cum[i] = cum[i-1] + math.Hypot(ls[i][0]-ls[i-1][0], ls[i][1]-ls[i-1][1])
	}
	return cum
}

// pointAt interpolates the point at arc-length fraction t.
func pointAt(ls orb.LineString, cum []float64, t float64) orb.Point {
	total := cum[len(cum)-1]
	if total == 0 || t <= 0 {
		return ls[0]
	}
	if t >= 1 {
		return ls[len(ls)-1]
	}
	target := t * total
	for i := 1; i < len(ls); i++ {
		if cum[i] < target {
			continue
		}
		span := cum[i] - cum[i-1]
		if span == 0 {
			return ls[i]
		}
		k := (target - cum[i-1]) / span
		return orb.Point{ls[i-1][0] + k*(ls[i][0]-ls[i-1][0]), ls[i-1][1] + k*(ls[i][1]-ls[i-1][1])}
	}
	return ls[len(ls)-1]
}

// VisibleLength is the length of f's visible lines, or of its whole line
// geometry when nothing was clipped.
func VisibleLength(f *model.Feature) float64 {
	if f.VisibleGeometry != nil && f.VisibleGeometry.Area == nil {
		return spatial.LinesLength(f.VisibleGeometry.Lines)
	}
	if f.GeometryType() == model.GeometryLineString {
		return spatial.Length(f.Geometry.LinePoints())
	}
	return 0
}

// RoadGroup collects the ways sharing label, longest first, each with its
// visible segment bucket.
func (b *Builder) RoadGroup(label string, features []*model.Feature) *model.RoadGroup {
	type member struct {
		f      *model.Feature
		length float64
	}
	members := make([]member, 0, len(features))
	for _, f := range features {
		members = append(members, member{f: f, length: VisibleLength(f)})
	}
	sort.SliceStable(members, func(i, j int) bool { return members[i].length > members[j].length })

	rg := &model.RoadGroup{
		DisplayLabel:    label,
		Ways:            make([]model.WayMember, 0, len(members)),
		VisibleGeometry: make([]model.WayBucket, 0, len(members)),
	}
	for _, m := range members {
		rg.Ways = append(rg.Ways, model.WayMember{
			OSMType: m.f.OSMType,
			OSMID:   m.f.OSMID,
			Name:    m.f.Name(),
			Length:  round.To(m.length, 2),
		})
		segs := b.Segments(m.f)
		if segs == nil {
			segs = []model.Segment{}
		}
		rg.VisibleGeometry = append(rg.VisibleGeometry, model.WayBucket{
			OSMType:  m.f.OSMType,
			OSMID:    m.f.OSMID,
			Segments: segs,
		})
	}
	return rg
}

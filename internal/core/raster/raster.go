// Package raster measures how a polygon shows up on the map by sampling it on
// a regular grid over the map boundary.
package raster

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"mapdesc_service/internal/core/location"
	"mapdesc_service/internal/core/round"
	"mapdesc_service/internal/domain/model"
)

const (
	// GridBase is the base sampling resolution, also used for shape analysis.
	GridBase = 60
	// GridRefined is used when the base grid splits the area into pieces.
	GridRefined = 120
)

var edgeOrder = []string{"north", "east", "south", "west"}

// Options configures one analysis call.
type Options struct {
	Logger *zap.Logger
	// DebugOSMID enables cell-level tracing for one feature.
	DebugOSMID int64
}

type ring struct {
	pts   orb.Ring
	bound orb.Bound
}

func newRing(coords []model.Coord) (ring, bool) {
	pts := model.RingPoints(coords)
	if len(pts) >= 2 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return ring{}, false
	}
	return ring{pts: pts, bound: pts.Bound()}, true
}

// contains is even-odd ray casting with a bound fast-reject.
func (r ring) contains(p orb.Point) bool {
	if p[0] < r.bound.Min[0] || p[0] > r.bound.Max[0] || p[1] < r.bound.Min[1] || p[1] > r.bound.Max[1] {
		return false
	}
	inside := false
	n := len(r.pts)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := r.pts[i], r.pts[j]
		if (a[1] > p[1]) != (b[1] > p[1]) {
			x := (b[0]-a[0])*(p[1]-a[1])/(b[1]-a[1]) + a[0]
			if p[0] < x {
				inside = !inside
			}
		}
	}
	return inside
}

type polygon struct {
	outer ring
	holes []ring
}

func (pg polygon) contains(p orb.Point) bool {
	if !pg.outer.contains(p) {
		return false
	}
	for _, h := range pg.holes {
		if h.contains(p) {
			return false
		}
	}
	return true
}

type cell struct{ col, row int }

// pass is the result of rasterizing at one grid size.
type pass struct {
	gridSize   int
	considered int
	inside     []cell
	result     *model.AreaVisibility
}

// Analyze rasterizes a polygon geometry against boundary. It returns nil when
// the geometry has no usable outer ring or the boundary is missing.
func Analyze(geom *model.Geometry, boundary *model.BBox, osmID int64, opts Options) *model.AreaVisibility {
	if geom == nil || boundary == nil || boundary.Validate() != nil {
		return nil
	}
	outer, ok := newRing(geom.Outer)
	if !ok {
		return nil
	}
	pg := polygon{outer: outer}
	for _, h := range geom.Holes {
		if hr, ok := newRing(h); ok {
			pg.holes = append(pg.holes, hr)
		}
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	debug := opts.DebugOSMID != 0 && opts.DebugOSMID == osmID

	clipBox, ok := model.BBoxFromBound(outer.bound).Intersect(*boundary)
	if !ok {
		if debug {
			log.Debug("area outside boundary", zap.Int64("osm_id", osmID))
		}
		return &model.AreaVisibility{
			Coverage: model.Coverage{
				GridSize: GridBase,
				Segments: []model.ZoneTally{},
			},
			EdgesTouched: []model.EdgeShare{},
			Components:   []model.Component{},
		}
	}

	base := rasterize(pg, *boundary, clipBox, GridBase)
	result := base.result
	if len(result.Components) > 1 {
		refined := rasterize(pg, *boundary, clipBox, GridRefined)
		if len(refined.inside) > 0 {
			result = refined.result
			result.RefinedFrom = GridBase
		}
		if debug {
			log.Debug("area refined",
				zap.Int64("osm_id", osmID),
				zap.Int("base_components", len(base.result.Components)),
				zap.Int("refined_components", len(refined.result.Components)),
				zap.Int("refined_inside", len(refined.inside)))
		}
	}
	if len(base.inside) > 0 {
		result.Shape = analyzeShape(base.inside)
		result.ShapeGridSize = GridBase
	}
	if debug {
		log.Debug("area analyzed",
			zap.Int64("osm_id", osmID),
			zap.Float64("coverage", result.Coverage.CoveragePercent),
			zap.Int("inside", result.Coverage.InsideCells),
			zap.Int("considered", result.Coverage.ConsideredCells))
	}
	return result
}

// indexRange returns the cell indices whose centers fall inside [lo, hi].
func indexRange(lo, hi, origin, step float64, n int) (int, int) {
	minIdx := int(math.Ceil((lo-origin)/step - 0.5))
	maxIdx := int(math.Floor((hi-origin)/step - 0.5))
	if minIdx < 0 {
		minIdx = 0
	}
	if maxIdx > n-1 {
		maxIdx = n - 1
	}
	return minIdx, maxIdx
}

func rasterize(pg polygon, boundary, clipBox model.BBox, n int) pass {
	stepX := boundary.Width() / float64(n)
	stepY := boundary.Height() / float64(n)
	c0, c1 := indexRange(clipBox.MinX, clipBox.MaxX, boundary.MinX, stepX, n)
	r0, r1 := indexRange(clipBox.MinY, clipBox.MaxY, boundary.MinY, stepY, n)

	center := func(c cell) orb.Point {
		return orb.Point{
			boundary.MinX + (float64(c.col)+0.5)*stepX,
			boundary.MinY + (float64(c.row)+0.5)*stepY,
		}
	}

	p := pass{gridSize: n}
	grid := make(map[cell]bool)
	tallies := make(map[model.Location]int)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			p.considered++
			c := cell{col: col, row: row}
			pt := center(c)
			if !pg.contains(pt) {
				continue
			}
			p.inside = append(p.inside, c)
			grid[c] = true
			if loc := location.Classify(pt, boundary); loc != nil {
				tallies[*loc]++
			}
		}
	}

	segments := make([]model.ZoneTally, 0, len(tallies))
	for loc, count := range tallies {
		segments = append(segments, model.ZoneTally{Zone: loc.Zone, Dir: loc.Dir, Phrase: loc.Phrase, InsideCount: count})
	}
	sort.Slice(segments, func(i, j int) bool {
		if segments[i].InsideCount != segments[j].InsideCount {
			return segments[i].InsideCount > segments[j].InsideCount
		}
		return segments[i].Phrase < segments[j].Phrase
	})

	coverage := 100 * float64(len(p.inside)) / float64(n*n)
	coverage = math.Max(0, math.Min(100, round.To(coverage, 1)))

	p.result = &model.AreaVisibility{
		Coverage: model.Coverage{
			CoveragePercent: coverage,
			InsideCells:     len(p.inside),
			ConsideredCells: p.considered,
			GridSize:        n,
			Segments:        segments,
		},
		EdgesTouched: edgesTouched(p.inside, n),
		Components:   components(p.inside, grid, n, boundary, center),
	}
	return p
}

func cellEdges(c cell, n int) []string {
	var edges []string
	if c.row == n-1 {
		edges = append(edges, "north")
	}
	if c.col == n-1 {
		edges = append(edges, "east")
	}
	if c.row == 0 {
		edges = append(edges, "south")
	}
	if c.col == 0 {
		edges = append(edges, "west")
	}
	return edges
}

func edgesTouched(inside []cell, n int) []model.EdgeShare {
	hits := make(map[string]int)
	for _, c := range inside {
		for _, e := range cellEdges(c, n) {
			hits[e]++
		}
	}
	out := []model.EdgeShare{}
	for _, e := range edgeOrder {
		if hits[e] == 0 {
			continue
		}
		out = append(out, model.EdgeShare{Edge: e, Percent: round.To(100*float64(hits[e])/float64(n), 1)})
	}
	return out
}

// components groups inside cells with a 4-connected flood fill. Cells are
// visited in scan order so the result is deterministic.
func components(inside []cell, grid map[cell]bool, n int, boundary model.BBox, center func(cell) orb.Point) []model.Component {
	seen := make(map[cell]bool, len(inside))
	out := []model.Component{}
	for _, start := range inside {
		if seen[start] {
			continue
		}
		seen[start] = true
		stack := []cell{start}
		var (
			count  int
			sx, sy float64
			edges  = make(map[string]bool)
		)
		for len(stack) > 0 {
			c := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			count++
			pt := center(c)
			sx += pt[0]
			sy += pt[1]
			for _, e := range cellEdges(c, n) {
				edges[e] = true
			}
			for _, nb := range [4]cell{{c.col + 1, c.row}, {c.col - 1, c.row}, {c.col, c.row + 1}, {c.col, c.row - 1}} {
				if grid[nb] && !seen[nb] {
					seen[nb] = true
					stack = append(stack, nb)
				}
			}
		}
		centroid := orb.Point{sx / float64(count), sy / float64(count)}
		comp := model.Component{
			CellCount:   count,
			Centroid:    model.XY{X: centroid[0], Y: centroid[1]},
			Location:    location.Classify(centroid, boundary),
			TouchesEdge: len(edges) > 0,
			Edges:       []string{},
		}
		for _, e := range edgeOrder {
			if edges[e] {
				comp.Edges = append(comp.Edges, e)
			}
		}
		sort.Strings(comp.Edges)
		out = append(out, comp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CellCount > out[j].CellCount })
	return out
}

package repository

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/serjvanilla/go-overpass"
	"go.uber.org/zap"
)

type OverpassRepository struct {
	client  *overpass.Client
	timeout time.Duration
	log     *zap.Logger
}

func NewOverpassRepository(endpoint string, maxParallel int, timeout time.Duration, logger *zap.Logger) *OverpassRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, maxParallel, httpClient)
	return &OverpassRepository{
		client:  &client,
		timeout: timeout,
		log:     logger,
	}
}

// buildAreaQuery selects everything inside the bound plus multipolygon
// relations, recursing down to member nodes.
func buildAreaQuery(b orb.Bound, timeout time.Duration) string {
	bbox := fmt.Sprintf("%f,%f,%f,%f", b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon())
	return fmt.Sprintf(`
		[out:json][timeout:%d];
		(
			node(%s);
			way(%s);
			relation["type"="multipolygon"](%s);
		);
		out body;
		>;
		out skel qt;
	`, int(timeout.Seconds()), bbox, bbox, bbox)
}

// FetchArea downloads the map data inside b.
func (r *OverpassRepository) FetchArea(ctx context.Context, b orb.Bound) (*osm.OSM, error) {
	start := time.Now()
	result, err := r.executeQuery(ctx, buildAreaQuery(b, r.timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to execute area query: %w", err)
	}
	o := toOSM(result, b)
	r.log.Info("fetched overpass area",
		zap.Int("nodes", len(o.Nodes)),
		zap.Int("ways", len(o.Ways)),
		zap.Int("relations", len(o.Relations)),
		zap.Duration("elapsed", time.Since(start)))
	return o, nil
}

func (r *OverpassRepository) executeQuery(ctx context.Context, query string) (*overpass.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type reply struct {
		result overpass.Result
		err    error
	}
	done := make(chan reply, 1)
	go func() {
		result, err := r.client.Query(query)
		done <- reply{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("overpass query aborted: %w", ctx.Err())
	case rep := <-done:
		if rep.err != nil {
			return nil, fmt.Errorf("overpass query failed: %w", rep.err)
		}
		return &rep.result, nil
	}
}

// toOSM converts the Overpass result into the osm model, ordered by id.
func toOSM(result *overpass.Result, b orb.Bound) *osm.OSM {
	o := &osm.OSM{
		Bounds: &osm.Bounds{
			MinLat: b.Min.Lat(),
			MaxLat: b.Max.Lat(),
			MinLon: b.Min.Lon(),
			MaxLon: b.Max.Lon(),
		},
	}

	for _, node := range result.Nodes {
		o.Nodes = append(o.Nodes, &osm.Node{
			ID:   osm.NodeID(node.ID),
			Lat:  node.Lat,
			Lon:  node.Lon,
			Tags: toTags(node.Tags),
		})
	}
	sort.Slice(o.Nodes, func(i, j int) bool { return o.Nodes[i].ID < o.Nodes[j].ID })

	for _, way := range result.Ways {
		w := &osm.Way{ID: osm.WayID(way.ID), Tags: toTags(way.Tags)}
		for _, n := range way.Nodes {
			if n == nil {
				continue
			}
			w.Nodes = append(w.Nodes, osm.WayNode{ID: osm.NodeID(n.ID), Lat: n.Lat, Lon: n.Lon})
		}
		o.Ways = append(o.Ways, w)
	}
	sort.Slice(o.Ways, func(i, j int) bool { return o.Ways[i].ID < o.Ways[j].ID })

	// Relations only matter as multipolygons, so only way members are kept.
	for _, rel := range result.Relations {
		rr := &osm.Relation{ID: osm.RelationID(rel.ID), Tags: toTags(rel.Tags)}
		for _, m := range rel.Members {
			if m.Type != overpass.ElementTypeWay || m.Way == nil {
				continue
			}
			rr.Members = append(rr.Members, osm.Member{Type: osm.TypeWay, Ref: m.Way.ID, Role: m.Role})
		}
		o.Relations = append(o.Relations, rr)
	}
	sort.Slice(o.Relations, func(i, j int) bool { return o.Relations[i].ID < o.Relations[j].ID })

	return o
}

func toTags(m map[string]string) osm.Tags {
	tags := make(osm.Tags, 0, len(m))
	for k, v := range m {
		tags = append(tags, osm.Tag{Key: k, Value: v})
	}
	tags.SortByKeyValue()
	return tags
}

// ParseBBox parses a bbox string in format "lat1,lon1,lat2,lon2" into a
// lon/lat bound.
func ParseBBox(bbox string) (orb.Bound, error) {
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox must have 4 components, got %d", len(parts))
	}

	var v [4]float64
	names := [4]string{"minLat", "minLon", "maxLat", "maxLon"}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid %s: %w", names[i], err)
		}
		v[i] = f
	}
	minLat, minLon, maxLat, maxLon := v[0], v[1], v[2], v[3]

	// Validate ranges
	if minLat < -90 || minLat > 90 || maxLat < -90 || maxLat > 90 {
		return orb.Bound{}, fmt.Errorf("latitude out of range [-90, 90]")
	}
	if minLon < -180 || minLon > 180 || maxLon < -180 || maxLon > 180 {
		return orb.Bound{}, fmt.Errorf("longitude out of range [-180, 180]")
	}
	if minLat >= maxLat || minLon >= maxLon {
		return orb.Bound{}, fmt.Errorf("minLat must be < maxLat and minLon must be < maxLon")
	}

	return orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}, nil
}

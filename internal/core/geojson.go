package core

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"mapdesc_service/internal/domain/model"
)

// FeatureCollection exports the grouped features in local map coordinates.
// Features without usable geometry are left out.
func FeatureCollection(grouped *model.Grouped) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, m := range grouped.Mains {
		for _, s := range m.Subs {
			for _, f := range s.Features {
				geom := geometryOf(f.Geometry)
				if geom == nil {
					continue
				}
				gf := geojson.NewFeature(geom)
				gf.ID = f.Ref()
				gf.Properties["osmType"] = f.OSMType
				gf.Properties["osmId"] = f.OSMID
				gf.Properties["mainClass"] = m.Key
				gf.Properties["subClass"] = s.Key
				if name := f.Name(); name != "" {
					gf.Properties["name"] = name
				}
				if len(f.Tags) > 0 {
					gf.Properties["tags"] = f.Tags
				}
				fc.Append(gf)
			}
		}
	}
	return fc
}

func geometryOf(g *model.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	switch g.Type {
	case model.GeometryPoint:
		if p, ok := g.Point.Point(); ok {
			return p
		}
	case model.GeometryLineString:
		parts := splitLine(g.Coordinates)
		switch len(parts) {
		case 0:
			return nil
		case 1:
			return parts[0]
		default:
			return orb.MultiLineString(parts)
		}
	case model.GeometryPolygon:
		outer := model.RingPoints(g.Outer)
		if len(outer) < 3 {
			return nil
		}
		poly := orb.Polygon{closeRing(outer)}
		for _, h := range g.Holes {
			if hole := model.RingPoints(h); len(hole) >= 3 {
				poly = append(poly, closeRing(hole))
			}
		}
		return poly
	}
	return nil
}

// splitLine breaks a polyline at null markers.
func splitLine(coords []model.Coord) []orb.LineString {
	var (
		parts []orb.LineString
		cur   orb.LineString
	)
	flush := func() {
		if len(cur) >= 2 {
			parts = append(parts, cur)
		}
		cur = nil
	}
	for _, c := range coords {
		p, ok := c.Point()
		if !ok {
			flush()
			continue
		}
		cur = append(cur, p)
	}
	flush()
	return parts
}

func closeRing(r orb.Ring) orb.Ring {
	if !r.Closed() {
		r = append(r, r[0])
	}
	return r
}

package model

import (
	"bytes"
	"encoding/json"

	"github.com/paulmach/orb"
)

// Shape types of a rasterized area.
const (
	ShapeThin    = "thin"
	ShapeComplex = "complex"
	ShapeRegular = "regular"
)

// ZoneTally counts inside raster cells per location zone.
type ZoneTally struct {
	Zone        Zone   `json:"zone"`
	Dir         string `json:"dir,omitempty"`
	Phrase      string `json:"phrase"`
	InsideCount int    `json:"insideCount"`
}

// Coverage summarizes how much of the map grid a polygon covers.
type Coverage struct {
	CoveragePercent float64     `json:"coveragePercent"`
	InsideCells     int         `json:"insideCells"`
	ConsideredCells int         `json:"consideredCells"`
	GridSize        int         `json:"gridSize"`
	Segments        []ZoneTally `json:"segments"`
}

// EdgeShare is the share of a boundary edge's cells covered by the polygon.
type EdgeShare struct {
	Edge    string  `json:"edge"`
	Percent float64 `json:"percent"`
}

// XY is a plain point with named members.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Component is one 4-connected region of inside cells.
type Component struct {
	CellCount   int       `json:"cellCount"`
	Centroid    XY        `json:"centroid"`
	Location    *Location `json:"location,omitempty"`
	TouchesEdge bool      `json:"touchesEdge"`
	Edges       []string  `json:"edges"`
}

// Shape is the coarse shape of an area derived from the base grid.
type Shape struct {
	Type             string  `json:"type"`
	OrientationDeg   float64 `json:"orientationDeg"`
	OrientationLabel string  `json:"orientationLabel"`
	FillRatio        float64 `json:"fillRatio"`
	AspectRatio      float64 `json:"aspectRatio"`
}

// AreaVisibility is the rasterizer output for one polygon.
type AreaVisibility struct {
	Coverage      Coverage    `json:"coverage"`
	EdgesTouched  []EdgeShare `json:"edgesTouched"`
	Components    []Component `json:"components"`
	RefinedFrom   int         `json:"refinedFrom,omitempty"`
	Shape         *Shape      `json:"shape,omitempty"`
	ShapeGridSize int         `json:"shapeGridSize,omitempty"`
}

// VisibleGeometry is either the clipped polylines of a line feature or the
// raster analysis of a polygon.
type VisibleGeometry struct {
	Lines []orb.LineString
	Area  *AreaVisibility
}

func (v VisibleGeometry) MarshalJSON() ([]byte, error) {
	if v.Area != nil {
		return json.Marshal(v.Area)
	}
	if v.Lines == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.Lines)
}

func (v *VisibleGeometry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		v.Area = nil
		return json.Unmarshal(data, &v.Lines)
	}
	v.Lines = nil
	v.Area = &AreaVisibility{}
	return json.Unmarshal(data, v.Area)
}

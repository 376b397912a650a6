package raster

import (
	"math"

	"mapdesc_service/internal/core/round"
	"mapdesc_service/internal/domain/model"
)

var shapeAngles = []float64{0, 22.5, 45, 67.5}

var orientationLabels = map[float64]string{
	0:    "east-west",
	22.5: "east-northeast to west-southwest",
	45:   "northeast-southwest",
	67.5: "north-northeast to south-southwest",
	90:   "north-south",
}

const shapeEpsilon = 1e-6

// analyzeShape fits a rotated rectangle to the cells at four angles and keeps
// the best filled one.
func analyzeShape(cells []cell) *model.Shape {
	if len(cells) == 0 {
		return nil
	}
	var (
		bestFill, bestAspect = -1.0, 0.0
		bestAngle            float64
		bestSpanU, bestSpanV float64
	)
	for _, angle := range shapeAngles {
		rad := angle * math.Pi / 180
		cos, sin := math.Cos(rad), math.Sin(rad)
		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, c := range cells {
			x, y := float64(c.col), float64(c.row)
			u := x*cos + y*sin
			v := -x*sin + y*cos
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}
		spanU := maxU - minU + 1
		spanV := maxV - minV + 1
		fill := float64(len(cells)) / (spanU * spanV)
		aspect := math.Max(spanU, spanV) / math.Min(spanU, spanV)
		better := fill > bestFill+shapeEpsilon ||
			(math.Abs(fill-bestFill) <= shapeEpsilon && aspect > bestAspect)
		if better {
			bestFill, bestAspect, bestAngle = fill, aspect, angle
			bestSpanU, bestSpanV = spanU, spanV
		}
	}

	orientation := bestAngle
	if bestAngle == 0 && bestSpanV > bestSpanU && bestAspect > 1.05 {
		orientation = 90
	}
	shapeType := model.ShapeRegular
	switch {
	case bestFill >= 0.6 && bestAspect >= 3:
		shapeType = model.ShapeThin
	case bestFill <= 0.4:
		shapeType = model.ShapeComplex
	}
	return &model.Shape{
		Type:             shapeType,
		OrientationDeg:   orientation,
		OrientationLabel: orientationLabels[orientation],
		FillRatio:        round.To(bestFill, 3),
		AspectRatio:      round.To(bestAspect, 3),
	}
}

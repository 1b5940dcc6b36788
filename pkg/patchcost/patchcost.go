// Package patchcost computes the plane-parameterised matching cost the
// propagation engine evaluates against. It is a single concrete evaluator,
// not an open hierarchy: the reference algorithm only ever needed one.
package patchcost

import (
	"math"

	"github.com/gostereo/pmstereo/pkg/pmtype"
)

// costPunish is the fixed penalty added for a patch offset whose plane
// disparity falls outside the view's disparity range.
const costPunish = 120.0

// View holds the read-only per-view image data the evaluator samples from:
// its own color/gradient buffers and the opposing view's, plus the
// disparity range this view's planes are expected to lie in.
type View struct {
	Color    []pmtype.Color    // this view's own BGR samples, row-major
	Gradient []pmtype.Gradient // this view's own gradient samples, row-major

	OtherColor    []pmtype.Color    // opposing view's BGR samples
	OtherGradient []pmtype.Gradient // opposing view's gradient samples

	Width, Height int

	MinDisparity int
	MaxDisparity int
}

// Evaluator is the concrete PatchMatch-stereo cost evaluator for one view.
// It is cheap to construct and holds only the parameters and buffer
// references needed to compute costs; there is no mutable state.
type Evaluator struct {
	View View

	Gamma   float64
	Alpha   float64
	TauCol  float64
	TauGrad float64
}

// NewEvaluator builds an Evaluator for one view from the shared option
// record and the view's buffers.
func NewEvaluator(v View, opt pmtype.Option) Evaluator {
	return Evaluator{
		View:    v,
		Gamma:   opt.Gamma,
		Alpha:   opt.Alpha,
		TauCol:  opt.TauCol,
		TauGrad: opt.TauGrad,
	}
}

func (e Evaluator) colorAt(x, y int) pmtype.Color {
	return e.View.Color[y*e.View.Width+x]
}

func (e Evaluator) gradientAt(x, y int) pmtype.Gradient {
	return e.View.Gradient[y*e.View.Width+x]
}

// otherColorAt linearly interpolates the opposing view's color along x
// at fractional column xr, row y.
func (e Evaluator) otherColorAt(xr float64, y int) pmtype.FColor {
	x1 := int(math.Floor(xr))
	x2 := x1 + 1
	t := xr - float64(x1)
	w := e.View.Width
	c1 := e.View.OtherColor[y*w+x1]
	c2 := c1
	if x2 < w {
		c2 = e.View.OtherColor[y*w+x2]
	}
	return pmtype.FColor{
		B: (1-t)*float64(c1.B) + t*float64(c2.B),
		G: (1-t)*float64(c1.G) + t*float64(c2.G),
		R: (1-t)*float64(c1.R) + t*float64(c2.R),
	}
}

// otherGradientAt linearly interpolates the opposing view's gradient
// along x at fractional column xr, row y.
func (e Evaluator) otherGradientAt(xr float64, y int) pmtype.FGradient {
	x1 := int(math.Floor(xr))
	x2 := x1 + 1
	t := xr - float64(x1)
	w := e.View.Width
	g1 := e.View.OtherGradient[y*w+x1]
	g2 := g1
	if x2 < w {
		g2 = e.View.OtherGradient[y*w+x2]
	}
	return pmtype.FGradient{
		X: (1-t)*float64(g1.X) + t*float64(g2.X),
		Y: (1-t)*float64(g1.Y) + t*float64(g2.Y),
	}
}

// PrimitiveCost computes the single-pixel matching cost of the reference
// pixel (x,y) against the opposing view at signed disparity d. d is
// subtracted from x to locate the opposing-view column, so callers must
// already have negated d for the right view per the view's convention.
func (e Evaluator) PrimitiveCost(x, y int, d float64) float64 {
	xr := float64(x) - d
	if xr < 0 || xr >= float64(e.View.Width) {
		return (1-e.Alpha)*e.TauCol + e.Alpha*e.TauGrad
	}

	colL := e.colorAt(x, y)
	colR := e.otherColorAt(xr, y)
	dc := math.Min(
		math.Abs(float64(colL.B)-colR.B)+math.Abs(float64(colL.G)-colR.G)+math.Abs(float64(colL.R)-colR.R),
		e.TauCol,
	)

	gradL := e.gradientAt(x, y)
	gradR := e.otherGradientAt(xr, y)
	dg := math.Min(
		math.Abs(float64(gradL.X)-gradR.X)+math.Abs(float64(gradL.Y)-gradR.Y),
		e.TauGrad,
	)

	return (1-e.Alpha)*dc + e.Alpha*dg
}

// AggregatedCost computes the bilaterally-weighted patch cost of plane p
// evaluated at reference pixel (x,y), over a patchSize x patchSize window.
func (e Evaluator) AggregatedCost(x, y int, p pmtype.DisparityPlane, patchSize int) float64 {
	half := patchSize / 2
	colP := e.colorAt(x, y)

	cost := 0.0
	for r := -half; r <= half; r++ {
		yL := y + r
		if yL < 0 || yL >= e.View.Height {
			continue
		}
		for c := -half; c <= half; c++ {
			xL := x + c
			if xL < 0 || xL >= e.View.Width {
				continue
			}

			d := p.DisparityAt(float64(xL), float64(yL))
			if d < float64(e.View.MinDisparity) || d > float64(e.View.MaxDisparity) {
				cost += costPunish
				continue
			}

			colQ := e.colorAt(xL, yL)
			dc := math.Abs(float64(colP.R)-float64(colQ.R)) +
				math.Abs(float64(colP.G)-float64(colQ.G)) +
				math.Abs(float64(colP.B)-float64(colQ.B))

			w := math.Exp(-dc / e.Gamma)

			cost += w * e.PrimitiveCost(xL, yL, d)
		}
	}

	return cost
}

// Package propagation implements the PatchMatch-stereo propagation pass:
// spatial propagation, randomized plane refinement, and cross-view
// propagation, run as one scanline sweep per view per iteration.
package propagation

import (
	"math"
	"math/rand"

	"github.com/gostereo/pmstereo/pkg/patchcost"
	"github.com/gostereo/pmstereo/pkg/pmtype"
)

// Grid is the mutable per-view state the propagation pass reads and
// writes: the plane hypothesis and its aggregated cost at every pixel.
type Grid struct {
	Planes []pmtype.DisparityPlane
	Cost   []float64
	Width  int
	Height int
}

// NewGrid allocates a zeroed plane/cost grid of the given dimensions.
func NewGrid(width, height int) *Grid {
	return &Grid{
		Planes: make([]pmtype.DisparityPlane, width*height),
		Cost:   make([]float64, width*height),
		Width:  width,
		Height: height,
	}
}

func (g *Grid) idx(x, y int) int { return y*g.Width + x }

// View bundles one view's mutable grid with the evaluator used to score
// planes against it and the option fields the refinement schedule and
// frontal-parallel switch need.
type View struct {
	Grid      *Grid
	Evaluator patchcost.Evaluator
	PatchSize int

	MinDisparity int
	MaxDisparity int

	ForceFrontalParallel bool
	IntegerDisparity     bool
}

func (v *View) inBounds(x, y int) bool {
	return x >= 0 && x < v.Grid.Width && y >= 0 && y < v.Grid.Height
}

func (v *View) aggCost(x, y int, p pmtype.DisparityPlane) float64 {
	return v.Evaluator.AggregatedCost(x, y, p, v.PatchSize)
}

// Pass runs one full scanline sweep over ref, propagating from spatial
// neighbours, then refining, then cross-view-propagating into other.
// iteration selects the raster direction: even iterations scan
// top-left to bottom-right, odd iterations reverse both axes.
func Pass(ref, other *View, iteration int, rng *rand.Rand) {
	dir := 1
	if iteration%2 != 0 {
		dir = -1
	}

	xs := rasterOrder(ref.Grid.Width, dir)
	ys := rasterOrder(ref.Grid.Height, dir)

	for _, y := range ys {
		for _, x := range xs {
			spatialPropagate(ref, x, y, dir)
			refine(ref, x, y, rng)
			crossViewPropagate(ref, other, x, y)
		}
	}
}

func rasterOrder(n, dir int) []int {
	order := make([]int, n)
	if dir > 0 {
		for i := 0; i < n; i++ {
			order[i] = i
		}
	} else {
		for i := 0; i < n; i++ {
			order[i] = n - 1 - i
		}
	}
	return order
}

// spatialPropagate compares the current pixel's plane against its
// horizontal and vertical neighbour (in the scan direction) and adopts
// whichever strictly reduces the stored cost.
func spatialPropagate(ref *View, x, y, dir int) {
	i := ref.Grid.idx(x, y)
	curPlane := ref.Grid.Planes[i]
	curCost := ref.Grid.Cost[i]

	neighbours := [2][2]int{{x - dir, y}, {x, y - dir}}
	for _, n := range neighbours {
		nx, ny := n[0], n[1]
		if !ref.inBounds(nx, ny) {
			continue
		}
		np := ref.Grid.Planes[ref.Grid.idx(nx, ny)]
		if np.Equal(curPlane) {
			continue
		}
		cost := ref.aggCost(x, y, np)
		if cost < curCost {
			curPlane = np
			curCost = cost
		}
	}

	ref.Grid.Planes[i] = curPlane
	ref.Grid.Cost[i] = curCost
}

// refine runs the geometric-schedule randomized local search over
// disparity and (unless force-frontal-parallel) normal.
func refine(ref *View, x, y int, rng *rand.Rand) {
	i := ref.Grid.idx(x, y)
	plane := ref.Grid.Planes[i]
	cost := ref.Grid.Cost[i]

	dispStep := float64(ref.MaxDisparity-ref.MinDisparity) / 2.0
	normStep := 1.0

	for dispStep > 0.1 {
		deltaD := (rng.Float64()*2 - 1) * dispStep
		if ref.IntegerDisparity {
			deltaD = math.Round(deltaD)
		}
		newD := plane.DisparityAt(float64(x), float64(y)) + deltaD
		if newD < float64(ref.MinDisparity) || newD > float64(ref.MaxDisparity) {
			dispStep /= 2
			normStep /= 2
			continue
		}

		var newNormal pmtype.Normal
		if ref.ForceFrontalParallel {
			newNormal = plane.Normal()
		} else {
			cur := plane.Normal()
			var dn pmtype.Normal
			for {
				dn = pmtype.Normal{
					X: (rng.Float64()*2 - 1) * normStep,
					Y: (rng.Float64()*2 - 1) * normStep,
					Z: (rng.Float64()*2 - 1) * normStep,
				}
				if cur.Z+dn.Z != 0 {
					break
				}
			}
			sum := pmtype.Normal{X: cur.X + dn.X, Y: cur.Y + dn.Y, Z: cur.Z + dn.Z}
			mag := math.Sqrt(sum.X*sum.X + sum.Y*sum.Y + sum.Z*sum.Z)
			newNormal = pmtype.Normal{X: sum.X / mag, Y: sum.Y / mag, Z: sum.Z / mag}
		}

		candidate := pmtype.NewDisparityPlane(x, y, newNormal, newD)
		if !candidate.Equal(plane) {
			c := ref.aggCost(x, y, candidate)
			if c < cost {
				plane = candidate
				cost = c
			}
		}

		dispStep /= 2
		normStep /= 2
	}

	ref.Grid.Planes[i] = plane
	ref.Grid.Cost[i] = cost
}

// crossViewPropagate maps the reference pixel's current plane into the
// other view's coordinate system and overwrites the other view's plane at
// the matched column if the mapped plane is strictly cheaper there.
func crossViewPropagate(ref, other *View, x, y int) {
	i := ref.Grid.idx(x, y)
	plane := ref.Grid.Planes[i]
	d := plane.DisparityAt(float64(x), float64(y))

	xr := int(math.Round(float64(x) - d))
	if xr < 0 || xr >= other.Grid.Width {
		return
	}

	mapped := plane.ToAnotherView(d)
	oi := other.Grid.idx(xr, y)
	cost := other.aggCost(xr, y, mapped)
	if cost < other.Grid.Cost[oi] {
		other.Grid.Planes[oi] = mapped
		other.Grid.Cost[oi] = cost
	}
}

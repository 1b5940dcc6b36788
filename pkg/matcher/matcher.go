// Package matcher wires the plane/cost grids, the cost evaluator, and the
// propagation pass into the full PatchMatch stereo driver: random
// initialisation, iterated propagation, plane-to-disparity materialisation,
// left/right consistency checking, and hole filling.
package matcher

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/gostereo/pmstereo/pkg/patchcost"
	"github.com/gostereo/pmstereo/pkg/pmtype"
	"github.com/gostereo/pmstereo/pkg/propagation"
)

// Image is the data contract for one view's input: a packed BGR color
// buffer and its Sobel gradient buffer, both row-major width*height.
type Image struct {
	Color    []pmtype.Color
	Gradient []pmtype.Gradient
}

// Matcher holds the full lifecycle state of one stereo match: the two
// views' plane/cost grids, their evaluators, and the disparity outputs.
// A Matcher must be Initialized before Match and Released when done.
type Matcher struct {
	width, height int
	opt           pmtype.Option
	rightOpt      pmtype.Option

	left  *propagation.View
	right *propagation.View

	dispLeft  []float64
	dispRight []float64

	mismatchLeft  []bool
	mismatchRight []bool

	rng *rand.Rand

	initialized bool
}

// NewMatcher constructs an uninitialised Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Initialize allocates the per-pixel grids for a w x h image pair under
// the given option record. It validates the option and dimensions and
// returns an error rather than panicking, matching the "boolean/status"
// error-reporting contract for the core.
func (m *Matcher) Initialize(width, height int, opt pmtype.Option) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("matcher: invalid dimensions %dx%d", width, height)
	}
	if err := opt.Validate(); err != nil {
		return fmt.Errorf("matcher: %w", err)
	}

	m.width, m.height = width, height
	m.opt = opt
	m.rightOpt = opt.RightOption()

	m.left = &propagation.View{
		Grid:                 propagation.NewGrid(width, height),
		PatchSize:            opt.PatchSize,
		MinDisparity:         opt.MinDisparity,
		MaxDisparity:         opt.MaxDisparity,
		ForceFrontalParallel: opt.ForceFrontalParallel,
		IntegerDisparity:     opt.IntegerDisparity,
	}
	m.right = &propagation.View{
		Grid:                 propagation.NewGrid(width, height),
		PatchSize:            opt.PatchSize,
		MinDisparity:         m.rightOpt.MinDisparity,
		MaxDisparity:         m.rightOpt.MaxDisparity,
		ForceFrontalParallel: opt.ForceFrontalParallel,
		IntegerDisparity:     opt.IntegerDisparity,
	}

	m.dispLeft = make([]float64, width*height)
	m.dispRight = make([]float64, width*height)
	m.mismatchLeft = make([]bool, width*height)
	m.mismatchRight = make([]bool, width*height)

	seed := opt.Seed
	if seed == 0 {
		seed = 1
	}
	m.rng = rand.New(rand.NewSource(seed))

	m.initialized = true
	return nil
}

// Release drops the per-pixel grids, returning the Matcher to its
// uninitialised state.
func (m *Matcher) Release() {
	*m = Matcher{}
}

// DisparityLeft returns the left view's materialised disparity grid.
// Valid only after Match has returned successfully.
func (m *Matcher) DisparityLeft() []float64 { return m.dispLeft }

// DisparityRight returns the right view's materialised disparity grid.
func (m *Matcher) DisparityRight() []float64 { return m.dispRight }

// MismatchLeft returns the left view's LR-check mismatch set: true at every
// pixel invalidated by lrCheck. Only meaningful when Option.LRCheck was set.
func (m *Matcher) MismatchLeft() []bool { return m.mismatchLeft }

// MismatchRight returns the right view's LR-check mismatch set.
func (m *Matcher) MismatchRight() []bool { return m.mismatchRight }

// Match runs the full pipeline: random plane initialisation, iterated
// propagation, plane-to-disparity materialisation, and the optional
// LR-check and hole-fill post-processing steps.
func (m *Matcher) Match(left, right Image) error {
	if !m.initialized {
		return fmt.Errorf("matcher: Match called before Initialize")
	}
	if left.Color == nil || right.Color == nil || left.Gradient == nil || right.Gradient == nil {
		return fmt.Errorf("matcher: nil input buffer")
	}

	leftEval := patchcost.NewEvaluator(patchcost.View{
		Color:         left.Color,
		Gradient:      left.Gradient,
		OtherColor:    right.Color,
		OtherGradient: right.Gradient,
		Width:         m.width,
		Height:        m.height,
		MinDisparity:  m.opt.MinDisparity,
		MaxDisparity:  m.opt.MaxDisparity,
	}, m.opt)
	rightEval := patchcost.NewEvaluator(patchcost.View{
		Color:         right.Color,
		Gradient:      right.Gradient,
		OtherColor:    left.Color,
		OtherGradient: left.Gradient,
		Width:         m.width,
		Height:        m.height,
		MinDisparity:  m.rightOpt.MinDisparity,
		MaxDisparity:  m.rightOpt.MaxDisparity,
	}, m.rightOpt)
	m.left.Evaluator = leftEval
	m.right.Evaluator = rightEval

	m.randomInit(m.left, m.opt.MinDisparity, m.opt.MaxDisparity)
	m.randomInit(m.right, m.rightOpt.MinDisparity, m.rightOpt.MaxDisparity)

	for it := 0; it < m.opt.NumIters; it++ {
		propagation.Pass(m.left, m.right, it, m.rng)
		propagation.Pass(m.right, m.left, it, m.rng)
	}

	m.materializeDisparity(m.left, m.dispLeft)
	m.materializeDisparity(m.right, m.dispRight)

	if m.opt.LRCheck {
		m.lrCheck()
		if m.opt.FillHoles {
			m.fillHoles(m.dispLeft, m.mismatchLeft, m.left)
			m.fillHoles(m.dispRight, m.mismatchRight, m.right)
		}
	}

	return nil
}

// randomInit draws an initial plane for every pixel of v: a uniform
// disparity in [minD,maxD] and, unless force-frontal-parallel, a random
// unit normal; then fills in the plane's aggregated cost.
func (m *Matcher) randomInit(v *propagation.View, minD, maxD int) {
	w, h := v.Grid.Width, v.Grid.Height
	// Row seeds are drawn serially from the matcher's shared PRNG before
	// any goroutine starts, since *rand.Rand is not safe for concurrent use.
	rowSeeds := make([]int64, h)
	for y := 0; y < h; y++ {
		rowSeeds[y] = m.rng.Int63()
	}

	var wg sync.WaitGroup
	for y := 0; y < h; y++ {
		wg.Add(1)
		go func(y int) {
			defer wg.Done()
			localRng := rand.New(rand.NewSource(rowSeeds[y]))
			for x := 0; x < w; x++ {
				d := float64(minD) + localRng.Float64()*float64(maxD-minD)
				if v.IntegerDisparity {
					d = math.Round(d)
				}

				var n pmtype.Normal
				if v.ForceFrontalParallel {
					n = pmtype.Normal{X: 0, Y: 0, Z: 1}
				} else {
					for {
						n = pmtype.Normal{
							X: localRng.Float64()*2 - 1,
							Y: localRng.Float64()*2 - 1,
							Z: localRng.Float64()*2 - 1,
						}
						if n.Z != 0 {
							break
						}
					}
					mag := math.Sqrt(n.X*n.X + n.Y*n.Y + n.Z*n.Z)
					n = pmtype.Normal{X: n.X / mag, Y: n.Y / mag, Z: n.Z / mag}
				}

				p := pmtype.NewDisparityPlane(x, y, n, d)
				i := y*w + x
				v.Grid.Planes[i] = p
				v.Grid.Cost[i] = v.Evaluator.AggregatedCost(x, y, p, v.PatchSize)
			}
		}(y)
	}
	wg.Wait()
}

// materializeDisparity writes plane.DisparityAt(x,y) into disp for every
// pixel of v.
func (m *Matcher) materializeDisparity(v *propagation.View, disp []float64) {
	w, h := v.Grid.Width, v.Grid.Height
	var wg sync.WaitGroup
	for y := 0; y < h; y++ {
		wg.Add(1)
		go func(y int) {
			defer wg.Done()
			for x := 0; x < w; x++ {
				i := y*w + x
				disp[i] = v.Grid.Planes[i].DisparityAt(float64(x), float64(y))
			}
		}(y)
	}
	wg.Wait()
}

// lrCheck marks mismatched pixels in both views per spec: a pixel already
// at the sentinel, one whose matched column falls out of bounds, or one
// whose |d_L + d_R| exceeds the threshold is invalidated.
func (m *Matcher) lrCheck() {
	checkOne := func(dispRef, dispOther []float64, mismatch []bool) {
		w, h := m.width, m.height
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*w + x
				d := dispRef[i]
				if pmtype.IsInvalidDisparity(float32(d)) {
					mismatch[i] = true
					continue
				}
				xr := int(math.Round(float64(x) - d))
				if xr < 0 || xr >= w {
					dispRef[i] = float64(pmtype.InvalidDisparity)
					mismatch[i] = true
					continue
				}
				dOther := dispOther[y*w+xr]
				if math.Abs(d+dOther) > m.opt.LRCheckThres {
					dispRef[i] = float64(pmtype.InvalidDisparity)
					mismatch[i] = true
				}
			}
		}
	}
	checkOne(m.dispLeft, m.dispRight, m.mismatchLeft)
	checkOne(m.dispRight, m.dispLeft, m.mismatchRight)
}

// fillHoles scans left and right from each mismatched pixel for the
// nearest valid plane and extrapolates a disparity; all replacements are
// computed before any are written back, so a row has no within-row
// dependency on fills made earlier in the same pass.
func (m *Matcher) fillHoles(disp []float64, mismatch []bool, v *propagation.View) {
	w, h := m.width, m.height
	type fill struct {
		idx int
		val float64
	}
	var fills []fill

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if !mismatch[i] {
				continue
			}
			var planeR, planeL *pmtype.DisparityPlane
			for xx := x + 1; xx < w; xx++ {
				ii := y*w + xx
				if !mismatch[ii] {
					p := v.Grid.Planes[ii]
					planeR = &p
					break
				}
			}
			for xx := x - 1; xx >= 0; xx-- {
				ii := y*w + xx
				if !mismatch[ii] {
					p := v.Grid.Planes[ii]
					planeL = &p
					break
				}
			}

			switch {
			case planeR == nil && planeL == nil:
				// leave unchanged
			case planeR != nil && planeL == nil:
				fills = append(fills, fill{i, planeR.DisparityAt(float64(x), float64(y))})
			case planeL != nil && planeR == nil:
				fills = append(fills, fill{i, planeL.DisparityAt(float64(x), float64(y))})
			default:
				dr := planeR.DisparityAt(float64(x), float64(y))
				dl := planeL.DisparityAt(float64(x), float64(y))
				fills = append(fills, fill{i, math.Min(dr, dl)})
			}
		}
	}

	for _, f := range fills {
		disp[f.idx] = f.val
	}
}

package matcher

import (
	"math"
	"testing"

	"github.com/gostereo/pmstereo/pkg/pmtype"
	"github.com/gostereo/pmstereo/pkg/propagation"
)

func newStubView(w, h int) *propagation.View {
	return &propagation.View{Grid: propagation.NewGrid(w, h)}
}

func solidImage(w, h int, c pmtype.Color) Image {
	colors := make([]pmtype.Color, w*h)
	for i := range colors {
		colors[i] = c
	}
	return Image{Color: colors, Gradient: make([]pmtype.Gradient, w*h)}
}

// TestSolidColorConvergesWithinRange is scenario 1: solid-color 8x8 images,
// patch=3, disparity range [0,4], force-fpw, integer-disp, fixed seed.
// Every interior disparity must land in range and its stored cost must
// equal a fresh evaluation of its own plane.
func TestSolidColorConvergesWithinRange(t *testing.T) {
	w, h := 8, 8
	opt := pmtype.Option{
		PatchSize: 3, MinDisparity: 0, MaxDisparity: 4,
		Gamma: 10, Alpha: 0.9, TauCol: 10, TauGrad: 2,
		NumIters: 1, ForceFrontalParallel: true, IntegerDisparity: true, Seed: 7,
	}
	m := NewMatcher()
	if err := m.Initialize(w, h, opt); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	left := solidImage(w, h, pmtype.Color{R: 120, G: 120, B: 120})
	right := solidImage(w, h, pmtype.Color{R: 120, G: 120, B: 120})
	if err := m.Match(left, right); err != nil {
		t.Fatalf("Match: %v", err)
	}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			d := m.dispLeft[i]
			if d < 0 || d > 4 {
				t.Fatalf("interior disparity out of range at (%d,%d): %f", x, y, d)
			}
			p := m.left.Grid.Planes[i]
			recomputed := m.left.Evaluator.AggregatedCost(x, y, p, opt.PatchSize)
			if math.Abs(recomputed-m.left.Grid.Cost[i]) > 1e-9 {
				t.Fatalf("cost/plane mismatch at (%d,%d): stored %f recomputed %f", x, y, m.left.Grid.Cost[i], recomputed)
			}
		}
	}
}

// TestFrontoParallelStepConverges is scenario 2: a synthetic scene where the
// whole left image is the right image shifted by 3 pixels (clamped at the
// left edge), force-fpw, 3 iterations; the error is measured over the
// interior of the right half of the image.
func TestFrontoParallelStepConverges(t *testing.T) {
	w, h := 16, 8
	shift := 3
	left := Image{Color: make([]pmtype.Color, w*h), Gradient: make([]pmtype.Gradient, w*h)}
	right := Image{Color: make([]pmtype.Color, w*h), Gradient: make([]pmtype.Gradient, w*h)}
	// right image: a horizontal ramp so x and x-shift are distinguishable.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x * 255) / w)
			right.Color[y*w+x] = pmtype.Color{R: v, G: v, B: v}
		}
	}
	// left image: each column samples the right image at x - shift (clamped),
	// i.e. left[x] matches right[x-shift], meaning disparity ~ shift.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx := x - shift
			if sx < 0 {
				sx = 0
			}
			left.Color[y*w+x] = right.Color[y*w+sx]
		}
	}

	opt := pmtype.Option{
		PatchSize: 3, MinDisparity: 0, MaxDisparity: 6,
		Gamma: 10, Alpha: 0.9, TauCol: 10, TauGrad: 2,
		NumIters: 3, ForceFrontalParallel: true, Seed: 99,
	}
	m := NewMatcher()
	if err := m.Initialize(w, h, opt); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := m.Match(left, right); err != nil {
		t.Fatalf("Match: %v", err)
	}

	sum, n := 0.0, 0
	for y := 1; y < h-1; y++ {
		for x := w/2 + 2; x < w-1; x++ { // right-half interior, away from the clamped left edge
			d := m.dispLeft[y*w+x]
			sum += math.Abs(d - float64(shift))
			n++
		}
	}
	mean := sum / float64(n)
	if mean >= 1.0 {
		t.Fatalf("expected mean |disp-%d| < 1 over interior, got %f", shift, mean)
	}
}

// TestLRCheckNoMismatchWhenConsistent is scenario 3: every left disparity
// whose matched column lies inside the image maps to a right disparity of
// equal magnitude, opposite sign, so only the columns that match off the
// image edge are mismatched.
func TestLRCheckNoMismatchWhenConsistent(t *testing.T) {
	w, h := 6, 4
	m := &Matcher{
		width: w, height: h,
		opt:      pmtype.Option{LRCheckThres: 0.01},
		dispLeft: make([]float64, w*h), dispRight: make([]float64, w*h),
		mismatchLeft: make([]bool, w*h), mismatchRight: make([]bool, w*h),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := 2.0
			m.dispLeft[y*w+x] = d
			xr := x - int(d)
			if xr < 0 {
				xr = 0
			}
			m.dispRight[y*w+xr] = -d
		}
	}
	m.lrCheck()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// columns x < d match off the left edge of the right image and
			// are invalidated by the bounds check; every other column agrees
			wantMismatch := x-2 < 0
			if m.mismatchLeft[y*w+x] != wantMismatch {
				t.Fatalf("left (%d,%d): mismatch=%v, want %v", x, y, m.mismatchLeft[y*w+x], wantMismatch)
			}
		}
	}
}

// TestLRCheckRowFullyMismatched is scenario 4: a single row's right
// disparities are all wrong-signed (+0 instead of matching), so every
// pixel in that row on the left is marked mismatched.
func TestLRCheckRowFullyMismatched(t *testing.T) {
	w, h := 6, 3
	m := &Matcher{
		width: w, height: h,
		opt:      pmtype.Option{LRCheckThres: 0.01},
		dispLeft: make([]float64, w*h), dispRight: make([]float64, w*h),
		mismatchLeft: make([]bool, w*h), mismatchRight: make([]bool, w*h),
	}
	badRow := 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := 2.0
			m.dispLeft[y*w+x] = d
			xr := x - int(d)
			if xr < 0 {
				xr = 0
			}
			if y == badRow {
				m.dispRight[y*w+xr] = 0 // wrong sign: should be -2
			} else {
				m.dispRight[y*w+xr] = -d
			}
		}
	}
	m.lrCheck()
	for x := 0; x < w; x++ {
		if !m.mismatchLeft[badRow*w+x] {
			t.Fatalf("expected mismatch at bad row, col %d", x)
		}
	}
	for x := 0; x < w; x++ {
		// outside the bad row only the columns that match off the image
		// edge (x < d) are mismatched
		outOfBounds := x-2 < 0
		if m.mismatchLeft[0*w+x] != outOfBounds || m.mismatchLeft[2*w+x] != outOfBounds {
			t.Fatalf("rows 0 and 2, col %d: want mismatch=%v", x, outOfBounds)
		}
	}
}

// TestFillHolesPicksSmallerDisparity is scenario 5: a single-row input with
// one invalid pixel flanked by planes giving disparities 2 and 7; the
// filled value must be the smaller, 2.
func TestFillHolesPicksSmallerDisparity(t *testing.T) {
	w, h := 11, 1
	v := newStubView(w, h)
	disp := make([]float64, w*h)
	mismatch := make([]bool, w*h)

	holeCol := 5
	mismatch[holeCol] = true
	disp[holeCol] = float64(pmtype.InvalidDisparity)

	leftPlane := pmtype.NewDisparityPlane(holeCol-1, 0, pmtype.Normal{X: 0, Y: 0, Z: 1}, 7)
	rightPlane := pmtype.NewDisparityPlane(holeCol+1, 0, pmtype.Normal{X: 0, Y: 0, Z: 1}, 2)
	v.Grid.Planes[holeCol-1] = leftPlane
	v.Grid.Planes[holeCol+1] = rightPlane

	m := &Matcher{width: w, height: h}
	m.fillHoles(disp, mismatch, v)

	if disp[holeCol] != 2 {
		t.Fatalf("expected filled disparity 2 (the smaller), got %f", disp[holeCol])
	}
}

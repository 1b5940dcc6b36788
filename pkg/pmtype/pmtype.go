// Package pmtype holds the shared value types for the PatchMatch stereo
// matcher: the image/gradient data contract, the plane representation, and
// the option record that parameterises the matcher.
package pmtype

import (
	"fmt"
	"math"
)

// InvalidDisparity is the sentinel written into a disparity grid for a
// pixel that failed the left/right consistency check. It is always
// positive infinity, regardless of which view it marks.
var InvalidDisparity = float32(math.Inf(1))

// IsInvalidDisparity reports whether d is the invalid sentinel.
func IsInvalidDisparity(d float32) bool {
	return math.IsInf(float64(d), 1)
}

// Color is a B,G,R integer pixel sample, matching the BGR byte order of the
// packed image buffers the matcher consumes.
type Color struct {
	B, G, R uint8
}

// Gradient is a signed Sobel response pair at a pixel.
type Gradient struct {
	X, Y int16
}

// FColor is a floating-point B,G,R sample, used for sub-pixel interpolation
// results.
type FColor struct {
	B, G, R float64
}

// FGradient is a floating-point gradient pair, used for sub-pixel
// interpolation results.
type FGradient struct {
	X, Y float64
}

// Normal is a unit surface normal (nx,ny,nz), nz guaranteed nonzero for any
// normal that has been through NewDisparityPlane.
type Normal struct {
	X, Y, Z float64
}

// DisparityPlane is the implicit-coefficient form of a slanted support
// plane: disparity_at(x,y) = A*x + B*y + C. Equality of two planes is
// bit-equality of (A,B,C).
type DisparityPlane struct {
	A, B, C float64
}

// NewDisparityPlane builds the plane passing through pixel (x,y) with
// surface normal n (n.Z must be nonzero) and disparity d at that pixel.
func NewDisparityPlane(x, y int, n Normal, d float64) DisparityPlane {
	a := -n.X / n.Z
	b := -n.Y / n.Z
	c := (n.X*float64(x) + n.Y*float64(y) + n.Z*d) / n.Z
	return DisparityPlane{A: a, B: b, C: c}
}

// DisparityAt evaluates the plane at an arbitrary query point.
func (p DisparityPlane) DisparityAt(x, y float64) float64 {
	return p.A*x + p.B*y + p.C
}

// Normal recovers the unit surface normal (a,b,-1) normalised.
func (p DisparityPlane) Normal() Normal {
	n := Normal{X: p.A, Y: p.B, Z: -1}
	mag := math.Sqrt(n.X*n.X + n.Y*n.Y + n.Z*n.Z)
	return Normal{X: n.X / mag, Y: n.Y / mag, Z: n.Z / mag}
}

// ToAnotherView maps the plane at (x,y), whose disparity there is d, into
// the coordinate system of the opposing view.
func (p DisparityPlane) ToAnotherView(d float64) DisparityPlane {
	return DisparityPlane{A: -p.A, B: -p.B, C: -p.C - p.A*d}
}

// Equal reports bit-equality of the plane coefficients.
func (p DisparityPlane) Equal(other DisparityPlane) bool {
	return p.A == other.A && p.B == other.B && p.C == other.C
}

// Option is the full parameterisation of one matcher run. Zero value is
// not valid; use Validate before Initialize.
type Option struct {
	PatchSize int // odd, side of the square support window

	MinDisparity int
	MaxDisparity int

	Gamma   float64 // adaptive-weight color bandwidth, >0
	Alpha   float64 // color/gradient blend in [0,1]
	TauCol  float64 // color truncation threshold, >0
	TauGrad float64 // gradient truncation threshold, >0

	NumIters int // propagation iterations

	LRCheck      bool
	LRCheckThres float64

	FillHoles bool

	ForceFrontalParallel bool
	IntegerDisparity     bool

	Seed int64 // pseudo-random source seed
}

// DefaultOption mirrors the reference implementation's hardcoded defaults.
func DefaultOption() Option {
	return Option{
		PatchSize:    35,
		MinDisparity: 0,
		MaxDisparity: 64,
		Gamma:        10.0,
		Alpha:        0.9,
		TauCol:       10.0,
		TauGrad:      2.0,
		NumIters:     3,
		LRCheck:      false,
		LRCheckThres: 0,
		FillHoles:    false,
	}
}

// Validate checks the option record for internal consistency.
func (o Option) Validate() error {
	if o.PatchSize <= 0 || o.PatchSize%2 == 0 {
		return fmt.Errorf("pmtype: patch size must be a positive odd integer, got %d", o.PatchSize)
	}
	if o.MinDisparity > o.MaxDisparity {
		return fmt.Errorf("pmtype: min disparity %d exceeds max disparity %d", o.MinDisparity, o.MaxDisparity)
	}
	if o.Gamma <= 0 {
		return fmt.Errorf("pmtype: gamma must be > 0, got %f", o.Gamma)
	}
	if o.Alpha < 0 || o.Alpha > 1 {
		return fmt.Errorf("pmtype: alpha must be in [0,1], got %f", o.Alpha)
	}
	if o.TauCol <= 0 {
		return fmt.Errorf("pmtype: tau_col must be > 0, got %f", o.TauCol)
	}
	if o.TauGrad <= 0 {
		return fmt.Errorf("pmtype: tau_grad must be > 0, got %f", o.TauGrad)
	}
	if o.NumIters < 0 {
		return fmt.Errorf("pmtype: num_iters must be >= 0, got %d", o.NumIters)
	}
	return nil
}

// RightOption derives the right view's option record from the left: the
// right view's disparity range is the negated, swapped left range.
func (o Option) RightOption() Option {
	r := o
	r.MinDisparity = -o.MaxDisparity
	r.MaxDisparity = -o.MinDisparity
	return r
}

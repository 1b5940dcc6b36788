package pmtype

import (
	"math"
	"math/rand"
	"testing"
)

func randomNormal(rng *rand.Rand) Normal {
	for {
		n := Normal{X: rng.Float64()*2 - 1, Y: rng.Float64()*2 - 1, Z: rng.Float64()*2 - 1}
		if n.Z != 0 {
			mag := math.Sqrt(n.X*n.X + n.Y*n.Y + n.Z*n.Z)
			return Normal{X: n.X / mag, Y: n.Y / mag, Z: n.Z / mag}
		}
	}
}

func TestDisparityAtExactAtConstructionPoint(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		x := rng.Intn(200) - 100
		y := rng.Intn(200) - 100
		d := rng.Float64()*128 - 64
		n := randomNormal(rng)
		p := NewDisparityPlane(x, y, n, d)
		got := p.DisparityAt(float64(x), float64(y))
		if math.Abs(got-d) > 1e-9 {
			t.Fatalf("disparity_at(construction point) = %f, want %f", got, d)
		}
	}
}

func TestToAnotherViewRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		x := rng.Intn(100)
		y := rng.Intn(100)
		d := rng.Float64()*32 - 16
		n := randomNormal(rng)
		p := NewDisparityPlane(x, y, n, d)

		// mapping (x,y) -> (x-d,y) into the other view must give disparity -d there
		mapped := p.ToAnotherView(d)
		xr := float64(x) - d
		dPrime := mapped.DisparityAt(xr, float64(y))
		if math.Abs(dPrime-(-d)) > 1e-9 {
			t.Fatalf("mapped plane disparity at (x-d,y) = %f, want %f", dPrime, -d)
		}

		// mapping back via (xr,y) -> (xr-d',y) = (x,y) must reproduce the
		// original plane exactly
		back := mapped.ToAnotherView(dPrime)
		if math.Abs(back.A-p.A) > 1e-9 || math.Abs(back.B-p.B) > 1e-9 || math.Abs(back.C-p.C) > 1e-9 {
			t.Fatalf("round-trip plane mismatch: got %+v want %+v", back, p)
		}
	}
}

func TestPlaneEqualityIsBitEqualCoefficients(t *testing.T) {
	p1 := DisparityPlane{A: 1, B: 2, C: 3}
	p2 := DisparityPlane{A: 1, B: 2, C: 3}
	p3 := DisparityPlane{A: 1, B: 2, C: 3.0000001}
	if !p1.Equal(p2) {
		t.Fatalf("expected identical coefficient planes to be equal")
	}
	if p1.Equal(p3) {
		t.Fatalf("expected planes differing in C to be unequal")
	}
}

func TestNewDisparityPlaneNormalHasNonzeroZ(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		n := randomNormal(rng)
		p := NewDisparityPlane(0, 0, n, rng.Float64()*10)
		recovered := p.Normal()
		if recovered.Z == 0 {
			t.Fatalf("recovered normal has zero Z component")
		}
		mag := math.Sqrt(recovered.X*recovered.X + recovered.Y*recovered.Y + recovered.Z*recovered.Z)
		if math.Abs(mag-1) > 1e-9 {
			t.Fatalf("recovered normal not unit length, magnitude %f", mag)
		}
	}
}

func TestOptionValidateRejectsEvenPatchSize(t *testing.T) {
	o := DefaultOption()
	o.PatchSize = 34
	if err := o.Validate(); err == nil {
		t.Fatalf("expected error for even patch size")
	}
}

func TestOptionValidateRejectsMinGreaterThanMax(t *testing.T) {
	o := DefaultOption()
	o.MinDisparity = 10
	o.MaxDisparity = 5
	if err := o.Validate(); err == nil {
		t.Fatalf("expected error for min > max disparity")
	}
}

func TestRightOptionNegatesAndSwapsRange(t *testing.T) {
	o := DefaultOption()
	o.MinDisparity = 0
	o.MaxDisparity = 64
	r := o.RightOption()
	if r.MinDisparity != -64 || r.MaxDisparity != 0 {
		t.Fatalf("expected right range [-64,0], got [%d,%d]", r.MinDisparity, r.MaxDisparity)
	}
}

func TestIsInvalidDisparitySentinel(t *testing.T) {
	if !IsInvalidDisparity(InvalidDisparity) {
		t.Fatalf("expected InvalidDisparity to be reported invalid")
	}
	if IsInvalidDisparity(0) {
		t.Fatalf("expected 0 to be a valid disparity")
	}
}

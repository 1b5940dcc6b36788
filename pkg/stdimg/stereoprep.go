package stdimg

import (
	"image"
	"sync"

	"github.com/gostereo/pmstereo/pkg/pmtype"
)

// ToBGRBuffer converts src to a packed, row-major B,G,R byte buffer
// (alpha dropped), the pixel convention the stereo matcher expects its
// input images in.
func ToBGRBuffer(src image.Image) (buf []uint8, w, h int) {
	n := ToNRGBA(src)
	if n == nil {
		return nil, 0, 0
	}
	b := n.Bounds()
	w, h = b.Dx(), b.Dy()
	buf = make([]uint8, w*h*3)
	var wg sync.WaitGroup
	for y := 0; y < h; y++ {
		wg.Add(1)
		go func(y int) {
			defer wg.Done()
			for x := 0; x < w; x++ {
				c := samplePixelClamped(n, x, y)
				o := (y*w + x) * 3
				buf[o+0] = c.B
				buf[o+1] = c.G
				buf[o+2] = c.R
			}
		}(y)
	}
	wg.Wait()
	return buf, w, h
}

// Grayscale converts a packed BGR buffer to a single-byte luma plane using
// the BT.601 weights (r*0.299 + g*0.587 + b*0.114), rounded to nearest.
func Grayscale(bgr []uint8, w, h int) []uint8 {
	out := make([]uint8, w*h)
	var wg sync.WaitGroup
	for y := 0; y < h; y++ {
		wg.Add(1)
		go func(y int) {
			defer wg.Done()
			for x := 0; x < w; x++ {
				o := (y*w + x) * 3
				bl, g, r := bgr[o+0], bgr[o+1], bgr[o+2]
				v := float64(r)*0.299 + float64(g)*0.587 + float64(bl)*0.114
				out[y*w+x] = uint8(v + 0.5)
			}
		}(y)
	}
	wg.Wait()
	return out
}

// SobelGradients computes the x/y Sobel response of a grayscale plane,
// normalized by /8. Border pixels (the outermost ring) are left at the
// zero value; only the interior [1,h-2]x[1,w-2] region is filled.
func SobelGradients(gray []uint8, w, h int) []pmtype.Gradient {
	out := make([]pmtype.Gradient, w*h)
	if w < 3 || h < 3 {
		return out
	}
	var wg sync.WaitGroup
	for y := 1; y < h-1; y++ {
		wg.Add(1)
		go func(y int) {
			defer wg.Done()
			for x := 1; x < w-1; x++ {
				gx := -int(gray[(y-1)*w+(x-1)]) + int(gray[(y-1)*w+(x+1)]) +
					-2*int(gray[y*w+(x-1)]) + 2*int(gray[y*w+(x+1)]) +
					-int(gray[(y+1)*w+(x-1)]) + int(gray[(y+1)*w+(x+1)])
				gy := -int(gray[(y-1)*w+(x-1)]) - 2*int(gray[(y-1)*w+x]) - int(gray[(y-1)*w+(x+1)]) +
					int(gray[(y+1)*w+(x-1)]) + 2*int(gray[(y+1)*w+x]) + int(gray[(y+1)*w+(x+1)])
				out[y*w+x] = pmtype.Gradient{X: int16(gx / 8), Y: int16(gy / 8)}
			}
		}(y)
	}
	wg.Wait()
	return out
}

// NormalizeDisparity stretches a disparity plane to an 8-bit grayscale
// visualisation, min/max normalized over its finite entries. Invalid
// (sentinel) entries render black.
func NormalizeDisparity(disp []float64, w, h int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	minV, maxV := 0.0, 0.0
	first := true
	for _, d := range disp {
		if pmtype.IsInvalidDisparity(float32(d)) {
			continue
		}
		if first {
			minV, maxV = d, d
			first = false
			continue
		}
		if d < minV {
			minV = d
		}
		if d > maxV {
			maxV = d
		}
	}
	span := maxV - minV
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := disp[y*w+x]
			i := out.PixOffset(x, y)
			if pmtype.IsInvalidDisparity(float32(d)) || span <= 0 {
				out.Pix[i+0], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = 0, 0, 0, 255
				continue
			}
			v := clampFloatToUint8((d - minV) / span * 255.0)
			g := uint8(v)
			out.Pix[i+0], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = g, g, g, 255
		}
	}
	return out
}

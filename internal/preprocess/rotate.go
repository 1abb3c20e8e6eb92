package preprocess

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Rotate rotates an image clockwise by the given angle in degrees. The
// 90/180/270 cases are exact pixel transpositions with no interpolation;
// 90 and 270 swap width and height. Any other angle falls back to an
// affine warp with cubic interpolation around the image center, keeping
// the original canvas size.
func Rotate(img image.Image, angle int) image.Image {
	switch ((angle % 360) + 360) % 360 {
	case 0:
		return img
	case 90:
		return rotate90(img)
	case 180:
		return rotate180(img)
	case 270:
		return rotate270(img)
	default:
		return rotateAffine(img, float64(angle))
	}
}

// rotate90 rotates clockwise by a quarter turn: source pixel (x, y) lands
// at (h-1-y, x).
func rotate90(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(h-1-y, x, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

func rotate180(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(w-1-x, h-1-y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

// rotate270 rotates counter-clockwise by a quarter turn: source pixel
// (x, y) lands at (y, w-1-x).
func rotate270(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(0, 0, h, w))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Set(y, w-1-x, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

// rotateAffine warps by an arbitrary clockwise angle using Catmull-Rom
// (cubic) resampling centered on the image midpoint. The orientation
// detector never produces such angles; this is the generic fallback.
func rotateAffine(img image.Image, degrees float64) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	rad := degrees * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	cx, cy := float64(w)/2, float64(h)/2

	// Rotation about (cx, cy): translate to origin, rotate, translate back.
	m := f64.Aff3{
		cos, -sin, cx - cx*cos + cy*sin,
		sin, cos, cy - cx*sin - cy*cos,
	}

	draw.CatmullRom.Transform(out, m, img, b, draw.Src, nil)
	return out
}

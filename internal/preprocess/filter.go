package preprocess

import (
	"image"
	"image/color"
	"math"
)

// CLAHE tuning shared by all callers: 8x8 tile grid with a 2.0 clip limit
// keeps handwriting strokes crisp without blowing out paper texture.
const (
	claheTilesX    = 8
	claheTilesY    = 8
	claheClipLimit = 2.0
)

// BilateralFilter smooths an image while preserving stroke edges. diameter
// is the filter window size in pixels; sigmaColor controls how strongly
// dissimilar intensities are mixed; sigmaSpace controls the spatial
// falloff. Must run before contrast enhancement so the enhancer does not
// amplify noise.
func BilateralFilter(img image.Image, diameter int, sigmaColor, sigmaSpace float64) image.Image {
	if g, ok := img.(*image.Gray); ok {
		return bilateralGray(g, diameter, sigmaColor, sigmaSpace)
	}
	return bilateralRGBA(toRGBA(img), diameter, sigmaColor, sigmaSpace)
}

func bilateralGray(gray *image.Gray, diameter int, sigmaColor, sigmaSpace float64) *image.Gray {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(bounds)
	radius := diameter / 2
	spatial := spatialKernel(radius, sigmaSpace)
	rangeW := rangeWeights(sigmaColor)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := px(gray, x, y)
			var sum, norm float64
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					nx, ny := clamp(x+dx, 0, w-1), clamp(y+dy, 0, h-1)
					v := px(gray, nx, ny)
					wgt := spatial[(dy+radius)*(2*radius+1)+(dx+radius)] * rangeW[absDiff(center, v)]
					sum += wgt * float64(v)
					norm += wgt
				}
			}
			out.SetGray(bounds.Min.X+x, bounds.Min.Y+y, gray8(uint8(sum/norm+0.5)))
		}
	}
	return out
}

func bilateralRGBA(src *image.RGBA, diameter int, sigmaColor, sigmaSpace float64) *image.RGBA {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewRGBA(bounds)
	radius := diameter / 2
	spatial := spatialKernel(radius, sigmaSpace)
	rangeW := rangeWeights(sigmaColor)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			ci := src.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			cr, cg, cb := src.Pix[ci], src.Pix[ci+1], src.Pix[ci+2]

			var sr, sg, sb, norm float64
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					nx, ny := clamp(x+dx, 0, w-1), clamp(y+dy, 0, h-1)
					ni := src.PixOffset(bounds.Min.X+nx, bounds.Min.Y+ny)
					nr, ng, nb := src.Pix[ni], src.Pix[ni+1], src.Pix[ni+2]

					// Weight on per-channel intensity distance so a dark
					// ink stroke next to bright paper keeps its edge.
					dist := (absDiff(cr, nr) + absDiff(cg, ng) + absDiff(cb, nb)) / 3
					wgt := spatial[(dy+radius)*(2*radius+1)+(dx+radius)] * rangeW[dist]
					sr += wgt * float64(nr)
					sg += wgt * float64(ng)
					sb += wgt * float64(nb)
					norm += wgt
				}
			}

			oi := out.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			out.Pix[oi] = uint8(sr/norm + 0.5)
			out.Pix[oi+1] = uint8(sg/norm + 0.5)
			out.Pix[oi+2] = uint8(sb/norm + 0.5)
			out.Pix[oi+3] = src.Pix[ci+3]
		}
	}
	return out
}

func spatialKernel(radius int, sigma float64) []float64 {
	size := 2*radius + 1
	kernel := make([]float64, size*size)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := float64(dx*dx + dy*dy)
			kernel[(dy+radius)*size+(dx+radius)] = math.Exp(-d2 / (2 * sigma * sigma))
		}
	}
	return kernel
}

func rangeWeights(sigma float64) [256]float64 {
	var weights [256]float64
	for d := 0; d < 256; d++ {
		weights[d] = math.Exp(-float64(d*d) / (2 * sigma * sigma))
	}
	return weights
}

// EnhanceContrast applies contrast-limited adaptive histogram equalization
// to the luminance channel only, leaving chroma untouched. Grayscale
// images are equalized directly.
func EnhanceContrast(img image.Image) image.Image {
	if g, ok := img.(*image.Gray); ok {
		return claheGray(g)
	}

	src := toRGBA(img)
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	// Split luminance from chroma, equalize luminance, recombine.
	luma := image.NewGray(image.Rect(0, 0, w, h))
	cbs := make([]uint8, w*h)
	crs := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := src.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			yy, cb, cr := color.RGBToYCbCr(src.Pix[i], src.Pix[i+1], src.Pix[i+2])
			luma.SetGray(x, y, gray8(yy))
			cbs[y*w+x] = cb
			crs[y*w+x] = cr
		}
	}

	enhanced := claheGray(luma)

	out := image.NewRGBA(bounds)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b := color.YCbCrToRGB(enhanced.GrayAt(x, y).Y, cbs[y*w+x], crs[y*w+x])
			i := out.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			out.Pix[i] = r
			out.Pix[i+1] = g
			out.Pix[i+2] = b
			out.Pix[i+3] = src.Pix[src.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)+3]
		}
	}
	return out
}

// claheGray runs tiled, clip-limited histogram equalization with bilinear
// blending between neighboring tile mappings.
func claheGray(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(bounds)

	tilesX, tilesY := claheTilesX, claheTilesY
	if tilesX > w {
		tilesX = 1
	}
	if tilesY > h {
		tilesY = 1
	}
	tileW := (w + tilesX - 1) / tilesX
	tileH := (h + tilesY - 1) / tilesY

	// Per-tile clipped-CDF lookup tables.
	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := min(x0+tileW, w), min(y0+tileH, h)
			luts[ty*tilesX+tx] = tileLUT(gray, x0, y0, x1, y1)
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := px(gray, x, y)

			// Position relative to tile centers.
			fx := (float64(x) - float64(tileW)/2) / float64(tileW)
			fy := (float64(y) - float64(tileH)/2) / float64(tileH)
			tx0 := clamp(int(math.Floor(fx)), 0, tilesX-1)
			ty0 := clamp(int(math.Floor(fy)), 0, tilesY-1)
			tx1 := clamp(tx0+1, 0, tilesX-1)
			ty1 := clamp(ty0+1, 0, tilesY-1)
			wx := fx - math.Floor(fx)
			wy := fy - math.Floor(fy)

			v00 := float64(luts[ty0*tilesX+tx0][v])
			v10 := float64(luts[ty0*tilesX+tx1][v])
			v01 := float64(luts[ty1*tilesX+tx0][v])
			v11 := float64(luts[ty1*tilesX+tx1][v])

			top := v00*(1-wx) + v10*wx
			bot := v01*(1-wx) + v11*wx
			out.SetGray(bounds.Min.X+x, bounds.Min.Y+y, gray8(uint8(top*(1-wy)+bot*wy+0.5)))
		}
	}
	return out
}

// tileLUT builds the equalization mapping for one tile: histogram, clip
// at the limit, redistribute the excess uniformly, then cumulative sum.
func tileLUT(gray *image.Gray, x0, y0, x1, y1 int) [256]uint8 {
	var hist [256]int
	pixels := (x1 - x0) * (y1 - y0)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			hist[px(gray, x, y)]++
		}
	}

	clip := int(claheClipLimit * float64(pixels) / 256)
	if clip < 1 {
		clip = 1
	}
	excess := 0
	for i := range hist {
		if hist[i] > clip {
			excess += hist[i] - clip
			hist[i] = clip
		}
	}
	// Redistribute the clipped mass so the cumulative total still equals
	// the tile's pixel count.
	share := excess / 256
	rem := excess % 256
	for i := range hist {
		hist[i] += share
	}
	for i := 0; i < rem; i++ {
		hist[i]++
	}

	var lut [256]uint8
	cum := 0
	for i := range hist {
		cum += hist[i]
		lut[i] = uint8(clamp(cum*255/pixels, 0, 255))
	}
	return lut
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

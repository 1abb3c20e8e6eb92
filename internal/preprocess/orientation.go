package preprocess

import (
	"image"
	"image/color"
	"log/slog"
	"math"
)

// Hough detector tuning. Matches the classic 1px rho / 1 degree theta
// resolution with a 100-vote line threshold.
const (
	houghVoteThreshold = 100
	cannyLowThreshold  = 50
	cannyHighThreshold = 150
)

// DetectOrientation estimates the coarse page rotation of a photographed
// note by voting on detected text-line angles. It returns one of 0, 90,
// 180 or 270 (degrees to rotate clockwise to correct the page). This is a
// right-angle snap, not a precise deskew.
func DetectOrientation(img image.Image) int {
	gray := toGray(img)
	binary := binarizeInverted(gray)
	edges := detectEdges(binary)
	angles := houghLineAngles(edges)

	if len(angles) == 0 {
		slog.Warn("No lines detected for orientation, assuming 0 degrees")
		return 0
	}

	return dominantRotation(angles)
}

// dominantRotation buckets line angles into four 90-degree-wide bins with
// edges at 45/135/225/315 and picks the correction for the fullest bin.
// The wrap-around bin above 315 merges into the 0-degree bucket.
//
// The Hough detector reports theta in [0, 180), so the two upper bins only
// fill when a caller feeds angles from a detector with a full-circle
// convention; the bucket edges are kept for that case.
func dominantRotation(angles []float64) int {
	var hist [5]int
	for _, a := range angles {
		switch {
		case a < 45:
			hist[0]++
		case a < 135:
			hist[1]++
		case a < 225:
			hist[2]++
		case a < 315:
			hist[3]++
		default:
			hist[4]++
		}
	}
	hist[0] += hist[4]

	dominant := 0
	for i := 1; i < 4; i++ {
		if hist[i] > hist[dominant] {
			dominant = i
		}
	}

	switch dominant {
	case 1:
		return 90
	case 2:
		return 180
	case 3:
		return 270
	default:
		return 0
	}
}

// toGray converts any image to 8-bit luminance.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma, 16-bit channels scaled down to 8-bit.
			lum := (299*r + 587*g + 114*b) / 1000
			gray.SetGray(x, y, gray8(uint8(lum >> 8)))
		}
	}
	return gray
}

// binarizeInverted thresholds a grayscale image with Otsu's method and
// inverts it so ink strokes become foreground (white).
func binarizeInverted(gray *image.Gray) *image.Gray {
	threshold := otsuThreshold(gray)

	bounds := gray.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if gray.GrayAt(x, y).Y <= threshold {
				out.SetGray(x, y, gray8(255))
			}
		}
	}
	return out
}

// otsuThreshold computes the global threshold maximizing between-class
// variance of the intensity histogram.
func otsuThreshold(gray *image.Gray) uint8 {
	var hist [256]int
	bounds := gray.Bounds()
	total := bounds.Dx() * bounds.Dy()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[gray.GrayAt(x, y).Y]++
		}
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i) * float64(n)
	}

	var sumB, wB float64
	var best float64
	var threshold uint8
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])

		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

// detectEdges produces a binary edge map using smoothed Sobel gradients
// with double-threshold hysteresis (a compact Canny).
func detectEdges(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	smoothed := gaussianBlur3(gray)

	mag := make([]float64, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -int(px(smoothed, x-1, y-1)) + int(px(smoothed, x+1, y-1)) +
				-2*int(px(smoothed, x-1, y)) + 2*int(px(smoothed, x+1, y)) +
				-int(px(smoothed, x-1, y+1)) + int(px(smoothed, x+1, y+1))
			gy := -int(px(smoothed, x-1, y-1)) - 2*int(px(smoothed, x, y-1)) - int(px(smoothed, x+1, y-1)) +
				int(px(smoothed, x-1, y+1)) + 2*int(px(smoothed, x, y+1)) + int(px(smoothed, x+1, y+1))
			mag[y*w+x] = math.Hypot(float64(gx), float64(gy))
		}
	}

	// Strong edges pass directly; weak edges survive only next to a
	// strong neighbor.
	edges := image.NewGray(bounds)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			m := mag[y*w+x]
			if m >= cannyHighThreshold {
				edges.SetGray(bounds.Min.X+x, bounds.Min.Y+y, gray8(255))
			} else if m >= cannyLowThreshold {
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if mag[(y+dy)*w+(x+dx)] >= cannyHighThreshold {
							edges.SetGray(bounds.Min.X+x, bounds.Min.Y+y, gray8(255))
						}
					}
				}
			}
		}
	}
	return edges
}

// gaussianBlur3 applies a 3x3 binomial smoothing kernel.
func gaussianBlur3(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := image.NewGray(bounds)
	kernel := [3][3]int{{1, 2, 1}, {2, 4, 2}, {1, 2, 1}}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, weight int
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					nx, ny := x+kx, y+ky
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					k := kernel[ky+1][kx+1]
					sum += k * int(px(gray, nx, ny))
					weight += k
				}
			}
			out.SetGray(bounds.Min.X+x, bounds.Min.Y+y, gray8(uint8(sum/weight)))
		}
	}
	return out
}

// houghLineAngles runs a straight-line Hough transform over an edge map
// and returns the angle (theta, degrees in [0, 180)) of every detected
// line that clears the vote threshold.
func houghLineAngles(edges *image.Gray) []float64 {
	bounds := edges.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	diag := int(math.Ceil(math.Hypot(float64(w), float64(h))))
	numRho := 2*diag + 1
	const numTheta = 180

	sinT := make([]float64, numTheta)
	cosT := make([]float64, numTheta)
	for t := 0; t < numTheta; t++ {
		rad := float64(t) * math.Pi / 180
		sinT[t] = math.Sin(rad)
		cosT[t] = math.Cos(rad)
	}

	acc := make([]int, numRho*numTheta)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if px(edges, x, y) == 0 {
				continue
			}
			for t := 0; t < numTheta; t++ {
				rho := int(math.Round(float64(x)*cosT[t] + float64(y)*sinT[t]))
				acc[(rho+diag)*numTheta+t]++
			}
		}
	}

	var angles []float64
	for r := 0; r < numRho; r++ {
		for t := 0; t < numTheta; t++ {
			if acc[r*numTheta+t] >= houghVoteThreshold {
				angles = append(angles, float64(t))
			}
		}
	}
	return angles
}

func px(g *image.Gray, x, y int) uint8 {
	return g.GrayAt(g.Bounds().Min.X+x, g.Bounds().Min.Y+y).Y
}

func gray8(v uint8) color.Gray {
	return color.Gray{Y: v}
}

package extraction

import (
	"image"
	"image/color"
	"math"
)

// Preprocess variants named in §4.C2's OCR engine escalation ladder.
type PreprocessVariant int

const (
	PreprocessStandard PreprocessVariant = iota
	PreprocessAdvanced
	PreprocessHighContrast
)

// Preprocess implements the §4.C2 OCR preprocessing steps: grayscale,
// histogram-stretch normalize, 3x3 median filter, mild sharpen for the
// standard pass; stronger linear contrast + binarize for advanced;
// aggressive contrast + threshold + double-negate for high-contrast. No
// example repo in the corpus wires a dedicated imaging library for
// pixel-level transforms (DESIGN.md records this as the stdlib-justified
// exception); image/color and image/draw cover exactly this surface.
func Preprocess(img image.Image, variant PreprocessVariant) *image.Gray {
	gray := toGray(img)
	normalizeHistogram(gray)

	switch variant {
	case PreprocessStandard:
		gray = medianFilter3x3(gray)
		sharpen(gray)
	case PreprocessAdvanced:
		linearContrast(gray, 1.6)
		binarize(gray, 128)
	case PreprocessHighContrast:
		linearContrast(gray, 2.2)
		binarize(gray, 120)
		invert(gray)
		invert(gray)
	}
	return gray
}

func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// normalizeHistogram stretches the gray range to [0,255].
func normalizeHistogram(g *image.Gray) {
	bounds := g.Bounds()
	min, max := uint8(255), uint8(0)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := g.GrayAt(x, y).Y
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	if max <= min {
		return
	}
	scale := 255.0 / float64(max-min)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := g.GrayAt(x, y).Y
			nv := uint8(math.Round(float64(v-min) * scale))
			g.SetGray(x, y, color.Gray{Y: nv})
		}
	}
}

func medianFilter3x3(g *image.Gray) *image.Gray {
	bounds := g.Bounds()
	out := image.NewGray(bounds)
	window := make([]uint8, 0, 9)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					px, py := clamp(x+dx, bounds.Min.X, bounds.Max.X-1), clamp(y+dy, bounds.Min.Y, bounds.Max.Y-1)
					window = append(window, g.GrayAt(px, py).Y)
				}
			}
			out.SetGray(x, y, color.Gray{Y: medianOf9(window)})
		}
	}
	return out
}

func medianOf9(w []uint8) uint8 {
	sorted := append([]uint8(nil), w...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return sorted[len(sorted)/2]
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

// sharpen applies a mild unsharp-mask style kernel in place.
func sharpen(g *image.Gray) {
	bounds := g.Bounds()
	src := image.NewGray(bounds)
	copy(src.Pix, g.Pix)
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			center := int(src.GrayAt(x, y).Y)
			sum := 5*center -
				int(src.GrayAt(x-1, y).Y) - int(src.GrayAt(x+1, y).Y) -
				int(src.GrayAt(x, y-1).Y) - int(src.GrayAt(x, y+1).Y)
			g.SetGray(x, y, color.Gray{Y: uint8(clamp(sum, 0, 255))})
		}
	}
}

func linearContrast(g *image.Gray, factor float64) {
	bounds := g.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := float64(g.GrayAt(x, y).Y)
			nv := (v-128)*factor + 128
			g.SetGray(x, y, color.Gray{Y: uint8(clamp(int(math.Round(nv)), 0, 255))})
		}
	}
}

func binarize(g *image.Gray, threshold uint8) {
	bounds := g.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if g.GrayAt(x, y).Y >= threshold {
				g.SetGray(x, y, color.Gray{Y: 255})
			} else {
				g.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
}

func invert(g *image.Gray) {
	bounds := g.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g.SetGray(x, y, color.Gray{Y: 255 - g.GrayAt(x, y).Y})
		}
	}
}

package extraction

import (
	"image"

	"invoice-pipeline/internal/tracer"
)

// ROICrop describes one region-of-interest as a fraction of the page
// dimensions, matching the teacher's ocrInvoiceRegion / ROI OCR idiom.
type ROICrop struct {
	Name           string
	X0, Y0, X1, Y1 float64
}

// totalsROIRegions are the bottom-right and bottom regions named in
// §4.C2 "ROI fallback" for recovering a missed total.
var totalsROIRegions = []ROICrop{
	{Name: "bottom_right", X0: 0.55, Y0: 0.75, X1: 1.0, Y1: 1.0},
	{Name: "bottom", X0: 0.0, Y0: 0.85, X1: 1.0, Y1: 1.0},
}

// ROIFallback crops and OCRs the totals-likely regions when the parsed
// totals are missing or low confidence, returning a recovered total in
// cents and a confidence in [0,1] if found.
func ROIFallback(img image.Image, trace *tracer.Trace) (totalCents *int64, confidence float64) {
	for _, region := range totalsROIRegions {
		cropped := cropFraction(img, region)
		res, err := RunOCR(cropped, trace)
		if err != nil {
			continue
		}
		totals := extractTotals(res.Text)
		if totals.TotalCents != nil {
			return totals.TotalCents, res.Confidence
		}
	}
	return nil, 0
}

func cropFraction(img image.Image, region ROICrop) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rect := image.Rect(
		bounds.Min.X+int(region.X0*float64(w)),
		bounds.Min.Y+int(region.Y0*float64(h)),
		bounds.Min.X+int(region.X1*float64(w)),
		bounds.Min.Y+int(region.Y1*float64(h)),
	)

	sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return img
	}
	return sub.SubImage(rect)
}

// ApplyROIIfNeeded implements the §4.C2 trigger condition: totals missing
// or overall confidence < 0.6, merging the recovered total and bumping
// overall confidence by roi_confidence * 0.2, capped at 0.95.
func ApplyROIIfNeeded(img image.Image, totals *Totals, overall float64, trace *tracer.Trace) float64 {
	if totals.TotalCents != nil && overall >= 0.6 {
		return overall
	}
	cents, conf := ROIFallback(img, trace)
	if cents == nil {
		return overall
	}
	totals.TotalCents = cents
	boosted := overall + conf*0.2
	if boosted > 0.95 {
		boosted = 0.95
	}
	return boosted
}

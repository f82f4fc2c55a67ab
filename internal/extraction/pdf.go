package extraction

import (
	"bytes"
	"image"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"invoice-pipeline/internal/apperr"
	"invoice-pipeline/internal/tracer"
)

// pdfOCRDPI mirrors the teacher's getPDFOCRDPI default for rasterizing
// page 1 when the text layer is unusable (§4.C2 step 3: "300 DPI").
const pdfOCRDPI = 300

// PDFExtractionResult is the winner among the ordered strategies plus the
// method that produced it, for the combined-confidence step.
type PDFExtractionResult struct {
	Text       string
	Method     string
	Confidence float64
}

// ExtractPDF implements the §4.C2 ordered PDF strategy: library text
// layer -> full-document OCR -> page-1 rasterize+OCR -> combine.
func ExtractPDF(data []byte, trace *tracer.Trace) (*PDFExtractionResult, error) {
	var candidates []PDFExtractionResult

	if text, err := extractPDFTextLayer(data); err == nil && text != "" {
		score := TextQualityScore(text)
		if trace != nil {
			trace.Info("pdf_extract", "library text layer extracted", map[string]any{"score": score})
		}
		if score >= 0.7 && HasPriceToken(text) {
			return &PDFExtractionResult{Text: text, Method: "pdf_text_layer", Confidence: score}, nil
		}
		candidates = append(candidates, PDFExtractionResult{Text: text, Method: "pdf_text_layer", Confidence: score})
	}

	tmpPath, cleanup, err := writeTempPDF(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.ProcessingError, "failed writing temp pdf", err)
	}
	defer cleanup()

	if ocrText, score, err := ocrFullPDF(tmpPath, trace); err == nil {
		candidates = append(candidates, PDFExtractionResult{Text: ocrText, Method: "pdf_full_ocr", Confidence: score})
	} else if trace != nil {
		trace.Warn("pdf_extract", "full-document OCR failed", map[string]any{"error": err.Error()})
	}

	if page1Text, score, err := ocrRasterizedFirstPage(tmpPath, trace); err == nil {
		candidates = append(candidates, PDFExtractionResult{Text: page1Text, Method: "pdf_page1_raster_ocr", Confidence: score})
	} else if trace != nil {
		trace.Warn("pdf_extract", "page-1 rasterize+OCR failed", map[string]any{"error": err.Error()})
	}

	if len(candidates) == 0 {
		return nil, apperr.New(apperr.ProcessingError, "no PDF extraction strategy produced text")
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return &best, nil
}

func extractPDFTextLayer(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	totalPages := r.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}
	return buf.String(), nil
}

func writeTempPDF(data []byte) (path string, cleanup func(), err error) {
	path = filepath.Join(os.TempDir(), "invoice-pdf-"+uuid.NewString()+".pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", func() {}, err
	}
	return path, func() { os.Remove(path) }, nil
}

// ocrFullPDF rasterizes every page via go-fitz and OCRs each, concatenating.
func ocrFullPDF(path string, trace *tracer.Trace) (string, float64, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", 0, err
	}
	defer doc.Close()

	var buf bytes.Buffer
	bestConf := 0.0
	pages := doc.NumPage()
	for i := 0; i < pages; i++ {
		img, err := doc.ImageDPI(i, pdfOCRDPI)
		if err != nil {
			continue
		}
		res, err := RunOCR(img, trace)
		if err != nil {
			continue
		}
		buf.WriteString(res.Text)
		buf.WriteString("\n")
		if res.Confidence > bestConf {
			bestConf = res.Confidence
		}
	}
	if buf.Len() == 0 {
		return "", 0, apperr.New(apperr.ProcessingError, "full-document OCR produced no text")
	}
	return buf.String(), bestConf, nil
}

func ocrRasterizedFirstPage(path string, trace *tracer.Trace) (string, float64, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", 0, err
	}
	defer doc.Close()

	img, err := doc.ImageDPI(0, pdfOCRDPI)
	if err != nil {
		return "", 0, err
	}
	res, err := RunOCR(img, trace)
	if err != nil {
		return "", 0, err
	}
	return res.Text, res.Confidence, nil
}

// ExtractImage runs the same multi-pass OCR flow directly against a
// decoded raster image (§4.C2 "Image extraction").
func ExtractImage(img image.Image, trace *tracer.Trace) (*OCRResult, error) {
	return RunOCR(img, trace)
}

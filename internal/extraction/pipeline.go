package extraction

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"invoice-pipeline/internal/apperr"
	"invoice-pipeline/internal/tracer"
)

// Input is the §4.C2 union: {buffer, base64-string, text, file-path} plus
// optional {mime_type, filename}.
type Input struct {
	Buffer   []byte
	Base64   string
	Text     string
	FilePath string

	MimeType string
	Filename string
}

func (in Input) resolveBytes() ([]byte, error) {
	switch {
	case len(in.Buffer) > 0:
		return in.Buffer, nil
	case in.Base64 != "":
		return base64.StdEncoding.DecodeString(in.Base64)
	case in.FilePath != "":
		return os.ReadFile(in.FilePath)
	case in.Text != "":
		return []byte(in.Text), nil
	}
	return nil, apperr.New(apperr.InvalidInput, "no input payload provided")
}

// Result is the §4.C2 pipeline output contract.
type Result struct {
	OK                   bool
	FileType             FileType
	ExtractionMethod     string
	ExtractionConfidence float64
	RawText              string
	Parsed               *ParsedInvoice
	Vendor               *VendorMatch
	Warnings             []string
	ProcessingTimeMs     int64
	OverallConfidence    float64
}

// Pipeline runs the full C2 extraction flow end to end.
type Pipeline struct{}

func NewPipeline() *Pipeline { return &Pipeline{} }

// Run implements §4.C2's public contract.
func (p *Pipeline) Run(in Input, trace *tracer.Trace) (*Result, error) {
	start := time.Now()
	data, err := in.resolveBytes()
	if err != nil {
		return &Result{OK: false, Warnings: []string{err.Error()}}, err
	}

	fileType := DetectFileType(data, in.MimeType, in.Filename)
	if trace != nil {
		trace.Info("detect", "file type detected", map[string]any{"type": string(fileType)})
	}

	var rawText string
	var method string
	var extractionConfidence float64
	var sourceImage image.Image

	switch fileType {
	case FileTypePDF:
		pdfRes, err := ExtractPDF(data, trace)
		if err != nil {
			return &Result{OK: false, FileType: fileType, Warnings: []string{err.Error()}}, err
		}
		rawText, method, extractionConfidence = pdfRes.Text, pdfRes.Method, pdfRes.Confidence
	case FileTypeText:
		rawText = string(data)
		method = "text_passthrough"
		extractionConfidence = TextQualityScore(rawText)
	case FileTypeJPEG, FileTypePNG, FileTypeGIF, FileTypeBMP, FileTypeTIFF, FileTypeWEBP, FileTypeHEIC:
		img, _, decodeErr := image.Decode(bytes.NewReader(data))
		if decodeErr != nil {
			return &Result{OK: false, FileType: fileType, Warnings: []string{decodeErr.Error()}}, apperr.Wrap(apperr.ProcessingError, "failed decoding image", decodeErr)
		}
		sourceImage = img
		ocrRes, err := ExtractImage(img, trace)
		if err != nil {
			return &Result{OK: false, FileType: fileType, Warnings: []string{err.Error()}}, err
		}
		rawText, method, extractionConfidence = ocrRes.Text, ocrRes.Method, ocrRes.Confidence
	default:
		err := apperr.New(apperr.InvalidInput, "unsupported or undetected file type")
		return &Result{OK: false, FileType: fileType, Warnings: []string{err.Error()}}, err
	}

	parsed := ParseText(rawText)

	if sourceImage != nil {
		parsed.OverallConfidence = ApplyROIIfNeeded(sourceImage, &parsed.Totals, parsed.OverallConfidence, trace)
	}

	overall := combinedConfidence(extractionConfidence, parsed.OverallConfidence)
	warnings := append([]string{}, parsed.Warnings...)
	if overall < 0.5 {
		warnings = appendUnique(warnings, "manual review recommended")
	}

	return &Result{
		OK:                   true,
		FileType:             fileType,
		ExtractionMethod:     method,
		ExtractionConfidence: extractionConfidence,
		RawText:              rawText,
		Parsed:               parsed,
		Vendor:               parsed.Vendor,
		Warnings:             warnings,
		ProcessingTimeMs:     time.Since(start).Milliseconds(),
		OverallConfidence:    overall,
	}, nil
}

// combinedConfidence implements §4.C2's weighted formula.
func combinedConfidence(extractionConfidence, parsingOverall float64) float64 {
	return 0.3*extractionConfidence + 0.7*parsingOverall
}

func appendUnique(list []string, item string) []string {
	for _, s := range list {
		if strings.EqualFold(s, item) {
			return list
		}
	}
	return append(list, item)
}

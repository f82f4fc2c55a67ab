package extraction

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otiai10/gosseract/v2"

	"invoice-pipeline/internal/apperr"
	"invoice-pipeline/internal/tracer"
)

// ocrTimeout is the per-invocation OCR timeout floor named in §5
// ("OCR runs have a per-invocation timeout (>= 60s)").
const ocrTimeout = 60 * time.Second

// OCRAttempt is one PSM/preprocessing pass's outcome, recorded for the
// §8 "OCR multi-pass monotonicity" property.
type OCRAttempt struct {
	PSM        int
	Variant    PreprocessVariant
	Text       string
	Confidence float64
}

// OCRResult is the engine's final choice across all attempts, plus the
// attempt history for diagnosis.
type OCRResult struct {
	Text       string
	Method     string
	Confidence float64
	Attempts   []OCRAttempt
}

// RunOCR implements the §4.C2 multi-pass OCR engine: gosseract.Client
// looping PSM values {6,3,4} on the standard preprocess, escalating to
// {6,3} on advanced preprocess if confidence < 0.6, then {11} on
// high-contrast if still < 0.5, combining attempts if still < 0.65.
func RunOCR(img image.Image, trace *tracer.Trace) (*OCRResult, error) {
	client := gosseract.NewClient()
	defer client.Close()

	var attempts []OCRAttempt
	best := func() *OCRAttempt {
		if len(attempts) == 0 {
			return nil
		}
		b := &attempts[0]
		for i := range attempts {
			if attempts[i].Confidence > b.Confidence {
				b = &attempts[i]
			}
		}
		return b
	}

	runPass := func(variant PreprocessVariant, psms []int) error {
		processed := Preprocess(img, variant)
		tmpPath, err := writeTempPNG(processed)
		if err != nil {
			return err
		}
		defer os.Remove(tmpPath)

		if err := client.SetImage(tmpPath); err != nil {
			return err
		}
		for _, psm := range psms {
			if err := client.SetPageSegMode(gosseract.PageSegMode(psm)); err != nil {
				continue
			}
			text, err := textWithTimeout(client, ocrTimeout)
			if err != nil {
				if trace != nil {
					trace.Warn("ocr", "gosseract pass failed", map[string]any{"psm": psm, "error": err.Error()})
				}
				continue
			}
			conf := TextQualityScore(text)
			attempts = append(attempts, OCRAttempt{PSM: psm, Variant: variant, Text: text, Confidence: conf})
		}
		return nil
	}

	if err := runPass(PreprocessStandard, []int{6, 3, 4}); err != nil {
		return nil, apperr.Wrap(apperr.ProcessingError, "ocr standard pass failed", err)
	}

	if b := best(); b == nil || b.Confidence < 0.6 {
		if err := runPass(PreprocessAdvanced, []int{6, 3}); err != nil {
			if trace != nil {
				trace.Warn("ocr", "advanced preprocess pass failed", nil)
			}
		}
	}

	if b := best(); b == nil || b.Confidence < 0.5 {
		if err := runPass(PreprocessHighContrast, []int{11}); err != nil {
			if trace != nil {
				trace.Warn("ocr", "high-contrast pass failed", nil)
			}
		}
	}

	b := best()
	if b == nil {
		return nil, apperr.New(apperr.ProcessingError, "all OCR passes failed")
	}

	finalText := b.Text
	finalConf := b.Confidence
	method := fmt.Sprintf("psm-%d", b.PSM)

	if finalConf < 0.65 && len(attempts) >= 2 {
		finalText = combineAttempts(attempts, b)
		finalConf = TextQualityScore(finalText)
		method = "combined"
	}

	return &OCRResult{Text: finalText, Method: method, Confidence: finalConf, Attempts: attempts}, nil
}

// textWithTimeout bounds a single gosseract pass to ocrTimeout, matching
// the teacher's ocr_worker.go request/timeout select-loop: the call runs
// on its own goroutine and a losing race just abandons that goroutine,
// since gosseract.Client exposes no cancellation hook to stop it cleanly.
func textWithTimeout(client *gosseract.Client, timeout time.Duration) (string, error) {
	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := client.Text()
		ch <- result{text: text, err: err}
	}()

	select {
	case r := <-ch:
		return r.text, r.err
	case <-time.After(timeout):
		return "", apperr.New(apperr.ProcessingError, "ocr pass timed out")
	}
}

// combineAttempts starts from the combination base (§4.C2 step 5) and
// appends unique meaningful lines from other attempts.
func combineAttempts(attempts []OCRAttempt, primary *OCRAttempt) string {
	primary = selectCombineBase(attempts, primary)
	seen := map[string]bool{}
	for _, line := range strings.Split(primary.Text, "\n") {
		seen[normalizeLine(line)] = true
	}

	var sb strings.Builder
	sb.WriteString(primary.Text)

	sorted := append([]OCRAttempt(nil), attempts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Confidence > sorted[j].Confidence })

	for _, a := range sorted {
		for _, line := range strings.Split(a.Text, "\n") {
			norm := normalizeLine(line)
			if norm == "" || len(norm) <= 5 || seen[norm] {
				continue
			}
			if !looksMeaningful(norm) {
				continue
			}
			seen[norm] = true
			sb.WriteString("\n")
			sb.WriteString(line)
		}
	}
	return sb.String()
}

// selectCombineBase mirrors the teacher's mergeExtractionResults: an
// attempt whose Chinese-character ratio meaningfully exceeds the
// confidence-leading attempt's is preferred as the combination base,
// since Han-script invoice labels carry signal PSM confidence alone
// misses on the bilingual corpus this pipeline also serves.
func selectCombineBase(attempts []OCRAttempt, best *OCRAttempt) *OCRAttempt {
	base := best
	baseRatio := ChineseCharRatio(base.Text)
	for i := range attempts {
		if ratio := ChineseCharRatio(attempts[i].Text); ratio > baseRatio+0.05 {
			base = &attempts[i]
			baseRatio = ratio
		}
	}
	return base
}

func normalizeLine(line string) string {
	return strings.ToLower(strings.TrimSpace(line))
}

func looksMeaningful(normalizedLine string) bool {
	return currencyTokenPattern.MatchString(normalizedLine) || invoiceKeywordPattern.MatchString(normalizedLine)
}

func writeTempPNG(img *image.Gray) (string, error) {
	path := filepath.Join(os.TempDir(), "invoice-ocr-"+uuid.NewString()+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

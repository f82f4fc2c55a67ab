package emailcheck

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"invoice-pipeline/internal/models"
)

// supportedExtensions is the filename-extension allow-list backing G3
// (§4.C1 "Attachment support policy"): PDF plus common raster formats
// including HEIC.
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
	".heic": true,
	".heif": true,
}

var supportedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/gif":       true,
	"image/bmp":       true,
	"image/tiff":      true,
	"image/webp":      true,
	"image/heic":      true,
	"image/heif":      true,
}

// invoiceFilenamePattern matches filenames that look invoice-related even
// when sent as generic application/octet-stream.
var invoiceFilenamePattern = regexp.MustCompile(`(?i)(invoice|bill|statement|receipt|inv[-_]?\d+|po[-_]?\d+|\d{4,})`)

// IsSupportedAttachment implements G3: MIME type in the allow-list, OR
// filename extension in the allow-list, OR octet-stream with an
// invoice-suggestive filename.
func IsSupportedAttachment(mimeType, filename string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	filename = strings.TrimSpace(filename)
	ext := strings.ToLower(filepath.Ext(filename))

	if supportedMimeTypes[mimeType] {
		return true
	}
	if supportedExtensions[ext] {
		return true
	}
	if mimeType == "application/octet-stream" && invoiceFilenamePattern.MatchString(filename) {
		return true
	}
	return false
}

// invoiceKeywords backs G4 (§4.C1 "Keyword policy").
var invoiceKeywords = []string{
	"invoice", "bill", "statement", "receipt", "order", "payment",
	"purchase", "po", "quote", "estimate", "remittance", "credit", "debit",
}

var invoiceFilenameGatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)inv[-_]?\d+`),
	regexp.MustCompile(`(?i)po[-_]?\d+`),
	regexp.MustCompile(`\d{4,}`),
}

// MatchesInvoiceKeywords implements G4: subject, filenames, and from
// address are searched for a keyword or invoice-like filename pattern.
func MatchesInvoiceKeywords(subject, from string, filenames []string) bool {
	haystack := strings.ToLower(subject + " " + from + " " + strings.Join(filenames, " "))
	for _, kw := range invoiceKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	for _, name := range filenames {
		for _, pat := range invoiceFilenameGatePatterns {
			if pat.MatchString(name) {
				return true
			}
		}
	}
	return false
}

// AttachmentMeta is one attachment observed on a fetched message.
type AttachmentMeta struct {
	Filename    string
	ContentType string
	Size        int64
	Bytes       []byte
}

// Message is the normalized view of a fetched mailbox message the gates
// and dedupe logic operate on.
type Message struct {
	UID          uint32
	UIDValidity  uint32
	MessageID    string
	Subject      string
	From         string
	ReceivedDate *time.Time
	Attachments  []AttachmentMeta
}

// GateResult is the outcome of running a message through G1-G5.
type GateResult struct {
	Passed     bool
	SkipReason string // empty when Passed
}

func passed() GateResult { return GateResult{Passed: true} }

func failed(reason string) GateResult { return GateResult{Passed: false, SkipReason: reason} }

// EvaluateAttachmentGates runs G2 and G3 (attachment presence, attachment
// support), returning the first failing gate.
func EvaluateAttachmentGates(msg *Message) (GateResult, []AttachmentMeta) {
	if len(msg.Attachments) == 0 {
		return failed(models.SkipNoAttachments), nil
	}
	var supported []AttachmentMeta
	for _, a := range msg.Attachments {
		if IsSupportedAttachment(a.ContentType, a.Filename) {
			supported = append(supported, a)
		}
	}
	if len(supported) == 0 {
		return failed(models.SkipUnsupportedAttachments), nil
	}
	return passed(), supported
}

// EvaluateKeywordGate runs G4, only meaningful when the monitor requires
// invoice keywords.
func EvaluateKeywordGate(requireKeywords bool, msg *Message, filenames []string) GateResult {
	if !requireKeywords {
		return passed()
	}
	if MatchesInvoiceKeywords(msg.Subject, msg.From, filenames) {
		return passed()
	}
	return failed(models.SkipKeywordFilterMiss)
}

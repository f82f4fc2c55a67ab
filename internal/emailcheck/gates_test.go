package emailcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"invoice-pipeline/internal/models"
)

func TestIsSupportedAttachment(t *testing.T) {
	cases := []struct {
		name        string
		mimeType    string
		filename    string
		wantSupport bool
	}{
		{"pdf mime", "application/pdf", "whatever.bin", true},
		{"png extension", "application/octet-stream", "scan.png", false},
		{"recognized extension alone", "", "invoice.pdf", true},
		{"octet-stream with invoice filename", "application/octet-stream", "Invoice-2026-0042.pdf", true},
		{"octet-stream with generic filename", "application/octet-stream", "readme.txt", false},
		{"heic is supported", "image/heic", "photo.heic", true},
		{"unsupported mime and extension", "text/plain", "notes.txt", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantSupport, IsSupportedAttachment(tc.mimeType, tc.filename))
		})
	}
}

func TestMatchesInvoiceKeywords(t *testing.T) {
	assert.True(t, MatchesInvoiceKeywords("Your Invoice is ready", "billing@vendor.com", nil))
	assert.True(t, MatchesInvoiceKeywords("Re: monthly update", "ar@vendor.com", []string{"INV-10234.pdf"}))
	assert.False(t, MatchesInvoiceKeywords("Happy holidays", "newsletter@vendor.com", []string{"photo.jpg"}))
}

func TestEvaluateAttachmentGates(t *testing.T) {
	t.Run("no attachments fails G2", func(t *testing.T) {
		result, supported := EvaluateAttachmentGates(&Message{})
		assert.False(t, result.Passed)
		assert.Equal(t, models.SkipNoAttachments, result.SkipReason)
		assert.Nil(t, supported)
	})

	t.Run("only unsupported attachments fails G3", func(t *testing.T) {
		result, supported := EvaluateAttachmentGates(&Message{
			Attachments: []AttachmentMeta{{Filename: "readme.txt", ContentType: "text/plain"}},
		})
		assert.False(t, result.Passed)
		assert.Equal(t, models.SkipUnsupportedAttachments, result.SkipReason)
		assert.Nil(t, supported)
	})

	t.Run("mixed attachments keep only supported ones", func(t *testing.T) {
		result, supported := EvaluateAttachmentGates(&Message{
			Attachments: []AttachmentMeta{
				{Filename: "readme.txt", ContentType: "text/plain"},
				{Filename: "invoice.pdf", ContentType: "application/pdf"},
			},
		})
		assert.True(t, result.Passed)
		assert.Len(t, supported, 1)
		assert.Equal(t, "invoice.pdf", supported[0].Filename)
	})
}

func TestEvaluateKeywordGate(t *testing.T) {
	msg := &Message{Subject: "Weekly newsletter", From: "news@example.com"}

	t.Run("gate disabled always passes", func(t *testing.T) {
		assert.True(t, EvaluateKeywordGate(false, msg, nil).Passed)
	})

	t.Run("gate enabled fails on no keyword match", func(t *testing.T) {
		result := EvaluateKeywordGate(true, msg, []string{"photo.jpg"})
		assert.False(t, result.Passed)
		assert.Equal(t, models.SkipKeywordFilterMiss, result.SkipReason)
	})

	t.Run("gate enabled passes on filename match", func(t *testing.T) {
		result := EvaluateKeywordGate(true, msg, []string{"INV-5521.pdf"})
		assert.True(t, result.Passed)
	})
}

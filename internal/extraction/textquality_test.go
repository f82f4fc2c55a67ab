package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextQualityScore_EmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, TextQualityScore("   "))
}

func TestTextQualityScore_RichInvoiceTextScoresHigh(t *testing.T) {
	text := "INVOICE #10293\nAcme Supply Co\nQty Description Unit Price Total\n2 Widget Assembly 10.00 $20.00\nSubtotal: $20.00\nTax: $1.60\nTotal: $21.60 USD"
	score := TextQualityScore(text)
	assert.Greater(t, score, 0.8)
	assert.LessOrEqual(t, score, 1.0)
}

func TestTextQualityScore_GarbledOCROutputScoresLow(t *testing.T) {
	garbled := "\x01\x02\x03\x04###@@@!!!\x05\x06"
	score := TextQualityScore(garbled)
	assert.Less(t, score, 0.3)
}

func TestTextQualityScore_IsMonotonicAcrossPreprocessingEscalation(t *testing.T) {
	// A later OCR pass producing a cleaner, more complete extraction should
	// never score lower than a noisier early pass on the same document.
	pass1 := "lnv0ice T0tal"
	pass2 := "Invoice Total: $128.40 USD\nSubtotal $120.00 Tax $8.40"
	assert.Less(t, TextQualityScore(pass1), TextQualityScore(pass2))
}

func TestHasPriceToken(t *testing.T) {
	assert.True(t, HasPriceToken("Total due: $42.50"))
	assert.True(t, HasPriceToken("2 Widget Assembly 10.00"))
	assert.False(t, HasPriceToken("no pricing information here"))
}

func TestChineseCharRatio(t *testing.T) {
	assert.Equal(t, 0.0, ChineseCharRatio(""))
	assert.Equal(t, 0.0, ChineseCharRatio("all ascii text"))
	assert.Greater(t, ChineseCharRatio("发票 invoice"), 0.0)
}

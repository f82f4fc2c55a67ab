package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectCombineBase_PrefersHigherConfidenceWhenChineseRatiosAreClose(t *testing.T) {
	attempts := []OCRAttempt{
		{PSM: 6, Confidence: 0.4, Text: "invoice total $100.00"},
		{PSM: 3, Confidence: 0.3, Text: "amount $100.00"},
	}
	best := &attempts[0]

	got := selectCombineBase(attempts, best)
	assert.Same(t, best, got)
}

func TestSelectCombineBase_SwitchesToHanRicherAttempt(t *testing.T) {
	attempts := []OCRAttempt{
		{PSM: 6, Confidence: 0.5, Text: "invoice total $100.00"},
		{PSM: 11, Confidence: 0.2, Text: "发票 价税合计 100.00"},
	}
	best := &attempts[0]

	got := selectCombineBase(attempts, best)
	assert.Same(t, &attempts[1], got)
}

func TestCombineAttempts_UsesHanRicherBaseAndAppendsUniqueMeaningfulLines(t *testing.T) {
	attempts := []OCRAttempt{
		{PSM: 6, Confidence: 0.5, Text: "Acme Supply Co\ninvoice total $100.00"},
		{PSM: 11, Confidence: 0.2, Text: "发票 价税合计 100.00\ntax id 91110000"},
	}
	best := &attempts[0]

	combined := combineAttempts(attempts, best)

	assert.Contains(t, combined, "发票 价税合计 100.00")
	assert.NotContains(t, combined, "Acme Supply Co")
}

func TestCombineAttempts_SkipsShortAndNonMeaningfulLines(t *testing.T) {
	attempts := []OCRAttempt{
		{PSM: 6, Confidence: 0.5, Text: "invoice total $50.00"},
		{PSM: 3, Confidence: 0.4, Text: "xx\nrandom unrelated filler line with no signal"},
	}
	best := &attempts[0]

	combined := combineAttempts(attempts, best)

	assert.NotContains(t, combined, "xx")
	assert.NotContains(t, combined, "random unrelated filler line with no signal")
}

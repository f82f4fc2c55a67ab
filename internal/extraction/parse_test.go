package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-pipeline/internal/utils"
)

func mustMoney(t *testing.T, cents int64) *utils.Money {
	t.Helper()
	return &utils.Money{Amount: float64(cents) / 100, Currency: "USD"}
}

func TestExtractTotals_InvoiceTotalBeatsGroupTotalRegardlessOfOrder(t *testing.T) {
	// GROUP TOTAL appears textually before INVOICE TOTAL, but the terminal
	// INVOICE TOTAL label must win the TotalCents slot either way.
	text := "Line items...\nGROUP TOTAL: $118.00\nmore lines...\nINVOICE TOTAL: $128.40\n"
	totals := extractTotals(text)
	require.NotNil(t, totals.TotalCents)
	assert.Equal(t, int64(12840), *totals.TotalCents)
}

func TestExtractTotals_FallsBackToGroupTotalWhenNoInvoiceTotal(t *testing.T) {
	text := "Subtotal: $100.00\nGROUP TOTAL: $108.00\n"
	totals := extractTotals(text)
	require.NotNil(t, totals.TotalCents)
	assert.Equal(t, int64(10800), *totals.TotalCents)
}

func TestExtractTotals_SubtotalAndTax(t *testing.T) {
	text := "Sub-Total: $100.00\nTax: $8.00\nINVOICE TOTAL: $108.00\n"
	totals := extractTotals(text)
	require.NotNil(t, totals.SubtotalCents)
	require.NotNil(t, totals.TaxCents)
	assert.Equal(t, int64(10000), *totals.SubtotalCents)
	assert.Equal(t, int64(800), *totals.TaxCents)
}

func TestApplyUOMResolution_RecomputesUnitPriceFromContinuationLine(t *testing.T) {
	text := "Chicken Breast 10.00 @ 2.50 25.00\nT/WT = 12.5\n"
	items := []LineItem{{
		Description: "Chicken Breast",
		Quantity:    10,
		TotalPrice:  mustMoney(t, 2500),
	}}

	resolved := applyUOMResolution(items, text)
	require.Len(t, resolved, 1)
	assert.True(t, resolved[0].UOMCorrected)
	assert.Equal(t, 12.5, resolved[0].Quantity)
	require.NotNil(t, resolved[0].UnitPrice)
	assert.Equal(t, int64(200), resolved[0].UnitPrice.Cents())
}

func TestApplyUOMResolution_NoContinuationLineLeavesItemUnchanged(t *testing.T) {
	text := "Widget Assembly 2.00 @ 10.00 20.00\n"
	items := []LineItem{{
		Description: "Widget Assembly",
		Quantity:    2,
		TotalPrice:  mustMoney(t, 2000),
	}}

	resolved := applyUOMResolution(items, text)
	require.Len(t, resolved, 1)
	assert.False(t, resolved[0].UOMCorrected)
	assert.Equal(t, 2.0, resolved[0].Quantity)
}

package extraction

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"invoice-pipeline/internal/utils"
)

// LineItem is one parsed line item before canonical-builder coercion.
type LineItem struct {
	Description  string
	Quantity     float64
	UnitPrice    *utils.Money
	TotalPrice   *utils.Money
	UOMCorrected bool
}

// Totals is the §4.C2 parsing-stage totals block, amounts in integer
// cents per the spec's storage convention.
type Totals struct {
	SubtotalCents *int64
	TaxCents      *int64
	TotalCents    *int64
}

// ParsedInvoice is the parser's output (§4.C2 "Parsing stage").
type ParsedInvoice struct {
	Vendor           *VendorMatch
	InvoiceNumber    string
	InvoiceDate      string
	Currency         string
	LineItems        []LineItem
	Totals           Totals
	Warnings         []string
	OverallConfidence float64
}

// invoiceTotalPattern and groupTotalPattern implement the §4.C2 "critical"
// totals extraction rule: bind to the terminal INVOICE TOTAL label, never
// an intermediate GROUP TOTAL, even when GROUP TOTAL appears later in the
// raw text.
var (
	invoiceTotalPattern = regexp.MustCompile(`(?i)invoice\s*total[:\s]*\$?\s*([\d,]+\.\d{2})`)
	groupTotalPattern   = regexp.MustCompile(`(?i)group\s*total[:\s]*\$?\s*([\d,]+\.\d{2})`)
	subtotalPattern     = regexp.MustCompile(`(?i)\bsub\s*-?\s*total[:\s]*\$?\s*([\d,]+\.\d{2})`)
	taxPattern          = regexp.MustCompile(`(?i)\btax[:\s]*\$?\s*([\d,]+\.\d{2})`)
)

// ParseText implements the §4.C2 parsing stage over OCR/text-layer output.
func ParseText(text string) *ParsedInvoice {
	parsed := &ParsedInvoice{Currency: "USD"}

	parsed.Vendor = DetectVendor(text)
	parsed.Totals = extractTotals(text)
	parsed.LineItems = extractLineItems(text)
	parsed.LineItems = applyUOMResolution(parsed.LineItems, text)

	parsed.OverallConfidence = scoreParsing(parsed)
	if parsed.OverallConfidence < 0.5 {
		parsed.Warnings = append(parsed.Warnings, "manual review recommended")
	}
	return parsed
}

// extractTotals implements the totals extraction rule: INVOICE TOTAL (or
// equivalent terminal label) wins over GROUP TOTAL regardless of document
// order (§4.C2, §8 "Totals preference" property).
func extractTotals(text string) Totals {
	var totals Totals

	if m := invoiceTotalPattern.FindStringSubmatch(text); len(m) == 2 {
		if cents, ok := parseCents(m[1]); ok {
			totals.TotalCents = &cents
		}
	} else if m := groupTotalPattern.FindStringSubmatch(text); len(m) == 2 {
		if cents, ok := parseCents(m[1]); ok {
			totals.TotalCents = &cents
		}
	}

	if m := subtotalPattern.FindStringSubmatch(text); len(m) == 2 {
		if cents, ok := parseCents(m[1]); ok {
			totals.SubtotalCents = &cents
		}
	}
	if m := taxPattern.FindStringSubmatch(text); len(m) == 2 {
		if cents, ok := parseCents(m[1]); ok {
			totals.TaxCents = &cents
		}
	}
	return totals
}

func parseCents(amountStr string) (int64, bool) {
	cleaned := strings.ReplaceAll(amountStr, ",", "")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return int64(math.Round(f * 100)), true
}

// lineItemPattern matches "<description> <qty> <unit price> <total>"
// style rows, a loose heuristic in the teacher's parsing idiom.
var lineItemPattern = regexp.MustCompile(`(?m)^(.{3,60}?)\s+(\d+(?:\.\d+)?)\s*(?:x|@)?\s*\$?(\d+\.\d{2})\s+\$?(\d+\.\d{2})\s*$`)

func extractLineItems(text string) []LineItem {
	var items []LineItem
	for _, m := range lineItemPattern.FindAllStringSubmatch(text, -1) {
		qty, _ := strconv.ParseFloat(m[2], 64)
		unitPrice := utils.ParseMoney(m[3], "USD")
		totalPrice := utils.ParseMoney(m[4], "USD")
		items = append(items, LineItem{
			Description: strings.TrimSpace(m[1]),
			Quantity:    qty,
			UnitPrice:   unitPrice,
			TotalPrice:  totalPrice,
		})
	}
	return items
}

// continuationLinePattern recognizes the §4.C2 UOM "continuation line"
// shapes following a line item: T/WT=<n>, bare numeric weight, NET/GROSS
// WT, AVG <n>, ACTUAL: <n>.
var continuationLinePattern = regexp.MustCompile(`(?i)(?:t/wt\s*=\s*|net\s*wt\s*|gross\s*wt\s*|avg\s+|actual:\s*)(\d+(?:\.\d+)?)`)

// applyUOMResolution scans for continuation lines immediately following
// each line item's source text and, when found, recomputes unit price
// from the authoritative quantity (§4.C2 "UOM resolution").
func applyUOMResolution(items []LineItem, text string) []LineItem {
	lines := strings.Split(text, "\n")
	for i := range items {
		for idx, line := range lines {
			if !strings.Contains(line, items[i].Description) {
				continue
			}
			if idx+1 >= len(lines) {
				continue
			}
			next := lines[idx+1]
			m := continuationLinePattern.FindStringSubmatch(next)
			if m == nil {
				continue
			}
			authoritativeQty, err := strconv.ParseFloat(m[1], 64)
			if err != nil || authoritativeQty <= 0 {
				continue
			}
			if items[i].TotalPrice == nil {
				continue
			}
			newUnitCents := int64(math.Round(float64(items[i].TotalPrice.Cents()) / authoritativeQty))
			items[i].Quantity = authoritativeQty
			items[i].UnitPrice = &utils.Money{Amount: float64(newUnitCents) / 100, Currency: items[i].TotalPrice.Currency}
			items[i].UOMCorrected = true
			break
		}
	}
	return items
}

// scoreParsing is the parsing.overall component of the §4.C2 combined
// confidence formula's second term.
func scoreParsing(p *ParsedInvoice) float64 {
	score := 0.3
	if len(p.LineItems) > 0 {
		score += 0.3
	}
	if p.Vendor != nil {
		score += 0.15
	}
	if p.Totals.TotalCents != nil {
		score += 0.25
	}
	if score > 1 {
		score = 1
	}
	return score
}

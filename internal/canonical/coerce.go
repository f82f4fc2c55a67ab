package canonical

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"invoice-pipeline/internal/utils"
)

// Candidate-key tables implement §9's "declarative candidate-keys table"
// design note: for each canonical field, an ordered list of source paths
// tried in priority order, grounded on the teacher's invoice_parsed.go /
// ocr_pdfzones_fields.go style of probing several key names in sequence.
var (
	lineItemsKeys     = []string{"items", "line_items", "lineItems"}
	lineItemsNestedIn = []string{"parsed", "result", "data"}

	invoiceNumberKeys = []string{"invoice_number", "invoiceNumber", "invoice_no", "number"}
	purchaseOrderKeys = []string{"purchase_order", "purchaseOrder", "po_number", "poNumber"}
	rawTextKeys       = []string{"raw_text", "rawText", "text"}
	currencyKeys      = []string{"currency"}
	customerNameKeys  = []string{"accountName", "account_name", "customer.name", "customerName", "bill_to.name"}
	vendorNameKeys    = []string{"vendor.name", "vendorName", "vendor", "seller.name"}
)

// lookup walks dotted path segments through nested maps.
func lookup(payload map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var cur any = payload
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func coerceString(payload map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := lookup(payload, k); ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func coerceRawText(payload map[string]any) string {
	return coerceString(payload, rawTextKeys)
}

func coerceCurrency(payload map[string]any) string {
	if c := coerceString(payload, currencyKeys); c != "" {
		return strings.ToUpper(c)
	}
	return "USD"
}

func coerceCustomerName(payload map[string]any) string {
	return coerceString(payload, customerNameKeys)
}

func coerceVendorName(payload map[string]any) string {
	return coerceString(payload, vendorNameKeys)
}

func coerceIssuedAt(payload map[string]any) time.Time {
	for _, k := range []string{"issued_at", "issuedAt", "invoice_date", "date"} {
		if v, ok := lookup(payload, k); ok {
			if s, ok := v.(string); ok {
				if ymd := utils.NormalizeDateYMD(s); ymd != "" {
					if t, err := time.Parse("2006-01-02", ymd); err == nil {
						return t
					}
				}
			}
		}
	}
	return time.Now()
}

// coerceLineItems takes the first non-empty array among the documented
// candidate keys, including nested {parsed|result|data}.{items|line_items}.
func coerceLineItems(payload map[string]any, currency string, opts Options) ([]LineItem, []string) {
	var raw []any
	for _, prefix := range append([]string{""}, lineItemsNestedIn...) {
		for _, key := range lineItemsKeys {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			if v, ok := lookup(payload, path); ok {
				if arr, ok := v.([]any); ok && len(arr) > 0 {
					raw = arr
					break
				}
			}
		}
		if raw != nil {
			break
		}
	}

	var warnings []string
	items := make([]LineItem, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item, warn := coerceOneLineItem(m, currency, opts)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		items = append(items, item)
	}
	return items, warnings
}

var unitPriceKeys = []string{"unit_price", "unitPrice", "price", "rate", "unit_cost", "unitPriceDollars"}

func coerceOneLineItem(m map[string]any, currency string, opts Options) (LineItem, string) {
	description := firstStringKey(m, []string{"description", "desc", "name"})

	quantity, hasQty := firstFloatKey(m, []string{"quantity", "qty"})
	if !hasQty {
		if !opts.StrictQuantity && description != "" {
			quantity = 1
		}
	}

	var unitPrice *utils.Money
	if v, ok := firstKey(m, unitPriceKeys); ok {
		unitPrice = utils.ParseMoney(v, currency)
	} else if cents, ok := firstFloatKey(m, []string{"unitPriceCents"}); ok {
		unitPrice = &utils.Money{Amount: cents / 100, Currency: currency}
	}

	var totalPrice *utils.Money
	if cents, ok := firstFloatKey(m, []string{"lineTotalCents"}); ok {
		totalPrice = &utils.Money{Amount: cents / 100, Currency: currency}
	} else if v, ok := firstKey(m, []string{"total", "total_price", "totalPrice", "amount"}); ok {
		totalPrice = utils.ParseMoney(v, currency)
	}

	confidence := 0.0
	var notes []string
	if description != "" {
		confidence += 0.2
	} else {
		notes = append(notes, "missing description")
	}
	if hasQty {
		confidence += 0.1
	}
	if unitPrice != nil {
		confidence += 0.15
	}
	if confidence > 0.95 {
		confidence = 0.95
	}

	item := LineItem{
		LineID:         uuid.NewString(),
		RawDescription: description,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		TotalPrice:     totalPrice,
		Frequency:      "unknown",
		Confidence:     LineItemConfidence{Overall: confidence, Notes: notes},
	}

	var warn string
	if description == "" {
		warn = "line item missing description"
	}
	return item, warn
}

func firstKey(m map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func firstStringKey(m map[string]any, keys []string) string {
	if v, ok := firstKey(m, keys); ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstFloatKey(m map[string]any, keys []string) (float64, bool) {
	if v, ok := firstKey(m, keys); ok {
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func coerceTotals(payload map[string]any, currency string) (Totals, []string) {
	var totals Totals
	var warnings []string

	if v, ok := lookup(payload, "invoice_total"); ok {
		totals.InvoiceTotal = utils.ParseMoney(v, currency)
	} else if v, ok := lookup(payload, "totals.total"); ok {
		totals.InvoiceTotal = utils.ParseMoney(v, currency)
	} else if v, ok := lookup(payload, "totals.total_cents"); ok {
		if cents, ok := v.(float64); ok {
			totals.InvoiceTotal = &utils.Money{Amount: cents / 100, Currency: currency}
		}
	}

	if totals.InvoiceTotal == nil {
		warnings = append(warnings, "invoice total not recovered")
	}
	return totals, warnings
}

// zipPattern, statePattern implement §4.C3's address regex coercion.
var (
	zipPattern   = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\b`)
	statePattern = regexp.MustCompile(`\b([A-Z]{2})\s+\d{5}`)
)

func coerceAddresses(payload map[string]any) []Address {
	var out []Address

	if v, ok := lookup(payload, "customer.address"); ok {
		if m, ok := v.(map[string]any); ok {
			out = append(out, coerceOneAddress(m))
		}
	}
	if v, ok := lookup(payload, "address"); ok {
		if m, ok := v.(map[string]any); ok {
			out = append(out, coerceOneAddress(m))
		}
	}
	return out
}

func coerceOneAddress(m map[string]any) Address {
	// Structured {line1, line2, city_state_zip} form.
	if csz, ok := m["city_state_zip"]; ok {
		if s, ok := csz.(string); ok {
			return parseCityStateZip(firstStringKey(m, []string{"line1"}), s)
		}
	}

	// Nested {street|line1|address1, city, state, postalCode|postal|zip, country}.
	street := firstStringKey(m, []string{"street", "line1", "address1"})
	city := firstStringKey(m, []string{"city"})
	state := firstStringKey(m, []string{"state"})
	postal := firstStringKey(m, []string{"postalCode", "postal", "zip"})
	country := firstStringKey(m, []string{"country"})

	confidence := 0.5
	if postal != "" {
		confidence = 0.85
	}
	raw := fmt.Sprintf("%s, %s, %s %s", street, city, state, postal)
	return Address{Raw: raw, Street: street, City: city, State: state, Postal: postal, Country: country, Confidence: confidence}
}

func parseCityStateZip(street, cityStateZip string) Address {
	raw := strings.TrimSpace(street + ", " + cityStateZip)
	zip := ""
	if m := zipPattern.FindStringSubmatch(cityStateZip); len(m) == 2 {
		zip = m[1]
	}
	state := ""
	stateIdx := -1
	if m := statePattern.FindStringSubmatchIndex(cityStateZip); m != nil {
		state = cityStateZip[m[2]:m[3]]
		stateIdx = m[0]
	}
	city := ""
	if stateIdx >= 0 {
		city = strings.TrimSpace(strings.TrimRight(cityStateZip[:stateIdx], ", "))
	}

	confidence := 0.5
	if zip != "" {
		confidence = 0.85
	}
	return Address{Raw: raw, Street: street, City: city, State: state, Postal: zip, Country: "US", Confidence: confidence}
}

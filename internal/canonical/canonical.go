// Package canonical maps heterogeneous parser output into the strict
// versioned canonical invoice schema (C3), emitting warnings rather than
// exceptions on soft defects (§4.C3).
package canonical

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"invoice-pipeline/internal/utils"
)

const SchemaVersion = "invoice.v1"

type Address struct {
	Raw        string
	Street     string
	City       string
	State      string
	Postal     string
	Country    string
	Confidence float64
}

type Party struct {
	Name           string
	NormalizedName string
	Addresses      []Address
}

type LineItemConfidence struct {
	Overall float64
	Notes   []string
}

type LineItem struct {
	LineID                string
	RawDescription        string
	NormalizedDescription string
	SKU                   string
	Quantity              float64
	UnitPrice             *utils.Money
	TotalPrice            *utils.Money
	Frequency             string
	Attributes            map[string]any
	Confidence            LineItemConfidence
}

type Totals struct {
	InvoiceTotal          *utils.Money
	WeeklyEquivalentTotal *utils.Money
	Notes                 []string
}

type Doc struct {
	DocID         string
	DocType       string
	InvoiceNumber string
	PurchaseOrder string
	IssuedAt      time.Time
	ServicePeriod string
	Currency      string
	RawTextHash   string
	Tags          []string
}

type Parties struct {
	Vendor   Party
	Customer Party
	BillTo   *Party
	ShipTo   *Party
}

type FieldConfidence struct {
	Path     string
	Score    float64
	Method   string
	Evidence []string
}

type Confidence struct {
	Overall float64
	Fields  []FieldConfidence
}

type Provenance struct {
	SourceType string
	CapturedAt time.Time
	Parser     ParserInfo
	SourceRef  SourceRef
}

type ParserInfo struct {
	Name     string
	Version  string
	Warnings []string
}

type SourceRef struct {
	Kind     string
	Value    string
	MimeType string
}

// Invoice is the canonical invoice v1 instance (§3 "CanonicalInvoice v1").
type Invoice struct {
	Doc        Doc
	Parties    Parties
	LineItems  []LineItem
	Totals     Totals
	Provenance Provenance
	Confidence Confidence
}

// Options configures the builder per §9 open-question resolution (b): the
// canonical builder defaults an absent quantity to 1 when description
// exists; StrictQuantity disables that default.
type Options struct {
	StrictQuantity bool

	// SuspectedDuplicateOf is an optional collaborator hook supplementing
	// the spec: given a built Invoice, return the doc_id of a prior
	// canonical invoice it appears to duplicate, or "" if none. Grounded
	// on the teacher's dedup.go/dedup_queries.go beyond-message-identity
	// matching (SPEC_FULL.md §3 "Supplemented from original_source").
	SuspectedDuplicateOf func(Invoice) string
}

// SourceMeta is the builder's second input: {source_type, parser_name,
// parser_version, source_ref} (§4.C3).
type SourceMeta struct {
	SourceType      string
	ParserName      string
	ParserVersion   string
	SourceRefKind   string
	SourceRefValue  string
	SourceRefMime   string
}

// Build implements §4.C3: coerce an arbitrary payload into a canonical
// Invoice plus warnings.
func Build(payload map[string]any, meta SourceMeta, opts Options) (Invoice, []string) {
	var warnings []string

	rawText := coerceRawText(payload)
	currency := coerceCurrency(payload)
	invoiceNumber := coerceString(payload, invoiceNumberKeys)
	purchaseOrder := coerceString(payload, purchaseOrderKeys)
	issuedAt := coerceIssuedAt(payload)

	docID, rawTextHash := deriveDocID(rawText)

	customerName := coerceCustomerName(payload)
	vendorName := coerceVendorName(payload)

	items, itemWarnings := coerceLineItems(payload, currency, opts)
	warnings = append(warnings, itemWarnings...)
	if len(items) == 0 {
		warnings = append(warnings, "no line items recovered")
	}

	totals, totalsWarnings := coerceTotals(payload, currency)
	warnings = append(warnings, totalsWarnings...)

	invoice := Invoice{
		Doc: Doc{
			DocID:         docID,
			DocType:       "invoice",
			InvoiceNumber: invoiceNumber,
			PurchaseOrder: purchaseOrder,
			IssuedAt:      issuedAt,
			Currency:      currency,
			RawTextHash:   rawTextHash,
		},
		Parties: Parties{
			Vendor:   Party{Name: vendorName, NormalizedName: normalizeName(vendorName)},
			Customer: Party{Name: customerName, NormalizedName: normalizeName(customerName), Addresses: coerceAddresses(payload)},
		},
		LineItems: items,
		Totals:    totals,
		Provenance: Provenance{
			SourceType: meta.SourceType,
			CapturedAt: time.Now(),
			Parser:     ParserInfo{Name: meta.ParserName, Version: meta.ParserVersion},
			SourceRef:  SourceRef{Kind: meta.SourceRefKind, Value: meta.SourceRefValue, MimeType: meta.SourceRefMime},
		},
	}

	overall := scoreOverall(invoice, vendorName, customerName, totals)
	invoice.Confidence = Confidence{Overall: overall}

	if opts.SuspectedDuplicateOf != nil {
		if dup := opts.SuspectedDuplicateOf(invoice); dup != "" {
			warnings = append(warnings, fmt.Sprintf("suspected duplicate of %s", dup))
		}
	}

	return invoice, warnings
}

func deriveDocID(rawText string) (docID string, hash string) {
	if rawText == "" {
		return "DOC-" + randomHex(12), ""
	}
	sum := sha256.Sum256([]byte(rawText))
	hexHash := hex.EncodeToString(sum[:])
	return "DOC-" + hexHash[:12], hexHash
}

func randomHex(n int) string {
	b := make([]byte, n/2+1)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)[:n]
}

func normalizeName(name string) string {
	if name == "" {
		return ""
	}
	return utils.NormalizeNameForMatch(name)
}

// scoreOverall implements the §4.C3 overall confidence formula: base 0.5,
// +0.25 if any line items, +0.1 if vendor known, +0.1 if customer known,
// +0.05 if invoice total present, cap 0.9.
func scoreOverall(inv Invoice, vendor, customer string, totals Totals) float64 {
	score := 0.5
	if len(inv.LineItems) > 0 {
		score += 0.25
	}
	if vendor != "" {
		score += 0.1
	}
	if customer != "" {
		score += 0.1
	}
	if totals.InvoiceTotal != nil {
		score += 0.05
	}
	if score > 0.9 {
		score = 0.9
	}
	return score
}

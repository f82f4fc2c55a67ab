package extraction

import (
	"context"

	"invoice-pipeline/internal/canonical"
	"invoice-pipeline/internal/emailcheck"
	"invoice-pipeline/internal/tracer"
)

// EmailAttachmentAdapter satisfies emailcheck.Pipeline, translating the
// check engine's per-attachment call into a full Pipeline.Run, running the
// C3 canonical builder over the parsed output, and projecting the result
// down to what C1 needs to persist an IngestionRun and its line items.
type EmailAttachmentAdapter struct {
	pipeline *Pipeline
}

func NewEmailAttachmentAdapter(p *Pipeline) *EmailAttachmentAdapter {
	return &EmailAttachmentAdapter{pipeline: p}
}

func (a *EmailAttachmentAdapter) Extract(ctx context.Context, trace *tracer.Trace, filename, contentType string, data []byte) (*emailcheck.ExtractionResult, error) {
	res, err := a.pipeline.Run(Input{Buffer: data, MimeType: contentType, Filename: filename}, trace)
	if err != nil {
		return nil, err
	}
	if !res.OK {
		return &emailcheck.ExtractionResult{OK: false, Warnings: res.Warnings}, nil
	}

	payload := parsedInvoiceToPayload(res)
	invoice, warnings := canonical.Build(payload, canonical.SourceMeta{
		SourceType:     "email_attachment",
		ParserName:     res.ExtractionMethod,
		ParserVersion:  "1",
		SourceRefKind:  "filename",
		SourceRefValue: filename,
		SourceRefMime:  contentType,
	}, canonical.Options{})

	if trace != nil {
		trace.Info("canonicalize", "built canonical invoice", map[string]any{
			"doc_id":       invoice.Doc.DocID,
			"line_items":   len(invoice.LineItems),
			"confidence":   invoice.Confidence.Overall,
		})
	}

	out := &emailcheck.ExtractionResult{
		OK:       true,
		Vendor:   invoice.Parties.Vendor.Name,
		Warnings: append(append([]string{}, res.Warnings...), warnings...),
	}
	if invoice.Totals.InvoiceTotal != nil {
		cents := invoice.Totals.InvoiceTotal.Cents()
		out.InvoiceTotalCents = &cents
	}
	out.LineItems = toExtractedLineItems(invoice.LineItems)
	return out, nil
}

// parsedInvoiceToPayload maps the C2 parser's typed output onto the
// candidate-key shape internal/canonical.Build coerces from, closing the
// loop between §4.C2's parsing stage and §4.C3's canonical builder.
func parsedInvoiceToPayload(res *Result) map[string]any {
	payload := map[string]any{"raw_text": res.RawText}
	if res.Vendor != nil {
		payload["vendorName"] = res.Vendor.Name
	}
	if res.Parsed == nil {
		return payload
	}
	if res.Parsed.InvoiceNumber != "" {
		payload["invoiceNumber"] = res.Parsed.InvoiceNumber
	}
	if res.Parsed.Currency != "" {
		payload["currency"] = res.Parsed.Currency
	}
	if res.Parsed.Totals.TotalCents != nil {
		payload["invoice_total"] = float64(*res.Parsed.Totals.TotalCents) / 100
	}

	items := make([]any, 0, len(res.Parsed.LineItems))
	for _, li := range res.Parsed.LineItems {
		item := map[string]any{"description": li.Description, "quantity": li.Quantity}
		if li.UnitPrice != nil {
			item["unit_price"] = li.UnitPrice.Amount
		}
		if li.TotalPrice != nil {
			item["total"] = li.TotalPrice.Amount
		}
		items = append(items, item)
	}
	if len(items) > 0 {
		payload["items"] = items
	}
	return payload
}

func toExtractedLineItems(items []canonical.LineItem) []emailcheck.ExtractedLineItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]emailcheck.ExtractedLineItem, 0, len(items))
	for _, it := range items {
		li := emailcheck.ExtractedLineItem{Description: it.RawDescription, Quantity: it.Quantity}
		if it.UnitPrice != nil {
			li.UnitPriceCents = it.UnitPrice.Cents()
		}
		if it.TotalPrice != nil {
			li.TotalCents = it.TotalPrice.Cents()
		}
		out = append(out, li)
	}
	return out
}

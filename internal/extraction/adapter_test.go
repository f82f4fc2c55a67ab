package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailAttachmentAdapter_ExtractRunsThroughCanonicalBuilder(t *testing.T) {
	text := "INVOICE #555\nAcme Supply Co\nWidget Assembly 2.00 10.00 20.00\nINVOICE TOTAL: $20.00\n"
	adapter := NewEmailAttachmentAdapter(NewPipeline())

	res, err := adapter.Extract(context.Background(), nil, "invoice.txt", "text/plain", []byte(text))
	require.NoError(t, err)
	require.True(t, res.OK)

	require.NotNil(t, res.InvoiceTotalCents)
	assert.Equal(t, int64(2000), *res.InvoiceTotalCents)
	require.Len(t, res.LineItems, 1)
	assert.Equal(t, "Widget Assembly", res.LineItems[0].Description)
	assert.Equal(t, int64(2000), res.LineItems[0].TotalCents)
}

func TestEmailAttachmentAdapter_ExtractUnsupportedFileTypeFails(t *testing.T) {
	adapter := NewEmailAttachmentAdapter(NewPipeline())

	_, err := adapter.Extract(context.Background(), nil, "mystery.bin", "application/octet-stream", []byte{0x00, 0x01, 0x02, 0x03})
	assert.Error(t, err)
}

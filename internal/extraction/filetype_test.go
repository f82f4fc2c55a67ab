package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFileType_MagicBytesAreAuthoritative(t *testing.T) {
	cases := []struct {
		name     string
		data     []byte
		mimeType string
		filename string
		want     FileType
	}{
		{"pdf signature", []byte("%PDF-1.4\n..."), "application/octet-stream", "renamed.exe", FileTypePDF},
		{"png signature", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "", "", FileTypePNG},
		{"jpeg signature", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "", "picture.bin", FileTypeJPEG},
		{"gif87 signature", []byte("GIF87a..."), "", "", FileTypeGIF},
		{"bmp signature", []byte("BM...."), "", "", FileTypeBMP},
		{"little-endian tiff signature", []byte{0x49, 0x49, 0x2A, 0x00, 1, 2, 3, 4}, "", "", FileTypeTIFF},
		{"webp signature", append([]byte("RIFF\x00\x00\x00\x00"), []byte("WEBP")...), "", "", FileTypeWEBP},
		{"heic brand", append([]byte{0, 0, 0, 0}, []byte("ftypheic")...), "", "", FileTypeHEIC},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectFileType(tc.data, tc.mimeType, tc.filename))
		})
	}
}

func TestDetectFileType_FallsBackToMimeThenExtension(t *testing.T) {
	garbage := []byte{0x00, 0x01, 0x02, 0x03}

	assert.Equal(t, FileTypePDF, DetectFileType(garbage, "application/pdf", ""))
	assert.Equal(t, FileTypeWEBP, DetectFileType(garbage, "", "photo.webp"))
	assert.Equal(t, FileTypeUnknown, DetectFileType(garbage, "", ""))
}

func TestDetectFileType_TextHeuristic(t *testing.T) {
	text := []byte("Invoice Number: 10293\nTotal Due: $128.40\n")
	assert.Equal(t, FileTypeText, DetectFileType(text, "", ""))
}

func TestDetectFileType_MimeBeatsWrongExtension(t *testing.T) {
	garbage := []byte{0x00, 0x01, 0x02}
	assert.Equal(t, FileTypePNG, DetectFileType(garbage, "image/png", "file.pdf"))
}

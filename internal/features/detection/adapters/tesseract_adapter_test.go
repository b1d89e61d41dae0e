package adapters

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLineToReading verifies sticker field extraction from an OCR text line.
func TestLineToReading(t *testing.T) {
	box := image.Rect(100, 200, 500, 400)
	reading := lineToReading("C01K 1/30 MG 1ZA8272V1341859679", box, 87.5, 1000, 1000)

	assert.Equal(t, "C01K 1/30 MG 1ZA8272V1341859679", reading.RawText)
	require.NotNil(t, reading.Apartment)
	assert.Equal(t, "C01K", *reading.Apartment)
	require.NotNil(t, reading.Last4)
	assert.Equal(t, "9679", *reading.Last4)
	require.NotNil(t, reading.Date)
	assert.Equal(t, "1/30", *reading.Date)
	require.NotNil(t, reading.Initials)
	assert.Equal(t, "MG", *reading.Initials)
	assert.InDelta(t, 0.875, reading.Confidence, 1e-9)
	assert.Equal(t, [4]float64{0.1, 0.2, 0.5, 0.4}, reading.Box)
}

// TestLineToReading_Lowercase verifies case normalization of apartment codes.
func TestLineToReading_Lowercase(t *testing.T) {
	reading := lineToReading("c02g pkg 77123456", image.Rect(0, 0, 10, 10), 50, 100, 100)

	require.NotNil(t, reading.Apartment)
	assert.Equal(t, "C02G", *reading.Apartment)
	require.NotNil(t, reading.Last4)
	assert.Equal(t, "3456", *reading.Last4)
}

// TestLineToReading_Unreadable verifies that a line with no recognizable
// fields yields nil pointers rather than fabricated values.
func TestLineToReading_Unreadable(t *testing.T) {
	reading := lineToReading("smudge", image.Rect(0, 0, 10, 10), 12, 100, 100)

	assert.Nil(t, reading.Apartment)
	assert.Nil(t, reading.Last4)
	assert.Nil(t, reading.Date)
}

// TestExtractTrackingSuffix verifies the tracking-token heuristic.
func TestExtractTrackingSuffix(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "FullTrackingCode", text: "C01K 1ZA8272V1341859679", expected: "9679"},
		{name: "ApartmentOnlySkipped", text: "C01K", expected: ""},
		{name: "LettersOnlySkipped", text: "MARIA ESPEJO", expected: ""},
		{name: "ShortDigits", text: "C01K 123", expected: ""},
		{name: "LastQualifyingTokenWins", text: "REF1234 TRK5678", expected: "5678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractTrackingSuffix(tt.text))
		})
	}
}

// TestNormalizePixelBox verifies rescaling and clamping.
func TestNormalizePixelBox(t *testing.T) {
	box := normalizePixelBox(image.Rect(-10, 0, 2100, 500), 2000, 1000)

	assert.Equal(t, 0.0, box[0])
	assert.Equal(t, 0.0, box[1])
	assert.Equal(t, 1.0, box[2])
	assert.Equal(t, 0.5, box[3])
}

// TestTesseractAdapter_Name verifies the provider identifier.
func TestTesseractAdapter_Name(t *testing.T) {
	assert.Equal(t, "tesseract", NewTesseractAdapter("eng").Name())
}

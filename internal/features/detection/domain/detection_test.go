package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// TestDetection_ComboKey verifies key construction and the missing-field case.
func TestDetection_ComboKey(t *testing.T) {
	det := Detection{
		ParsedApartment: strPtr("C01K"),
		ParsedLast4:     strPtr("1234"),
	}

	key, ok := det.ComboKey()
	require.True(t, ok)
	assert.Contains(t, key, "C01K")
	assert.Contains(t, key, "1234")

	_, ok = Detection{ParsedLast4: strPtr("1234")}.ComboKey()
	assert.False(t, ok)

	_, ok = Detection{ParsedApartment: strPtr("C01K")}.ComboKey()
	assert.False(t, ok)
}

// TestDetection_AppendNote verifies the append-only, no-repeat note trail.
func TestDetection_AppendNote(t *testing.T) {
	det := Detection{}

	det.AppendNote("first")
	det.AppendNote("second")
	det.AppendNote("first")

	assert.Equal(t, []string{"first", "second"}, det.Notes)
}

// TestDetection_Clone verifies that clones share nothing mutable with the original.
func TestDetection_Clone(t *testing.T) {
	original := Detection{
		ID:              "d1",
		ParsedApartment: strPtr("C01K"),
		ParsedLast4:     strPtr("1234"),
		Notes:           []string{"oracle note"},
	}

	clone := original.Clone()
	*clone.ParsedApartment = "Z99Z"
	clone.AppendNote("algorithm note")

	assert.Equal(t, "C01K", *original.ParsedApartment)
	assert.Equal(t, []string{"oracle note"}, original.Notes)
	assert.Len(t, clone.Notes, 2)
}

// TestRawReading_Validate verifies boundary rejection of malformed oracle output.
func TestRawReading_Validate(t *testing.T) {
	valid := RawReading{
		RawText:    "C01K 1234",
		Apartment:  strPtr("C01K"),
		Last4:      strPtr("1234"),
		Confidence: 0.9,
		Box:        [4]float64{0.1, 0.2, 0.4, 0.5},
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*RawReading)
	}{
		{name: "NegativeConfidence", mutate: func(r *RawReading) { r.Confidence = -0.1 }},
		{name: "ConfidenceAboveOne", mutate: func(r *RawReading) { r.Confidence = 1.5 }},
		{name: "CoordinateOutOfRange", mutate: func(r *RawReading) { r.Box[2] = 1.2 }},
		{name: "DegenerateWidth", mutate: func(r *RawReading) { r.Box[2] = r.Box[0] }},
		{name: "InvertedHeight", mutate: func(r *RawReading) { r.Box[1], r.Box[3] = 0.9, 0.1 }},
		{name: "ShortLast4", mutate: func(r *RawReading) { r.Last4 = strPtr("123") }},
		{name: "LongLast4", mutate: func(r *RawReading) { r.Last4 = strPtr("12345") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}

// TestNewDetection verifies conversion and coordinate normalization.
func TestNewDetection(t *testing.T) {
	reading := RawReading{
		RawText:    "C01K 1/30 MG 9679",
		Apartment:  strPtr("c01k"),
		Last4:      strPtr("9679"),
		Date:       strPtr("1/30"),
		Initials:   strPtr("MG"),
		Confidence: 0.85,
		Box:        [4]float64{0.1, 0.2, 0.5, 0.6},
	}

	det, err := NewDetection("d1", "p1", reading)
	require.NoError(t, err)

	assert.Equal(t, "d1", det.ID)
	assert.Equal(t, "p1", det.PhotoID)
	require.NotNil(t, det.ParsedApartment)
	assert.Equal(t, "C01K", *det.ParsedApartment)
	assert.Equal(t, "9679", *det.ParsedLast4)
	assert.Equal(t, 0.85, det.Confidence)

	assert.InDelta(t, 10.0, det.BoundingBox.X, 1e-9)
	assert.InDelta(t, 20.0, det.BoundingBox.Y, 1e-9)
	assert.InDelta(t, 40.0, det.BoundingBox.Width, 1e-9)
	assert.InDelta(t, 40.0, det.BoundingBox.Height, 1e-9)
}

// TestNewDetection_MalformedApartment verifies demotion of an impossible unit code.
func TestNewDetection_MalformedApartment(t *testing.T) {
	reading := RawReading{
		RawText:    "gibberish",
		Apartment:  strPtr("HALLWAY"),
		Last4:      strPtr("9679"),
		Confidence: 0.4,
		Box:        [4]float64{0, 0, 0.5, 0.5},
	}

	det, err := NewDetection("d1", "p1", reading)
	require.NoError(t, err)
	assert.Nil(t, det.ParsedApartment)
	assert.Equal(t, "gibberish", det.RawText)
}

// TestNewDetection_Invalid verifies that a bad reading never becomes a detection.
func TestNewDetection_Invalid(t *testing.T) {
	reading := RawReading{
		Confidence: 2.0,
		Box:        [4]float64{0, 0, 0.5, 0.5},
	}

	_, err := NewDetection("d1", "p1", reading)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "confidence")
}

package domain

import (
	"fmt"
	"strings"

	manifest "github.com/Seryozh/logiscan/internal/features/manifest/domain"
)

// RawReading is one record from a vision oracle, expressed in the oracle's
// native coordinates: a normalized [x_min, y_min, x_max, y_max] box in 0–1
// units. It is validated and converted at this boundary so the matcher only
// ever sees well-formed Detection records.
type RawReading struct {
	// RawText is everything the oracle read on the sticker.
	RawText string `json:"raw_text"`
	// Apartment is the extracted unit code, nil if unreadable.
	Apartment *string `json:"apartment"`
	// Last4 is the extracted 4-character tracking suffix, nil if unreadable.
	Last4 *string `json:"last4"`
	// Date is an auxiliary extracted field.
	Date *string `json:"date"`
	// Initials is an auxiliary extracted field.
	Initials *string `json:"initials"`
	// Confidence is the oracle's confidence in [0,1].
	Confidence float64 `json:"confidence"`
	// Box is [x_min, y_min, x_max, y_max] in normalized 0–1 coordinates.
	Box [4]float64 `json:"box"`
}

// Validate rejects structurally impossible readings before they enter the core.
func (r RawReading) Validate() error {
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", r.Confidence)
	}
	for i, v := range r.Box {
		if v < 0 || v > 1 {
			return fmt.Errorf("box coordinate %d out of range: %v", i, v)
		}
	}
	if r.Box[0] >= r.Box[2] || r.Box[1] >= r.Box[3] {
		return fmt.Errorf("degenerate bounding box: %v", r.Box)
	}
	if r.Last4 != nil && len(*r.Last4) != 4 {
		return fmt.Errorf("last4 must be exactly 4 characters, got %q", *r.Last4)
	}
	return nil
}

// NewDetection validates a raw reading and converts it into a Detection for
// the given photo. The apartment code is uppercased; one that does not fit
// the unit-code shape is demoted to nil so matching classifies the detection
// as unreadable instead of chasing an impossible key.
func NewDetection(id, photoID string, r RawReading) (Detection, error) {
	if err := r.Validate(); err != nil {
		return Detection{}, err
	}

	det := Detection{
		ID:          id,
		PhotoID:     photoID,
		BoundingBox: normalizeBox(r.Box),
		RawText:     r.RawText,
		ParsedLast4: cloneStringPtr(r.Last4),
		ParsedDate:  cloneStringPtr(r.Date),
		ParsedInitials: cloneStringPtr(r.Initials),
		Confidence:  r.Confidence,
		Notes:       make([]string, 0),
	}

	if r.Apartment != nil {
		apartment := strings.ToUpper(strings.TrimSpace(*r.Apartment))
		if manifest.ValidApartment(apartment) {
			det.ParsedApartment = &apartment
		}
	}

	return det, nil
}

// normalizeBox converts a 0–1 [x_min, y_min, x_max, y_max] box into a
// percentage-of-image {x, y, width, height} box.
func normalizeBox(box [4]float64) BoundingBox {
	return BoundingBox{
		X:      box[0] * 100,
		Y:      box[1] * 100,
		Width:  (box[2] - box[0]) * 100,
		Height: (box[3] - box[1]) * 100,
	}
}

package domain

import (
	manifest "github.com/Seryozh/logiscan/internal/features/manifest/domain"
)

// DetectionStatus is the classification a sticker reading receives from matching.
type DetectionStatus string

const (
	// DetectionStatusMatched indicates the reading claimed exactly one pending package.
	DetectionStatusMatched DetectionStatus = "matched"
	// DetectionStatusDuplicate indicates the reading's combo was already claimed.
	DetectionStatusDuplicate DetectionStatus = "duplicate"
	// DetectionStatusOrphan indicates no pending package carries the reading's combo.
	DetectionStatusOrphan DetectionStatus = "orphan"
	// DetectionStatusUnreadable indicates the oracle could not read the apartment or tail.
	DetectionStatusUnreadable DetectionStatus = "unreadable"
	// DetectionStatusAmbiguous indicates more than one pending package carries the combo.
	DetectionStatusAmbiguous DetectionStatus = "ambiguous"
)

// Valid reports whether the status is one of the five classifications.
func (s DetectionStatus) Valid() bool {
	switch s {
	case DetectionStatusMatched, DetectionStatusDuplicate, DetectionStatusOrphan,
		DetectionStatusUnreadable, DetectionStatusAmbiguous:
		return true
	}
	return false
}

// BoundingBox is an axis-aligned box in percentage-of-image units (0–100).
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one sticker reading extracted from one photo.
type Detection struct {
	// ID is the opaque unique identifier.
	ID string `json:"id"`
	// PhotoID references the source photo; detections do not own photos.
	PhotoID string `json:"photo_id"`
	// BoundingBox locates the sticker within the photo.
	BoundingBox BoundingBox `json:"bounding_box"`
	// RawText is the full text the oracle read, kept verbatim for audit.
	RawText string `json:"raw_text"`
	// ParsedApartment is the extracted unit code; nil when unreadable.
	ParsedApartment *string `json:"parsed_apartment"`
	// ParsedLast4 is the extracted 4-character tracking suffix; nil when unreadable.
	ParsedLast4 *string `json:"parsed_last4"`
	// ParsedDate is an auxiliary field, never used in matching.
	ParsedDate *string `json:"parsed_date"`
	// ParsedInitials is an auxiliary field, never used in matching.
	ParsedInitials *string `json:"parsed_initials"`
	// Confidence is the oracle's confidence in [0,1]; a human correction sets 1.0.
	Confidence float64 `json:"confidence"`
	// MatchedPackageID references the claimed package; empty when unmatched.
	MatchedPackageID string `json:"matched_package_id,omitempty"`
	// Status is the matching classification.
	Status DetectionStatus `json:"status"`
	// Notes is an append-only annotation trail: oracle, then algorithm, then human.
	Notes []string `json:"notes"`
}

// ComboKey returns the reading's matching key. ok is false when either half
// is missing. A read suffix is always a literal value, so a sticker that
// happens to say "NONE" keys differently than a no-tracking manifest entry.
func (d Detection) ComboKey() (string, bool) {
	if d.ParsedApartment == nil || d.ParsedLast4 == nil {
		return "", false
	}
	return manifest.ComboKey(*d.ParsedApartment, manifest.TrackingTail{Last4: *d.ParsedLast4}), true
}

// AppendNote adds a note to the trail unless the exact text is already
// present. Notes are never overwritten or removed.
func (d *Detection) AppendNote(note string) {
	for _, existing := range d.Notes {
		if existing == note {
			return
		}
	}
	d.Notes = append(d.Notes, note)
}

// Clone returns a deep copy. Pointer fields and the note trail are copied so
// mutating the clone can never touch the original.
func (d Detection) Clone() Detection {
	out := d
	out.ParsedApartment = cloneStringPtr(d.ParsedApartment)
	out.ParsedLast4 = cloneStringPtr(d.ParsedLast4)
	out.ParsedDate = cloneStringPtr(d.ParsedDate)
	out.ParsedInitials = cloneStringPtr(d.ParsedInitials)
	if d.Notes != nil {
		out.Notes = make([]string, len(d.Notes))
		copy(out.Notes, d.Notes)
	}
	return out
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

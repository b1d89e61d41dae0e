package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// PackageStatus represents the lifecycle state of an expected package.
type PackageStatus string

const (
	// PackageStatusPending indicates the package was imported but not yet sighted.
	PackageStatusPending PackageStatus = "pending"
	// PackageStatusFound indicates a sticker detection matched this package.
	PackageStatusFound PackageStatus = "found"
	// PackageStatusVerified indicates a human confirmed the match.
	PackageStatusVerified PackageStatus = "verified"
	// PackageStatusNotFound indicates the package never arrived (end-of-session sweep).
	PackageStatusNotFound PackageStatus = "not_found"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s PackageStatus) Valid() bool {
	switch s {
	case PackageStatusPending, PackageStatusFound, PackageStatusVerified, PackageStatusNotFound:
		return true
	}
	return false
}

// NoTrackingDisplay is the literal rendered for entries that have no tracking number.
const NoTrackingDisplay = "NONE"

// UnknownRecipient is the placeholder used when a manifest line names nobody.
const UnknownRecipient = "UNKNOWN RECIPIENT"

var apartmentPattern = regexp.MustCompile(`^[A-Z]\d{2}[A-Z]$`)

// ValidApartment reports whether s is a well-formed unit code
// (one letter, two digits, one letter, uppercase).
func ValidApartment(s string) bool {
	return apartmentPattern.MatchString(s)
}

// TrackingTail is the last four characters of a tracking code, or the explicit
// absence of one. The no-tracking case is a tagged variant rather than a
// reserved string, so a tracking code that genuinely ends in "NONE" can never
// be mistaken for a no-tracking entry.
type TrackingTail struct {
	// Last4 is the final four characters of the tracking code, case preserved.
	Last4 string `json:"last4,omitempty"`
	// None is true when the manifest explicitly states no tracking number exists.
	None bool `json:"none,omitempty"`
}

// NewTrackingTail builds a tail from a full tracking token.
// The token must be at least four characters long.
func NewTrackingTail(token string) (TrackingTail, error) {
	if len(token) < 4 {
		return TrackingTail{}, fmt.Errorf("tracking number too short: %q", token)
	}
	return TrackingTail{Last4: token[len(token)-4:]}, nil
}

// TailFromLast4 builds a tail directly from an already-extracted 4-character suffix.
func TailFromLast4(last4 string) (TrackingTail, error) {
	if len(last4) != 4 {
		return TrackingTail{}, fmt.Errorf("tracking suffix must be 4 characters, got %q", last4)
	}
	return TrackingTail{Last4: last4}, nil
}

// NoTrackingTail returns the tail for an entry with no tracking number.
func NoTrackingTail() TrackingTail {
	return TrackingTail{None: true}
}

// IsNone reports whether this tail marks a no-tracking entry.
func (t TrackingTail) IsNone() bool {
	return t.None
}

// String renders the tail for display and export.
func (t TrackingTail) String() string {
	if t.None {
		return NoTrackingDisplay
	}
	return t.Last4
}

// Key returns a collision-free representation for use in combo keys.
// The no-tracking marker is longer than four characters, so it cannot
// collide with any real last-4 suffix.
func (t TrackingTail) Key() string {
	if t.None {
		return "<no-tracking>"
	}
	return t.Last4
}

// Package represents one expected delivery sourced from the manifest.
type Package struct {
	// ID is the opaque unique identifier, assigned at parse time.
	ID string `json:"id"`
	// Apartment is the destination unit code, uppercase.
	Apartment string `json:"apartment"`
	// TrackingTail is the matching half of the combo key.
	TrackingTail TrackingTail `json:"tracking_tail"`
	// Carrier is the shipping carrier name, uppercase, informational only.
	Carrier string `json:"carrier"`
	// Recipient is the addressee name, informational only.
	Recipient string `json:"recipient"`
	// FullTracking is the complete tracking string (or the literal no-tracking phrase).
	FullTracking string `json:"full_tracking"`
	// ImportedAt is when the manifest line was parsed.
	ImportedAt time.Time `json:"imported_at"`
	// Status is the lifecycle state of this package.
	Status PackageStatus `json:"status"`
}

// ComboKey returns the (apartment, tracking tail) pair as a single map key.
func (p Package) ComboKey() string {
	return ComboKey(p.Apartment, p.TrackingTail)
}

// ComboKey joins an apartment code and tracking tail into a single map key.
func ComboKey(apartment string, tail TrackingTail) string {
	return apartment + "|" + tail.Key()
}

// ParsingError describes one manifest line that could not be imported.
type ParsingError struct {
	// LineNumber is the 1-based position of the failing line.
	LineNumber int `json:"line_number"`
	// Line is the original (trimmed) line text.
	Line string `json:"line"`
	// Reason identifies which parsing stage failed and why.
	Reason string `json:"reason"`
}

// Error implements the error interface.
func (e ParsingError) Error() string {
	return fmt.Sprintf("line %d: %s", e.LineNumber, e.Reason)
}

// NormalizeCarrier uppercases and trims a carrier name for display consistency.
func NormalizeCarrier(carrier string) string {
	return strings.ToUpper(strings.TrimSpace(carrier))
}

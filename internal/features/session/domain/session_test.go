package domain

import (
	"testing"
	"time"

	detection "github.com/Seryozh/logiscan/internal/features/detection/domain"
	manifest "github.com/Seryozh/logiscan/internal/features/manifest/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)

func sessionFixture() *Session {
	s := NewSession("s1", t0)
	s.Packages = []manifest.Package{
		{ID: "p1", Apartment: "C01K", TrackingTail: manifest.TrackingTail{Last4: "1234"}, Status: manifest.PackageStatusFound},
		{ID: "p2", Apartment: "C02K", TrackingTail: manifest.TrackingTail{Last4: "5678"}, Status: manifest.PackageStatusPending},
	}
	s.Photos = []Photo{{ID: "ph1", TakenAt: t0, Provider: "http", DetectionCount: 1}}
	s.Detections = []detection.Detection{
		{ID: "d1", PhotoID: "ph1", Status: detection.DetectionStatusMatched, MatchedPackageID: "p1"},
	}
	return s
}

// TestNewSession verifies the empty document shape.
func TestNewSession(t *testing.T) {
	s := NewSession("s1", t0)

	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, int64(1), s.Version)
	assert.Equal(t, t0, s.CreatedAt)
	assert.NotNil(t, s.Packages)
	assert.NotNil(t, s.Photos)
	assert.NotNil(t, s.Detections)
}

// TestSession_Clone verifies deep copy semantics.
func TestSession_Clone(t *testing.T) {
	s := sessionFixture()
	clone := s.Clone()

	clone.Packages[0].Status = manifest.PackageStatusNotFound
	clone.Detections[0].AppendNote("clone note")

	assert.Equal(t, manifest.PackageStatusFound, s.Packages[0].Status)
	assert.Empty(t, s.Detections[0].Notes)
}

// TestSession_MutationsAreSnapshots verifies that every mutation returns a
// fresh value with a bumped version and leaves the source untouched.
func TestSession_MutationsAreSnapshots(t *testing.T) {
	s := sessionFixture()
	later := t0.Add(time.Minute)

	next := s.WithCollections(s.Packages, s.Detections, later)

	assert.Equal(t, s.Version+1, next.Version)
	assert.Equal(t, later, next.UpdatedAt)
	assert.Equal(t, t0, s.UpdatedAt)
}

// TestSession_WithPhoto verifies photo and detection appending.
func TestSession_WithPhoto(t *testing.T) {
	s := sessionFixture()

	next := s.WithPhoto(
		Photo{ID: "ph2", TakenAt: t0, Provider: "tesseract", DetectionCount: 1},
		[]detection.Detection{{ID: "d2", PhotoID: "ph2"}},
		t0.Add(time.Minute),
	)

	assert.Len(t, next.Photos, 2)
	assert.Len(t, next.Detections, 2)
	assert.Len(t, s.Photos, 1)

	dets := next.PhotoDetections("ph2")
	require.Len(t, dets, 1)
	assert.Equal(t, "d2", dets[0].ID)
}

// TestSession_WithoutPhoto verifies the cascade delete and match release.
func TestSession_WithoutPhoto(t *testing.T) {
	s := sessionFixture()

	next, ok := s.WithoutPhoto("ph1", t0.Add(time.Minute))
	require.True(t, ok)

	assert.Empty(t, next.Photos)
	assert.Empty(t, next.Detections)

	pkg, found := next.Package("p1")
	require.True(t, found)
	assert.Equal(t, manifest.PackageStatusPending, pkg.Status)

	// Source untouched.
	assert.Len(t, s.Detections, 1)
}

// TestSession_WithoutPhoto_VerifiedStays verifies that deleting a photo does
// not revoke a human confirmation.
func TestSession_WithoutPhoto_VerifiedStays(t *testing.T) {
	s := sessionFixture()
	s.Packages[0].Status = manifest.PackageStatusVerified

	next, ok := s.WithoutPhoto("ph1", t0.Add(time.Minute))
	require.True(t, ok)

	pkg, _ := next.Package("p1")
	assert.Equal(t, manifest.PackageStatusVerified, pkg.Status)
}

// TestSession_WithoutPhoto_Missing verifies the unknown-photo path.
func TestSession_WithoutPhoto_Missing(t *testing.T) {
	s := sessionFixture()

	_, ok := s.WithoutPhoto("nope", t0)
	assert.False(t, ok)
}

// TestSession_WithVerifiedPackage verifies the found-to-verified transition.
func TestSession_WithVerifiedPackage(t *testing.T) {
	s := sessionFixture()

	next, ok := s.WithVerifiedPackage("p1", t0.Add(time.Minute))
	require.True(t, ok)

	pkg, _ := next.Package("p1")
	assert.Equal(t, manifest.PackageStatusVerified, pkg.Status)

	// Still pending: not verifiable.
	_, ok = s.WithVerifiedPackage("p2", t0)
	assert.False(t, ok)

	_, ok = s.WithVerifiedPackage("missing", t0)
	assert.False(t, ok)
}

// TestSession_WithSweep verifies the end-of-session sweep.
func TestSession_WithSweep(t *testing.T) {
	s := sessionFixture()

	next, swept := s.WithSweep(t0.Add(time.Hour))

	assert.Equal(t, 1, swept)
	p1, _ := next.Package("p1")
	p2, _ := next.Package("p2")
	assert.Equal(t, manifest.PackageStatusFound, p1.Status)
	assert.Equal(t, manifest.PackageStatusNotFound, p2.Status)
}

// TestSession_Lookups verifies the accessor helpers.
func TestSession_Lookups(t *testing.T) {
	s := sessionFixture()

	_, ok := s.Detection("d1")
	assert.True(t, ok)
	_, ok = s.Detection("missing")
	assert.False(t, ok)

	_, ok = s.Photo("ph1")
	assert.True(t, ok)
	_, ok = s.Photo("missing")
	assert.False(t, ok)
}

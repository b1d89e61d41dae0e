package domain

import (
	"time"

	detection "github.com/Seryozh/logiscan/internal/features/detection/domain"
	manifest "github.com/Seryozh/logiscan/internal/features/manifest/domain"
)

// Photo is the metadata of one processed photograph. Image bytes live with
// the capture pipeline, not in the session document.
type Photo struct {
	// ID is the opaque unique identifier.
	ID string `json:"id"`
	// TakenAt is when the photo was ingested.
	TakenAt time.Time `json:"taken_at"`
	// Provider names the vision backend that read the photo.
	Provider string `json:"provider"`
	// DetectionCount is how many readings survived boundary validation.
	DetectionCount int `json:"detection_count"`
	// QuarantinedCount is how many oracle readings were rejected as malformed.
	QuarantinedCount int `json:"quarantined_count"`
}

// Session is the whole scanning session as a single versioned document:
// expected packages, processed photos and their detections. Every mutation
// computes a new value from the old one; the storage layer only ever holds
// the latest snapshot.
type Session struct {
	// ID is the opaque unique identifier.
	ID string `json:"id"`
	// CreatedAt is when the session was opened.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the last mutation was applied.
	UpdatedAt time.Time `json:"updated_at"`
	// Version increments on every mutation.
	Version int64 `json:"version"`

	Packages   []manifest.Package    `json:"packages"`
	Photos     []Photo               `json:"photos"`
	Detections []detection.Detection `json:"detections"`
}

// NewSession creates an empty session document.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
		Packages:   make([]manifest.Package, 0),
		Photos:     make([]Photo, 0),
		Detections: make([]detection.Detection, 0),
	}
}

// Clone returns a deep copy of the document.
func (s *Session) Clone() *Session {
	out := *s

	out.Packages = make([]manifest.Package, len(s.Packages))
	copy(out.Packages, s.Packages)

	out.Photos = make([]Photo, len(s.Photos))
	copy(out.Photos, s.Photos)

	out.Detections = make([]detection.Detection, len(s.Detections))
	for i, d := range s.Detections {
		out.Detections[i] = d.Clone()
	}

	return &out
}

// next returns a clone with the version bumped and the update time set.
// All mutating methods build on it.
func (s *Session) next(now time.Time) *Session {
	out := s.Clone()
	out.Version++
	out.UpdatedAt = now
	return out
}

// WithCollections returns a new snapshot carrying the given package and
// detection collections wholesale. Used to apply a match result.
func (s *Session) WithCollections(packages []manifest.Package, detections []detection.Detection, now time.Time) *Session {
	out := s.next(now)
	out.Packages = packages
	out.Detections = detections
	return out
}

// WithPhoto returns a new snapshot with the photo and its detections appended.
func (s *Session) WithPhoto(photo Photo, detections []detection.Detection, now time.Time) *Session {
	out := s.next(now)
	out.Photos = append(out.Photos, photo)
	out.Detections = append(out.Detections, detections...)
	return out
}

// WithoutPhoto returns a new snapshot with the photo and every detection it
// owns removed. Packages found solely through those detections go back to
// pending; verified packages keep their human confirmation.
func (s *Session) WithoutPhoto(photoID string, now time.Time) (*Session, bool) {
	found := false
	out := s.next(now)

	photos := out.Photos[:0]
	for _, p := range out.Photos {
		if p.ID == photoID {
			found = true
			continue
		}
		photos = append(photos, p)
	}
	out.Photos = photos

	if !found {
		return nil, false
	}

	released := make(map[string]bool)
	detections := make([]detection.Detection, 0, len(out.Detections))
	for _, d := range out.Detections {
		if d.PhotoID != photoID {
			detections = append(detections, d)
			continue
		}
		if d.MatchedPackageID != "" {
			released[d.MatchedPackageID] = true
		}
	}
	out.Detections = detections

	for i := range out.Packages {
		pkg := &out.Packages[i]
		if released[pkg.ID] && pkg.Status == manifest.PackageStatusFound {
			pkg.Status = manifest.PackageStatusPending
		}
	}

	return out, true
}

// WithVerifiedPackage returns a new snapshot with the package promoted from
// found to verified. ok is false when the package is missing or not found-state.
func (s *Session) WithVerifiedPackage(packageID string, now time.Time) (*Session, bool) {
	out := s.next(now)
	for i := range out.Packages {
		pkg := &out.Packages[i]
		if pkg.ID != packageID {
			continue
		}
		if pkg.Status != manifest.PackageStatusFound {
			return nil, false
		}
		pkg.Status = manifest.PackageStatusVerified
		return out, true
	}
	return nil, false
}

// WithSweep returns a new snapshot with every still-pending package marked
// not_found, and how many were swept.
func (s *Session) WithSweep(now time.Time) (*Session, int) {
	out := s.next(now)
	swept := 0
	for i := range out.Packages {
		if out.Packages[i].Status == manifest.PackageStatusPending {
			out.Packages[i].Status = manifest.PackageStatusNotFound
			swept++
		}
	}
	return out, swept
}

// Package returns the package with the given id.
func (s *Session) Package(id string) (manifest.Package, bool) {
	for _, p := range s.Packages {
		if p.ID == id {
			return p, true
		}
	}
	return manifest.Package{}, false
}

// Detection returns the detection with the given id.
func (s *Session) Detection(id string) (detection.Detection, bool) {
	for _, d := range s.Detections {
		if d.ID == id {
			return d, true
		}
	}
	return detection.Detection{}, false
}

// Photo returns the photo with the given id.
func (s *Session) Photo(id string) (Photo, bool) {
	for _, p := range s.Photos {
		if p.ID == id {
			return p, true
		}
	}
	return Photo{}, false
}

// PhotoDetections returns the detections owned by one photo, in input order.
func (s *Session) PhotoDetections(photoID string) []detection.Detection {
	out := make([]detection.Detection, 0)
	for _, d := range s.Detections {
		if d.PhotoID == photoID {
			out = append(out, d.Clone())
		}
	}
	return out
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Seryozh/logiscan/internal/core/logger"
	detection "github.com/Seryozh/logiscan/internal/features/detection/domain"
	"github.com/Seryozh/logiscan/internal/features/detection/matcher"
	visionports "github.com/Seryozh/logiscan/internal/features/detection/ports"
	manifest "github.com/Seryozh/logiscan/internal/features/manifest/domain"
	"github.com/Seryozh/logiscan/internal/features/manifest/parser"
	"github.com/Seryozh/logiscan/internal/features/session/domain"
	"github.com/Seryozh/logiscan/internal/features/session/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is returned when the session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrPhotoNotFound is returned when the photo does not exist in the session.
	ErrPhotoNotFound = errors.New("photo not found")
	// ErrDetectionNotFound is returned when the detection does not exist in the session.
	ErrDetectionNotFound = errors.New("detection not found")
	// ErrPackageNotFound is returned when the package does not exist in the session.
	ErrPackageNotFound = errors.New("package not found")
	// ErrPackageNotVerifiable is returned when verifying a package that is not in found state.
	ErrPackageNotVerifiable = errors.New("package is not in found state")
	// ErrInvalidCorrection is returned when a human correction carries malformed fields.
	ErrInvalidCorrection = errors.New("invalid correction")
	// ErrVisionFailure is returned when the vision oracle cannot process a photo.
	ErrVisionFailure = errors.New("vision oracle failed")
)

// Correction carries the human-editable fields of a detection. Nil leaves a
// field unchanged; an empty string marks it unreadable.
type Correction struct {
	Apartment *string `json:"apartment"`
	Last4     *string `json:"last4"`
	Note      string  `json:"note"`
}

// SessionService orchestrates the scanning workflow: manifest import, photo
// ingestion through the vision oracle, matching, corrections and lifecycle
// transitions. Mutations are serialized per session and applied as whole
// document snapshots.
type SessionService struct {
	repo   ports.SessionRepository
	vision visionports.VisionProvider
	parser *parser.Parser
	logger *zap.Logger

	locks sync.Map

	now   func() time.Time
	newID func() string
}

// NewSessionService creates a new SessionService.
func NewSessionService(repo ports.SessionRepository, vision visionports.VisionProvider, p *parser.Parser) *SessionService {
	return &SessionService{
		repo:   repo,
		vision: vision,
		parser: p,
		logger: logger.Named("session"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

func (s *SessionService) lockSession(id string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (s *SessionService) load(ctx context.Context, id string) (*domain.Session, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// CreateSession opens an empty session.
func (s *SessionService) CreateSession(ctx context.Context) (*domain.Session, error) {
	session := domain.NewSession(s.newID(), s.now())

	if err := s.repo.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("service: failed to save session: %w", err)
	}

	s.logger.Info("Session created", zap.String("session_id", session.ID))
	return session, nil
}

// GetSession returns the full session document.
func (s *SessionService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return s.load(ctx, id)
}

// DeleteSession removes the session document.
func (s *SessionService) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service: failed to delete session: %w", err)
	}

	s.logger.Info("Session deleted", zap.String("session_id", id))
	return nil
}

// ImportManifest parses raw manifest text, replaces the package collection
// wholesale and re-matches every detection against the new packages. Line
// diagnostics are returned alongside the updated session; a manifest full of
// bad lines is a partial success, not a failure.
func (s *SessionService) ImportManifest(ctx context.Context, id, rawText string) (*domain.Session, []manifest.ParsingError, error) {
	mu := s.lockSession(id)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	parsed := s.parser.Parse(rawText)

	detections := make([]detection.Detection, len(session.Detections))
	for i, d := range session.Detections {
		det := d.Clone()
		det.Status = ""
		det.MatchedPackageID = ""
		detections[i] = det
	}

	result := matcher.Match(parsed.Packages, detections)

	next := session.WithCollections(result.Packages, result.Detections, s.now())
	if err := s.repo.Save(ctx, next); err != nil {
		return nil, nil, fmt.Errorf("service: failed to save session: %w", err)
	}

	s.logger.Info("Manifest imported",
		zap.String("session_id", id),
		zap.Int("packages", len(parsed.Packages)),
		zap.Int("line_errors", len(parsed.Errors)),
	)

	return next, parsed.Errors, nil
}

// AddPhoto runs the vision oracle over one photograph, quarantines malformed
// readings at the boundary, matches the surviving detections in reading order
// and persists the new snapshot.
func (s *SessionService) AddPhoto(ctx context.Context, id string, image []byte) (*domain.Session, domain.Photo, error) {
	mu := s.lockSession(id)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.load(ctx, id)
	if err != nil {
		return nil, domain.Photo{}, err
	}

	readings, err := s.vision.ExtractReadings(ctx, image)
	if err != nil {
		return nil, domain.Photo{}, fmt.Errorf("%w: %v", ErrVisionFailure, err)
	}

	photo := domain.Photo{
		ID:       s.newID(),
		TakenAt:  s.now(),
		Provider: s.vision.Name(),
	}

	detections := make([]detection.Detection, 0, len(readings))
	for _, r := range readings {
		det, err := detection.NewDetection(s.newID(), photo.ID, r)
		if err != nil {
			photo.QuarantinedCount++
			s.logger.Warn("Quarantined oracle reading",
				zap.String("session_id", id),
				zap.String("photo_id", photo.ID),
				zap.Error(err),
			)
			continue
		}
		detections = append(detections, det)
	}
	photo.DetectionCount = len(detections)

	next := session.WithPhoto(photo, detections, s.now())
	result := matcher.Match(next.Packages, next.Detections)
	next.Packages = result.Packages
	next.Detections = result.Detections

	if err := s.repo.Save(ctx, next); err != nil {
		return nil, domain.Photo{}, fmt.Errorf("service: failed to save session: %w", err)
	}

	s.logger.Info("Photo processed",
		zap.String("session_id", id),
		zap.String("photo_id", photo.ID),
		zap.String("provider", photo.Provider),
		zap.Int("detections", photo.DetectionCount),
		zap.Int("quarantined", photo.QuarantinedCount),
	)

	return next, photo, nil
}

// CorrectDetection applies a human edit to one detection: the correction is
// fully trusted (confidence 1.0), any previous match is released, and the
// detection is re-matched with the claim set rebuilt from everything else.
func (s *SessionService) CorrectDetection(ctx context.Context, sessionID, detectionID string, correction Correction) (*domain.Session, error) {
	mu := s.lockSession(sessionID)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	work := session.Clone()

	idx := -1
	for i := range work.Detections {
		if work.Detections[i].ID == detectionID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrDetectionNotFound
	}

	det := &work.Detections[idx]

	if det.MatchedPackageID != "" {
		for i := range work.Packages {
			pkg := &work.Packages[i]
			if pkg.ID == det.MatchedPackageID && pkg.Status == manifest.PackageStatusFound {
				pkg.Status = manifest.PackageStatusPending
			}
		}
		det.MatchedPackageID = ""
	}
	det.Status = ""

	if correction.Apartment != nil {
		apartment := strings.ToUpper(strings.TrimSpace(*correction.Apartment))
		if apartment == "" {
			det.ParsedApartment = nil
		} else if !manifest.ValidApartment(apartment) {
			return nil, fmt.Errorf("%w: apartment %q", ErrInvalidCorrection, *correction.Apartment)
		} else {
			det.ParsedApartment = &apartment
		}
	}

	if correction.Last4 != nil {
		last4 := strings.TrimSpace(*correction.Last4)
		if last4 == "" {
			det.ParsedLast4 = nil
		} else if len(last4) != 4 {
			return nil, fmt.Errorf("%w: tracking suffix %q must be 4 characters", ErrInvalidCorrection, *correction.Last4)
		} else {
			det.ParsedLast4 = &last4
		}
	}

	det.Confidence = 1.0
	if correction.Note != "" {
		det.AppendNote(correction.Note)
	}

	result, err := matcher.RematchOne(work.Packages, work.Detections, detectionID)
	if err != nil {
		return nil, fmt.Errorf("service: rematch failed: %w", err)
	}

	next := session.WithCollections(result.Packages, result.Detections, s.now())
	if err := s.repo.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("service: failed to save session: %w", err)
	}

	s.logger.Info("Detection corrected",
		zap.String("session_id", sessionID),
		zap.String("detection_id", detectionID),
	)

	return next, nil
}

// DeletePhoto removes a photo and cascade-deletes its detections, releasing
// the matches they held.
func (s *SessionService) DeletePhoto(ctx context.Context, sessionID, photoID string) (*domain.Session, error) {
	mu := s.lockSession(sessionID)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	next, ok := session.WithoutPhoto(photoID, s.now())
	if !ok {
		return nil, ErrPhotoNotFound
	}

	if err := s.repo.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("service: failed to save session: %w", err)
	}

	s.logger.Info("Photo deleted",
		zap.String("session_id", sessionID),
		zap.String("photo_id", photoID),
	)

	return next, nil
}

// VerifyPackage promotes a found package to verified on explicit human confirmation.
func (s *SessionService) VerifyPackage(ctx context.Context, sessionID, packageID string) (*domain.Session, error) {
	mu := s.lockSession(sessionID)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	next, ok := session.WithVerifiedPackage(packageID, s.now())
	if !ok {
		if _, exists := session.Package(packageID); !exists {
			return nil, ErrPackageNotFound
		}
		return nil, ErrPackageNotVerifiable
	}

	if err := s.repo.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("service: failed to save session: %w", err)
	}

	return next, nil
}

// SweepSession marks every still-pending package not_found at end of session.
func (s *SessionService) SweepSession(ctx context.Context, sessionID string) (*domain.Session, int, error) {
	mu := s.lockSession(sessionID)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, 0, err
	}

	next, swept := session.WithSweep(s.now())

	if err := s.repo.Save(ctx, next); err != nil {
		return nil, 0, fmt.Errorf("service: failed to save session: %w", err)
	}

	s.logger.Info("Session swept",
		zap.String("session_id", sessionID),
		zap.Int("marked_not_found", swept),
	)

	return next, swept, nil
}

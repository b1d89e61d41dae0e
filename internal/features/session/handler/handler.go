package handler

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	manifest "github.com/Seryozh/logiscan/internal/features/manifest/domain"
	"github.com/Seryozh/logiscan/internal/features/session/domain"
	"github.com/Seryozh/logiscan/internal/features/session/service"

	"github.com/gofiber/fiber/v2"
)

// SessionHandler handles HTTP requests for scanning sessions.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// ImportResponse carries the updated session plus per-line manifest diagnostics.
type ImportResponse struct {
	Session *domain.Session         `json:"session"`
	Errors  []manifest.ParsingError `json:"errors"`
}

// PhotoResponse carries the updated session plus the photo that was ingested.
type PhotoResponse struct {
	Session *domain.Session `json:"session"`
	Photo   domain.Photo    `json:"photo"`
}

// SweepResponse carries the updated session plus the number of swept packages.
type SweepResponse struct {
	Session *domain.Session `json:"session"`
	Swept   int             `json:"swept"`
}

// RegisterRoutes mounts all session routes on the given router.
func (h *SessionHandler) RegisterRoutes(router fiber.Router) {
	sessions := router.Group("/sessions")
	sessions.Post("/", h.CreateSession)
	sessions.Get("/:id", h.GetSession)
	sessions.Delete("/:id", h.DeleteSession)
	sessions.Post("/:id/manifest", h.ImportManifest)
	sessions.Post("/:id/photos", h.AddPhoto)
	sessions.Delete("/:id/photos/:photoID", h.DeletePhoto)
	sessions.Patch("/:id/detections/:detectionID", h.CorrectDetection)
	sessions.Post("/:id/packages/:packageID/verify", h.VerifyPackage)
	sessions.Post("/:id/sweep", h.SweepSession)
	sessions.Get("/:id/export", h.ExportCSV)
}

func rayID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

func (h *SessionHandler) fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrPhotoNotFound),
		errors.Is(err, service.ErrDetectionNotFound),
		errors.Is(err, service.ErrPackageNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidCorrection):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrPackageNotVerifiable):
		status = fiber.StatusConflict
	case errors.Is(err, service.ErrVisionFailure):
		status = fiber.StatusBadGateway
	}

	return c.Status(status).JSON(ErrorResponse{
		Message: err.Error(),
		RayID:   rayID(c),
	})
}

// CreateSession godoc
// @Summary Open a new scanning session
// @Description Creates an empty session to import a manifest and scan photos into
// @Tags sessions
// @Produce json
// @Success 201 {object} domain.Session
// @Failure 500 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	session, err := h.sessionService.CreateSession(c.Context())
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

// GetSession godoc
// @Summary Get a scanning session
// @Description Retrieves the full session document: packages, photos and detections
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} domain.Session
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	session, err := h.sessionService.GetSession(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(session)
}

// DeleteSession godoc
// @Summary Delete a scanning session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [delete]
func (h *SessionHandler) DeleteSession(c *fiber.Ctx) error {
	if err := h.sessionService.DeleteSession(c.Context(), c.Params("id")); err != nil {
		return h.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ImportManifest godoc
// @Summary Import a manifest into the session
// @Description Parses raw manifest text from the request body, replaces the package list and re-matches detections. Unparseable lines are reported, not fatal.
// @Tags sessions
// @Accept plain
// @Produce json
// @Param id path string true "Session ID"
// @Param manifest body string true "Raw manifest text"
// @Success 200 {object} ImportResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/manifest [post]
func (h *SessionHandler) ImportManifest(c *fiber.Ctx) error {
	body := c.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "manifest text is required",
			RayID:   rayID(c),
		})
	}

	session, lineErrors, err := h.sessionService.ImportManifest(c.Context(), c.Params("id"), string(body))
	if err != nil {
		return h.fail(c, err)
	}

	if lineErrors == nil {
		lineErrors = []manifest.ParsingError{}
	}

	return c.JSON(ImportResponse{
		Session: session,
		Errors:  lineErrors,
	})
}

// AddPhoto godoc
// @Summary Scan a photo into the session
// @Description Runs the vision oracle over the uploaded image and matches the resulting detections against the package list
// @Tags sessions
// @Accept octet-stream
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} PhotoResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /sessions/{id}/photos [post]
func (h *SessionHandler) AddPhoto(c *fiber.Ctx) error {
	image := c.Body()
	if len(image) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "image body is required",
			RayID:   rayID(c),
		})
	}

	session, photo, err := h.sessionService.AddPhoto(c.Context(), c.Params("id"), image)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(PhotoResponse{
		Session: session,
		Photo:   photo,
	})
}

// DeletePhoto godoc
// @Summary Remove a photo from the session
// @Description Deletes a photo and its detections, releasing any packages they had matched
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param photoID path string true "Photo ID"
// @Success 200 {object} domain.Session
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/photos/{photoID} [delete]
func (h *SessionHandler) DeletePhoto(c *fiber.Ctx) error {
	session, err := h.sessionService.DeletePhoto(c.Context(), c.Params("id"), c.Params("photoID"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(session)
}

// CorrectDetection godoc
// @Summary Correct a detection by hand
// @Description Applies a human edit to a detection's apartment or tracking suffix and re-matches it
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param detectionID path string true "Detection ID"
// @Param correction body service.Correction true "Fields to correct"
// @Success 200 {object} domain.Session
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/detections/{detectionID} [patch]
func (h *SessionHandler) CorrectDetection(c *fiber.Ctx) error {
	var correction service.Correction
	if err := c.BodyParser(&correction); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: fmt.Sprintf("invalid correction body: %v", err),
			RayID:   rayID(c),
		})
	}

	session, err := h.sessionService.CorrectDetection(c.Context(), c.Params("id"), c.Params("detectionID"), correction)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(session)
}

// VerifyPackage godoc
// @Summary Verify a found package
// @Description Promotes a found package to verified on explicit confirmation
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param packageID path string true "Package ID"
// @Success 200 {object} domain.Session
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/packages/{packageID}/verify [post]
func (h *SessionHandler) VerifyPackage(c *fiber.Ctx) error {
	session, err := h.sessionService.VerifyPackage(c.Context(), c.Params("id"), c.Params("packageID"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(session)
}

// SweepSession godoc
// @Summary Sweep the session
// @Description Marks every still-pending package as not found at end of session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SweepResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/sweep [post]
func (h *SessionHandler) SweepSession(c *fiber.Ctx) error {
	session, swept, err := h.sessionService.SweepSession(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(SweepResponse{
		Session: session,
		Swept:   swept,
	})
}

// ExportCSV godoc
// @Summary Export the package list as CSV
// @Description Streams the session's packages with their final statuses as a CSV report
// @Tags sessions
// @Produce text/csv
// @Param id path string true "Session ID"
// @Success 200 {string} string "CSV report"
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/export [get]
func (h *SessionHandler) ExportCSV(c *fiber.Ctx) error {
	session, err := h.sessionService.GetSession(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"apartment", "tracking_tail", "carrier", "recipient", "full_tracking", "status", "imported_at"}); err != nil {
		return h.fail(c, err)
	}
	for _, pkg := range session.Packages {
		record := []string{
			pkg.Apartment,
			pkg.TrackingTail.String(),
			pkg.Carrier,
			pkg.Recipient,
			pkg.FullTracking,
			string(pkg.Status),
			pkg.ImportedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return h.fail(c, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return h.fail(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "session-"+session.ID+".csv"))
	return c.Send(buf.Bytes())
}

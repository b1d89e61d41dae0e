package adapters

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"regexp"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/Seryozh/logiscan/internal/core/logger"
	"github.com/Seryozh/logiscan/internal/features/detection/domain"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

var (
	lineApartmentRe = regexp.MustCompile(`(?i)\b[A-Z][0-9]{2}[A-Z]\b`)
	lineDateRe      = regexp.MustCompile(`\b\d{1,2}/\d{1,2}(?:/\d{2,4})?\b`)
	lineInitialsRe  = regexp.MustCompile(`\b[A-Z]{2,3}\b`)
	trackingTokenRe = regexp.MustCompile(`[A-Za-z0-9]{4,}`)
)

// TesseractAdapter implements the VisionProvider interface with a local
// Tesseract OCR engine. It is a fallback oracle for deployments without
// network access to a hosted vision service.
type TesseractAdapter struct {
	lang   string
	logger *zap.Logger
}

// NewTesseractAdapter creates a new TesseractAdapter for the given language pack.
func NewTesseractAdapter(lang string) *TesseractAdapter {
	return &TesseractAdapter{
		lang:   lang,
		logger: logger.Named("vision.tesseract"),
	}
}

// ExtractReadings OCRs the image and converts each recognized text line into
// a raw reading, with pixel boxes rescaled to the 0–1 oracle convention.
func (a *TesseractAdapter) ExtractReadings(ctx context.Context, img []byte) ([]domain.RawReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image has no extent: %dx%d", cfg.Width, cfg.Height)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(a.lang); err != nil {
		return nil, fmt.Errorf("failed to set OCR language %q: %w", a.lang, err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	readings := make([]domain.RawReading, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		readings = append(readings, lineToReading(text, box.Box, box.Confidence, cfg.Width, cfg.Height))
	}

	a.logger.Debug("OCR completed",
		zap.Int("lines", len(readings)),
		zap.String("lang", a.lang),
	)

	return readings, nil
}

// Name returns the configuration identifier of this provider.
func (a *TesseractAdapter) Name() string {
	return "tesseract"
}

// lineToReading extracts sticker fields from one OCR text line and rescales
// its pixel box into normalized 0–1 coordinates.
func lineToReading(text string, box image.Rectangle, confidence float64, width, height int) domain.RawReading {
	reading := domain.RawReading{
		RawText:    text,
		Confidence: clamp01(confidence / 100),
		Box:        normalizePixelBox(box, width, height),
	}

	if m := lineApartmentRe.FindString(text); m != "" {
		apartment := strings.ToUpper(m)
		reading.Apartment = &apartment
	}
	if m := lineDateRe.FindString(text); m != "" {
		date := m
		reading.Date = &date
	}
	if last4 := extractTrackingSuffix(text); last4 != "" {
		reading.Last4 = &last4
	}
	if initials := extractInitials(text, reading.Apartment); initials != "" {
		reading.Initials = &initials
	}

	return reading
}

// extractTrackingSuffix takes the last alphanumeric token of 4+ characters
// that contains a digit and is not the apartment code, and returns its tail.
func extractTrackingSuffix(text string) string {
	tokens := trackingTokenRe.FindAllString(text, -1)
	for i := len(tokens) - 1; i >= 0; i-- {
		token := tokens[i]
		if lineApartmentRe.MatchString(token) && len(token) == 4 {
			continue
		}
		if !strings.ContainsAny(token, "0123456789") {
			continue
		}
		return token[len(token)-4:]
	}
	return ""
}

// extractInitials returns the first short all-caps token that is not the
// apartment code.
func extractInitials(text string, apartment *string) string {
	for _, m := range lineInitialsRe.FindAllString(text, -1) {
		if apartment != nil && m == *apartment {
			continue
		}
		return m
	}
	return ""
}

// normalizePixelBox rescales a pixel rectangle into [x_min, y_min, x_max, y_max]
// 0–1 coordinates, clamped to the image bounds.
func normalizePixelBox(box image.Rectangle, width, height int) [4]float64 {
	return [4]float64{
		clamp01(float64(box.Min.X) / float64(width)),
		clamp01(float64(box.Min.Y) / float64(height)),
		clamp01(float64(box.Max.X) / float64(width)),
		clamp01(float64(box.Max.Y) / float64(height)),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

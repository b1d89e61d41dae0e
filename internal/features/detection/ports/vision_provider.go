package ports

import (
	"context"

	"github.com/Seryozh/logiscan/internal/features/detection/domain"
)

// VisionProvider defines the interface for sticker-reading oracle implementations.
type VisionProvider interface {
	// ExtractReadings runs the oracle over one photograph and returns every
	// sticker reading it produced, in the oracle's native coordinates.
	ExtractReadings(ctx context.Context, image []byte) ([]domain.RawReading, error)
	// Name returns the provider identifier used in configuration.
	Name() string
}

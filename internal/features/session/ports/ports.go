package ports

import (
	"context"

	"github.com/Seryozh/logiscan/internal/features/session/domain"
)

// SessionRepository defines the secondary port for session persistence.
// Save always stores the whole document; partial patches are not expressible.
type SessionRepository interface {
	// Save stores the full session document, replacing any previous snapshot.
	Save(ctx context.Context, session *domain.Session) error
	// Get retrieves a session document by id, or (nil, nil) if absent.
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Delete removes a session document by id.
	Delete(ctx context.Context, id string) error
}

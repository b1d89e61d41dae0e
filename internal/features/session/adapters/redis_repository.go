package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Seryozh/logiscan/internal/core/cache"
	"github.com/Seryozh/logiscan/internal/features/session/domain"
)

const sessionKeyPrefix = "scan_session:"

// RedisSessionRepository implements ports.SessionRepository on top of the
// cache port. Sessions are stored as whole JSON documents with a sliding TTL.
type RedisSessionRepository struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewRedisSessionRepository creates a new RedisSessionRepository.
// A ttl of 0 keeps sessions until explicitly deleted.
func NewRedisSessionRepository(c cache.Cache, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{
		cache: c,
		ttl:   ttl,
	}
}

// Save stores the session document, replacing any previous snapshot.
func (r *RedisSessionRepository) Save(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.cache.Set(ctx, sessionKeyPrefix+session.ID, data, r.ttl); err != nil {
		return fmt.Errorf("failed to save session to cache: %w", err)
	}

	return nil
}

// Get retrieves the session document, or (nil, nil) when it does not exist.
func (r *RedisSessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := r.cache.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session from cache: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// Delete removes the session document.
func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.cache.Delete(ctx, sessionKeyPrefix+id); err != nil {
		return fmt.Errorf("failed to delete session from cache: %w", err)
	}
	return nil
}

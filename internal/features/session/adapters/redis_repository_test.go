package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/Seryozh/logiscan/internal/core/cache"
	manifest "github.com/Seryozh/logiscan/internal/features/manifest/domain"
	"github.com/Seryozh/logiscan/internal/features/session/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, ttl time.Duration) (*RedisSessionRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	adapter, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	return NewRedisSessionRepository(adapter, ttl), mr
}

// TestRedisSessionRepository_SaveGet verifies the JSON round trip.
func TestRedisSessionRepository_SaveGet(t *testing.T) {
	repo, _ := newTestRepository(t, 0)
	ctx := context.Background()

	session := domain.NewSession("s1", time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC))
	session.Packages = []manifest.Package{
		{
			ID:           "p1",
			Apartment:    "C01K",
			TrackingTail: manifest.TrackingTail{Last4: "9679"},
			Carrier:      "UPS",
			Status:       manifest.PackageStatusPending,
		},
		{
			ID:           "p2",
			Apartment:    "C02K",
			TrackingTail: manifest.NoTrackingTail(),
			Status:       manifest.PackageStatusPending,
		},
	}

	require.NoError(t, repo.Save(ctx, session))

	loaded, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, session.ID, loaded.ID)
	assert.Equal(t, session.Version, loaded.Version)
	require.Len(t, loaded.Packages, 2)
	assert.Equal(t, "9679", loaded.Packages[0].TrackingTail.Last4)
	// The tagged no-tracking variant survives persistence.
	assert.True(t, loaded.Packages[1].TrackingTail.IsNone())
	assert.Empty(t, loaded.Packages[1].TrackingTail.Last4)
}

// TestRedisSessionRepository_GetMissing verifies the absent-session contract.
func TestRedisSessionRepository_GetMissing(t *testing.T) {
	repo, _ := newTestRepository(t, 0)

	loaded, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

// TestRedisSessionRepository_Delete verifies removal.
func TestRedisSessionRepository_Delete(t *testing.T) {
	repo, _ := newTestRepository(t, 0)
	ctx := context.Background()

	session := domain.NewSession("s1", time.Now())
	require.NoError(t, repo.Save(ctx, session))

	require.NoError(t, repo.Delete(ctx, "s1"))

	loaded, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

// TestRedisSessionRepository_TTL verifies session expiry.
func TestRedisSessionRepository_TTL(t *testing.T) {
	repo, mr := newTestRepository(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.NewSession("s1", time.Now())))

	mr.FastForward(2 * time.Hour)

	loaded, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

package database

import (
	"context"
	"sync"
	"testing"

	"nfl-pickem-live/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryScorerRegistryConcurrentClaims(t *testing.T) {
	t.Parallel()

	registry := NewMemoryScorerRegistry()
	const callers = 64

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(week int) {
			defer wg.Done()
			<-start
			err := registry.Claim(context.Background(), 7, 2025, "player-x", week)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if apperror.KindOf(err) == apperror.KindConflict {
				conflicts++
			}
		}(i%18 + 1)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, callers-1, conflicts)
}

func TestMemoryScorerRegistryScopedPerUserSeason(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := NewMemoryScorerRegistry()

	require.NoError(t, registry.Claim(ctx, 1, 2025, "player-x", 3))
	require.NoError(t, registry.Claim(ctx, 2, 2025, "player-x", 3), "other users are independent")
	require.NoError(t, registry.Claim(ctx, 1, 2024, "player-x", 3), "other seasons are independent")
	require.NoError(t, registry.Claim(ctx, 1, 2025, "player-y", 4), "a new player each week is fine")

	err := registry.Claim(ctx, 1, 2025, "player-x", 4)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
}

func TestMemoryScorerRegistryReleaseFreesSlot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := NewMemoryScorerRegistry()

	require.NoError(t, registry.Claim(ctx, 1, 2025, "player-x", 3))
	require.NoError(t, registry.Release(ctx, 1, 2025, "player-x"))
	require.NoError(t, registry.Release(ctx, 1, 2025, "player-x"), "release is idempotent")
	require.NoError(t, registry.Claim(ctx, 1, 2025, "player-x", 5))

	claims, err := registry.Claims(ctx, 1, 2025)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, 5, claims[0].Week)
}

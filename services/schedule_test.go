package services

import (
	"context"
	"sync"
	"testing"

	"nfl-pickem-live/apperror"
	"nfl-pickem-live/database"
	"nfl-pickem-live/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contextAwareGameRepository fails like a network client once its context is done.
// When gate is set the first week load waits on it.
type contextAwareGameRepository struct {
	*database.MemoryGameRepository
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (r *contextAwareGameRepository) FindByWeek(ctx context.Context, season, week int) ([]*models.Game, error) {
	if r.gate != nil {
		r.once.Do(func() {
			close(r.entered)
			<-r.gate
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.MemoryGameRepository.FindByWeek(ctx, season, week)
}

func (r *contextAwareGameRepository) FindBySeason(ctx context.Context, season int) ([]*models.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.MemoryGameRepository.FindBySeason(ctx, season)
}

func TestScheduleCacheLoadOutlivesCancelledCaller(t *testing.T) {
	t.Parallel()
	repo := &contextAwareGameRepository{MemoryGameRepository: database.NewMemoryGameRepository(weekTwoGames()...)}
	cache := NewScheduleCache(repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	games, err := cache.GamesForWeek(ctx, testSeason, testWeek)
	require.NoError(t, err)
	assert.Len(t, games, 2)

	season, err := cache.SeasonGames(ctx, testSeason)
	require.NoError(t, err)
	assert.Len(t, season, 2)
}

func TestScheduleCacheSharedLoadSurvivesFirstCallerLeaving(t *testing.T) {
	t.Parallel()
	repo := &contextAwareGameRepository{
		MemoryGameRepository: database.NewMemoryGameRepository(weekTwoGames()...),
		entered:              make(chan struct{}),
		gate:                 make(chan struct{}),
	}
	cache := NewScheduleCache(repo)

	first, leave := context.WithCancel(context.Background())
	results := make(chan error, 2)
	go func() {
		_, err := cache.GamesForWeek(first, testSeason, testWeek)
		results <- err
	}()
	<-repo.entered

	go func() {
		_, err := cache.GamesForWeek(context.Background(), testSeason, testWeek)
		results <- err
	}()
	leave()
	close(repo.gate)

	for i := 0; i < 2; i++ {
		assert.NoError(t, <-results)
	}
}

func TestScheduleCacheFeedDownIsUpstream(t *testing.T) {
	t.Parallel()
	repo := database.NewMemoryGameRepository(weekTwoGames()...)
	cache := NewScheduleCache(repo)
	ctx := context.Background()

	_, err := cache.GamesForWeek(ctx, testSeason, testWeek)
	require.NoError(t, err)

	repo.SetError(context.DeadlineExceeded)
	_, err = cache.GamesForWeek(ctx, testSeason, testWeek)
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))

	games, err := cache.LastKnownGamesForWeek(ctx, testSeason, testWeek)
	require.NoError(t, err)
	assert.Len(t, games, 2)
}

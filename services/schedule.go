package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nfl-pickem-live/apperror"
	"nfl-pickem-live/logging"
	"nfl-pickem-live/models"

	"golang.org/x/sync/singleflight"
)

// ScheduleCache fronts the schedule feed. Concurrent loads of the same week share one
// repository call. GamesForWeek fails closed and is what writes use; LastKnownGamesForWeek
// falls back to the last successful load so reads keep working through a feed outage.
type ScheduleCache struct {
	repo   GameRepository
	group  singleflight.Group
	mu     sync.RWMutex
	weeks  map[string][]*models.Game
	logger *logging.Logger
}

func NewScheduleCache(repo GameRepository) *ScheduleCache {
	return &ScheduleCache{
		repo:   repo,
		weeks:  make(map[string][]*models.Game),
		logger: logging.WithPrefix("Schedule"),
	}
}

// loadTimeout bounds a shared load, which outlives the caller that started it
const loadTimeout = 10 * time.Second

func sharedLoadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
}

func weekKey(season, week int) string {
	return fmt.Sprintf("%d-%d", season, week)
}

// GamesForWeek loads the week from the feed. Any failure is an upstream error.
// The shared load is detached from the cancellation of the caller that started it.
func (s *ScheduleCache) GamesForWeek(ctx context.Context, season, week int) (models.GameIndex, error) {
	key := weekKey(season, week)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		loadCtx, cancel := sharedLoadContext(ctx)
		defer cancel()
		games, err := s.repo.FindByWeek(loadCtx, season, week)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.weeks[key] = games
		s.mu.Unlock()
		return games, nil
	})
	if err != nil {
		return nil, apperror.Upstream(err, "load games for week %d season %d", week, season)
	}
	return models.IndexGames(v.([]*models.Game)), nil
}

// LastKnownGamesForWeek serves the cached week when the feed is down
func (s *ScheduleCache) LastKnownGamesForWeek(ctx context.Context, season, week int) (models.GameIndex, error) {
	games, err := s.GamesForWeek(ctx, season, week)
	if err == nil {
		return games, nil
	}

	s.mu.RLock()
	cached, ok := s.weeks[weekKey(season, week)]
	s.mu.RUnlock()
	if !ok {
		return nil, err
	}
	s.logger.Warnf("Serving last known games for week %d season %d: %v", week, season, err)
	return models.IndexGames(cached), nil
}

// SeasonGames loads the whole season, used to find kickoff boundaries
func (s *ScheduleCache) SeasonGames(ctx context.Context, season int) ([]*models.Game, error) {
	v, err, _ := s.group.Do(fmt.Sprintf("season-%d", season), func() (interface{}, error) {
		loadCtx, cancel := sharedLoadContext(ctx)
		defer cancel()
		return s.repo.FindBySeason(loadCtx, season)
	})
	if err != nil {
		return nil, apperror.Upstream(err, "load games for season %d", season)
	}
	return v.([]*models.Game), nil
}

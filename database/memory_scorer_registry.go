package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"nfl-pickem-live/apperror"
	"nfl-pickem-live/models"
)

type userSeason struct {
	userID, season int
}

// scorerShard holds one user's claims for one season behind its own mutex,
// so writers for different users never contend.
type scorerShard struct {
	mu     sync.Mutex
	claims map[string]*models.UsedTdScorer
}

// MemoryScorerRegistry is the in-process touchdown-scorer registry
type MemoryScorerRegistry struct {
	mu     sync.Mutex
	shards map[userSeason]*scorerShard
	now    func() time.Time
}

func NewMemoryScorerRegistry() *MemoryScorerRegistry {
	return &MemoryScorerRegistry{
		shards: make(map[userSeason]*scorerShard),
		now:    time.Now,
	}
}

func (r *MemoryScorerRegistry) shard(userID, season int) *scorerShard {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := userSeason{userID, season}
	s, ok := r.shards[key]
	if !ok {
		s = &scorerShard{claims: make(map[string]*models.UsedTdScorer)}
		r.shards[key] = s
	}
	return s
}

// Claim records playerID for the user's season or fails with a conflict when already used
func (r *MemoryScorerRegistry) Claim(ctx context.Context, userID, season int, playerID string, week int) error {
	s := r.shard(userID, season)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, used := s.claims[playerID]; used {
		return apperror.Conflict("touchdown scorer %s already used by user %d in season %d", playerID, userID, season)
	}
	s.claims[playerID] = &models.UsedTdScorer{
		UserID:    userID,
		Season:    season,
		PlayerID:  playerID,
		Week:      week,
		ClaimedAt: r.now().UTC(),
	}
	return nil
}

func (r *MemoryScorerRegistry) Release(ctx context.Context, userID, season int, playerID string) error {
	s := r.shard(userID, season)
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.claims, playerID)
	return nil
}

func (r *MemoryScorerRegistry) Claims(ctx context.Context, userID, season int) ([]*models.UsedTdScorer, error) {
	s := r.shard(userID, season)
	s.mu.Lock()
	defer s.mu.Unlock()

	claims := make([]*models.UsedTdScorer, 0, len(s.claims))
	for _, c := range s.claims {
		claim := *c
		claims = append(claims, &claim)
	}
	sort.Slice(claims, func(i, j int) bool {
		if claims[i].Week != claims[j].Week {
			return claims[i].Week < claims[j].Week
		}
		return claims[i].PlayerID < claims[j].PlayerID
	})
	return claims, nil
}

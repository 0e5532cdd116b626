package database

import (
	"context"
	"sort"
	"sync"

	"nfl-pickem-live/models"
)

// MemoryGameRepository is a schedule feed held in process. SetError makes every read
// fail, which simulates the feed being unavailable.
type MemoryGameRepository struct {
	mu    sync.RWMutex
	games map[int]models.Game
	err   error
}

func NewMemoryGameRepository(games ...*models.Game) *MemoryGameRepository {
	r := &MemoryGameRepository{games: make(map[int]models.Game)}
	for _, g := range games {
		r.games[g.ID] = *g
	}
	return r
}

// Put adds or replaces a game
func (r *MemoryGameRepository) Put(game *models.Game) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[game.ID] = *game
}

func (r *MemoryGameRepository) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *MemoryGameRepository) FindByWeek(ctx context.Context, season, week int) ([]*models.Game, error) {
	return r.find(func(g models.Game) bool { return g.Season == season && g.Week == week })
}

func (r *MemoryGameRepository) FindBySeason(ctx context.Context, season int) ([]*models.Game, error) {
	return r.find(func(g models.Game) bool { return g.Season == season })
}

func (r *MemoryGameRepository) find(keep func(models.Game) bool) ([]*models.Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.err != nil {
		return nil, r.err
	}
	var out []*models.Game
	for _, g := range r.games {
		if keep(g) {
			game := g
			out = append(out, &game)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

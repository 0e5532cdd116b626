package database

import (
	"context"
	"sort"
	"sync"

	"nfl-pickem-live/apperror"
	"nfl-pickem-live/models"
)

type pickKey struct {
	userID, season, week int
}

// MemoryPickRepository keeps picks in process. Used by tests and the demo mode.
type MemoryPickRepository struct {
	mu    sync.RWMutex
	picks map[pickKey]*models.Pick
}

func NewMemoryPickRepository() *MemoryPickRepository {
	return &MemoryPickRepository{picks: make(map[pickKey]*models.Pick)}
}

func (r *MemoryPickRepository) FindByUserWeek(ctx context.Context, userID, season, week int) (*models.Pick, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.picks[pickKey{userID, season, week}].Clone(), nil
}

func (r *MemoryPickRepository) FindAllByWeek(ctx context.Context, season, week int) ([]*models.Pick, error) {
	return r.filter(func(p *models.Pick) bool {
		return p.Season == season && p.Week == week
	}), nil
}

func (r *MemoryPickRepository) FindByIDs(ctx context.Context, ids []string) ([]*models.Pick, error) {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	return r.filter(func(p *models.Pick) bool {
		_, ok := wanted[p.ID]
		return ok
	}), nil
}

func (r *MemoryPickRepository) FindPendingProps(ctx context.Context, season, week int) ([]*models.Pick, error) {
	return r.filter(func(p *models.Pick) bool {
		return p.Season == season && p.Week == week &&
			p.PropBet != nil && p.PropBet.Resolution.Status == models.PropPending
	}), nil
}

func (r *MemoryPickRepository) filter(keep func(*models.Pick) bool) []*models.Pick {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Pick
	for _, p := range r.picks {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Upsert keeps the stored id and creation time when the pick already exists, and a
// judged prop stays as it was judged
func (r *MemoryPickRepository) Upsert(ctx context.Context, pick *models.Pick) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pickKey{pick.UserID, pick.Season, pick.Week}
	stored := pick.Clone()
	if existing, ok := r.picks[key]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
		if existing.PropBet != nil && existing.PropBet.Resolution.Status.IsTerminal() {
			stored.PropBet = existing.PropBet
		}
	}
	r.picks[key] = stored
	return nil
}

func (r *MemoryPickRepository) Delete(ctx context.Context, userID, season, week int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pickKey{userID, season, week}
	if _, ok := r.picks[key]; !ok {
		return apperror.NotFound("no pick for user %d week %d season %d", userID, week, season)
	}
	delete(r.picks, key)
	return nil
}

func (r *MemoryPickRepository) ResolveProps(ctx context.Context, pickIDs []string, resolution models.PropResolution) (int, error) {
	wanted := make(map[string]struct{}, len(pickIDs))
	for _, id := range pickIDs {
		wanted[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	affected := 0
	for _, p := range r.picks {
		if _, ok := wanted[p.ID]; !ok {
			continue
		}
		if p.PropBet == nil || p.PropBet.Resolution.Status != models.PropPending {
			continue
		}
		res := resolution
		if resolution.EvaluatedAt != nil {
			at := *resolution.EvaluatedAt
			res.EvaluatedAt = &at
		}
		p.PropBet.Resolution = res
		affected++
	}
	return affected, nil
}

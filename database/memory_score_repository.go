package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"nfl-pickem-live/models"
)

// MemoryWeeklyScoreRepository keeps weekly scores in process
type MemoryWeeklyScoreRepository struct {
	mu     sync.RWMutex
	scores map[pickKey]models.WeeklyScore
}

func NewMemoryWeeklyScoreRepository() *MemoryWeeklyScoreRepository {
	return &MemoryWeeklyScoreRepository{scores: make(map[pickKey]models.WeeklyScore)}
}

func (r *MemoryWeeklyScoreRepository) ReplaceWeek(ctx context.Context, season, week int, scores []*models.WeeklyScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.scores {
		if key.season == season && key.week == week {
			delete(r.scores, key)
		}
	}
	for _, s := range scores {
		r.scores[pickKey{s.UserID, season, week}] = *s
	}
	return nil
}

func (r *MemoryWeeklyScoreRepository) FindByUserSeasonWeek(ctx context.Context, userID, season, week int) (*models.WeeklyScore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.scores[pickKey{userID, season, week}]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *MemoryWeeklyScoreRepository) FindBySeasonWeek(ctx context.Context, season, week int) ([]*models.WeeklyScore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.WeeklyScore
	for key, s := range r.scores {
		if key.season == season && key.week == week {
			score := s
			out = append(out, &score)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (r *MemoryWeeklyScoreRepository) SumBySeason(ctx context.Context, season int) ([]*models.SeasonTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byUser := make(map[int]*models.SeasonTotal)
	now := time.Now().UTC()
	for key, s := range r.scores {
		if key.season != season {
			continue
		}
		total, ok := byUser[s.UserID]
		if !ok {
			total = &models.SeasonTotal{UserID: s.UserID, Season: season, UpdatedAt: now}
			byUser[s.UserID] = total
		}
		total.Points += s.Points
		total.WeeksScored++
	}

	out := make([]*models.SeasonTotal, 0, len(byUser))
	for _, t := range byUser {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// MemorySeasonTotalRepository keeps leaderboard rows in process
type MemorySeasonTotalRepository struct {
	mu     sync.RWMutex
	totals map[int][]models.SeasonTotal
}

func NewMemorySeasonTotalRepository() *MemorySeasonTotalRepository {
	return &MemorySeasonTotalRepository{totals: make(map[int][]models.SeasonTotal)}
}

func (r *MemorySeasonTotalRepository) ReplaceSeason(ctx context.Context, season int, totals []*models.SeasonTotal) error {
	rows := make([]models.SeasonTotal, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, *t)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })

	r.mu.Lock()
	defer r.mu.Unlock()
	r.totals[season] = rows
	return nil
}

func (r *MemorySeasonTotalRepository) FindBySeason(ctx context.Context, season int) ([]*models.SeasonTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.SeasonTotal, 0, len(r.totals[season]))
	for _, t := range r.totals[season] {
		row := t
		out = append(out, &row)
	}
	return out, nil
}

func (r *MemorySeasonTotalRepository) FindByUserSeason(ctx context.Context, userID, season int) (*models.SeasonTotal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.totals[season] {
		if t.UserID == userID {
			row := t
			return &row, nil
		}
	}
	return nil, nil
}

type seasonWeek struct {
	season, week int
}

// MemoryTouchdownResultRepository keeps touchdown judgments in process
type MemoryTouchdownResultRepository struct {
	mu      sync.RWMutex
	results map[seasonWeek]models.TouchdownResult
}

func NewMemoryTouchdownResultRepository() *MemoryTouchdownResultRepository {
	return &MemoryTouchdownResultRepository{results: make(map[seasonWeek]models.TouchdownResult)}
}

func (r *MemoryTouchdownResultRepository) Find(ctx context.Context, season, week int) (*models.TouchdownResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.results[seasonWeek{season, week}]
	if !ok {
		return nil, nil
	}
	res.PlayerIDs = append([]string(nil), res.PlayerIDs...)
	return &res, nil
}

func (r *MemoryTouchdownResultRepository) Upsert(ctx context.Context, result *models.TouchdownResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *result
	stored.PlayerIDs = append([]string(nil), result.PlayerIDs...)
	r.results[seasonWeek{result.Season, result.Week}] = stored
	return nil
}

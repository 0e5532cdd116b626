package services

import (
	"context"
	"sort"

	"nfl-pickem-live/logging"
	"nfl-pickem-live/models"

	"github.com/cockroachdb/errors"
)

// LeaderboardService owns SeasonTotal, a read model rebuilt from weekly scores.
// Rebuilds of one season run one at a time so the last write always sums every stored week.
type LeaderboardService struct {
	weekly  WeeklyScoreRepository
	totals  SeasonTotalRepository
	seasons *KeyedMutex[int]
	logger  *logging.Logger
}

func NewLeaderboardService(weekly WeeklyScoreRepository, totals SeasonTotalRepository) *LeaderboardService {
	return &LeaderboardService{
		weekly:  weekly,
		totals:  totals,
		seasons: NewKeyedMutex[int](),
		logger:  logging.WithPrefix("Leaderboard"),
	}
}

// Rebuild refolds every weekly score of the season and replaces the stored standings
func (s *LeaderboardService) Rebuild(ctx context.Context, season int) ([]*models.SeasonTotal, error) {
	unlock := s.seasons.Lock(season)
	defer unlock()

	totals, err := s.weekly.SumBySeason(ctx, season)
	if err != nil {
		return nil, errors.Wrapf(err, "sum season %d", season)
	}
	AssignRanks(totals)

	if err := s.totals.ReplaceSeason(ctx, season, totals); err != nil {
		return nil, errors.Wrapf(err, "store season %d standings", season)
	}
	s.logger.Infof("Rebuilt season %d standings for %d users", season, len(totals))
	return totals, nil
}

// Standings returns the stored standings, best first
func (s *LeaderboardService) Standings(ctx context.Context, season int) ([]*models.SeasonTotal, error) {
	totals, err := s.totals.FindBySeason(ctx, season)
	if err != nil {
		return nil, errors.Wrapf(err, "load season %d standings", season)
	}
	return totals, nil
}

// UserTotal returns the user's season total; a user with no scored week has zero points
func (s *LeaderboardService) UserTotal(ctx context.Context, userID, season int) (*models.SeasonTotal, error) {
	total, err := s.totals.FindByUserSeason(ctx, userID, season)
	if err != nil {
		return nil, errors.Wrapf(err, "load season %d total", season)
	}
	if total == nil {
		return &models.SeasonTotal{UserID: userID, Season: season}, nil
	}
	return total, nil
}

// AssignRanks sorts totals by points and gives tied users the same rank (1, 1, 3)
func AssignRanks(totals []*models.SeasonTotal) {
	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].Points != totals[j].Points {
			return totals[i].Points > totals[j].Points
		}
		return totals[i].UserID < totals[j].UserID
	})
	for i, t := range totals {
		if i > 0 && t.Points == totals[i-1].Points {
			t.Rank = totals[i-1].Rank
		} else {
			t.Rank = i + 1
		}
	}
}

package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"nfl-pickem-live/apperror"
	"nfl-pickem-live/logging"
	"nfl-pickem-live/models"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

type seasonWeek struct {
	season, week int
}

// ScoringService derives weekly scores from finished games, picks, touchdown results and
// resolved props. Runs for the same week are serialized; different weeks run in parallel.
type ScoringService struct {
	policy      models.ScoringPolicy
	picks       PickRepository
	schedule    *ScheduleCache
	touchdowns  TouchdownResultRepository
	weekly      WeeklyScoreRepository
	leaderboard *LeaderboardService
	notifier    ChangeNotifier
	locks       *KeyedMutex[seasonWeek]
	logger      *logging.Logger
}

func NewScoringService(
	policy models.ScoringPolicy,
	picks PickRepository,
	schedule *ScheduleCache,
	touchdowns TouchdownResultRepository,
	weekly WeeklyScoreRepository,
	leaderboard *LeaderboardService,
	notifier ChangeNotifier,
) *ScoringService {
	return &ScoringService{
		policy:      policy,
		picks:       picks,
		schedule:    schedule,
		touchdowns:  touchdowns,
		weekly:      weekly,
		leaderboard: leaderboard,
		notifier:    notifier,
		locks:       NewKeyedMutex[seasonWeek](),
		logger:      logging.WithPrefix("Scoring"),
	}
}

// CalculateWeek recomputes and overwrites the week's scores. Every game must be final.
func (s *ScoringService) CalculateWeek(ctx context.Context, season, week int) (map[int]*models.WeeklyScore, error) {
	unlock := s.locks.Lock(seasonWeek{season, week})
	defer unlock()

	games, err := s.schedule.GamesForWeek(ctx, season, week)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, apperror.NotFound("no games scheduled for week %d season %d", week, season)
	}
	if !games.AllCompleted() {
		return nil, apperror.NotReady("week %d season %d still has unfinished games: %s", week, season, unfinishedGames(games))
	}

	var (
		picks      []*models.Pick
		touchdowns *models.TouchdownResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		picks, err = s.picks.FindAllByWeek(gctx, season, week)
		return errors.Wrap(err, "load picks")
	})
	g.Go(func() error {
		var err error
		touchdowns, err = s.touchdowns.Find(gctx, season, week)
		return errors.Wrap(err, "load touchdown results")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scores := ScoreWeek(s.policy, games, picks, touchdowns)
	if err := s.weekly.ReplaceWeek(ctx, season, week, scores); err != nil {
		return nil, errors.Wrap(err, "store weekly scores")
	}
	if _, err := s.leaderboard.Rebuild(ctx, season); err != nil {
		return nil, err
	}

	s.logger.Infof("Scored week %d season %d for %d users", week, season, len(scores))
	s.notifier.ScoresUpdated(season, week, scores)

	byUser := make(map[int]*models.WeeklyScore, len(scores))
	for _, sc := range scores {
		byUser[sc.UserID] = sc
	}
	return byUser, nil
}

// GetUserWeekScoring returns the stored score for one user's week
func (s *ScoringService) GetUserWeekScoring(ctx context.Context, userID, season, week int) (*models.WeeklyScore, error) {
	score, err := s.weekly.FindByUserSeasonWeek(ctx, userID, season, week)
	if err != nil {
		return nil, errors.Wrap(err, "load weekly score")
	}
	if score == nil {
		return nil, apperror.NotFound("no score for user %d week %d season %d", userID, week, season)
	}
	return score, nil
}

// GetUserSeasonPoints returns the user's season total from the leaderboard
func (s *ScoringService) GetUserSeasonPoints(ctx context.Context, userID, season int) (*models.SeasonTotal, error) {
	return s.leaderboard.UserTotal(ctx, userID, season)
}

// GetWeeklySummary returns every user's score for the week, highest first
func (s *ScoringService) GetWeeklySummary(ctx context.Context, season, week int) ([]*models.WeeklyScore, error) {
	scores, err := s.weekly.FindBySeasonWeek(ctx, season, week)
	if err != nil {
		return nil, errors.Wrap(err, "load weekly summary")
	}
	if scores == nil {
		scores = []*models.WeeklyScore{}
	}
	return scores, nil
}

// RecordTouchdownScorers stores the upstream judgment of who scored in the week.
// It does not rescore; run CalculateWeek afterwards.
func (s *ScoringService) RecordTouchdownScorers(ctx context.Context, season, week int, playerIDs []string) (*models.TouchdownResult, error) {
	seen := make(map[string]struct{}, len(playerIDs))
	ids := make([]string, 0, len(playerIDs))
	for _, id := range playerIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, apperror.Validation("player ids must not be empty")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := &models.TouchdownResult{Season: season, Week: week, PlayerIDs: ids, UpdatedAt: time.Now().UTC()}
	if err := s.touchdowns.Upsert(ctx, result); err != nil {
		return nil, errors.Wrap(err, "store touchdown result")
	}
	return result, nil
}

func unfinishedGames(games models.GameIndex) string {
	var pending []string
	for _, g := range games {
		if !g.IsCompleted() {
			pending = append(pending, g.Away+"@"+g.Home)
		}
	}
	sort.Strings(pending)
	return strings.Join(pending, ", ")
}

package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"nfl-pickem-live/apperror"
	"nfl-pickem-live/database"
	"nfl-pickem-live/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scoringFixture struct {
	games      *database.MemoryGameRepository
	picks      *database.MemoryPickRepository
	touchdowns *database.MemoryTouchdownResultRepository
	weekly     *database.MemoryWeeklyScoreRepository
	totals     *database.MemorySeasonTotalRepository
	notifier   *recordingNotifier
	service    *ScoringService
}

func newScoringFixture(games ...*models.Game) *scoringFixture {
	f := &scoringFixture{
		games:      database.NewMemoryGameRepository(games...),
		picks:      database.NewMemoryPickRepository(),
		touchdowns: database.NewMemoryTouchdownResultRepository(),
		weekly:     database.NewMemoryWeeklyScoreRepository(),
		totals:     database.NewMemorySeasonTotalRepository(),
		notifier:   &recordingNotifier{},
	}
	leaderboard := NewLeaderboardService(f.weekly, f.totals)
	f.service = NewScoringService(models.DefaultScoringPolicy(), f.picks, NewScheduleCache(f.games), f.touchdowns, f.weekly, leaderboard, f.notifier)
	return f
}

// fourteenFinalGames: the home team wins every game
func fourteenFinalGames() []*models.Game {
	games := make([]*models.Game, 0, 14)
	for i := 1; i <= 14; i++ {
		games = append(games, &models.Game{
			ID:        i,
			Season:    testSeason,
			Week:      testWeek,
			Date:      kickoff.Add(time.Duration(i) * time.Hour),
			Away:      "A" + string(rune('A'+i)),
			Home:      "H" + string(rune('A'+i)),
			State:     models.GameStateCompleted,
			AwayScore: 10,
			HomeScore: 20,
		})
	}
	return games
}

// pickWithCorrect picks the home team for the first n games and the away team for the rest
func pickWithCorrect(userID int, games []*models.Game, n int) *models.Pick {
	pick := &models.Pick{ID: "pick-" + string(rune('a'+userID)), UserID: userID, Season: testSeason, Week: testWeek}
	for i, g := range games {
		team := g.Away
		if i < n {
			team = g.Home
		}
		pick.Selections = append(pick.Selections, models.Selection{GameID: g.ID, Team: team})
	}
	return pick
}

func TestCalculateWeekSelectionsAndLock(t *testing.T) {
	t.Parallel()
	games := fourteenFinalGames()
	f := newScoringFixture(games...)
	ctx := context.Background()

	pick := pickWithCorrect(10, games, 10)
	pick.LockOfWeek = &models.Selection{GameID: 1, Team: games[0].Home}
	require.NoError(t, f.picks.Upsert(ctx, pick))

	scores, err := f.service.CalculateWeek(ctx, testSeason, testWeek)
	require.NoError(t, err)
	require.Contains(t, scores, 10)

	score := scores[10]
	assert.Equal(t, 14, score.TotalSelections)
	assert.Equal(t, 10, score.CorrectSelections)
	assert.Equal(t, 10, score.SelectionPoints)
	assert.Equal(t, 2, score.LockPoints)
	assert.Equal(t, 12, score.Points)

	_, _, scored := f.notifier.counts()
	assert.Equal(t, 1, scored)
}

func TestCalculateWeekWrongLockCostsAPoint(t *testing.T) {
	t.Parallel()
	games := fourteenFinalGames()
	f := newScoringFixture(games...)
	ctx := context.Background()

	pick := pickWithCorrect(10, games, 10)
	pick.LockOfWeek = &models.Selection{GameID: 14, Team: games[13].Away}
	require.NoError(t, f.picks.Upsert(ctx, pick))

	scores, err := f.service.CalculateWeek(ctx, testSeason, testWeek)
	require.NoError(t, err)
	assert.Equal(t, -1, scores[10].LockPoints)
	assert.Equal(t, 9, scores[10].Points)
}

func TestCalculateWeekIsIdempotent(t *testing.T) {
	t.Parallel()
	games := fourteenFinalGames()
	f := newScoringFixture(games...)
	ctx := context.Background()

	for userID, correct := range map[int]int{10: 10, 11: 14, 12: 3} {
		require.NoError(t, f.picks.Upsert(ctx, pickWithCorrect(userID, games, correct)))
	}

	_, err := f.service.CalculateWeek(ctx, testSeason, testWeek)
	require.NoError(t, err)
	first, err := f.service.GetWeeklySummary(ctx, testSeason, testWeek)
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)

	_, err = f.service.CalculateWeek(ctx, testSeason, testWeek)
	require.NoError(t, err)
	second, err := f.service.GetWeeklySummary(ctx, testSeason, testWeek)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)

	assert.JSONEq(t, string(firstJSON), string(secondJSON))
	assert.Equal(t, firstJSON, secondJSON)
	assert.Equal(t, 11, second[0].UserID)
}

func TestCalculateWeekNotReady(t *testing.T) {
	t.Parallel()
	games := fourteenFinalGames()
	games[5].State = models.GameStateInPlay
	f := newScoringFixture(games...)
	ctx := context.Background()
	require.NoError(t, f.picks.Upsert(ctx, pickWithCorrect(10, games, 10)))

	_, err := f.service.CalculateWeek(ctx, testSeason, testWeek)
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotReady, apperror.KindOf(err))

	summary, err := f.service.GetWeeklySummary(ctx, testSeason, testWeek)
	require.NoError(t, err)
	assert.Empty(t, summary)
	_, _, scored := f.notifier.counts()
	assert.Zero(t, scored)
}

func TestCalculateWeekWithoutGames(t *testing.T) {
	t.Parallel()
	f := newScoringFixture()

	_, err := f.service.CalculateWeek(context.Background(), testSeason, testWeek)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestCalculateWeekTouchdownAndProp(t *testing.T) {
	t.Parallel()
	games := fourteenFinalGames()
	f := newScoringFixture(games...)
	ctx := context.Background()

	hit := pickWithCorrect(10, games, 0)
	hit.TouchdownScorer = &models.ScorerPick{PlayerID: "p-kelce", GameID: 1}
	hit.PropBet = &models.PropBet{Text: "over 50", Resolution: models.PropResolution{Status: models.PropCorrect, PointsWon: 1}}
	miss := pickWithCorrect(11, games, 0)
	miss.TouchdownScorer = &models.ScorerPick{PlayerID: "p-hurts", GameID: 2}
	miss.PropBet = &models.PropBet{Text: "under 30", Resolution: models.PropResolution{Status: models.PropIncorrect}}
	pending := pickWithCorrect(12, games, 0)
	pending.PropBet = &models.PropBet{Text: "safety", Resolution: models.PropResolution{Status: models.PropPending, PointsWon: 1}}
	for _, p := range []*models.Pick{hit, miss, pending} {
		require.NoError(t, f.picks.Upsert(ctx, p))
	}

	_, err := f.service.RecordTouchdownScorers(ctx, testSeason, testWeek, []string{"p-kelce", " p-kelce ", "p-allen"})
	require.NoError(t, err)

	scores, err := f.service.CalculateWeek(ctx, testSeason, testWeek)
	require.NoError(t, err)

	assert.Equal(t, 3, scores[10].ScorerPoints)
	assert.Equal(t, 1, scores[10].PropPoints)
	assert.Equal(t, 4, scores[10].Points)
	assert.Zero(t, scores[11].Points)
	assert.Zero(t, scores[12].PropPoints)
}

func TestRecordTouchdownScorersRejectsBlank(t *testing.T) {
	t.Parallel()
	f := newScoringFixture()

	_, err := f.service.RecordTouchdownScorers(context.Background(), testSeason, testWeek, []string{"p-kelce", ""})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestCalculateWeekUpdatesSeasonTotals(t *testing.T) {
	t.Parallel()
	games := fourteenFinalGames()
	f := newScoringFixture(games...)
	ctx := context.Background()

	require.NoError(t, f.picks.Upsert(ctx, pickWithCorrect(10, games, 10)))
	require.NoError(t, f.picks.Upsert(ctx, pickWithCorrect(11, games, 10)))
	require.NoError(t, f.picks.Upsert(ctx, pickWithCorrect(12, games, 4)))

	_, err := f.service.CalculateWeek(ctx, testSeason, testWeek)
	require.NoError(t, err)

	total, err := f.service.GetUserSeasonPoints(ctx, 12, testSeason)
	require.NoError(t, err)
	assert.Equal(t, 4, total.Points)
	assert.Equal(t, 3, total.Rank)

	total, err = f.service.GetUserSeasonPoints(ctx, 11, testSeason)
	require.NoError(t, err)
	assert.Equal(t, 1, total.Rank)

	nobody, err := f.service.GetUserSeasonPoints(ctx, 99, testSeason)
	require.NoError(t, err)
	assert.Zero(t, nobody.Points)
}

func TestGetUserWeekScoringMissing(t *testing.T) {
	t.Parallel()
	f := newScoringFixture()

	_, err := f.service.GetUserWeekScoring(context.Background(), 10, testSeason, testWeek)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestScoreWeekTiedGame(t *testing.T) {
	t.Parallel()
	games := models.IndexGames([]*models.Game{
		{ID: 1, Season: testSeason, Week: testWeek, Away: "KC", Home: "BUF", State: models.GameStateCompleted, AwayScore: 17, HomeScore: 17},
	})
	pick := &models.Pick{
		UserID:     10,
		Selections: []models.Selection{{GameID: 1, Team: "KC"}},
		LockOfWeek: &models.Selection{GameID: 1, Team: "KC"},
	}

	scores := ScoreWeek(models.DefaultScoringPolicy(), games, []*models.Pick{pick}, nil)
	require.Len(t, scores, 1)
	assert.Zero(t, scores[0].CorrectSelections)
	assert.Zero(t, scores[0].LockPoints)
	assert.Zero(t, scores[0].Points)
}

// stallingWeeklyRepository holds the first season sum after reading it, until release closes
type stallingWeeklyRepository struct {
	*database.MemoryWeeklyScoreRepository
	summed   chan struct{}
	release  chan struct{}
	replaced chan int
	once     sync.Once
}

func (r *stallingWeeklyRepository) SumBySeason(ctx context.Context, season int) ([]*models.SeasonTotal, error) {
	totals, err := r.MemoryWeeklyScoreRepository.SumBySeason(ctx, season)
	first := false
	r.once.Do(func() { first = true })
	if first {
		close(r.summed)
		<-r.release
	}
	return totals, err
}

func (r *stallingWeeklyRepository) ReplaceWeek(ctx context.Context, season, week int, scores []*models.WeeklyScore) error {
	err := r.MemoryWeeklyScoreRepository.ReplaceWeek(ctx, season, week, scores)
	r.replaced <- week
	return err
}

func TestCalculateWeekConcurrentWeeksKeepSeasonTotalInStep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	games := database.NewMemoryGameRepository(
		&models.Game{ID: 1, Season: testSeason, Week: 2, Date: kickoff, Away: "KC", Home: "BUF", State: models.GameStateCompleted, AwayScore: 10, HomeScore: 20},
		&models.Game{ID: 2, Season: testSeason, Week: 3, Date: kickoff.Add(7 * 24 * time.Hour), Away: "DAL", Home: "PHI", State: models.GameStateCompleted, AwayScore: 10, HomeScore: 20},
	)
	picks := database.NewMemoryPickRepository()
	require.NoError(t, picks.Upsert(ctx, &models.Pick{ID: "w2", UserID: 10, Season: testSeason, Week: 2,
		Selections: []models.Selection{{GameID: 1, Team: "BUF"}}}))
	require.NoError(t, picks.Upsert(ctx, &models.Pick{ID: "w3", UserID: 10, Season: testSeason, Week: 3,
		Selections: []models.Selection{{GameID: 2, Team: "PHI"}}}))

	weekly := &stallingWeeklyRepository{
		MemoryWeeklyScoreRepository: database.NewMemoryWeeklyScoreRepository(),
		summed:                      make(chan struct{}),
		release:                     make(chan struct{}),
		replaced:                    make(chan int, 2),
	}
	totals := database.NewMemorySeasonTotalRepository()
	leaderboard := NewLeaderboardService(weekly, totals)
	service := NewScoringService(models.DefaultScoringPolicy(), picks, NewScheduleCache(games),
		database.NewMemoryTouchdownResultRepository(), weekly, leaderboard, &recordingNotifier{})

	errs := make(chan error, 2)
	go func() {
		_, err := service.CalculateWeek(ctx, testSeason, 2)
		errs <- err
	}()
	// week 2 has summed a season that holds only its own row
	<-weekly.summed

	go func() {
		_, err := service.CalculateWeek(ctx, testSeason, 3)
		errs <- err
	}()
	for week := range weekly.replaced {
		if week == 3 {
			break
		}
	}
	close(weekly.release)

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	sums, err := weekly.MemoryWeeklyScoreRepository.SumBySeason(ctx, testSeason)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, 2, sums[0].Points)

	total, err := leaderboard.UserTotal(ctx, 10, testSeason)
	require.NoError(t, err)
	assert.Equal(t, sums[0].Points, total.Points)
	assert.Equal(t, 2, total.WeeksScored)
}

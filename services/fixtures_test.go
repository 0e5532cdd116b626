package services

import (
	"context"
	"sync"
	"time"

	"nfl-pickem-live/database"
	"nfl-pickem-live/models"

	"github.com/jonboulle/clockwork"
)

const (
	testSeason = 2025
	testWeek   = 2
)

var kickoff = time.Date(2025, 9, 14, 17, 0, 0, 0, time.UTC)

// weekTwoGames: game 1 kicks off at kickoff, game 2 three hours later
func weekTwoGames() []*models.Game {
	return []*models.Game{
		{ID: 1, Season: testSeason, Week: testWeek, Date: kickoff, Away: "KC", Home: "BUF", State: models.GameStateScheduled},
		{ID: 2, Season: testSeason, Week: testWeek, Date: kickoff.Add(3 * time.Hour), Away: "DAL", Home: "PHI", State: models.GameStateScheduled},
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	changed []*models.Pick
	deleted []int
	scored  [][]*models.WeeklyScore
}

func (n *recordingNotifier) PickChanged(pick *models.Pick) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, pick)
}

func (n *recordingNotifier) PickDeleted(userID, season, week int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, userID)
}

func (n *recordingNotifier) ScoresUpdated(season, week int, scores []*models.WeeklyScore) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scored = append(n.scored, scores)
}

func (n *recordingNotifier) counts() (changed, deleted, scored int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.changed), len(n.deleted), len(n.scored)
}

// failingPickRepository fails every Upsert
type failingPickRepository struct {
	*database.MemoryPickRepository
	err error
}

func (r *failingPickRepository) Upsert(ctx context.Context, pick *models.Pick) error {
	return r.err
}

type pickFixture struct {
	games    *database.MemoryGameRepository
	picks    *database.MemoryPickRepository
	scorers  *database.MemoryScorerRegistry
	schedule *ScheduleCache
	notifier *recordingNotifier
	clock    *clockwork.FakeClock
	service  *PickService
}

func newPickFixture(now time.Time) *pickFixture {
	f := &pickFixture{
		games:    database.NewMemoryGameRepository(weekTwoGames()...),
		picks:    database.NewMemoryPickRepository(),
		scorers:  database.NewMemoryScorerRegistry(),
		notifier: &recordingNotifier{},
		clock:    clockwork.NewFakeClockAt(now),
	}
	f.schedule = NewScheduleCache(f.games)
	f.service = NewPickService(f.picks, f.scorers, f.schedule, f.notifier, f.clock)
	return f
}

func fullDraft(scorer string) *models.PickDraft {
	return &models.PickDraft{
		Selections: []models.Selection{
			{GameID: 2, Team: "PHI"},
			{GameID: 1, Team: "KC"},
		},
		LockOfWeek:      &models.Selection{GameID: 2, Team: "PHI"},
		TouchdownScorer: &models.ScorerPick{PlayerID: scorer, PlayerName: "Player " + scorer, GameID: 1},
		PropBet:         &models.PropBetDraft{Text: "over 50 total points", GameID: 2},
	}
}

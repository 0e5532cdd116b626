package services

import (
	"context"
	"testing"
	"time"

	"nfl-pickem-live/apperror"
	"nfl-pickem-live/database"
	"nfl-pickem-live/models"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertPickTwiceKeepsOneRecord(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(-24 * time.Hour))
	ctx := context.Background()

	first, err := f.service.UpsertPick(ctx, 10, testSeason, testWeek, fullDraft("p-kelce"))
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	second := fullDraft("p-kelce")
	second.Selections[0].Team = "DAL"
	second.LockOfWeek = nil
	updated, err := f.service.UpsertPick(ctx, 10, testSeason, testWeek, second)
	require.NoError(t, err)

	assert.Equal(t, first.ID, updated.ID)
	assert.Equal(t, first.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(first.UpdatedAt))

	all, err := f.service.PicksForWeek(ctx, testSeason, testWeek)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []models.Selection{{GameID: 1, Team: "KC"}, {GameID: 2, Team: "DAL"}}, all[0].Selections)
	assert.Nil(t, all[0].LockOfWeek)

	changed, _, _ := f.notifier.counts()
	assert.Equal(t, 2, changed)
}

func TestUpsertPickSortsSelections(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(-time.Hour))

	pick, err := f.service.UpsertPick(context.Background(), 10, testSeason, testWeek, fullDraft("p-kelce"))
	require.NoError(t, err)
	assert.Equal(t, 1, pick.Selections[0].GameID)
	assert.Equal(t, 2, pick.Selections[1].GameID)
	assert.Equal(t, models.PropPending, pick.PropBet.Resolution.Status)
}

func TestUpsertPickValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(d *models.PickDraft)
	}{
		{"unknown game", func(d *models.PickDraft) { d.Selections[0].GameID = 99 }},
		{"team not playing", func(d *models.PickDraft) { d.Selections[0].Team = "NYG" }},
		{"duplicate game", func(d *models.PickDraft) { d.Selections[1] = models.Selection{GameID: 2, Team: "DAL"} }},
		{"lock disagrees with selection", func(d *models.PickDraft) { d.LockOfWeek.Team = "DAL" }},
		{"empty scorer id", func(d *models.PickDraft) { d.TouchdownScorer.PlayerID = "  " }},
		{"scorer game outside week", func(d *models.PickDraft) { d.TouchdownScorer.GameID = 42 }},
		{"empty prop text", func(d *models.PickDraft) { d.PropBet.Text = "" }},
		{"prop game outside week", func(d *models.PickDraft) { d.PropBet.GameID = 42 }},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newPickFixture(kickoff.Add(-time.Hour))
			draft := fullDraft("p-kelce")
			tc.mutate(draft)

			_, err := f.service.UpsertPick(context.Background(), 10, testSeason, testWeek, draft)
			require.Error(t, err)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

			changed, _, _ := f.notifier.counts()
			assert.Zero(t, changed)
		})
	}
}

func TestUpsertPickNilDraft(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(-time.Hour))

	_, err := f.service.UpsertPick(context.Background(), 10, testSeason, testWeek, nil)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestUpsertPickLockedAtKickoff(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff)

	_, err := f.service.UpsertPick(context.Background(), 10, testSeason, testWeek, fullDraft("p-kelce"))
	require.Error(t, err)
	assert.Equal(t, apperror.KindLocked, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "game 1")

	stored, err := f.service.GetPick(context.Background(), 10, testSeason, testWeek)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestUpsertPickLockedByExistingPick(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(-time.Hour))
	ctx := context.Background()

	_, err := f.service.UpsertPick(ctx, 10, testSeason, testWeek, fullDraft("p-kelce"))
	require.NoError(t, err)

	// game 1 has started; a draft that only touches game 2 is still blocked by the stored pick
	f.clock.Advance(2 * time.Hour)
	draft := &models.PickDraft{Selections: []models.Selection{{GameID: 2, Team: "DAL"}}}
	_, err = f.service.UpsertPick(ctx, 10, testSeason, testWeek, draft)
	assert.Equal(t, apperror.KindLocked, apperror.KindOf(err))

	changed, _, _ := f.notifier.counts()
	assert.Equal(t, 1, changed)
}

func TestUpsertPickLaterGameStillOpen(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(time.Hour))

	draft := &models.PickDraft{Selections: []models.Selection{{GameID: 2, Team: "PHI"}}}
	_, err := f.service.UpsertPick(context.Background(), 10, testSeason, testWeek, draft)
	assert.NoError(t, err)
}

func TestUpsertPickPropWithoutGameLocksAtFirstKickoff(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(time.Hour))

	draft := &models.PickDraft{
		Selections: []models.Selection{{GameID: 2, Team: "PHI"}},
		PropBet:    &models.PropBetDraft{Text: "someone scores 3 TDs"},
	}
	_, err := f.service.UpsertPick(context.Background(), 10, testSeason, testWeek, draft)
	assert.Equal(t, apperror.KindLocked, apperror.KindOf(err))
}

func TestUpsertPickScheduleUnavailableFailsClosed(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(-time.Hour))
	f.games.SetError(errors.New("feed down"))

	_, err := f.service.UpsertPick(context.Background(), 10, testSeason, testWeek, fullDraft("p-kelce"))
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))

	changed, _, _ := f.notifier.counts()
	assert.Zero(t, changed)
}

func TestUpsertPickScorerUsedInEarlierWeek(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(-time.Hour))
	f.games.Put(&models.Game{ID: 3, Season: testSeason, Week: 3, Date: kickoff.Add(7 * 24 * time.Hour), Away: "KC", Home: "LV"})
	ctx := context.Background()

	_, err := f.service.UpsertPick(ctx, 10, testSeason, testWeek, fullDraft("player-x"))
	require.NoError(t, err)

	weekThree := &models.PickDraft{
		Selections:      []models.Selection{{GameID: 3, Team: "KC"}},
		TouchdownScorer: &models.ScorerPick{PlayerID: "player-x", GameID: 3},
	}
	_, err = f.service.UpsertPick(ctx, 10, testSeason, 3, weekThree)
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	stored, err := f.service.GetPick(ctx, 10, testSeason, 3)
	require.NoError(t, err)
	assert.Nil(t, stored)

	// another user may still take the same player
	_, err = f.service.UpsertPick(ctx, 11, testSeason, 3, weekThree)
	assert.NoError(t, err)
}

func TestUpsertPickResubmittingSameScorer(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(-time.Hour))
	ctx := context.Background()

	_, err := f.service.UpsertPick(ctx, 10, testSeason, testWeek, fullDraft("p-kelce"))
	require.NoError(t, err)
	_, err = f.service.UpsertPick(ctx, 10, testSeason, testWeek, fullDraft("p-kelce"))
	require.NoError(t, err)

	claims, err := f.service.ScorerClaims(ctx, 10, testSeason)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "p-kelce", claims[0].PlayerID)
}

func TestUpsertPickChangingScorerReleasesOldClaim(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(-time.Hour))
	ctx := context.Background()

	_, err := f.service.UpsertPick(ctx, 10, testSeason, testWeek, fullDraft("p-kelce"))
	require.NoError(t, err)
	_, err = f.service.UpsertPick(ctx, 10, testSeason, testWeek, fullDraft("p-hurts"))
	require.NoError(t, err)

	claims, err := f.service.ScorerClaims(ctx, 10, testSeason)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, "p-hurts", claims[0].PlayerID)
}

func TestUpsertPickFailedSaveReleasesNewClaim(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(-time.Hour))
	failing := &failingPickRepository{MemoryPickRepository: f.picks, err: errors.New("write failed")}
	service := NewPickService(failing, f.scorers, f.schedule, f.notifier, f.clock)

	_, err := service.UpsertPick(context.Background(), 10, testSeason, testWeek, fullDraft("p-kelce"))
	require.Error(t, err)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))

	claims, err := f.scorers.Claims(context.Background(), 10, testSeason)
	require.NoError(t, err)
	assert.Empty(t, claims)
	changed, _, _ := f.notifier.counts()
	assert.Zero(t, changed)
}

// resolvingPickRepository judges the stored prop right before the write lands, the way an
// admin batch can slip between UpsertPick's read and its write
type resolvingPickRepository struct {
	*database.MemoryPickRepository
	resolveNext bool
	affected    int
}

func (r *resolvingPickRepository) Upsert(ctx context.Context, pick *models.Pick) error {
	if r.resolveNext {
		r.resolveNext = false
		affected, err := r.ResolveProps(ctx, []string{pick.ID}, models.PropResolution{Status: models.PropCorrect, PointsWon: 1})
		if err != nil {
			return err
		}
		r.affected = affected
	}
	return r.MemoryPickRepository.Upsert(ctx, pick)
}

func TestUpsertPickNeverReopensJudgedProp(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(-time.Hour))
	repo := &resolvingPickRepository{MemoryPickRepository: f.picks}
	service := NewPickService(repo, f.scorers, f.schedule, f.notifier, f.clock)
	ctx := context.Background()

	pick, err := service.UpsertPick(ctx, 10, testSeason, testWeek, fullDraft("p-kelce"))
	require.NoError(t, err)

	repo.resolveNext = true
	edited := fullDraft("p-kelce")
	edited.PropBet.Text = "under 40 total points"
	_, err = service.UpsertPick(ctx, 10, testSeason, testWeek, edited)
	require.NoError(t, err)
	require.Equal(t, 1, repo.affected)

	stored, err := f.picks.FindByUserWeek(ctx, 10, testSeason, testWeek)
	require.NoError(t, err)
	assert.Equal(t, pick.ID, stored.ID)
	assert.Equal(t, models.PropCorrect, stored.PropBet.Resolution.Status)
	assert.Equal(t, "over 50 total points", stored.PropBet.Text)
	assert.Equal(t, 1, stored.PropBet.Resolution.PointsWon)
}

func TestUpsertPickPropStartsPending(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(-time.Hour))
	ctx := context.Background()

	_, err := f.service.UpsertPick(ctx, 10, testSeason, testWeek, fullDraft("p-kelce"))
	require.NoError(t, err)

	changed := fullDraft("p-kelce")
	changed.PropBet.Text = "under 40 total points"
	again, err := f.service.UpsertPick(ctx, 10, testSeason, testWeek, changed)
	require.NoError(t, err)
	assert.Equal(t, models.PropPending, again.PropBet.Resolution.Status)
	assert.Equal(t, "under 40 total points", again.PropBet.Text)
}

func TestDeletePickReleasesScorer(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(-time.Hour))
	ctx := context.Background()

	_, err := f.service.UpsertPick(ctx, 10, testSeason, testWeek, fullDraft("p-kelce"))
	require.NoError(t, err)
	require.NoError(t, f.service.DeletePick(ctx, 10, testSeason, testWeek))

	stored, err := f.service.GetPick(ctx, 10, testSeason, testWeek)
	require.NoError(t, err)
	assert.Nil(t, stored)

	claims, err := f.service.ScorerClaims(ctx, 10, testSeason)
	require.NoError(t, err)
	assert.Empty(t, claims)

	_, deleted, _ := f.notifier.counts()
	assert.Equal(t, 1, deleted)
}

func TestDeletePickMissing(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(-time.Hour))

	err := f.service.DeletePick(context.Background(), 10, testSeason, testWeek)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestDeletePickAfterKickoff(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(-time.Hour))
	ctx := context.Background()

	_, err := f.service.UpsertPick(ctx, 10, testSeason, testWeek, fullDraft("p-kelce"))
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	err = f.service.DeletePick(ctx, 10, testSeason, testWeek)
	assert.Equal(t, apperror.KindLocked, apperror.KindOf(err))

	_, deleted, _ := f.notifier.counts()
	assert.Zero(t, deleted)
}

func TestUpsertPickConcurrentCallersSerialize(t *testing.T) {
	t.Parallel()
	f := newPickFixture(kickoff.Add(-time.Hour))
	ctx := context.Background()

	const writers = 16
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func() {
			_, err := f.service.UpsertPick(ctx, 10, testSeason, testWeek, fullDraft("p-kelce"))
			errs <- err
		}()
	}
	for i := 0; i < writers; i++ {
		assert.NoError(t, <-errs)
	}

	all, err := f.service.PicksForWeek(ctx, testSeason, testWeek)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	changed, _, _ := f.notifier.counts()
	assert.Equal(t, writers, changed)
}

package services

import (
	"context"
	"testing"
	"time"

	"nfl-pickem-live/database"
	"nfl-pickem-live/models"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevealTickerPublishesCrossedKickoffs(t *testing.T) {
	t.Parallel()
	f := newHubFixture(kickoff.Add(-time.Minute), 16)
	schedule := NewScheduleCache(f.games)
	picks := database.NewMemoryPickRepository()
	require.NoError(t, picks.Upsert(context.Background(), hiddenPick(10)))
	service := NewPickService(picks, database.NewMemoryScorerRegistry(), schedule, f.hub, f.clock)
	ticker := NewRevealTicker(f.hub, schedule, service, testSeason, time.Minute, f.clock)

	sub := f.hub.Subscribe(99, weekFilter(), 0)
	defer sub.Close()

	assert.Empty(t, ticker.Check(context.Background()))

	f.clock.Advance(2 * time.Minute)
	assert.Equal(t, []int{testWeek}, ticker.Check(context.Background()))

	msgs := sub.Drain(context.Background())
	require.Len(t, msgs, 1)
	assert.Equal(t, EventReveal, msgs[0].Type)
	payload := msgs[0].Data.(WeekPayload)
	require.Len(t, payload.Picks, 1)
	assert.Equal(t, []models.Selection{{GameID: 1, Team: "KC"}}, payload.Picks[0].Selections)

	// the same kickoff is never revealed twice
	f.clock.Advance(time.Minute)
	assert.Empty(t, ticker.Check(context.Background()))
}

func TestRevealTickerRetriesAfterScheduleOutage(t *testing.T) {
	t.Parallel()
	f := newHubFixture(kickoff.Add(-time.Minute), 16)
	schedule := NewScheduleCache(f.games)
	service := NewPickService(database.NewMemoryPickRepository(), database.NewMemoryScorerRegistry(), schedule, f.hub, f.clock)
	ticker := NewRevealTicker(f.hub, schedule, service, testSeason, time.Minute, f.clock)

	f.games.SetError(errors.New("feed down"))
	f.clock.Advance(2 * time.Minute)
	assert.Empty(t, ticker.Check(context.Background()))

	f.games.SetError(nil)
	f.clock.Advance(time.Minute)
	assert.Equal(t, []int{testWeek}, ticker.Check(context.Background()))
}

func TestRevealTickerNextKickoff(t *testing.T) {
	t.Parallel()
	f := newHubFixture(kickoff.Add(time.Minute), 16)
	schedule := NewScheduleCache(f.games)
	ticker := NewRevealTicker(f.hub, schedule, nil, testSeason, time.Minute, f.clock)

	next, err := ticker.NextKickoff(context.Background())
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, next.Equal(kickoff.Add(3*time.Hour)))
}

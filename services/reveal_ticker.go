package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"nfl-pickem-live/logging"

	"github.com/jonboulle/clockwork"
)

// RevealTicker watches the season's kickoff times and republishes a week's picks as soon
// as one of its games kicks off, so open streams see the newly visible selections.
type RevealTicker struct {
	hub      *Hub
	schedule *ScheduleCache
	picks    WeekPicks
	season   int
	interval time.Duration
	clock    clockwork.Clock

	mu        sync.Mutex
	lastCheck time.Time
	logger    *logging.Logger
}

func NewRevealTicker(hub *Hub, schedule *ScheduleCache, picks WeekPicks, season int, interval time.Duration, clock clockwork.Clock) *RevealTicker {
	if interval <= 0 {
		interval = time.Minute
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RevealTicker{
		hub:       hub,
		schedule:  schedule,
		picks:     picks,
		season:    season,
		interval:  interval,
		clock:     clock,
		lastCheck: clock.Now(),
		logger:    logging.WithPrefix("RevealTicker"),
	}
}

// Run checks for kickoffs every interval until ctx is done
func (t *RevealTicker) Run(ctx context.Context) error {
	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Infof("Watching season %d kickoffs every %s", t.season, t.interval)
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Stopped")
			return nil
		case <-ticker.Chan():
			t.Check(ctx)
		}
	}
}

// Check publishes a reveal for every week with a kickoff in (lastCheck, now] and returns
// those weeks. When the schedule cannot be read the window is kept and retried next tick.
func (t *RevealTicker) Check(ctx context.Context) []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	games, err := t.schedule.SeasonGames(ctx, t.season)
	if err != nil {
		t.logger.Warnf("Kickoff check skipped: %v", err)
		return nil
	}

	crossed := make(map[int]struct{})
	for _, g := range games {
		if g.Date.After(t.lastCheck) && !g.Date.After(now) {
			crossed[g.Week] = struct{}{}
		}
	}

	weeks := make([]int, 0, len(crossed))
	for w := range crossed {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)

	for _, week := range weeks {
		picks, err := t.picks.PicksForWeek(ctx, t.season, week)
		if err != nil {
			// keep the window open so the next tick retries
			t.logger.Errorf("Loading picks for week %d reveal: %v", week, err)
			return nil
		}
		t.hub.PublishReveal(t.season, week, picks)
		t.logger.Infof("Revealed week %d (%d picks)", week, len(picks))
	}

	t.lastCheck = now
	return weeks
}

// NextKickoff returns the earliest kickoff after now, or nil when the season is over
func (t *RevealTicker) NextKickoff(ctx context.Context) (*time.Time, error) {
	games, err := t.schedule.SeasonGames(ctx, t.season)
	if err != nil {
		return nil, err
	}
	now := t.clock.Now()
	var next *time.Time
	for _, g := range games {
		if g.Date.After(now) && (next == nil || g.Date.Before(*next)) {
			d := g.Date
			next = &d
		}
	}
	return next, nil
}

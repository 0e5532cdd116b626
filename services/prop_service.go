package services

import (
	"context"
	"strings"
	"time"

	"nfl-pickem-live/apperror"
	"nfl-pickem-live/logging"
	"nfl-pickem-live/models"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
)

// PropService is the admin workflow that judges prop bets. Resolution is terminal:
// re-resolving an already judged prop leaves it untouched, so batches are safe to retry.
// A prop can only be judged once it is locked, so no later edit can reopen it.
type PropService struct {
	picks    PickRepository
	schedule *ScheduleCache
	clock    clockwork.Clock
	logger   *logging.Logger
}

func NewPropService(picks PickRepository, schedule *ScheduleCache, clock clockwork.Clock) *PropService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PropService{picks: picks, schedule: schedule, clock: clock, logger: logging.WithPrefix("Props")}
}

// ParsePropOutcome accepts "correct" or "incorrect"; empty means correct
func ParsePropOutcome(raw string) (models.PropStatus, error) {
	switch models.PropStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case "", models.PropCorrect:
		return models.PropCorrect, nil
	case models.PropIncorrect:
		return models.PropIncorrect, nil
	default:
		return "", apperror.Validation("outcome must be %q or %q, got %q", models.PropCorrect, models.PropIncorrect, raw)
	}
}

// Resolve applies outcome to every pending prop among pickIDs and returns how many changed.
// The batch is refused with a not-ready error while any of its pending props is still open.
func (s *PropService) Resolve(ctx context.Context, adminID int, pickIDs []string, outcome models.PropStatus) (int, error) {
	if !outcome.IsTerminal() {
		return 0, apperror.Validation("outcome must be %q or %q", models.PropCorrect, models.PropIncorrect)
	}

	ids := make([]string, 0, len(pickIDs))
	seen := make(map[string]struct{}, len(pickIDs))
	for _, id := range pickIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return 0, apperror.Validation("at least one pick id is required")
	}

	if err := s.checkPropsLocked(ctx, ids); err != nil {
		return 0, err
	}

	now := s.clock.Now().UTC()
	resolution := models.PropResolution{
		Status:      outcome,
		EvaluatedBy: adminID,
		EvaluatedAt: &now,
	}
	if outcome == models.PropCorrect {
		resolution.PointsWon = 1
	}

	affected, err := s.picks.ResolveProps(ctx, ids, resolution)
	if err != nil {
		return 0, errors.Wrap(err, "resolve props")
	}
	s.logger.Infof("Admin %d resolved %d of %d props as %s", adminID, affected, len(ids), outcome)
	return affected, nil
}

// checkPropsLocked fails unless every pending prop among ids has passed its lock: the
// kickoff of its game, or the week's first kickoff for a prop with no game
func (s *PropService) checkPropsLocked(ctx context.Context, ids []string) error {
	picks, err := s.picks.FindByIDs(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "load picks")
	}

	now := s.clock.Now()
	weeks := make(map[seasonWeek]models.GameIndex)
	for _, p := range picks {
		if p.PropBet == nil || p.PropBet.Resolution.Status.IsTerminal() {
			continue
		}
		key := seasonWeek{p.Season, p.Week}
		games, ok := weeks[key]
		if !ok {
			games, err = s.schedule.GamesForWeek(ctx, p.Season, p.Week)
			if err != nil {
				return err
			}
			weeks[key] = games
		}

		gameID := p.PropBet.GameID
		if gameID == 0 {
			gameID = firstGameID(games)
		}
		game, ok := games[gameID]
		if !ok {
			return apperror.NotReady("prop on pick %s has no scheduled game to lock it", p.ID)
		}
		if !game.HasKickedOff(now) {
			return apperror.NotReady("prop on pick %s stays open until game %d kicks off at %s",
				p.ID, game.ID, game.Date.UTC().Format(time.RFC3339))
		}
	}
	return nil
}

// PendingProps lists the week's props still awaiting judgment
func (s *PropService) PendingProps(ctx context.Context, season, week int) ([]*models.Pick, error) {
	picks, err := s.picks.FindPendingProps(ctx, season, week)
	if err != nil {
		return nil, errors.Wrap(err, "list pending props")
	}
	return picks, nil
}

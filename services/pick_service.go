package services

import (
	"context"
	"sort"
	"strings"

	"nfl-pickem-live/apperror"
	"nfl-pickem-live/logging"
	"nfl-pickem-live/models"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type pickIdentity struct {
	userID, season, week int
}

// PickService owns the pick lifecycle: validation, kickoff locking, scorer claims
// and change notification.
type PickService struct {
	picks    PickRepository
	scorers  ScorerRegistry
	schedule *ScheduleCache
	notifier ChangeNotifier
	clock    clockwork.Clock
	locks    *KeyedMutex[pickIdentity]
	logger   *logging.Logger
}

func NewPickService(picks PickRepository, scorers ScorerRegistry, schedule *ScheduleCache, notifier ChangeNotifier, clock clockwork.Clock) *PickService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PickService{
		picks:    picks,
		scorers:  scorers,
		schedule: schedule,
		notifier: notifier,
		clock:    clock,
		locks:    NewKeyedMutex[pickIdentity](),
		logger:   logging.WithPrefix("PickService"),
	}
}

// GetPick returns the user's pick for the week or nil
func (s *PickService) GetPick(ctx context.Context, userID, season, week int) (*models.Pick, error) {
	pick, err := s.picks.FindByUserWeek(ctx, userID, season, week)
	if err != nil {
		return nil, errors.Wrap(err, "get pick")
	}
	return pick, nil
}

// PicksForWeek returns every pick of the week
func (s *PickService) PicksForWeek(ctx context.Context, season, week int) ([]*models.Pick, error) {
	picks, err := s.picks.FindAllByWeek(ctx, season, week)
	if err != nil {
		return nil, errors.Wrap(err, "list picks")
	}
	return picks, nil
}

// ScorerClaims lists the touchdown scorers the user already used this season
func (s *PickService) ScorerClaims(ctx context.Context, userID, season int) ([]*models.UsedTdScorer, error) {
	claims, err := s.scorers.Claims(ctx, userID, season)
	if err != nil {
		return nil, errors.Wrap(err, "list scorer claims")
	}
	return claims, nil
}

// UpsertPick creates or replaces the user's pick for the week
func (s *PickService) UpsertPick(ctx context.Context, userID, season, week int, draft *models.PickDraft) (*models.Pick, error) {
	unlock := s.locks.Lock(pickIdentity{userID, season, week})
	defer unlock()

	games, err := s.schedule.GamesForWeek(ctx, season, week)
	if err != nil {
		return nil, err
	}
	if err := validateDraft(draft, games, week); err != nil {
		return nil, err
	}

	existing, err := s.picks.FindByUserWeek(ctx, userID, season, week)
	if err != nil {
		return nil, errors.Wrap(err, "load pick")
	}

	lockRefs := draft.ReferencedGameIDs()
	if draft.PropBet != nil && draft.PropBet.GameID == 0 {
		lockRefs = append(lockRefs, firstGameID(games))
	}
	lockRefs = append(lockRefs, lockedGameRefs(existing, games)...)
	if err := checkUnlocked(lockRefs, games, s.clock); err != nil {
		return nil, err
	}

	pick := s.buildPick(userID, season, week, draft, existing)

	oldScorer := existing.ScorerID()
	newScorer := pick.ScorerID()
	claimed := false
	if newScorer != "" && newScorer != oldScorer {
		if err := s.scorers.Claim(ctx, userID, season, newScorer, week); err != nil {
			return nil, err
		}
		claimed = true
	}

	if err := s.picks.Upsert(ctx, pick); err != nil {
		if claimed {
			if relErr := s.scorers.Release(ctx, userID, season, newScorer); relErr != nil {
				s.logger.Errorf("Failed to release scorer %s after aborted upsert for user %d: %v", newScorer, userID, relErr)
			}
		}
		return nil, errors.Wrap(err, "save pick")
	}

	if oldScorer != "" && oldScorer != newScorer {
		if err := s.scorers.Release(ctx, userID, season, oldScorer); err != nil {
			s.logger.Errorf("Failed to release replaced scorer %s for user %d season %d: %v", oldScorer, userID, season, err)
		}
	}

	s.logger.Debugf("Saved pick for user %d week %d season %d (%d selections)", userID, week, season, len(pick.Selections))
	s.notifier.PickChanged(pick.Clone())
	return pick, nil
}

// DeletePick removes the user's pick while it is still unlocked and frees its scorer claim
func (s *PickService) DeletePick(ctx context.Context, userID, season, week int) error {
	unlock := s.locks.Lock(pickIdentity{userID, season, week})
	defer unlock()

	games, err := s.schedule.GamesForWeek(ctx, season, week)
	if err != nil {
		return err
	}

	existing, err := s.picks.FindByUserWeek(ctx, userID, season, week)
	if err != nil {
		return errors.Wrap(err, "load pick")
	}
	if existing == nil {
		return apperror.NotFound("no pick for week %d season %d", week, season)
	}
	if err := checkUnlocked(lockedGameRefs(existing, games), games, s.clock); err != nil {
		return err
	}

	if err := s.picks.Delete(ctx, userID, season, week); err != nil {
		return err
	}

	if scorer := existing.ScorerID(); scorer != "" {
		if err := s.scorers.Release(ctx, userID, season, scorer); err != nil {
			s.logger.Errorf("Failed to release scorer %s for deleted pick of user %d: %v", scorer, userID, err)
		}
	}

	s.notifier.PickDeleted(userID, season, week)
	return nil
}

func (s *PickService) buildPick(userID, season, week int, draft *models.PickDraft, existing *models.Pick) *models.Pick {
	now := s.clock.Now().UTC()

	pick := &models.Pick{
		ID:          uuid.NewString(),
		UserID:      userID,
		Season:      season,
		Week:        week,
		Selections:  append([]models.Selection(nil), draft.Selections...),
		IsFinalized: draft.IsFinalized,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if existing != nil {
		pick.ID = existing.ID
		pick.CreatedAt = existing.CreatedAt
	}
	sort.Slice(pick.Selections, func(i, j int) bool { return pick.Selections[i].GameID < pick.Selections[j].GameID })

	if draft.LockOfWeek != nil {
		lock := *draft.LockOfWeek
		pick.LockOfWeek = &lock
	}
	if draft.TouchdownScorer != nil {
		scorer := *draft.TouchdownScorer
		scorer.PlayerID = strings.TrimSpace(scorer.PlayerID)
		pick.TouchdownScorer = &scorer
	}
	// props are judged only after lock, and the store keeps a judged prop, so a draft
	// always carries a pending one
	if draft.PropBet != nil {
		pick.PropBet = &models.PropBet{
			Text:       strings.TrimSpace(draft.PropBet.Text),
			Odds:       draft.PropBet.Odds,
			GameID:     draft.PropBet.GameID,
			Resolution: models.PropResolution{Status: models.PropPending},
		}
	}
	return pick
}

func validateDraft(draft *models.PickDraft, games models.GameIndex, week int) error {
	if draft == nil {
		return apperror.Validation("pick body is required")
	}

	chosen := make(map[int]string, len(draft.Selections))
	for _, sel := range draft.Selections {
		if err := validateSelection(sel, games, week); err != nil {
			return err
		}
		if _, dup := chosen[sel.GameID]; dup {
			return apperror.Validation("game %d is selected more than once", sel.GameID)
		}
		chosen[sel.GameID] = sel.Team
	}

	if lock := draft.LockOfWeek; lock != nil {
		if err := validateSelection(*lock, games, week); err != nil {
			return err
		}
		if team, ok := chosen[lock.GameID]; ok && team != lock.Team {
			return apperror.Validation("lock of the week on game %d picks %s but the selection picks %s", lock.GameID, lock.Team, team)
		}
	}

	if scorer := draft.TouchdownScorer; scorer != nil {
		if strings.TrimSpace(scorer.PlayerID) == "" {
			return apperror.Validation("touchdown scorer needs a player id")
		}
		if _, ok := games[scorer.GameID]; !ok {
			return apperror.Validation("touchdown scorer game %d is not in week %d", scorer.GameID, week)
		}
	}

	if prop := draft.PropBet; prop != nil {
		if strings.TrimSpace(prop.Text) == "" {
			return apperror.Validation("prop bet text is empty")
		}
		if prop.GameID != 0 {
			if _, ok := games[prop.GameID]; !ok {
				return apperror.Validation("prop bet game %d is not in week %d", prop.GameID, week)
			}
		}
	}
	return nil
}

func validateSelection(sel models.Selection, games models.GameIndex, week int) error {
	game, ok := games[sel.GameID]
	if !ok {
		return apperror.Validation("game %d is not in week %d", sel.GameID, week)
	}
	if !game.HasTeam(sel.Team) {
		return apperror.Validation("team %q does not play in game %d (%s at %s)", sel.Team, sel.GameID, game.Away, game.Home)
	}
	return nil
}

// lockedGameRefs returns the games that lock an existing pick. A prop with no game of its
// own is held by the week's first kickoff.
func lockedGameRefs(pick *models.Pick, games models.GameIndex) []int {
	if pick == nil {
		return nil
	}
	refs := pick.ReferencedGameIDs()
	if pick.PropBet != nil && pick.PropBet.GameID == 0 {
		refs = append(refs, firstGameID(games))
	}
	return refs
}

func firstGameID(games models.GameIndex) int {
	var first *models.Game
	for _, g := range games {
		if first == nil || g.Date.Before(first.Date) || (g.Date.Equal(first.Date) && g.ID < first.ID) {
			first = g
		}
	}
	if first == nil {
		return 0
	}
	return first.ID
}

// checkUnlocked fails with a locked error naming the earliest referenced game that has kicked off
func checkUnlocked(gameIDs []int, games models.GameIndex, clock clockwork.Clock) error {
	now := clock.Now()
	var started *models.Game
	for _, id := range gameIDs {
		g, ok := games[id]
		if !ok || !g.HasKickedOff(now) {
			continue
		}
		if started == nil || g.Date.Before(started.Date) || (g.Date.Equal(started.Date) && g.ID < started.ID) {
			started = g
		}
	}
	if started != nil {
		return apperror.Locked(started.ID, started.Date)
	}
	return nil
}

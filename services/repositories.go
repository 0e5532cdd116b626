package services

import (
	"context"

	"nfl-pickem-live/models"
)

// GameRepository is the read-only schedule feed
type GameRepository interface {
	FindByWeek(ctx context.Context, season, week int) ([]*models.Game, error)
	FindBySeason(ctx context.Context, season int) ([]*models.Game, error)
}

// PickRepository persists picks. FindByUserWeek returns nil, nil when absent and
// Delete returns a not-found error when there is nothing to delete. Upsert never
// replaces a prop that has already been judged.
type PickRepository interface {
	FindByUserWeek(ctx context.Context, userID, season, week int) (*models.Pick, error)
	FindByIDs(ctx context.Context, ids []string) ([]*models.Pick, error)
	FindAllByWeek(ctx context.Context, season, week int) ([]*models.Pick, error)
	FindPendingProps(ctx context.Context, season, week int) ([]*models.Pick, error)
	Upsert(ctx context.Context, pick *models.Pick) error
	Delete(ctx context.Context, userID, season, week int) error
	ResolveProps(ctx context.Context, pickIDs []string, resolution models.PropResolution) (int, error)
}

// ScorerRegistry guarantees a user claims a touchdown scorer at most once per season.
// Claim is atomic and fails with a conflict error when the player is already used.
type ScorerRegistry interface {
	Claim(ctx context.Context, userID, season int, playerID string, week int) error
	Release(ctx context.Context, userID, season int, playerID string) error
	Claims(ctx context.Context, userID, season int) ([]*models.UsedTdScorer, error)
}

type WeeklyScoreRepository interface {
	ReplaceWeek(ctx context.Context, season, week int, scores []*models.WeeklyScore) error
	FindByUserSeasonWeek(ctx context.Context, userID, season, week int) (*models.WeeklyScore, error)
	FindBySeasonWeek(ctx context.Context, season, week int) ([]*models.WeeklyScore, error)
	SumBySeason(ctx context.Context, season int) ([]*models.SeasonTotal, error)
}

type SeasonTotalRepository interface {
	ReplaceSeason(ctx context.Context, season int, totals []*models.SeasonTotal) error
	FindBySeason(ctx context.Context, season int) ([]*models.SeasonTotal, error)
	FindByUserSeason(ctx context.Context, userID, season int) (*models.SeasonTotal, error)
}

type TouchdownResultRepository interface {
	Find(ctx context.Context, season, week int) (*models.TouchdownResult, error)
	Upsert(ctx context.Context, result *models.TouchdownResult) error
}

// ChangeNotifier receives committed changes for the live stream
type ChangeNotifier interface {
	PickChanged(pick *models.Pick)
	PickDeleted(userID, season, week int)
	ScoresUpdated(season, week int, scores []*models.WeeklyScore)
}

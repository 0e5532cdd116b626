package interfaces

import (
	"context"

	"nfl-pickem-live/models"
	"nfl-pickem-live/services"

	"github.com/jonboulle/clockwork"
)

// PickService is the pick lifecycle as seen by the HTTP layer
type PickService interface {
	GetPick(ctx context.Context, userID, season, week int) (*models.Pick, error)
	UpsertPick(ctx context.Context, userID, season, week int, draft *models.PickDraft) (*models.Pick, error)
	DeletePick(ctx context.Context, userID, season, week int) error
	ScorerClaims(ctx context.Context, userID, season int) ([]*models.UsedTdScorer, error)
}

// ScoringService computes and serves weekly scores
type ScoringService interface {
	CalculateWeek(ctx context.Context, season, week int) (map[int]*models.WeeklyScore, error)
	GetUserWeekScoring(ctx context.Context, userID, season, week int) (*models.WeeklyScore, error)
	GetUserSeasonPoints(ctx context.Context, userID, season int) (*models.SeasonTotal, error)
	GetWeeklySummary(ctx context.Context, season, week int) ([]*models.WeeklyScore, error)
	RecordTouchdownScorers(ctx context.Context, season, week int, playerIDs []string) (*models.TouchdownResult, error)
}

// PropService is the administrator prop workflow
type PropService interface {
	Resolve(ctx context.Context, adminID int, pickIDs []string, outcome models.PropStatus) (int, error)
	PendingProps(ctx context.Context, season, week int) ([]*models.Pick, error)
}

type LeaderboardService interface {
	Standings(ctx context.Context, season int) ([]*models.SeasonTotal, error)
}

// LiveStream hands out subscriptions to the redacted change stream
type LiveStream interface {
	Subscribe(viewerID int, filter services.StreamFilter, lastEventID uint64) *services.Subscription
	NewHeartbeat() clockwork.Ticker
}

// TokenValidator resolves a bearer token to its claims
type TokenValidator interface {
	Validate(token string) (*services.Claims, error)
}

// HealthChecker reports whether the store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

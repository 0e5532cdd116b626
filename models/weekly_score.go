package models

import "time"

// ScoringPolicy holds the point weights applied by the scoring engine
type ScoringPolicy struct {
	PerSelection    int `json:"per_selection"`
	LockCorrect     int `json:"lock_correct"`
	LockIncorrect   int `json:"lock_incorrect"` // penalty, subtracted
	TouchdownScorer int `json:"touchdown_scorer"`
	PropCorrect     int `json:"prop_correct"`
}

// DefaultScoringPolicy returns the league's standard weights
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		PerSelection:    1,
		LockCorrect:     2,
		LockIncorrect:   1,
		TouchdownScorer: 3,
		PropCorrect:     1,
	}
}

// WeeklyScore is the derived score of one user's week. It carries no wall-clock
// fields so recomputation over the same inputs is byte-identical.
type WeeklyScore struct {
	UserID            int `json:"user_id" bson:"user_id"`
	Season            int `json:"season" bson:"season"`
	Week              int `json:"week" bson:"week"`
	TotalSelections   int `json:"total_selections" bson:"total_selections"`
	CorrectSelections int `json:"correct_selections" bson:"correct_selections"`
	SelectionPoints   int `json:"selection_points" bson:"selection_points"`
	LockPoints        int `json:"lock_points" bson:"lock_points"`
	ScorerPoints      int `json:"scorer_points" bson:"scorer_points"`
	PropPoints        int `json:"prop_points" bson:"prop_points"`
	Points            int `json:"points" bson:"points"`
}

// SeasonTotal is a user's folded season score, owned by the leaderboard
type SeasonTotal struct {
	UserID      int       `json:"user_id" bson:"user_id"`
	Season      int       `json:"season" bson:"season"`
	Points      int       `json:"points" bson:"points"`
	WeeksScored int       `json:"weeks_scored" bson:"weeks_scored"`
	Rank        int       `json:"rank" bson:"rank"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// UsedTdScorer records a touchdown-scorer claim. Unique per (UserID, Season, PlayerID).
type UsedTdScorer struct {
	UserID    int       `json:"user_id" bson:"user_id"`
	Season    int       `json:"season" bson:"season"`
	PlayerID  string    `json:"player_id" bson:"player_id"`
	Week      int       `json:"week" bson:"week"`
	ClaimedAt time.Time `json:"claimed_at" bson:"claimed_at"`
}

// TouchdownResult is the upstream judgment of who scored in a week
type TouchdownResult struct {
	Season    int       `json:"season" bson:"season"`
	Week      int       `json:"week" bson:"week"`
	PlayerIDs []string  `json:"player_ids" bson:"player_ids"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Scored reports whether playerID is in the result
func (r *TouchdownResult) Scored(playerID string) bool {
	if r == nil || playerID == "" {
		return false
	}
	for _, id := range r.PlayerIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

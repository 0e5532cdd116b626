package models

import (
	"sort"
	"time"
)

// PropStatus is the resolution state of a prop bet
type PropStatus string

const (
	PropPending   PropStatus = "pending"
	PropCorrect   PropStatus = "correct"
	PropIncorrect PropStatus = "incorrect"
)

// IsTerminal reports whether the status is a final resolution
func (s PropStatus) IsTerminal() bool {
	return s == PropCorrect || s == PropIncorrect
}

// Selection is the team chosen to win one game
type Selection struct {
	GameID int    `json:"game_id" bson:"game_id"`
	Team   string `json:"team" bson:"team"`
}

// ScorerPick is the weekly touchdown-scorer choice
type ScorerPick struct {
	PlayerID   string `json:"player_id" bson:"player_id"`
	PlayerName string `json:"player_name,omitempty" bson:"player_name,omitempty"`
	GameID     int    `json:"game_id" bson:"game_id"`
}

// PropResolution records an administrator's judgment of a prop bet
type PropResolution struct {
	Status      PropStatus `json:"status" bson:"status"`
	EvaluatedBy int        `json:"evaluated_by,omitempty" bson:"evaluated_by,omitempty"`
	EvaluatedAt *time.Time `json:"evaluated_at,omitempty" bson:"evaluated_at,omitempty"`
	PointsWon   int        `json:"points_won" bson:"points_won"`
}

// PropBet is a free-text weekly prediction
type PropBet struct {
	Text       string         `json:"text" bson:"text"`
	Odds       *float64       `json:"odds,omitempty" bson:"odds,omitempty"`
	GameID     int            `json:"game_id,omitempty" bson:"game_id,omitempty"`
	Resolution PropResolution `json:"resolution" bson:"resolution"`
}

// Pick is a user's full entry for one week. At most one exists per (UserID, Season, Week).
type Pick struct {
	ID              string      `json:"id" bson:"_id"`
	UserID          int         `json:"user_id" bson:"user_id"`
	Season          int         `json:"season" bson:"season"`
	Week            int         `json:"week" bson:"week"`
	Selections      []Selection `json:"selections" bson:"selections"`
	LockOfWeek      *Selection  `json:"lock_of_week,omitempty" bson:"lock_of_week,omitempty"`
	TouchdownScorer *ScorerPick `json:"touchdown_scorer,omitempty" bson:"touchdown_scorer,omitempty"`
	PropBet         *PropBet    `json:"prop_bet,omitempty" bson:"prop_bet,omitempty"`
	IsFinalized     bool        `json:"is_finalized" bson:"is_finalized"`
	CreatedAt       time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" bson:"updated_at"`
}

// PickDraft is what a user submits for a week
type PickDraft struct {
	Selections      []Selection
	LockOfWeek      *Selection
	TouchdownScorer *ScorerPick
	PropBet         *PropBetDraft
	IsFinalized     bool
}

// PropBetDraft is the user-editable part of a prop bet
type PropBetDraft struct {
	Text   string
	Odds   *float64
	GameID int
}

// ReferencedGameIDs returns every game the pick touches, sorted
func (p *Pick) ReferencedGameIDs() []int {
	if p == nil {
		return nil
	}
	return referencedGames(p.Selections, p.LockOfWeek, p.TouchdownScorer, propGame(p.PropBet))
}

// ReferencedGameIDs returns every game the draft touches, sorted
func (d *PickDraft) ReferencedGameIDs() []int {
	propGameID := 0
	if d.PropBet != nil {
		propGameID = d.PropBet.GameID
	}
	return referencedGames(d.Selections, d.LockOfWeek, d.TouchdownScorer, propGameID)
}

// ScorerID returns the claimed player id or ""
func (p *Pick) ScorerID() string {
	if p == nil || p.TouchdownScorer == nil {
		return ""
	}
	return p.TouchdownScorer.PlayerID
}

// Clone returns a deep copy so callers can hand snapshots to other goroutines
func (p *Pick) Clone() *Pick {
	if p == nil {
		return nil
	}
	c := *p
	c.Selections = append([]Selection(nil), p.Selections...)
	if p.LockOfWeek != nil {
		lock := *p.LockOfWeek
		c.LockOfWeek = &lock
	}
	if p.TouchdownScorer != nil {
		scorer := *p.TouchdownScorer
		c.TouchdownScorer = &scorer
	}
	if p.PropBet != nil {
		prop := *p.PropBet
		if p.PropBet.Odds != nil {
			odds := *p.PropBet.Odds
			prop.Odds = &odds
		}
		if p.PropBet.Resolution.EvaluatedAt != nil {
			at := *p.PropBet.Resolution.EvaluatedAt
			prop.Resolution.EvaluatedAt = &at
		}
		c.PropBet = &prop
	}
	return &c
}

func propGame(prop *PropBet) int {
	if prop == nil {
		return 0
	}
	return prop.GameID
}

func referencedGames(selections []Selection, lock *Selection, scorer *ScorerPick, propGameID int) []int {
	seen := make(map[int]struct{}, len(selections)+3)
	for _, s := range selections {
		seen[s.GameID] = struct{}{}
	}
	if lock != nil {
		seen[lock.GameID] = struct{}{}
	}
	if scorer != nil && scorer.GameID != 0 {
		seen[scorer.GameID] = struct{}{}
	}
	if propGameID != 0 {
		seen[propGameID] = struct{}{}
	}

	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

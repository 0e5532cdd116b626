package models

import (
	"time"
)

// VisibilityRule names why a field is or is not shown to a viewer
type VisibilityRule string

const (
	VisibilityRuleOwner          VisibilityRule = "owner"
	VisibilityRuleKickoffPassed  VisibilityRule = "kickoff_passed"
	VisibilityRuleBeforeKickoff  VisibilityRule = "before_kickoff"
	VisibilityRuleWeekLocked     VisibilityRule = "week_last_kickoff_passed"
	VisibilityRuleBeforeWeekLock VisibilityRule = "before_week_last_kickoff"
	VisibilityRuleUnknownGame    VisibilityRule = "unknown_game"
)

// PickVisibility is the visibility of everything tied to one game for one viewer
type PickVisibility struct {
	GameID    int            `json:"game_id"`
	VisibleAt time.Time      `json:"visible_at"`
	IsVisible bool           `json:"is_visible"`
	Rule      VisibilityRule `json:"rule"`
}

// CalculateVisibility decides whether a non-owner may see a pick tied to game at now.
// Unknown games stay hidden.
func CalculateVisibility(game *Game, now time.Time) PickVisibility {
	if game == nil {
		return PickVisibility{Rule: VisibilityRuleUnknownGame}
	}
	v := PickVisibility{GameID: game.ID, VisibleAt: game.Date}
	if game.HasKickedOff(now) {
		v.IsVisible = true
		v.Rule = VisibilityRuleKickoffPassed
	} else {
		v.Rule = VisibilityRuleBeforeKickoff
	}
	return v
}

// PropView is the prop bet as shown to a viewer
type PropView struct {
	Text       string          `json:"text"`
	Odds       *float64        `json:"odds,omitempty"`
	Resolution *PropResolution `json:"resolution,omitempty"`
}

// PickView is a Pick redacted for one viewer at one instant
type PickView struct {
	PickID          string      `json:"pick_id"`
	UserID          int         `json:"user_id"`
	Season          int         `json:"season"`
	Week            int         `json:"week"`
	Selections      []Selection `json:"selections"`
	HiddenCount     int         `json:"hidden_count"`
	LockOfWeek      *Selection  `json:"lock_of_week,omitempty"`
	LockHidden      bool        `json:"lock_hidden,omitempty"`
	TouchdownScorer *ScorerPick `json:"touchdown_scorer,omitempty"`
	ScorerHidden    bool        `json:"scorer_hidden,omitempty"`
	PropBet         *PropView   `json:"prop_bet,omitempty"`
	PropHidden      bool        `json:"prop_hidden,omitempty"`
	IsFinalized     bool        `json:"is_finalized"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// RedactPick projects pick for viewerID at now. The owner sees everything. Others see a
// selection, the lock and the scorer only after their own game kicked off, and the prop
// text only after the week's last kickoff.
func RedactPick(pick *Pick, games GameIndex, viewerID int, now time.Time) PickView {
	view := PickView{
		PickID:      pick.ID,
		UserID:      pick.UserID,
		Season:      pick.Season,
		Week:        pick.Week,
		Selections:  make([]Selection, 0, len(pick.Selections)),
		IsFinalized: pick.IsFinalized,
		UpdatedAt:   pick.UpdatedAt,
	}
	owner := viewerID != 0 && viewerID == pick.UserID

	visible := func(gameID int) bool {
		return owner || CalculateVisibility(games[gameID], now).IsVisible
	}

	for _, s := range pick.Selections {
		if visible(s.GameID) {
			view.Selections = append(view.Selections, s)
		} else {
			view.HiddenCount++
		}
	}

	if pick.LockOfWeek != nil {
		if visible(pick.LockOfWeek.GameID) {
			lock := *pick.LockOfWeek
			view.LockOfWeek = &lock
		} else {
			view.LockHidden = true
		}
	}

	if pick.TouchdownScorer != nil {
		if visible(pick.TouchdownScorer.GameID) {
			scorer := *pick.TouchdownScorer
			view.TouchdownScorer = &scorer
		} else {
			view.ScorerHidden = true
		}
	}

	if pick.PropBet != nil {
		if owner || PropVisible(games, now) {
			resolution := pick.PropBet.Resolution
			view.PropBet = &PropView{Text: pick.PropBet.Text, Odds: pick.PropBet.Odds, Resolution: &resolution}
		} else {
			view.PropHidden = true
		}
	}

	return view
}

// PropVisible reports whether props of the week are public: the last kickoff of the week has passed
func PropVisible(games GameIndex, now time.Time) bool {
	last := games.LastKickoff()
	return !last.IsZero() && !last.After(now)
}

package models

import (
	"time"
)

// GameState represents the current state of a game
type GameState string

const (
	GameStateScheduled GameState = "scheduled"
	GameStateInPlay    GameState = "in_play"
	GameStateCompleted GameState = "completed"
	GameStatePostponed GameState = "postponed"
)

// Game is the schedule feed's view of one NFL game. Date is the scheduled kickoff.
type Game struct {
	ID        int       `json:"id" bson:"id"`
	Season    int       `json:"season" bson:"season"`
	Week      int       `json:"week" bson:"week"`
	Date      time.Time `json:"date" bson:"date"`
	Away      string    `json:"away" bson:"away"`
	Home      string    `json:"home" bson:"home"`
	State     GameState `json:"state" bson:"state"`
	AwayScore int       `json:"awayScore" bson:"awayScore"`
	HomeScore int       `json:"homeScore" bson:"homeScore"`
}

// IsCompleted returns true if the game is finished
func (g *Game) IsCompleted() bool {
	return g.State == GameStateCompleted
}

// HasKickedOff reports whether kickoff is at or before now
func (g *Game) HasKickedOff(now time.Time) bool {
	return !g.Date.After(now)
}

// HasTeam reports whether team plays in this game
func (g *Game) HasTeam(team string) bool {
	return team != "" && (team == g.Home || team == g.Away)
}

// Winner returns the winning team abbreviation or empty string if tie/not completed
func (g *Game) Winner() string {
	if !g.IsCompleted() {
		return ""
	}
	if g.HomeScore > g.AwayScore {
		return g.Home
	} else if g.AwayScore > g.HomeScore {
		return g.Away
	}
	return ""
}

// GameIndex maps game id to game for one week
type GameIndex map[int]*Game

// IndexGames builds a GameIndex
func IndexGames(games []*Game) GameIndex {
	index := make(GameIndex, len(games))
	for _, g := range games {
		index[g.ID] = g
	}
	return index
}

// LastKickoff returns the latest kickoff in the index, zero when empty
func (idx GameIndex) LastKickoff() time.Time {
	var last time.Time
	for _, g := range idx {
		if g.Date.After(last) {
			last = g.Date
		}
	}
	return last
}

// AllCompleted reports whether every game is final. An empty week is never complete.
func (idx GameIndex) AllCompleted() bool {
	if len(idx) == 0 {
		return false
	}
	for _, g := range idx {
		if !g.IsCompleted() {
			return false
		}
	}
	return true
}

package services

import (
	"sort"

	"nfl-pickem-live/models"
)

// ScoreWeek applies policy to every pick of a finished week. It is a pure function of
// its inputs; results are ordered by user id.
func ScoreWeek(policy models.ScoringPolicy, games models.GameIndex, picks []*models.Pick, touchdowns *models.TouchdownResult) []*models.WeeklyScore {
	scores := make([]*models.WeeklyScore, 0, len(picks))
	for _, pick := range picks {
		scores = append(scores, scorePick(policy, games, pick, touchdowns))
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].UserID < scores[j].UserID })
	return scores
}

func scorePick(policy models.ScoringPolicy, games models.GameIndex, pick *models.Pick, touchdowns *models.TouchdownResult) *models.WeeklyScore {
	score := &models.WeeklyScore{
		UserID:          pick.UserID,
		Season:          pick.Season,
		Week:            pick.Week,
		TotalSelections: len(pick.Selections),
	}

	for _, sel := range pick.Selections {
		if pickedWinner(games, sel) {
			score.CorrectSelections++
		}
	}
	score.SelectionPoints = score.CorrectSelections * policy.PerSelection

	if lock := pick.LockOfWeek; lock != nil {
		if game, ok := games[lock.GameID]; ok && game.Winner() != "" {
			if game.Winner() == lock.Team {
				score.LockPoints = policy.LockCorrect
			} else {
				score.LockPoints = -policy.LockIncorrect
			}
		}
	}

	if touchdowns.Scored(pick.ScorerID()) {
		score.ScorerPoints = policy.TouchdownScorer
	}

	if pick.PropBet != nil && pick.PropBet.Resolution.Status.IsTerminal() {
		score.PropPoints = pick.PropBet.Resolution.PointsWon * policy.PropCorrect
	}

	score.Points = score.SelectionPoints + score.LockPoints + score.ScorerPoints + score.PropPoints
	return score
}

// pickedWinner is false for ties and unknown games
func pickedWinner(games models.GameIndex, sel models.Selection) bool {
	game, ok := games[sel.GameID]
	if !ok {
		return false
	}
	winner := game.Winner()
	return winner != "" && winner == sel.Team
}

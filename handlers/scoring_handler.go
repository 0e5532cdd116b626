package handlers

import (
	"net/http"

	"nfl-pickem-live/interfaces"
	"nfl-pickem-live/models"
)

// ScoringHandler serves weekly scoring, season points and the leaderboard
type ScoringHandler struct {
	responder
	scoring     interfaces.ScoringService
	leaderboard interfaces.LeaderboardService
}

func NewScoringHandler(scoring interfaces.ScoringService, leaderboard interfaces.LeaderboardService, diagnostic bool) *ScoringHandler {
	return &ScoringHandler{
		responder:   newResponder("ScoringHandler", diagnostic),
		scoring:     scoring,
		leaderboard: leaderboard,
	}
}

type weeklySummaryResponse struct {
	Season int                   `json:"season"`
	Week   int                   `json:"week"`
	Scores []*models.WeeklyScore `json:"scores"`
}

// CalculateWeekly handles POST /scoring/calculate-weekly/{week}/{season}
func (h *ScoringHandler) CalculateWeekly(w http.ResponseWriter, r *http.Request) {
	week, err := pathInt(r, "week")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	season, err := pathInt(r, "season")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if _, err := h.scoring.CalculateWeek(r.Context(), season, week); err != nil {
		h.writeError(w, r, err)
		return
	}
	summary, err := h.scoring.GetWeeklySummary(r.Context(), season, week)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if caller := callerFrom(r); caller != nil {
		h.logger.Infof("%s (%d) scored week %d season %d", caller.Name, caller.UserID, week, season)
	}
	h.writeJSON(w, http.StatusOK, weeklySummaryResponse{Season: season, Week: week, Scores: summary})
}

// UserWeek handles GET /scoring/user/{userId}/week/{week}/{season}
func (h *ScoringHandler) UserWeek(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	week, err := pathInt(r, "week")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	season, err := pathInt(r, "season")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	score, err := h.scoring.GetUserWeekScoring(r.Context(), userID, season, week)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, score)
}

// UserSeason handles GET /scoring/user/{userId}/season/{season}
func (h *ScoringHandler) UserSeason(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt(r, "userId")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	season, err := pathInt(r, "season")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	total, err := h.scoring.GetUserSeasonPoints(r.Context(), userID, season)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, total)
}

// WeeklySummary handles GET /scoring/weekly-summary/{week}/{season}
func (h *ScoringHandler) WeeklySummary(w http.ResponseWriter, r *http.Request) {
	week, err := pathInt(r, "week")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	season, err := pathInt(r, "season")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	summary, err := h.scoring.GetWeeklySummary(r.Context(), season, week)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, weeklySummaryResponse{Season: season, Week: week, Scores: summary})
}

// Leaderboard handles GET /leaderboard/{season}
func (h *ScoringHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	season, err := pathInt(r, "season")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	standings, err := h.leaderboard.Standings(r.Context(), season)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if standings == nil {
		standings = []*models.SeasonTotal{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"season": season, "standings": standings})
}

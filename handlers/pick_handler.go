package handlers

import (
	"net/http"
	"sort"
	"strconv"

	"nfl-pickem-live/apperror"
	"nfl-pickem-live/interfaces"
	"nfl-pickem-live/models"
)

type selectionRequest struct {
	GameID int    `json:"gameId" validate:"required,gt=0"`
	Team   string `json:"team" validate:"required,max=8"`
}

type scorerRequest struct {
	PlayerID   string `json:"playerId" validate:"required,max=64"`
	PlayerName string `json:"playerName" validate:"omitempty,max=100"`
	GameID     int    `json:"gameId" validate:"required,gt=0"`
}

type propRequest struct {
	Text   string   `json:"text" validate:"required,max=500"`
	Odds   *float64 `json:"odds" validate:"omitempty"`
	GameID int      `json:"gameId" validate:"omitempty,gt=0"`
}

// upsertPickRequest: selections maps game id to the chosen team
type upsertPickRequest struct {
	Selections      map[string]string `json:"selections" validate:"dive,keys,required,endkeys,required"`
	LockOfWeek      *selectionRequest `json:"lockOfWeek"`
	TouchdownScorer *scorerRequest    `json:"touchdownScorer"`
	PropBet         *propRequest      `json:"propBet"`
	IsFinalized     bool              `json:"isFinalized"`
}

func (req *upsertPickRequest) toDraft() (*models.PickDraft, error) {
	draft := &models.PickDraft{IsFinalized: req.IsFinalized}
	for key, team := range req.Selections {
		gameID, err := strconv.Atoi(key)
		if err != nil || gameID <= 0 {
			return nil, apperror.Validation("invalid game id %q in selections", key)
		}
		draft.Selections = append(draft.Selections, models.Selection{GameID: gameID, Team: team})
	}
	sort.Slice(draft.Selections, func(i, j int) bool { return draft.Selections[i].GameID < draft.Selections[j].GameID })

	if req.LockOfWeek != nil {
		draft.LockOfWeek = &models.Selection{GameID: req.LockOfWeek.GameID, Team: req.LockOfWeek.Team}
	}
	if req.TouchdownScorer != nil {
		draft.TouchdownScorer = &models.ScorerPick{
			PlayerID:   req.TouchdownScorer.PlayerID,
			PlayerName: req.TouchdownScorer.PlayerName,
			GameID:     req.TouchdownScorer.GameID,
		}
	}
	if req.PropBet != nil {
		draft.PropBet = &models.PropBetDraft{Text: req.PropBet.Text, Odds: req.PropBet.Odds, GameID: req.PropBet.GameID}
	}
	return draft, nil
}

// PickHandler serves the current user's weekly pick
type PickHandler struct {
	responder
	picks         interfaces.PickService
	currentSeason int
}

func NewPickHandler(picks interfaces.PickService, currentSeason int, diagnostic bool) *PickHandler {
	return &PickHandler{
		responder:     newResponder("PickHandler", diagnostic),
		picks:         picks,
		currentSeason: currentSeason,
	}
}

func (h *PickHandler) weekAndSeason(r *http.Request) (week, season int, err error) {
	if week, err = pathInt(r, "week"); err != nil {
		return 0, 0, err
	}
	if season, err = queryInt(r, "season", h.currentSeason); err != nil {
		return 0, 0, err
	}
	return week, season, nil
}

// GetPick handles GET /picks/week/{week}
func (h *PickHandler) GetPick(w http.ResponseWriter, r *http.Request) {
	week, season, err := h.weekAndSeason(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	caller := callerFrom(r)

	pick, err := h.picks.GetPick(r.Context(), caller.UserID, season, week)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"pick": pick})
}

// UpsertPick handles PUT /picks/week/{week}
func (h *PickHandler) UpsertPick(w http.ResponseWriter, r *http.Request) {
	week, season, err := h.weekAndSeason(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	caller := callerFrom(r)

	var req upsertPickRequest
	if err := h.decode(r.Context(), r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	pick, err := h.picks.UpsertPick(r.Context(), caller.UserID, season, week, draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Infof("User %d saved week %d season %d pick", caller.UserID, week, season)
	h.writeJSON(w, http.StatusOK, pick)
}

// DeletePick handles DELETE /picks/week/{week}
func (h *PickHandler) DeletePick(w http.ResponseWriter, r *http.Request) {
	week, season, err := h.weekAndSeason(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	caller := callerFrom(r)

	if err := h.picks.DeletePick(r.Context(), caller.UserID, season, week); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ScorerClaims handles GET /picks/scorers/{season}
func (h *PickHandler) ScorerClaims(w http.ResponseWriter, r *http.Request) {
	season, err := pathInt(r, "season")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	caller := callerFrom(r)

	claims, err := h.picks.ScorerClaims(r.Context(), caller.UserID, season)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if claims == nil {
		claims = []*models.UsedTdScorer{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"season": season, "claims": claims})
}

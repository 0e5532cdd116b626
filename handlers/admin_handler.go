package handlers

import (
	"net/http"

	"nfl-pickem-live/interfaces"
	"nfl-pickem-live/models"
	"nfl-pickem-live/services"
)

type resolvePropsRequest struct {
	PickIDs []string `json:"pickIds" validate:"required,min=1,max=500,dive,required"`
	Outcome string   `json:"outcome" validate:"omitempty,oneof=correct incorrect"`
}

type touchdownScorersRequest struct {
	PlayerIDs []string `json:"playerIds" validate:"dive,required,max=64"`
}

// AdminHandler serves the administrator workflows: prop judgment and touchdown results
type AdminHandler struct {
	responder
	props   interfaces.PropService
	scoring interfaces.ScoringService
}

func NewAdminHandler(props interfaces.PropService, scoring interfaces.ScoringService, diagnostic bool) *AdminHandler {
	return &AdminHandler{
		responder: newResponder("AdminHandler", diagnostic),
		props:     props,
		scoring:   scoring,
	}
}

// ResolveProps handles POST /admin/resolve-props
func (h *AdminHandler) ResolveProps(w http.ResponseWriter, r *http.Request) {
	var req resolvePropsRequest
	if err := h.decode(r.Context(), r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	outcome, err := services.ParsePropOutcome(req.Outcome)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	caller := callerFrom(r)
	affected, err := h.props.Resolve(r.Context(), caller.UserID, req.PickIDs, outcome)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"affected": affected, "outcome": outcome})
}

// PendingProps handles GET /admin/props/{week}/{season}
func (h *AdminHandler) PendingProps(w http.ResponseWriter, r *http.Request) {
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

	picks, err := h.props.PendingProps(r.Context(), season, week)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if picks == nil {
		picks = []*models.Pick{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"season": season, "week": week, "picks": picks})
}

// TouchdownScorers handles POST /admin/touchdown-scorers/{week}/{season}
func (h *AdminHandler) TouchdownScorers(w http.ResponseWriter, r *http.Request) {
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

	var req touchdownScorersRequest
	if err := h.decode(r.Context(), r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.scoring.RecordTouchdownScorers(r.Context(), season, week, req.PlayerIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

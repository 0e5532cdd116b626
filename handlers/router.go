package handlers

import (
	"net/http"

	"nfl-pickem-live/middleware"

	"github.com/gorilla/mux"
)

// Routes groups the handlers mounted by NewRouter
type Routes struct {
	Picks   *PickHandler
	Scoring *ScoringHandler
	Admin   *AdminHandler
	Live    *LiveHandler
	Health  *HealthHandler
}

// NewRouter mounts every route with its auth boundary
func NewRouter(routes Routes, auth *middleware.AuthMiddleware) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Recover)

	user := func(h http.HandlerFunc) http.Handler { return auth.RequireAuth(h) }
	admin := func(h http.HandlerFunc) http.Handler { return auth.RequireAdmin(h) }
	optional := func(h http.HandlerFunc) http.Handler { return auth.OptionalAuth(h) }

	r.Handle("/picks/week/{week:[0-9]+}", user(routes.Picks.GetPick)).Methods(http.MethodGet)
	r.Handle("/picks/week/{week:[0-9]+}", user(routes.Picks.UpsertPick)).Methods(http.MethodPut)
	r.Handle("/picks/week/{week:[0-9]+}", user(routes.Picks.DeletePick)).Methods(http.MethodDelete)
	r.Handle("/picks/scorers/{season:[0-9]+}", user(routes.Picks.ScorerClaims)).Methods(http.MethodGet)

	r.Handle("/admin/resolve-props", admin(routes.Admin.ResolveProps)).Methods(http.MethodPost)
	r.Handle("/admin/props/{week:[0-9]+}/{season:[0-9]+}", admin(routes.Admin.PendingProps)).Methods(http.MethodGet)
	r.Handle("/admin/touchdown-scorers/{week:[0-9]+}/{season:[0-9]+}", admin(routes.Admin.TouchdownScorers)).Methods(http.MethodPost)

	r.Handle("/scoring/calculate-weekly/{week:[0-9]+}/{season:[0-9]+}", admin(routes.Scoring.CalculateWeekly)).Methods(http.MethodPost)
	r.Handle("/scoring/user/{userId:[0-9]+}/week/{week:[0-9]+}/{season:[0-9]+}", user(routes.Scoring.UserWeek)).Methods(http.MethodGet)
	r.Handle("/scoring/user/{userId:[0-9]+}/season/{season:[0-9]+}", user(routes.Scoring.UserSeason)).Methods(http.MethodGet)
	r.HandleFunc("/scoring/weekly-summary/{week:[0-9]+}/{season:[0-9]+}", routes.Scoring.WeeklySummary).Methods(http.MethodGet)
	r.HandleFunc("/leaderboard/{season:[0-9]+}", routes.Scoring.Leaderboard).Methods(http.MethodGet)

	r.Handle("/live/stream", optional(routes.Live.Stream)).Methods(http.MethodGet)
	r.Handle("/live/ws", optional(routes.Live.WebSocket)).Methods(http.MethodGet)

	r.HandleFunc("/healthz", routes.Health.Health).Methods(http.MethodGet)
	return r
}

package main

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"nfl-pickem-live/config"
	"nfl-pickem-live/database"
	"nfl-pickem-live/handlers"
	"nfl-pickem-live/logging"
	"nfl-pickem-live/middleware"
	"nfl-pickem-live/services"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
)

// stores groups the repositories for either backend. db is nil for the memory store.
type stores struct {
	db         *database.MongoDB
	games      services.GameRepository
	picks      services.PickRepository
	scorers    services.ScorerRegistry
	weekly     services.WeeklyScoreRepository
	totals     services.SeasonTotalRepository
	touchdowns services.TouchdownResultRepository
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.UsesMemoryStore() {
		games := database.NewMemoryGameRepository()
		if cfg.Database.ScheduleFile != "" {
			schedule, err := database.LoadScheduleFile(cfg.Database.ScheduleFile)
			if err != nil {
				return nil, err
			}
			games = database.NewMemoryGameRepository(schedule...)
			logging.Infof("Seeded %d games from %s", len(schedule), cfg.Database.ScheduleFile)
		}
		return &stores{
			games:      games,
			picks:      database.NewMemoryPickRepository(),
			scorers:    database.NewMemoryScorerRegistry(),
			weekly:     database.NewMemoryWeeklyScoreRepository(),
			totals:     database.NewMemorySeasonTotalRepository(),
			touchdowns: database.NewMemoryTouchdownResultRepository(),
		}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Database.Timeout)
	defer cancel()
	db, err := database.NewMongoConnection(connectCtx, cfg.ToDatabaseConfig())
	if err != nil {
		return nil, err
	}

	st := &stores{
		db:         db,
		games:      database.NewMongoGameRepository(db),
		touchdowns: database.NewMongoTouchdownResultRepository(db),
	}
	fail := func(err error) (*stores, error) {
		_ = db.Close()
		return nil, err
	}
	if st.picks, err = database.NewMongoPickRepository(db); err != nil {
		return fail(err)
	}
	if st.scorers, err = database.NewMongoUsedScorerRepository(db); err != nil {
		return fail(err)
	}
	if st.weekly, err = database.NewMongoWeeklyScoreRepository(db); err != nil {
		return fail(err)
	}
	if st.totals, err = database.NewMongoSeasonTotalRepository(db); err != nil {
		return fail(err)
	}
	return st, nil
}

type app struct {
	cfg     *config.Config
	stores  *stores
	hub     *services.Hub
	ticker  *services.RevealTicker
	watcher *services.GameWatcher
	relay   *services.Relay
	nc      *nats.Conn
	server  *http.Server

	closeOnce sync.Once
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open stores")
	}
	a := &app{cfg: cfg, stores: st}

	clock := clockwork.NewRealClock()
	schedule := services.NewScheduleCache(st.games)
	a.hub = services.NewHub(cfg.ToHubConfig(), schedule, clock)

	var notifier services.ChangeNotifier = a.hub
	if cfg.RelayEnabled() {
		a.nc, err = services.ConnectNATS(cfg.Messaging.NATSURL, "nfl-pickem-live")
		if err != nil {
			a.Close()
			return nil, err
		}
		a.relay = services.NewRelay(a.hub, a.nc, cfg.Messaging.Subject)
		if err := a.relay.Start(); err != nil {
			a.Close()
			return nil, err
		}
		notifier = a.relay
	}

	picks := services.NewPickService(st.picks, st.scorers, schedule, notifier, clock)
	a.hub.SetPickSource(picks)
	leaderboard := services.NewLeaderboardService(st.weekly, st.totals)
	scoring := services.NewScoringService(cfg.ToScoringPolicy(), st.picks, schedule, st.touchdowns, st.weekly, leaderboard, notifier)
	props := services.NewPropService(st.picks, schedule, clock)
	tokens := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	a.ticker = services.NewRevealTicker(a.hub, schedule, picks, cfg.App.CurrentSeason, cfg.Live.Tick, clock)
	if st.db != nil && cfg.Live.WatchGames {
		a.watcher = services.NewGameWatcher(st.db, a.hub, clock)
	}

	diagnostic := cfg.App.DiagnosticErrors
	health := handlers.NewHealthHandler(nil)
	if st.db != nil {
		health = handlers.NewHealthHandler(st.db)
	}
	router := handlers.NewRouter(handlers.Routes{
		Picks:   handlers.NewPickHandler(picks, cfg.App.CurrentSeason, diagnostic),
		Scoring: handlers.NewScoringHandler(scoring, leaderboard, diagnostic),
		Admin:   handlers.NewAdminHandler(props, scoring, diagnostic),
		Live:    handlers.NewLiveHandler(a.hub, cfg.App.CurrentSeason, cfg.Live.AllowedOrigins, diagnostic),
		Health:  health,
	}, middleware.NewAuthMiddleware(tokens, cfg.Auth.AdminKeyHash))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Live.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Last-Event-ID", middleware.AdminKeyHeader},
		AllowCredentials: !allowsAnyOrigin(cfg.Live.AllowedOrigins),
		MaxAge:           600,
	})

	var handler http.Handler = router
	handler = corsHandler.Handler(handler)
	handler = middleware.SecurityHeaders(cfg.Server.BehindProxy)(handler)
	handler = middleware.RequestLogger(handler)

	// no write timeout: the live routes hold the response open. Streams end through
	// the base context, which is cancelled as soon as Shutdown starts.
	baseCtx, cancelStreams := context.WithCancel(context.Background())
	a.server = &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	a.server.RegisterOnShutdown(cancelStreams)
	return a, nil
}

// browsers reject credentialed responses with a wildcard origin
func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// Run serves until ctx is done or a component fails, then shuts the server down
func (a *app) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger := logging.WithPrefix("Server")
		if a.cfg.Server.UseTLS && !a.cfg.Server.BehindProxy {
			logger.Infof("Listening on https://%s", a.server.Addr)
			err := a.server.ListenAndServeTLS(a.cfg.Server.CertFile, a.cfg.Server.KeyFile)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return errors.Wrap(err, "serve TLS")
		}
		logger.Infof("Listening on http://%s", a.server.Addr)
		if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve")
		}
		return nil
	})

	g.Go(func() error {
		return a.ticker.Run(gctx)
	})

	if a.watcher != nil {
		g.Go(func() error {
			return a.watcher.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		logging.Info("Shutting down")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})

	return g.Wait()
}

// Close releases the relay, NATS and the store. Safe to call more than once.
func (a *app) Close() {
	a.closeOnce.Do(func() {
		if a.relay != nil {
			a.relay.Stop()
		}
		if a.nc != nil {
			if err := a.nc.Drain(); err != nil {
				logging.Warnf("NATS drain: %v", err)
			}
		}
		if a.stores != nil && a.stores.db != nil {
			if err := a.stores.db.Close(); err != nil {
				logging.Warnf("Close store: %v", err)
			}
		}
	})
}

package services

import (
	"context"
	"sync"
	"time"

	"nfl-pickem-live/logging"
	"nfl-pickem-live/models"

	"github.com/jonboulle/clockwork"
)

// EventType names a live stream event
type EventType string

const (
	EventSnapshot      EventType = "snapshot"
	EventPickUpdated   EventType = "pick-updated"
	EventPickDeleted   EventType = "pick-deleted"
	EventReveal        EventType = "reveal"
	EventScoresUpdated EventType = "scores-updated"
	EventGameUpdated   EventType = "game-updated"
	EventResync        EventType = "resync"
)

// Event is a committed change as kept in the replay buffer. Picks are stored
// unredacted; every subscriber redacts them for itself when the event is emitted.
type Event struct {
	ID     uint64
	Type   EventType
	Season int
	Week   int
	UserID int
	Picks  []*models.Pick
	Scores []*models.WeeklyScore
	Game   *models.Game
}

// Message is an Event rendered for one subscriber
type Message struct {
	ID   uint64      `json:"id"`
	Type EventType   `json:"event"`
	Data interface{} `json:"data"`
}

// WeekPayload carries the redacted picks of a week (snapshot and reveal events)
type WeekPayload struct {
	Season int               `json:"season"`
	Week   int               `json:"week"`
	Picks  []models.PickView `json:"picks"`
}

// PickDeletedPayload identifies a removed pick
type PickDeletedPayload struct {
	UserID int `json:"user_id"`
	Season int `json:"season"`
	Week   int `json:"week"`
}

// ScoresPayload carries a freshly scored week
type ScoresPayload struct {
	Season int                   `json:"season"`
	Week   int                   `json:"week"`
	Scores []*models.WeeklyScore `json:"scores"`
}

// ResyncPayload tells a client its resume point is gone and it must refetch
type ResyncPayload struct {
	Reason string `json:"reason"`
}

// WeekGames resolves a week's games for redaction
type WeekGames interface {
	LastKnownGamesForWeek(ctx context.Context, season, week int) (models.GameIndex, error)
}

// WeekPicks lists the picks of a week for snapshots
type WeekPicks interface {
	PicksForWeek(ctx context.Context, season, week int) ([]*models.Pick, error)
}

// HubConfig sizes the replay buffer and the heartbeat
type HubConfig struct {
	ReplaySize int
	Heartbeat  time.Duration
}

// Hub fans committed changes out to live subscribers. Publishing never blocks: the event
// goes into a bounded replay ring and each subscriber is poked through a one-slot wake channel.
type Hub struct {
	mu     sync.RWMutex
	events []*Event
	lastID uint64
	subs   map[*Subscription]struct{}

	config HubConfig
	games  WeekGames
	picks  WeekPicks
	clock  clockwork.Clock
	logger *logging.Logger
}

func NewHub(config HubConfig, games WeekGames, clock clockwork.Clock) *Hub {
	if config.ReplaySize <= 0 {
		config.ReplaySize = 512
	}
	if config.Heartbeat <= 0 {
		config.Heartbeat = 30 * time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Hub{
		events: make([]*Event, 0, config.ReplaySize),
		// ids start from the boot time so a restarted process never reuses a client's resume id
		lastID: uint64(clock.Now().UnixMicro()),
		subs:   make(map[*Subscription]struct{}),
		config: config,
		games:  games,
		clock:  clock,
		logger: logging.WithPrefix("LiveHub"),
	}
}

// SetPickSource enables snapshots for fresh subscribers
func (h *Hub) SetPickSource(picks WeekPicks) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.picks = picks
}

func (h *Hub) Clock() clockwork.Clock {
	return h.clock
}

// NewHeartbeat returns a ticker at the configured heartbeat interval
func (h *Hub) NewHeartbeat() clockwork.Ticker {
	return h.clock.NewTicker(h.config.Heartbeat)
}

// LastEventID returns the id of the newest published event
func (h *Hub) LastEventID() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastID
}

// SubscriberCount returns the number of open subscriptions
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) publish(ev *Event) uint64 {
	h.mu.Lock()
	h.lastID++
	ev.ID = h.lastID
	if len(h.events) == h.config.ReplaySize {
		copy(h.events, h.events[1:])
		h.events = h.events[:len(h.events)-1]
	}
	h.events = append(h.events, ev)
	for sub := range h.subs {
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
	h.mu.Unlock()
	return ev.ID
}

// PickChanged publishes a committed pick
func (h *Hub) PickChanged(pick *models.Pick) {
	h.publish(&Event{Type: EventPickUpdated, Season: pick.Season, Week: pick.Week, UserID: pick.UserID, Picks: []*models.Pick{pick}})
}

// PickDeleted publishes a removed pick
func (h *Hub) PickDeleted(userID, season, week int) {
	h.publish(&Event{Type: EventPickDeleted, Season: season, Week: week, UserID: userID})
}

// ScoresUpdated publishes a scored week
func (h *Hub) ScoresUpdated(season, week int, scores []*models.WeeklyScore) {
	h.publish(&Event{Type: EventScoresUpdated, Season: season, Week: week, Scores: scores})
}

// PublishReveal republishes every pick of a week after a kickoff boundary passed
func (h *Hub) PublishReveal(season, week int, picks []*models.Pick) {
	h.publish(&Event{Type: EventReveal, Season: season, Week: week, Picks: picks})
}

// PublishGame publishes a schedule change reported by the feed
func (h *Hub) PublishGame(game *models.Game) {
	h.publish(&Event{Type: EventGameUpdated, Season: game.Season, Week: game.Week, Game: game})
}

// StreamFilter limits a subscription to a season and week; zero matches any
type StreamFilter struct {
	Season int
	Week   int
}

func (f StreamFilter) matches(ev *Event) bool {
	return (f.Season == 0 || f.Season == ev.Season) && (f.Week == 0 || f.Week == ev.Week)
}

// Subscribe registers a viewer. viewerID 0 is an anonymous viewer. With lastEventID the
// subscription resumes after that event; without it, a week filter yields a snapshot first.
func (h *Hub) Subscribe(viewerID int, filter StreamFilter, lastEventID uint64) *Subscription {
	sub := &Subscription{
		hub:      h,
		viewerID: viewerID,
		filter:   filter,
		wake:     make(chan struct{}, 1),
	}

	h.mu.Lock()
	if lastEventID == 0 {
		sub.cursor = h.lastID
		sub.snapshot = filter.Season != 0 && filter.Week != 0
	} else {
		sub.cursor = lastEventID
	}
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	// a resuming subscriber may already be behind
	sub.wake <- struct{}{}
	h.logger.Debugf("Subscriber joined (viewer %d, season %d, week %d, resume %d)", viewerID, filter.Season, filter.Week, lastEventID)
	return sub
}

// pending returns the buffered events after cursor. gap is true when events after
// cursor have already been evicted or the cursor is from another process.
func (h *Hub) pending(cursor uint64) (events []*Event, lastID uint64, gap bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	lastID = h.lastID
	if cursor > lastID {
		return nil, lastID, true
	}
	if cursor == lastID {
		return nil, lastID, false
	}
	if len(h.events) == 0 || cursor+1 < h.events[0].ID {
		return nil, lastID, true
	}
	start := int(cursor + 1 - h.events[0].ID)
	return append([]*Event(nil), h.events[start:]...), lastID, false
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, sub)
}

// Subscription is one viewer's cursor into the hub
type Subscription struct {
	hub      *Hub
	viewerID int
	filter   StreamFilter
	cursor   uint64
	snapshot bool
	wake     chan struct{}
	once     sync.Once
}

// Wake fires when events may be pending
func (s *Subscription) Wake() <-chan struct{} {
	return s.wake
}

// Cursor is the id of the last event delivered
func (s *Subscription) Cursor() uint64 {
	return s.cursor
}

// Close removes the subscription from the hub. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		s.hub.logger.Debugf("Subscriber left (viewer %d)", s.viewerID)
	})
}

// Drain renders every pending event for this viewer, redacting at the current time.
// It is not safe for concurrent use by multiple goroutines.
func (s *Subscription) Drain(ctx context.Context) []Message {
	var out []Message

	if s.snapshot {
		s.snapshot = false
		if msg, ok := s.renderSnapshot(ctx); ok {
			out = append(out, msg)
		}
	}

	events, lastID, gap := s.hub.pending(s.cursor)
	if gap {
		s.cursor = lastID
		return append(out, Message{
			ID:   lastID,
			Type: EventResync,
			Data: ResyncPayload{Reason: "resume point no longer available"},
		})
	}

	now := s.hub.clock.Now()
	weeks := make(map[seasonWeek]models.GameIndex)
	for _, ev := range events {
		s.cursor = ev.ID
		if !s.filter.matches(ev) {
			continue
		}
		out = append(out, s.render(ctx, ev, now, weeks))
	}
	return out
}

func (s *Subscription) render(ctx context.Context, ev *Event, now time.Time, weeks map[seasonWeek]models.GameIndex) Message {
	msg := Message{ID: ev.ID, Type: ev.Type}
	switch ev.Type {
	case EventPickUpdated:
		games := s.gamesFor(ctx, ev.Season, ev.Week, weeks)
		msg.Data = models.RedactPick(ev.Picks[0], games, s.viewerID, now)
	case EventReveal:
		games := s.gamesFor(ctx, ev.Season, ev.Week, weeks)
		msg.Data = WeekPayload{Season: ev.Season, Week: ev.Week, Picks: redactAll(ev.Picks, games, s.viewerID, now)}
	case EventPickDeleted:
		msg.Data = PickDeletedPayload{UserID: ev.UserID, Season: ev.Season, Week: ev.Week}
	case EventScoresUpdated:
		msg.Data = ScoresPayload{Season: ev.Season, Week: ev.Week, Scores: ev.Scores}
	case EventGameUpdated:
		msg.Data = ev.Game
	}
	return msg
}

func (s *Subscription) renderSnapshot(ctx context.Context) (Message, bool) {
	s.hub.mu.RLock()
	source := s.hub.picks
	s.hub.mu.RUnlock()
	if source == nil {
		return Message{}, false
	}

	picks, err := source.PicksForWeek(ctx, s.filter.Season, s.filter.Week)
	if err != nil {
		s.hub.logger.Warnf("Snapshot for week %d season %d failed: %v", s.filter.Week, s.filter.Season, err)
		return Message{}, false
	}
	games := s.gamesFor(ctx, s.filter.Season, s.filter.Week, map[seasonWeek]models.GameIndex{})
	return Message{
		ID:   s.cursor,
		Type: EventSnapshot,
		Data: WeekPayload{
			Season: s.filter.Season,
			Week:   s.filter.Week,
			Picks:  redactAll(picks, games, s.viewerID, s.hub.clock.Now()),
		},
	}, true
}

// gamesFor falls back to an empty index when the schedule is unavailable, which hides
// every non-owned field.
func (s *Subscription) gamesFor(ctx context.Context, season, week int, cache map[seasonWeek]models.GameIndex) models.GameIndex {
	key := seasonWeek{season, week}
	if games, ok := cache[key]; ok {
		return games
	}
	games, err := s.hub.games.LastKnownGamesForWeek(ctx, season, week)
	if err != nil {
		s.hub.logger.Warnf("Redacting week %d season %d without schedule: %v", week, season, err)
		games = models.GameIndex{}
	}
	cache[key] = games
	return games
}

func redactAll(picks []*models.Pick, games models.GameIndex, viewerID int, now time.Time) []models.PickView {
	views := make([]models.PickView, 0, len(picks))
	for _, p := range picks {
		views = append(views, models.RedactPick(p, games, viewerID, now))
	}
	return views
}

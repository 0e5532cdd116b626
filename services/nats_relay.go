package services

import (
	"encoding/json"
	"time"

	"nfl-pickem-live/logging"
	"nfl-pickem-live/models"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// MessageBus is the part of a NATS connection the relay uses
type MessageBus interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
}

type relayEnvelope struct {
	ID     string                `json:"id"`
	Origin string                `json:"origin"`
	Type   EventType             `json:"type"`
	Season int                   `json:"season"`
	Week   int                   `json:"week"`
	UserID int                   `json:"user_id,omitempty"`
	Pick   *models.Pick          `json:"pick,omitempty"`
	Scores []*models.WeeklyScore `json:"scores,omitempty"`
	SentAt time.Time             `json:"sent_at"`
}

// Relay is a ChangeNotifier that feeds the local hub and mirrors every committed change
// to other instances over NATS. Changes from other instances are republished locally.
// Game updates and reveals are not relayed: every instance derives them itself.
type Relay struct {
	local    ChangeNotifier
	bus      MessageBus
	subject  string
	instance string
	sub      *nats.Subscription
	logger   *logging.Logger
}

func NewRelay(local ChangeNotifier, bus MessageBus, subject string) *Relay {
	return &Relay{
		local:    local,
		bus:      bus,
		subject:  subject,
		instance: uuid.NewString(),
		logger:   logging.WithPrefix("Relay"),
	}
}

// ConnectNATS dials the server with reconnect logging
func ConnectNATS(url, name string) (*nats.Conn, error) {
	logger := logging.WithPrefix("NATS")
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("Disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("Reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Errorf("Async error: %v", err)
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to NATS at %s", url)
	}
	return nc, nil
}

// Instance is the id stamped on outgoing envelopes
func (r *Relay) Instance() string {
	return r.instance
}

// Start subscribes to the relay subject
func (r *Relay) Start() error {
	sub, err := r.bus.Subscribe(r.subject, r.handle)
	if err != nil {
		return errors.Wrapf(err, "subscribe to %s", r.subject)
	}
	r.sub = sub
	r.logger.Infof("Relaying changes on %s as %s", r.subject, r.instance)
	return nil
}

// Stop drops the subscription
func (r *Relay) Stop() {
	if r.sub != nil {
		if err := r.sub.Unsubscribe(); err != nil {
			r.logger.Warnf("Unsubscribe: %v", err)
		}
		r.sub = nil
	}
}

func (r *Relay) PickChanged(pick *models.Pick) {
	r.local.PickChanged(pick)
	r.send(relayEnvelope{Type: EventPickUpdated, Season: pick.Season, Week: pick.Week, UserID: pick.UserID, Pick: pick})
}

func (r *Relay) PickDeleted(userID, season, week int) {
	r.local.PickDeleted(userID, season, week)
	r.send(relayEnvelope{Type: EventPickDeleted, Season: season, Week: week, UserID: userID})
}

func (r *Relay) ScoresUpdated(season, week int, scores []*models.WeeklyScore) {
	r.local.ScoresUpdated(season, week, scores)
	r.send(relayEnvelope{Type: EventScoresUpdated, Season: season, Week: week, Scores: scores})
}

// send is best effort: the local commit and local fan-out have already happened
func (r *Relay) send(env relayEnvelope) {
	env.ID = uuid.NewString()
	env.Origin = r.instance
	env.SentAt = time.Now().UTC()

	data, err := json.Marshal(env)
	if err != nil {
		r.logger.Errorf("Encoding %s envelope: %v", env.Type, err)
		return
	}
	if err := r.bus.Publish(r.subject, data); err != nil {
		r.logger.Warnf("Publishing %s for week %d season %d: %v", env.Type, env.Week, env.Season, err)
	}
}

func (r *Relay) handle(msg *nats.Msg) {
	var env relayEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		r.logger.Warnf("Dropping malformed envelope: %v", err)
		return
	}
	if env.Origin == r.instance {
		return
	}

	switch env.Type {
	case EventPickUpdated:
		if env.Pick == nil {
			r.logger.Warnf("Envelope %s has no pick", env.ID)
			return
		}
		r.local.PickChanged(env.Pick)
	case EventPickDeleted:
		r.local.PickDeleted(env.UserID, env.Season, env.Week)
	case EventScoresUpdated:
		r.local.ScoresUpdated(env.Season, env.Week, env.Scores)
	default:
		r.logger.Warnf("Ignoring envelope type %q", env.Type)
	}
}

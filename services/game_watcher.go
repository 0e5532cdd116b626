package services

import (
	"context"
	"time"

	"nfl-pickem-live/database"
	"nfl-pickem-live/logging"
	"nfl-pickem-live/models"

	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// gameChange is the subset of a change stream document the watcher needs
type gameChange struct {
	OperationType string       `bson:"operationType"`
	FullDocument  *models.Game `bson:"fullDocument"`
}

// GameWatcher follows the games collection change stream and publishes every meaningful
// game change (inserts, state and score updates) to the hub. It reconnects on stream errors.
type GameWatcher struct {
	db         *database.MongoDB
	hub        *Hub
	clock      clockwork.Clock
	retryDelay time.Duration
	logger     *logging.Logger
}

func NewGameWatcher(db *database.MongoDB, hub *Hub, clock clockwork.Clock) *GameWatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &GameWatcher{
		db:         db,
		hub:        hub,
		clock:      clock,
		retryDelay: 5 * time.Second,
		logger:     logging.WithPrefix("GameWatcher"),
	}
}

func gameChangePipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"$or": []bson.M{
				{"operationType": bson.M{"$in": []string{"insert", "replace"}}},
				{
					"operationType": "update",
					"$or": []bson.M{
						{"updateDescription.updatedFields.state": bson.M{"$exists": true}},
						{"updateDescription.updatedFields.awayScore": bson.M{"$exists": true}},
						{"updateDescription.updatedFields.homeScore": bson.M{"$exists": true}},
						{"updateDescription.updatedFields.date": bson.M{"$exists": true}},
					},
				},
			},
		}}},
	}
}

// Run watches until ctx is done
func (w *GameWatcher) Run(ctx context.Context) error {
	collection := w.db.GetCollection(database.GamesCollection)
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	for {
		stream, err := collection.Watch(ctx, gameChangePipeline(), opts)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Warnf("Opening change stream failed, retrying in %s: %v", w.retryDelay, err)
		} else {
			w.logger.Info("Watching games collection")
			w.consume(ctx, stream)
			if err := stream.Err(); err != nil && ctx.Err() == nil {
				w.logger.Warnf("Change stream error: %v", err)
			}
			stream.Close(context.Background())
		}

		select {
		case <-ctx.Done():
			w.logger.Info("Stopped")
			return nil
		case <-w.clock.After(w.retryDelay):
		}
	}
}

func (w *GameWatcher) consume(ctx context.Context, stream *mongo.ChangeStream) {
	for stream.Next(ctx) {
		var change gameChange
		if err := stream.Decode(&change); err != nil {
			w.logger.Warnf("Decoding change event: %v", err)
			continue
		}
		if change.FullDocument == nil {
			continue
		}
		game := change.FullDocument
		w.logger.Debugf("Week %d %s @ %s %s (%d-%d)", game.Week, game.Away, game.Home, change.OperationType, game.AwayScore, game.HomeScore)
		w.hub.PublishGame(game)
	}
}

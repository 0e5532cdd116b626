package database

import (
	"context"

	"nfl-pickem-live/logging"
	"nfl-pickem-live/models"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoGameRepository reads the games collection. The request path never writes;
// BulkUpsert exists for schedule imports.
type MongoGameRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
}

func NewMongoGameRepository(db *MongoDB) *MongoGameRepository {
	return &MongoGameRepository{
		collection: db.GetCollection(GamesCollection),
		logger:     logging.WithPrefix("GameRepo"),
	}
}

// FindByWeek returns the week's games in kickoff order
func (r *MongoGameRepository) FindByWeek(ctx context.Context, season, week int) ([]*models.Game, error) {
	return r.find(ctx, bson.M{"season": season, "week": week})
}

// FindBySeason returns every game of the season in kickoff order
func (r *MongoGameRepository) FindBySeason(ctx context.Context, season int) ([]*models.Game, error) {
	return r.find(ctx, bson.M{"season": season})
}

func (r *MongoGameRepository) find(ctx context.Context, filter bson.M) ([]*models.Game, error) {
	sortOptions := options.Find().SetSort(bson.D{
		{Key: "date", Value: 1},
		{Key: "home", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, sortOptions)
	if err != nil {
		return nil, errors.Wrap(err, "find games")
	}
	defer cursor.Close(ctx)

	var games []*models.Game
	if err := cursor.All(ctx, &games); err != nil {
		return nil, errors.Wrap(err, "decode games")
	}
	return games, nil
}

// BulkUpsert writes games keyed by (id, season). $set keeps unchanged documents from
// producing change events.
func (r *MongoGameRepository) BulkUpsert(ctx context.Context, games []*models.Game) error {
	if len(games) == 0 {
		return nil
	}

	operations := make([]mongo.WriteModel, 0, len(games))
	for _, game := range games {
		update := bson.M{"$set": bson.M{
			"id":        game.ID,
			"season":    game.Season,
			"week":      game.Week,
			"date":      game.Date,
			"away":      game.Away,
			"home":      game.Home,
			"state":     game.State,
			"awayScore": game.AwayScore,
			"homeScore": game.HomeScore,
		}}
		operations = append(operations, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"id": game.ID, "season": game.Season}).
			SetUpdate(update).
			SetUpsert(true))
	}

	result, err := r.collection.BulkWrite(ctx, operations, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return errors.Wrapf(err, "bulk upsert %d games", len(games))
	}
	r.logger.Infof("Processed %d games: %d upserted, %d modified",
		len(games), result.UpsertedCount, result.ModifiedCount)
	return nil
}

package database

import (
	"context"
	"time"

	"nfl-pickem-live/apperror"
	"nfl-pickem-live/models"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUsedScorerRepository is the touchdown-scorer registry backed by a unique index
// on (user_id, season, player_id). The index is the atomic check-and-insert.
type MongoUsedScorerRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoUsedScorerRepository creates the repository and its unique index
func NewMongoUsedScorerRepository(db *MongoDB) (*MongoUsedScorerRepository, error) {
	collection := db.GetCollection("used_td_scorers")

	ctx, cancel := WithMediumTimeout()
	defer cancel()

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "season", Value: 1}, {Key: "player_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("user_season_player_unique"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create used scorer index")
	}

	return &MongoUsedScorerRepository{collection: collection, now: time.Now}, nil
}

// Claim inserts the claim; a duplicate key means the player was already used this season
func (r *MongoUsedScorerRepository) Claim(ctx context.Context, userID, season int, playerID string, week int) error {
	_, err := r.collection.InsertOne(ctx, models.UsedTdScorer{
		UserID:    userID,
		Season:    season,
		PlayerID:  playerID,
		Week:      week,
		ClaimedAt: r.now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return apperror.Conflict("touchdown scorer %s already used by user %d in season %d", playerID, userID, season)
	}
	if err != nil {
		return errors.Wrap(err, "claim touchdown scorer")
	}
	return nil
}

// Release frees the claim. Releasing an absent claim is not an error.
func (r *MongoUsedScorerRepository) Release(ctx context.Context, userID, season int, playerID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID, "season": season, "player_id": playerID})
	if err != nil {
		return errors.Wrap(err, "release touchdown scorer")
	}
	return nil
}

// Claims lists a user's claims for the season ordered by week
func (r *MongoUsedScorerRepository) Claims(ctx context.Context, userID, season int) ([]*models.UsedTdScorer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "week", Value: 1}, {Key: "player_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID, "season": season}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find scorer claims")
	}
	defer cursor.Close(ctx)

	var claims []*models.UsedTdScorer
	if err := cursor.All(ctx, &claims); err != nil {
		return nil, errors.Wrap(err, "decode scorer claims")
	}
	return claims, nil
}

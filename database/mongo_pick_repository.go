package database

import (
	"context"

	"nfl-pickem-live/apperror"
	"nfl-pickem-live/logging"
	"nfl-pickem-live/models"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPickRepository stores one Pick document per (user_id, season, week)
type MongoPickRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
}

// NewMongoPickRepository creates the repository and its indexes
func NewMongoPickRepository(db *MongoDB) (*MongoPickRepository, error) {
	collection := db.GetCollection("picks")

	ctx, cancel := WithMediumTimeout()
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "season", Value: 1}, {Key: "week", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("user_season_week_unique"),
		},
		{
			Keys: bson.D{{Key: "season", Value: 1}, {Key: "week", Value: 1}, {Key: "prop_bet.resolution.status", Value: 1}},
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, errors.Wrap(err, "create pick indexes")
	}

	return &MongoPickRepository{
		collection: collection,
		logger:     logging.WithPrefix("PickRepo"),
	}, nil
}

// FindByUserWeek returns the pick or nil when absent
func (r *MongoPickRepository) FindByUserWeek(ctx context.Context, userID, season, week int) (*models.Pick, error) {
	filter := bson.M{"user_id": userID, "season": season, "week": week}

	var pick models.Pick
	err := r.collection.FindOne(ctx, filter).Decode(&pick)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find pick")
	}
	return &pick, nil
}

// FindByIDs returns the picks with the given ids, missing ids are skipped
func (r *MongoPickRepository) FindByIDs(ctx context.Context, ids []string) ([]*models.Pick, error) {
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// FindAllByWeek returns every user's pick for the week ordered by user id
func (r *MongoPickRepository) FindAllByWeek(ctx context.Context, season, week int) ([]*models.Pick, error) {
	return r.find(ctx, bson.M{"season": season, "week": week})
}

// FindPendingProps returns picks of the week whose prop has not been resolved
func (r *MongoPickRepository) FindPendingProps(ctx context.Context, season, week int) ([]*models.Pick, error) {
	return r.find(ctx, bson.M{
		"season":                     season,
		"week":                       week,
		"prop_bet.resolution.status": models.PropPending,
	})
}

func (r *MongoPickRepository) find(ctx context.Context, filter bson.M) ([]*models.Pick, error) {
	opts := options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find picks")
	}
	defer cursor.Close(ctx)

	var picks []*models.Pick
	if err := cursor.All(ctx, &picks); err != nil {
		return nil, errors.Wrap(err, "decode picks")
	}
	return picks, nil
}

// Upsert writes the pick keyed by (user_id, season, week). It is an update pipeline so the
// stored prop_bet is kept when it is already judged, whatever the caller read before.
// Client values go through $literal since a pipeline reads "$..." strings as field paths.
// Two concurrent first inserts can both miss the filter and one then fails on the unique
// index; replaying the same update turns it into a plain update, so that case is retried once.
func (r *MongoPickRepository) Upsert(ctx context.Context, pick *models.Pick) error {
	filter := bson.M{"user_id": pick.UserID, "season": pick.Season, "week": pick.Week}
	judged := bson.M{"$in": bson.A{
		"$prop_bet.resolution.status",
		bson.A{models.PropCorrect, models.PropIncorrect},
	}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"_id":              bson.M{"$ifNull": bson.A{"$_id", pick.ID}},
			"created_at":       bson.M{"$ifNull": bson.A{"$created_at", pick.CreatedAt}},
			"selections":       bson.M{"$literal": pick.Selections},
			"lock_of_week":     bson.M{"$literal": pick.LockOfWeek},
			"touchdown_scorer": bson.M{"$literal": pick.TouchdownScorer},
			"prop_bet":         bson.M{"$cond": bson.A{judged, "$prop_bet", bson.M{"$literal": pick.PropBet}}},
			"is_finalized":     pick.IsFinalized,
			"updated_at":       pick.UpdatedAt,
		}}},
	}
	opts := options.Update().SetUpsert(true)

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		r.logger.Warnf("Upsert race for user %d week %d season %d, retrying once", pick.UserID, pick.Week, pick.Season)
		_, err = r.collection.UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return errors.Wrap(err, "upsert pick")
	}
	return nil
}

// Delete removes the pick, NotFound when there is none
func (r *MongoPickRepository) Delete(ctx context.Context, userID, season, week int) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID, "season": season, "week": week})
	if err != nil {
		return errors.Wrap(err, "delete pick")
	}
	if result.DeletedCount == 0 {
		return apperror.NotFound("no pick for user %d week %d season %d", userID, week, season)
	}
	return nil
}

// ResolveProps moves pending props of the given picks to resolution and returns how many changed.
// The status filter makes each document's transition atomic and already-resolved ids a no-op.
func (r *MongoPickRepository) ResolveProps(ctx context.Context, pickIDs []string, resolution models.PropResolution) (int, error) {
	filter := bson.M{
		"_id":                        bson.M{"$in": pickIDs},
		"prop_bet.resolution.status": models.PropPending,
	}
	update := bson.M{"$set": bson.M{"prop_bet.resolution": resolution}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, errors.Wrap(err, "resolve props")
	}
	return int(result.ModifiedCount), nil
}

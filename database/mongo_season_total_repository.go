package database

import (
	"context"

	"nfl-pickem-live/models"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSeasonTotalRepository stores the leaderboard read model
type MongoSeasonTotalRepository struct {
	collection *mongo.Collection
}

func NewMongoSeasonTotalRepository(db *MongoDB) (*MongoSeasonTotalRepository, error) {
	collection := db.GetCollection("season_totals")

	ctx, cancel := WithMediumTimeout()
	defer cancel()

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "season", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create season total index")
	}
	return &MongoSeasonTotalRepository{collection: collection}, nil
}

// ReplaceSeason overwrites the season's totals with totals
func (r *MongoSeasonTotalRepository) ReplaceSeason(ctx context.Context, season int, totals []*models.SeasonTotal) error {
	userIDs := make([]int, 0, len(totals))
	writes := make([]mongo.WriteModel, 0, len(totals))
	for _, total := range totals {
		userIDs = append(userIDs, total.UserID)
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"user_id": total.UserID, "season": season}).
			SetReplacement(total).
			SetUpsert(true))
	}

	if len(writes) > 0 {
		if _, err := r.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
			return errors.Wrapf(err, "write season %d totals", season)
		}
	}
	if _, err := r.collection.DeleteMany(ctx, bson.M{"season": season, "user_id": bson.M{"$nin": userIDs}}); err != nil {
		return errors.Wrapf(err, "drop stale season %d totals", season)
	}
	return nil
}

// FindBySeason returns the standings, best rank first
func (r *MongoSeasonTotalRepository) FindBySeason(ctx context.Context, season int) ([]*models.SeasonTotal, error) {
	opts := options.Find().SetSort(bson.D{{Key: "rank", Value: 1}, {Key: "user_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"season": season}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find season totals")
	}
	defer cursor.Close(ctx)

	var totals []*models.SeasonTotal
	if err := cursor.All(ctx, &totals); err != nil {
		return nil, errors.Wrap(err, "decode season totals")
	}
	return totals, nil
}

// FindByUserSeason returns the user's total or nil
func (r *MongoSeasonTotalRepository) FindByUserSeason(ctx context.Context, userID, season int) (*models.SeasonTotal, error) {
	var total models.SeasonTotal
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID, "season": season}).Decode(&total)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find season total")
	}
	return &total, nil
}

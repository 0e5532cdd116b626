package database

import (
	"context"

	"nfl-pickem-live/models"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTouchdownResultRepository stores the upstream touchdown judgments per week
type MongoTouchdownResultRepository struct {
	collection *mongo.Collection
}

func NewMongoTouchdownResultRepository(db *MongoDB) *MongoTouchdownResultRepository {
	return &MongoTouchdownResultRepository{collection: db.GetCollection("touchdown_results")}
}

// Find returns the week's result or nil when none has been recorded
func (r *MongoTouchdownResultRepository) Find(ctx context.Context, season, week int) (*models.TouchdownResult, error) {
	var result models.TouchdownResult
	err := r.collection.FindOne(ctx, bson.M{"season": season, "week": week}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find touchdown result")
	}
	return &result, nil
}

// Upsert replaces the week's result
func (r *MongoTouchdownResultRepository) Upsert(ctx context.Context, result *models.TouchdownResult) error {
	_, err := r.collection.ReplaceOne(ctx,
		bson.M{"season": result.Season, "week": result.Week},
		result,
		options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(err, "upsert touchdown result")
	}
	return nil
}

package database

import (
	"context"
	"time"

	"nfl-pickem-live/models"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoWeeklyScoreRepository stores derived weekly scores keyed by (user_id, season, week)
type MongoWeeklyScoreRepository struct {
	collection *mongo.Collection
}

// NewMongoWeeklyScoreRepository creates the repository and its indexes
func NewMongoWeeklyScoreRepository(db *MongoDB) (*MongoWeeklyScoreRepository, error) {
	collection := db.GetCollection("weekly_scores")

	ctx, cancel := WithMediumTimeout()
	defer cancel()

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "season", Value: 1}, {Key: "week", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create weekly score index")
	}

	return &MongoWeeklyScoreRepository{collection: collection}, nil
}

// ReplaceWeek overwrites the week's scores with scores and drops rows for users not in it
func (r *MongoWeeklyScoreRepository) ReplaceWeek(ctx context.Context, season, week int, scores []*models.WeeklyScore) error {
	userIDs := make([]int, 0, len(scores))
	writes := make([]mongo.WriteModel, 0, len(scores))
	for _, score := range scores {
		userIDs = append(userIDs, score.UserID)
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"user_id": score.UserID, "season": season, "week": week}).
			SetReplacement(score).
			SetUpsert(true))
	}

	if len(writes) > 0 {
		if _, err := r.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
			return errors.Wrapf(err, "write scores for week %d season %d", week, season)
		}
	}

	_, err := r.collection.DeleteMany(ctx, bson.M{
		"season":  season,
		"week":    week,
		"user_id": bson.M{"$nin": userIDs},
	})
	if err != nil {
		return errors.Wrapf(err, "drop stale scores for week %d season %d", week, season)
	}
	return nil
}

// FindByUserSeasonWeek returns the score or nil when the week has not been scored
func (r *MongoWeeklyScoreRepository) FindByUserSeasonWeek(ctx context.Context, userID, season, week int) (*models.WeeklyScore, error) {
	var score models.WeeklyScore
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID, "season": season, "week": week}).Decode(&score)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find weekly score")
	}
	return &score, nil
}

// FindBySeasonWeek returns every user's score for the week
func (r *MongoWeeklyScoreRepository) FindBySeasonWeek(ctx context.Context, season, week int) ([]*models.WeeklyScore, error) {
	opts := options.Find().SetSort(bson.D{{Key: "points", Value: -1}, {Key: "user_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"season": season, "week": week}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find weekly scores")
	}
	defer cursor.Close(ctx)

	var scores []*models.WeeklyScore
	if err := cursor.All(ctx, &scores); err != nil {
		return nil, errors.Wrap(err, "decode weekly scores")
	}
	return scores, nil
}

// SumBySeason folds the season's weekly scores per user, highest total first
func (r *MongoWeeklyScoreRepository) SumBySeason(ctx context.Context, season int) ([]*models.SeasonTotal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"season": season}}},
		{{Key: "$group", Value: bson.M{
			"_id":          "$user_id",
			"points":       bson.M{"$sum": "$points"},
			"weeks_scored": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "points", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate season totals")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		UserID      int `bson:"_id"`
		Points      int `bson:"points"`
		WeeksScored int `bson:"weeks_scored"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, errors.Wrap(err, "decode season totals")
	}

	now := time.Now().UTC()
	totals := make([]*models.SeasonTotal, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, &models.SeasonTotal{
			UserID:      row.UserID,
			Season:      season,
			Points:      row.Points,
			WeeksScored: row.WeeksScored,
			UpdatedAt:   now,
		})
	}
	return totals, nil
}

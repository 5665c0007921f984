package repository

import (
	"aliasgame/internal/model"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ResultRepo handles MongoDB operations for archived game results
type ResultRepo interface {
	Save(ctx context.Context, result *model.GameResult) error
	GetByGameID(ctx context.Context, gameID string) (*model.GameResult, error)
	ListByRoom(ctx context.Context, roomID string, limit int64) ([]*model.GameResult, error)
}

type resultRepo struct {
	coll *mongo.Collection
}

// NewResultRepo creates a new result repository
func NewResultRepo(db *mongo.Database) ResultRepo {
	return &resultRepo{
		coll: db.Collection("game_results"),
	}
}

// EnsureIndexes creates the indexes the result queries rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("game_results").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "completedAt", Value: -1}},
	})
	return err
}

func (r *resultRepo) Save(ctx context.Context, result *model.GameResult) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": result.GameID}, result, opts)
	return err
}

func (r *resultRepo) GetByGameID(ctx context.Context, gameID string) (*model.GameResult, error) {
	var result model.GameResult
	err := r.coll.FindOne(ctx, bson.M{"_id": gameID}).Decode(&result)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resultRepo) ListByRoom(ctx context.Context, roomID string, limit int64) ([]*model.GameResult, error) {
	opts := options.Find().SetSort(bson.D{{Key: "completedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.coll.Find(ctx, bson.M{"roomId": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []*model.GameResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

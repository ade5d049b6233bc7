package repo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/result/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
)

const WinsCollection = "win"

type ResultMongoRepo struct {
	coll *mongo.Collection
}

func NewResultMongoRepo(db *mongo.Database) *ResultMongoRepo {
	return &ResultMongoRepo{coll: db.Collection(WinsCollection)}
}

func (r *ResultMongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}})
	return err
}

func (r *ResultMongoRepo) Create(ctx context.Context, w *entity.WinRecord) error {
	_, err := r.coll.InsertOne(ctx, w)
	return database.Translate(err)
}

// Count uses collection metadata and may lag concurrent inserts.
func (r *ResultMongoRepo) Count(ctx context.Context) (int64, error) {
	return r.coll.EstimatedDocumentCount(ctx)
}

func (r *ResultMongoRepo) ListByEmail(ctx context.Context, email string) ([]entity.WinRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"email": email}, opts)
	if err != nil {
		return nil, err
	}
	out := []entity.WinRecord{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ResultMongoRepo) Leaderboard(ctx context.Context) ([]entity.LeaderboardEntry, error) {
	cur, err := r.coll.Aggregate(ctx, leaderboardPipeline())
	if err != nil {
		return nil, err
	}
	out := []entity.LeaderboardEntry{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func leaderboardPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$email"},
			{Key: "total_wins", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "total_wins", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "email", Value: "$_id"},
			{Key: "total_wins", Value: 1},
		}}},
	}
}

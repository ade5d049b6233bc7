package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/contest/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
)

const ContestsCollection = "creatorContest"

// ContestMongoRepo is the document-store implementation of the catalog.
type ContestMongoRepo struct {
	coll *mongo.Collection
}

func NewContestMongoRepo(db *mongo.Database) *ContestMongoRepo {
	return &ContestMongoRepo{coll: db.Collection(ContestsCollection)}
}

func (r *ContestMongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "creator_email", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "participants", Value: -1}}},
	})
	return err
}

func (r *ContestMongoRepo) Create(ctx context.Context, c *entity.Contest) error {
	_, err := r.coll.InsertOne(ctx, c)
	return database.Translate(err)
}

func (r *ContestMongoRepo) Get(ctx context.Context, id string) (*entity.Contest, error) {
	var c entity.Contest
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, database.Translate(err)
	}
	return &c, nil
}

func (r *ContestMongoRepo) List(ctx context.Context, lq entity.ListQuery) ([]entity.Contest, error) {
	opts := options.Find().
		SetSort(buildSort(lq.Sort)).
		SetSkip(int64(lq.Offset)).
		SetLimit(int64(lq.Limit))
	return r.find(ctx, buildFilter(lq.Filter), opts)
}

func (r *ContestMongoRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"status": status})
}

func (r *ContestMongoRepo) Update(ctx context.Context, id string, fields map[string]any) (*entity.Contest, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var c entity.Contest
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&c); err != nil {
		return nil, database.Translate(err)
	}
	return &c, nil
}

func (r *ContestMongoRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return database.ErrNoRecord
	}
	return nil
}

func (r *ContestMongoRepo) TopByAttendance(ctx context.Context, n int) ([]entity.Contest, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "participants", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(n))
	return r.find(ctx, bson.M{"status": entity.StatusAccepted}, opts)
}

func (r *ContestMongoRepo) WithWinners(ctx context.Context, limit int) ([]entity.Contest, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	filter := bson.M{"winner_name": bson.M{"$exists": true, "$ne": ""}}
	return r.find(ctx, filter, opts)
}

func (r *ContestMongoRepo) Upcoming(ctx context.Context, after time.Time, limit int) ([]entity.Contest, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "deadline", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, upcomingFilter(after), opts)
}

func upcomingFilter(after time.Time) bson.M {
	return bson.M{"status": entity.StatusAccepted, "deadline": bson.M{"$gt": after}}
}

func (r *ContestMongoRepo) find(ctx context.Context, filter any, opts *options.FindOptions) ([]entity.Contest, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []entity.Contest{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// buildFilter renders the conjunctive filter; absent fields are omitted.
func buildFilter(f entity.Filter) bson.M {
	m := bson.M{}
	if f.Category != "" {
		m["category"] = f.Category
	}
	if f.CreatorEmail != "" {
		m["creator_email"] = f.CreatorEmail
	}
	if f.Status != "" {
		m["status"] = f.Status
	}
	return m
}

func buildSort(s entity.Sort) bson.D {
	switch s {
	case entity.SortAttendanceAsc:
		return bson.D{{Key: "participants", Value: 1}, {Key: "_id", Value: 1}}
	case entity.SortAttendanceDesc:
		return bson.D{{Key: "participants", Value: -1}, {Key: "_id", Value: 1}}
	}
	return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
}

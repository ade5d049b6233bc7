package repo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/registration/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
)

const RegistrationsCollection = "register"

type RegistrationMongoRepo struct {
	coll *mongo.Collection
}

func NewRegistrationMongoRepo(db *mongo.Database) *RegistrationMongoRepo {
	return &RegistrationMongoRepo{coll: db.Collection(RegistrationsCollection)}
}

func (r *RegistrationMongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_email", Value: 1}}},
		{Keys: bson.D{{Key: "creator_email", Value: 1}}},
	})
	return err
}

func (r *RegistrationMongoRepo) Create(ctx context.Context, reg *entity.Registration) error {
	_, err := r.coll.InsertOne(ctx, reg)
	return database.Translate(err)
}

func (r *RegistrationMongoRepo) Get(ctx context.Context, id string) (*entity.Registration, error) {
	var reg entity.Registration
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&reg); err != nil {
		return nil, database.Translate(err)
	}
	return &reg, nil
}

func (r *RegistrationMongoRepo) ListByUser(ctx context.Context, email string) ([]entity.Registration, error) {
	return r.list(ctx, bson.M{"user_email": email})
}

func (r *RegistrationMongoRepo) ListByCreator(ctx context.Context, email string) ([]entity.Registration, error) {
	return r.list(ctx, bson.M{"creator_email": email})
}

func (r *RegistrationMongoRepo) SetOutcome(ctx context.Context, id, label string) (*entity.Registration, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var reg entity.Registration
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"outcome": label}}, opts).Decode(&reg)
	if err != nil {
		return nil, database.Translate(err)
	}
	return &reg, nil
}

func (r *RegistrationMongoRepo) list(ctx context.Context, filter bson.M) ([]entity.Registration, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []entity.Registration{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

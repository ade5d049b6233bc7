package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
)

// UsersCollection is the Mongo collection holding accounts.
const UsersCollection = "AllUser"

// UserMongoRepo is the document-store implementation of the user repository.
type UserMongoRepo struct {
	coll *mongo.Collection
}

func NewUserMongoRepo(db *mongo.Database) *UserMongoRepo {
	return &UserMongoRepo{coll: db.Collection(UsersCollection)}
}

// EnsureIndexes creates the unique email index.
func (r *UserMongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	return err
}

func (r *UserMongoRepo) Create(ctx context.Context, u *entity.User) error {
	_, err := r.coll.InsertOne(ctx, u)
	return database.Translate(err)
}

func (r *UserMongoRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var u entity.User
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, database.Translate(err)
	}
	return &u, nil
}

func (r *UserMongoRepo) List(ctx context.Context, limit, offset int) ([]entity.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	out := []entity.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *UserMongoRepo) UpdateProfile(ctx context.Context, id, name, photoURL string) (*entity.User, error) {
	return r.set(ctx, id, bson.M{"name": name, "photo_url": photoURL})
}

func (r *UserMongoRepo) UpdateRole(ctx context.Context, id, role string) (*entity.User, error) {
	return r.set(ctx, id, bson.M{"role": role})
}

func (r *UserMongoRepo) UpdateStatus(ctx context.Context, id, status string) (*entity.User, error) {
	return r.set(ctx, id, bson.M{"status": status})
}

func (r *UserMongoRepo) set(ctx context.Context, id string, fields bson.M) (*entity.User, error) {
	fields["updated_at"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u entity.User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": fields}, opts).Decode(&u)
	if err != nil {
		return nil, database.Translate(err)
	}
	return &u, nil
}

func (r *UserMongoRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return database.ErrNoRecord
	}
	return nil
}

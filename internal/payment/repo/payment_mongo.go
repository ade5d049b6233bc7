package repo

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	contestrepo "github.com/ovaphlow/pitchfork/service-contest-hub/internal/contest/repo"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/payment/entity"
	registration "github.com/ovaphlow/pitchfork/service-contest-hub/internal/registration/entity"
	registrationrepo "github.com/ovaphlow/pitchfork/service-contest-hub/internal/registration/repo"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
)

const PaymentsCollection = "payments"

// PaymentMongoRepo settles inside a session transaction, which needs a
// replica set or sharded cluster.
type PaymentMongoRepo struct {
	client        *mongo.Client
	payments      *mongo.Collection
	registrations *mongo.Collection
	contests      *mongo.Collection
}

func NewPaymentMongoRepo(db *mongo.Database) *PaymentMongoRepo {
	return &PaymentMongoRepo{
		client:        db.Client(),
		payments:      db.Collection(PaymentsCollection),
		registrations: db.Collection(registrationrepo.RegistrationsCollection),
		contests:      db.Collection(contestrepo.ContestsCollection),
	}
}

func (r *PaymentMongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.payments.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "intent_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_email", Value: 1}}},
		{Keys: bson.D{{Key: "registration_id", Value: 1}}},
	})
	return err
}

type settleResult struct {
	payment *entity.Payment
	created bool
}

func (r *PaymentMongoRepo) Settle(ctx context.Context, s entity.Settlement) (*entity.Payment, bool, error) {
	sess, err := r.client.StartSession()
	if err != nil {
		return nil, false, err
	}
	defer sess.EndSession(ctx)

	out, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		var existing entity.Payment
		err := r.payments.FindOne(sc, bson.M{"intent_id": s.IntentID}).Decode(&existing)
		if err == nil {
			if err := existing.Replays(s); err != nil {
				return nil, err
			}
			return settleResult{payment: &existing}, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}

		var reg registration.Registration
		if err := r.registrations.FindOneAndDelete(sc, bson.M{"_id": s.RegistrationID}).Decode(&reg); err != nil {
			return nil, database.Translate(err)
		}
		if s.Payer != "" && !strings.EqualFold(reg.UserEmail, s.Payer) {
			return nil, entity.ErrForeignRegistration
		}
		p, err := newPayment(s, &reg)
		if err != nil {
			return nil, err
		}
		if _, err := r.payments.InsertOne(sc, p); err != nil {
			return nil, database.Translate(err)
		}
		update := bson.M{
			"$inc": bson.M{"participants": 1},
			"$set": bson.M{"updated_at": s.At},
		}
		if _, err := r.contests.UpdateOne(sc, bson.M{"_id": reg.ContestID}, update); err != nil {
			return nil, err
		}
		return settleResult{payment: p, created: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	res := out.(settleResult)
	return res.payment, res.created, nil
}

func (r *PaymentMongoRepo) GetByIntent(ctx context.Context, intentID string) (*entity.Payment, error) {
	var p entity.Payment
	if err := r.payments.FindOne(ctx, bson.M{"intent_id": intentID}).Decode(&p); err != nil {
		return nil, database.Translate(err)
	}
	return &p, nil
}

func (r *PaymentMongoRepo) GetByRegistration(ctx context.Context, id string) (*entity.Payment, error) {
	var p entity.Payment
	if err := r.payments.FindOne(ctx, bson.M{"registration_id": id}).Decode(&p); err != nil {
		return nil, database.Translate(err)
	}
	return &p, nil
}

func (r *PaymentMongoRepo) SetOutcome(ctx context.Context, registrationID, label string) (*entity.Payment, error) {
	var p entity.Payment
	err := r.payments.FindOneAndUpdate(ctx,
		bson.M{"registration_id": registrationID},
		bson.M{"$set": bson.M{"outcome": label}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return nil, database.Translate(err)
	}
	return &p, nil
}

func (r *PaymentMongoRepo) ListByUser(ctx context.Context, email string) ([]entity.Payment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.payments.Find(ctx, bson.M{"user_email": email}, opts)
	if err != nil {
		return nil, err
	}
	out := []entity.Payment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Package store opens the configured backend once and hands out the
// repositories every service needs.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/contest"
	contestrepo "github.com/ovaphlow/pitchfork/service-contest-hub/internal/contest/repo"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/payment"
	paymentrepo "github.com/ovaphlow/pitchfork/service-contest-hub/internal/payment/repo"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/registration"
	registrationrepo "github.com/ovaphlow/pitchfork/service-contest-hub/internal/registration/repo"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/result"
	resultrepo "github.com/ovaphlow/pitchfork/service-contest-hub/internal/result/repo"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-contest-hub/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
)

type step func(ctx context.Context) error

// Stores is the set of repositories for one backend plus its lifecycle.
type Stores struct {
	Driver        string
	Users         user.Repository
	Contests      contest.Repository
	Registrations registration.Repository
	Payments      payment.Repository
	Results       result.Repository

	schema []step
	ping   step
	close  step
}

// Open connects to the backend named by cfg.Driver.
func Open(ctx context.Context, cfg database.Config) (*Stores, error) {
	switch cfg.Driver {
	case database.DriverPostgres:
		return openPostgres(cfg)
	case database.DriverMongo:
		return openMongo(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Driver)
}

func openPostgres(cfg database.Config) (*Stores, error) {
	sqlDB, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	db := sqlx.NewDb(sqlDB, "postgres")

	users := userrepo.NewUserRepo(db)
	contests := contestrepo.NewContestRepo(db)
	regs := registrationrepo.NewRegistrationRepo(db)
	pays := paymentrepo.NewPaymentRepo(db)
	wins := resultrepo.NewResultRepo(db)
	return &Stores{
		Driver:        database.DriverPostgres,
		Users:         users,
		Contests:      contests,
		Registrations: regs,
		Payments:      pays,
		Results:       wins,
		schema: []step{
			users.EnsureTable,
			contests.EnsureTable,
			regs.EnsureTable,
			pays.EnsureTable,
			wins.EnsureTable,
		},
		ping:  db.PingContext,
		close: func(context.Context) error { return db.Close() },
	}, nil
}

func openMongo(ctx context.Context, cfg database.Config) (*Stores, error) {
	client, err := database.ConnectMongo(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mdb := client.Database(cfg.MongoDatabase)

	users := userrepo.NewUserMongoRepo(mdb)
	contests := contestrepo.NewContestMongoRepo(mdb)
	regs := registrationrepo.NewRegistrationMongoRepo(mdb)
	pays := paymentrepo.NewPaymentMongoRepo(mdb)
	wins := resultrepo.NewResultMongoRepo(mdb)
	return &Stores{
		Driver:        database.DriverMongo,
		Users:         users,
		Contests:      contests,
		Registrations: regs,
		Payments:      pays,
		Results:       wins,
		schema: []step{
			users.EnsureIndexes,
			contests.EnsureIndexes,
			regs.EnsureIndexes,
			pays.EnsureIndexes,
			wins.EnsureIndexes,
		},
		ping:  func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
		close: client.Disconnect,
	}, nil
}

// EnsureSchema creates tables or indexes; every step is idempotent.
func (s *Stores) EnsureSchema(ctx context.Context) error {
	var errs []error
	for _, fn := range s.schema {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrNoTransactions is returned for a standalone server; settlement needs
// multi-document transactions.
var ErrNoTransactions = errors.New("mongo deployment does not support transactions; run a replica set (e.g. ?replicaSet=rs0)")

// helloReply is the part of the hello command response that tells the
// deployment topology apart.
type helloReply struct {
	SetName string `bson:"setName"`
	Msg     string `bson:"msg"`
}

func (h helloReply) supportsTransactions() bool {
	return h.SetName != "" || h.Msg == "isdbgrid"
}

// ConnectMongo opens a client against cfg.MongoURI, pings the primary and
// checks that the deployment is a replica set or sharded cluster.
// The caller owns the client and must Disconnect it on shutdown.
func ConnectMongo(ctx context.Context, cfg Config) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(uint64(cfg.MaxConns * 4)).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	var hello helloReply
	if err := client.Database("admin").RunCommand(pingCtx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo hello: %w", err)
	}
	if !hello.supportsTransactions() {
		_ = client.Disconnect(context.Background())
		return nil, ErrNoTransactions
	}
	return client, nil
}

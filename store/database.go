package store

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

var ErrDatabaseNameMissing = errors.New("database name is required")

// NewDatabase returns the clinic database. Alert upserts and the unique open alert index rely on
// acknowledged majority writes and primary reads.
func NewDatabase(client *mongo.Client, cfg *Config) (*mongo.Database, error) {
	if cfg.DatabaseName == "" {
		return nil, ErrDatabaseNameMissing
	}

	opts := options.Database().
		SetWriteConcern(writeconcern.Majority()).
		SetReadPreference(readpref.Primary())
	return client.Database(cfg.DatabaseName, opts), nil
}

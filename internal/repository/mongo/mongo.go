// Package mongo implements the repository interfaces on MongoDB.
//
// Users and tasks live in the "users" and "tasks" collections of one
// database. Unique indexes on users.username and users.email back the
// duplicate checks; ids are ObjectID hex strings.
//
// WHY OBJECTID AND NOT XID?
// ObjectIDs are what MongoDB generates and indexes natively, and they sort by
// creation time, so sorting on _id lists tasks in insertion order without a
// separate counter. Both are 12 bytes; only the string form differs between
// the two stores.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	usersCollection = "users"
	tasksCollection = "tasks"

	// Default names the server gives the unique indexes below.
	usernameIndex = "username_1"
	emailIndex    = "email_1"
)

// Store owns the client connection. Repositories are obtained with Users
// and Tasks.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to uri, verifies the connection and ensures indexes exist
// in database dbName.
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Users returns the user repository.
func (s *Store) Users() *UserStore {
	return &UserStore{coll: s.db.Collection(usersCollection)}
}

// Tasks returns the task repository.
func (s *Store) Tasks() *TaskStore {
	return &TaskStore{coll: s.db.Collection(tasksCollection)}
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName(usernameIndex)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(emailIndex)},
	})
	if err != nil {
		return fmt.Errorf("mongo: creating user indexes: %w", err)
	}

	_, err = s.db.Collection(tasksCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("mongo: creating task indexes: %w", err)
	}
	return nil
}

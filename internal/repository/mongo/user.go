package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/repository"
)

var _ repository.UserRepository = (*UserStore)(nil)

// UserStore stores accounts in the users collection.
type UserStore struct {
	coll *mongo.Collection
}

type userDocument struct {
	ID           bson.ObjectID `bson:"_id,omitempty"`
	Username     string        `bson:"username"`
	Email        string        `bson:"email"`
	PasswordHash string        `bson:"password_hash"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
}

func (d *userDocument) toModel() *model.User {
	return &model.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// Create inserts user and sets its ID and timestamps. A unique index
// violation is reported as apperror.Conflict.
func (u *UserStore) Create(ctx context.Context, user *model.User) error {
	// BSON dates have millisecond precision.
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := userDocument{
		ID:           bson.NewObjectID(),
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := u.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			field := conflictField(err)
			return apperror.Conflict(field, fmt.Sprintf("User with %s already exists", field))
		}
		return fmt.Errorf("mongo: inserting user %q: %w", user.Username, err)
	}

	user.ID = doc.ID.Hex()
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetByID returns the user with the given hex id.
func (u *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.NotFound("user", id)
	}
	user, err := u.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByUsername returns the user with exactly this username.
func (u *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := u.findOne(ctx, bson.D{{Key: "username", Value: username}})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFoundMessage("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: getting user by username: %w", err)
	}
	return user, nil
}

// GetByEmail returns the user registered with email.
func (u *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := u.findOne(ctx, bson.D{{Key: "email", Value: email}})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFoundMessage("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: getting user by email: %w", err)
	}
	return user, nil
}

func (u *UserStore) findOne(ctx context.Context, filter bson.D) (*model.User, error) {
	var doc userDocument
	if err := u.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// conflictField names the unique field a duplicate-key error is about, read
// from the violated index in the server message:
//
//	E11000 duplicate key error collection: tasklist.users index: email_1 dup key: { email: "a@b.c" }
//
// Only the index name is inspected, so a username or database name that
// happens to contain "email" cannot change the answer.
func conflictField(err error) string {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if indexName(e.Message) == emailIndex {
				return "email"
			}
		}
	}
	return "username"
}

// indexName returns the token after "index: " in a duplicate-key message.
func indexName(msg string) string {
	_, rest, found := strings.Cut(msg, " index: ")
	if !found {
		return ""
	}
	name, _, _ := strings.Cut(rest, " ")
	return name
}

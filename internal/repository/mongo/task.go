package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/sakif/tasklist/internal/apperror"
	"github.com/sakif/tasklist/internal/model"
	"github.com/sakif/tasklist/internal/repository"
)

var _ repository.TaskRepository = (*TaskStore)(nil)

// TaskStore stores tasks in the tasks collection.
type TaskStore struct {
	coll *mongo.Collection
}

type taskDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Text      string        `bson:"text"`
	Done      bool          `bson:"done"`
	Owner     string        `bson:"owner"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

func (d *taskDocument) toModel() model.Task {
	return model.Task{
		ID:        d.ID.Hex(),
		Text:      d.Text,
		Done:      d.Done,
		Owner:     d.Owner,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// ownerFilter narrows filter to owner when owner is set.
func ownerFilter(filter bson.D, owner string) bson.D {
	if owner == "" {
		return filter
	}
	return append(filter, bson.E{Key: "owner", Value: owner})
}

// byID returns a filter for one task. ok is false for ids that cannot be
// an ObjectID, which can never match.
func byID(owner, id string) (bson.D, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return ownerFilter(bson.D{{Key: "_id", Value: oid}}, owner), true
}

// Create inserts task with Done=false.
func (t *TaskStore) Create(ctx context.Context, task *model.Task) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := taskDocument{
		ID:        bson.NewObjectID(),
		Text:      task.Text,
		Owner:     task.Owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := t.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: creating task: %w", err)
	}

	*task = doc.toModel()
	return nil
}

// List returns tasks in insertion order.
func (t *TaskStore) List(ctx context.Context, owner string) ([]model.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := t.coll.Find(ctx, ownerFilter(bson.D{}, owner), opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing tasks: %w", err)
	}
	defer cur.Close(ctx)

	tasks := make([]model.Task, 0)
	for cur.Next(ctx) {
		var doc taskDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decoding task: %w", err)
		}
		tasks = append(tasks, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: iterating tasks: %w", err)
	}
	return tasks, nil
}

// MarkDone sets done and returns the document after the update.
func (t *TaskStore) MarkDone(ctx context.Context, owner, id string) (*model.Task, error) {
	filter, ok := byID(owner, id)
	if !ok {
		return nil, apperror.NotFound("task", id)
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "done", Value: true},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDocument
	err := t.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("task", id)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: marking task %s done: %w", id, err)
	}
	task := doc.toModel()
	return &task, nil
}

// Delete removes one task and returns it.
func (t *TaskStore) Delete(ctx context.Context, owner, id string) (*model.Task, error) {
	filter, ok := byID(owner, id)
	if !ok {
		return nil, apperror.NotFound("task", id)
	}

	var doc taskDocument
	err := t.coll.FindOneAndDelete(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("task", id)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: deleting task %s: %w", id, err)
	}
	task := doc.toModel()
	return &task, nil
}

// DeleteAll removes every task of owner (every task when owner is empty).
func (t *TaskStore) DeleteAll(ctx context.Context, owner string) (int64, error) {
	res, err := t.coll.DeleteMany(ctx, ownerFilter(bson.D{}, owner))
	if err != nil {
		return 0, fmt.Errorf("mongo: deleting tasks: %w", err)
	}
	return res.DeletedCount, nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	platformmongo "taskflow/internal/platform/mongo"
	"taskflow/internal/task/models"
	"taskflow/internal/task/query"
	id "taskflow/pkg/domain"
	"taskflow/pkg/platform/sentinel"
)

// taskDocument is the persisted shape. Ids are stored as canonical UUID strings.
type taskDocument struct {
	ID          string     `bson:"_id"`
	Title       string     `bson:"title"`
	Description string     `bson:"description"`
	Status      string     `bson:"status"`
	Priority    string     `bson:"priority"`
	DueDate     *time.Time `bson:"dueDate,omitempty"`
	CreatedBy   string     `bson:"createdBy"`
	AssignedTo  *string    `bson:"assignedTo,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt"`
}

func toDocument(t *models.Task) taskDocument {
	doc := taskDocument{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		CreatedBy:   t.CreatedBy.String(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.AssignedTo != nil {
		assignee := t.AssignedTo.String()
		doc.AssignedTo = &assignee
	}
	return doc
}

func (d taskDocument) toModel() (*models.Task, error) {
	taskID, err := id.ParseTaskID(d.ID)
	if err != nil {
		return nil, fmt.Errorf("decode task id %q: %w", d.ID, err)
	}
	createdBy, err := id.ParseUserID(d.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("decode createdBy %q: %w", d.CreatedBy, err)
	}
	t := &models.Task{
		ID:          taskID,
		Title:       d.Title,
		Description: d.Description,
		Status:      models.Status(d.Status),
		Priority:    models.Priority(d.Priority),
		CreatedBy:   createdBy,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.DueDate != nil {
		due := d.DueDate.UTC()
		t.DueDate = &due
	}
	if d.AssignedTo != nil {
		assignee, err := id.ParseUserID(*d.AssignedTo)
		if err != nil {
			return nil, fmt.Errorf("decode assignedTo %q: %w", *d.AssignedTo, err)
		}
		t.AssignedTo = &assignee
	}
	return t, nil
}

// MongoStore persists tasks in a MongoDB collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongo constructs a MongoDB-backed task store.
func NewMongo(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(platformmongo.CollectionTasks)}
}

func (s *MongoStore) Insert(ctx context.Context, task *models.Task) error {
	if _, err := s.coll.InsertOne(ctx, toDocument(task)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert task: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert task: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *MongoStore) FindByID(ctx context.Context, taskID id.TaskID) (*models.Task, error) {
	var doc taskDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": taskID.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("task not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find task: %w: %w", sentinel.ErrUnavailable, err)
	}
	return doc.toModel()
}

// Find translates p into a bson filter. Search text is regexp-quoted so it
// is matched literally and case-insensitively.
func (s *MongoStore) Find(ctx context.Context, p query.Predicate) ([]*models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.coll.Find(ctx, predicateFilter(p), opts)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer cursor.Close(ctx)

	out := make([]*models.Task, 0)
	for cursor.Next(ctx) {
		var doc taskDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		task, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w: %w", sentinel.ErrUnavailable, err)
	}
	return out, nil
}

func predicateFilter(p query.Predicate) bson.M {
	caller := p.Caller.String()
	and := bson.A{
		bson.M{"$or": bson.A{bson.M{"createdBy": caller}, bson.M{"assignedTo": caller}}},
	}
	if p.Status != nil {
		and = append(and, bson.M{"status": string(*p.Status)})
	}
	if p.Priority != nil {
		and = append(and, bson.M{"priority": string(*p.Priority)})
	}
	if p.DueBefore != nil {
		and = append(and, bson.M{"dueDate": bson.M{"$ne": nil, "$lte": *p.DueBefore}})
	}
	if p.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(p.Search), Options: "i"}
		and = append(and, bson.M{"$or": bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}})
	}
	return bson.M{"$and": and}
}

// Update applies patch with $set/$unset in one FindOneAndUpdate, so concurrent
// patches to different fields do not overwrite each other.
func (s *MongoStore) Update(ctx context.Context, taskID id.TaskID, patch models.TaskPatch, now time.Time) (*models.Task, error) {
	set := bson.M{"updatedAt": now}
	unset := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if patch.Priority != nil {
		set["priority"] = string(*patch.Priority)
	}
	if patch.DueDate.Set {
		if patch.DueDate.Value == nil {
			unset["dueDate"] = ""
		} else {
			set["dueDate"] = *patch.DueDate.Value
		}
	}
	if patch.AssignedTo.Set {
		if patch.AssignedTo.Value == nil {
			unset["assignedTo"] = ""
		} else {
			set["assignedTo"] = patch.AssignedTo.Value.String()
		}
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var doc taskDocument
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": taskID.String()}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("task not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("update task: %w: %w", sentinel.ErrUnavailable, err)
	}
	return doc.toModel()
}

func (s *MongoStore) Delete(ctx context.Context, taskID id.TaskID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": taskID.String()})
	if err != nil {
		return fmt.Errorf("delete task: %w: %w", sentinel.ErrUnavailable, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("task not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.coll.Database().Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

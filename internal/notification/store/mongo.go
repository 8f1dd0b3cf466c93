package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskflow/internal/notification/models"
	platformmongo "taskflow/internal/platform/mongo"
	id "taskflow/pkg/domain"
	"taskflow/pkg/platform/sentinel"
)

type notificationDocument struct {
	ID        string    `bson:"_id"`
	Recipient string    `bson:"recipient"`
	Sender    *string   `bson:"sender,omitempty"`
	Task      *string   `bson:"task,omitempty"`
	Message   string    `bson:"message"`
	Type      string    `bson:"type"`
	Read      bool      `bson:"read"`
	CreatedAt time.Time `bson:"createdAt"`
}

func toDocument(n *models.Notification) notificationDocument {
	doc := notificationDocument{
		ID:        n.ID.String(),
		Recipient: n.Recipient.String(),
		Message:   n.Message,
		Type:      string(n.Type),
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
	if n.Sender != nil {
		sender := n.Sender.String()
		doc.Sender = &sender
	}
	if n.Task != nil {
		task := n.Task.String()
		doc.Task = &task
	}
	return doc
}

func (d notificationDocument) toModel() (*models.Notification, error) {
	notificationID, err := id.ParseNotificationID(d.ID)
	if err != nil {
		return nil, fmt.Errorf("decode notification id %q: %w", d.ID, err)
	}
	recipient, err := id.ParseUserID(d.Recipient)
	if err != nil {
		return nil, fmt.Errorf("decode recipient %q: %w", d.Recipient, err)
	}
	n := &models.Notification{
		ID:        notificationID,
		Recipient: recipient,
		Message:   d.Message,
		Type:      models.Type(d.Type),
		Read:      d.Read,
		CreatedAt: d.CreatedAt.UTC(),
	}
	if d.Sender != nil {
		if sender, err := id.ParseUserID(*d.Sender); err == nil {
			n.Sender = &sender
		}
	}
	if d.Task != nil {
		if task, err := id.ParseTaskID(*d.Task); err == nil {
			n.Task = &task
		}
	}
	return n, nil
}

// MongoStore persists notifications in a MongoDB collection.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongo(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(platformmongo.CollectionNotifications)}
}

func unavailableMongo(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}

func (s *MongoStore) Insert(ctx context.Context, n *models.Notification) error {
	if _, err := s.coll.InsertOne(ctx, toDocument(n)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert notification: %w", sentinel.ErrConflict)
		}
		return unavailableMongo("insert notification", err)
	}
	return nil
}

func (s *MongoStore) decodeOne(res *mongo.SingleResult, op string) (*models.Notification, error) {
	var doc notificationDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("notification not found: %w", sentinel.ErrNotFound)
		}
		return nil, unavailableMongo(op, err)
	}
	return doc.toModel()
}

func (s *MongoStore) FindByID(ctx context.Context, notificationID id.NotificationID) (*models.Notification, error) {
	return s.decodeOne(s.coll.FindOne(ctx, bson.M{"_id": notificationID.String()}), "find notification")
}

func (s *MongoStore) ListByRecipient(ctx context.Context, recipient id.UserID) ([]*models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{"recipient": recipient.String()}, opts)
	if err != nil {
		return nil, unavailableMongo("list notifications", err)
	}
	defer cursor.Close(ctx)

	out := make([]*models.Notification, 0)
	for cursor.Next(ctx) {
		var doc notificationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		n, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := cursor.Err(); err != nil {
		return nil, unavailableMongo("iterate notifications", err)
	}
	return out, nil
}

func (s *MongoStore) MarkRead(ctx context.Context, notificationID id.NotificationID) (*models.Notification, error) {
	res := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": notificationID.String()},
		bson.M{"$set": bson.M{"read": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	return s.decodeOne(res, "mark notification read")
}

func (s *MongoStore) MarkAllRead(ctx context.Context, recipient id.UserID) (int, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"recipient": recipient.String(), "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, unavailableMongo("mark all read", err)
	}
	return int(res.ModifiedCount), nil
}

func (s *MongoStore) Delete(ctx context.Context, notificationID id.NotificationID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": notificationID.String()})
	if err != nil {
		return unavailableMongo("delete notification", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("notification not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *MongoStore) deleteMany(ctx context.Context, op string, filter bson.M) (int, error) {
	res, err := s.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, unavailableMongo(op, err)
	}
	return int(res.DeletedCount), nil
}

func (s *MongoStore) DeleteRead(ctx context.Context, recipient id.UserID) (int, error) {
	return s.deleteMany(ctx, "delete read notifications", bson.M{"recipient": recipient.String(), "read": true})
}

func (s *MongoStore) DeleteByTask(ctx context.Context, taskID id.TaskID) (int, error) {
	return s.deleteMany(ctx, "delete task notifications", bson.M{"task": taskID.String()})
}

func (s *MongoStore) CountUnread(ctx context.Context, recipient id.UserID) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"recipient": recipient.String(), "read": false})
	if err != nil {
		return 0, unavailableMongo("count unread notifications", err)
	}
	return int(n), nil
}

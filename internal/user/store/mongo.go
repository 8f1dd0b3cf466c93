package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	platformmongo "taskflow/internal/platform/mongo"
	"taskflow/internal/user/models"
	id "taskflow/pkg/domain"
	"taskflow/pkg/platform/sentinel"
)

// userDocument stores the email already normalized, so the unique index on
// email is case-insensitive in effect.
type userDocument struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

func (d userDocument) toModel() (*models.User, error) {
	userID, err := id.ParseUserID(d.ID)
	if err != nil {
		return nil, fmt.Errorf("decode user id %q: %w", d.ID, err)
	}
	return &models.User{
		ID:           userID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
	}, nil
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongo(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(platformmongo.CollectionUsers)}
}

func (s *MongoStore) Insert(ctx context.Context, user *models.User) error {
	_, err := s.coll.InsertOne(ctx, userDocument{
		ID:           user.ID.String(),
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert user: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert user: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w: %w", sentinel.ErrUnavailable, err)
	}
	return doc.toModel()
}

func (s *MongoStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": userID.String()})
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoStore) FindByIDs(ctx context.Context, ids []id.UserID) ([]*models.User, error) {
	raw := make(bson.A, len(ids))
	for i, userID := range ids {
		raw[i] = userID.String()
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": raw}}, options.Find())
}

func (s *MongoStore) List(ctx context.Context) ([]*models.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetCollation(&options.Collation{Locale: "en", Strength: 2})
	return s.find(ctx, bson.M{}, opts)
}

func (s *MongoStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.User, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer cursor.Close(ctx)

	out := make([]*models.User, 0)
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		user, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w: %w", sentinel.ErrUnavailable, err)
	}
	return out, nil
}

func (s *MongoStore) UpdateName(ctx context.Context, userID id.UserID, name string) (*models.User, error) {
	var doc userDocument
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": userID.String()},
		bson.M{"$set": bson.M{"name": name}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("update user: %w: %w", sentinel.ErrUnavailable, err)
	}
	return doc.toModel()
}

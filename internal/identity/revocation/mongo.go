package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	platformmongo "taskflow/internal/platform/mongo"
	"taskflow/pkg/platform/sentinel"
)

type revocationDocument struct {
	JTI       string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// Mongo stores revoked token ids. The server's TTL monitor removes them once
// expired, so IsRevoked also compares against the clock.
type Mongo struct {
	coll  *mongo.Collection
	clock Clock
}

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{coll: db.Collection(platformmongo.CollectionRevocations), clock: time.Now}
}

func (l *Mongo) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if skip(jti, ttl) {
		return nil
	}
	_, err := l.coll.UpdateOne(ctx,
		bson.M{"_id": jti},
		bson.M{"$set": bson.M{"expiresAt": l.clock().Add(ttl)}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("revoke token: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (l *Mongo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var doc revocationDocument
	err := l.coll.FindOne(ctx, bson.M{"_id": jti}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("check revocation: %w: %w", sentinel.ErrUnavailable, err)
	}
	return l.clock().Before(doc.ExpiresAt), nil
}

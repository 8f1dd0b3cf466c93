package cascade

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	platformmongo "taskflow/internal/platform/mongo"
	id "taskflow/pkg/domain"
)

type pendingDocument struct {
	TaskID     string    `bson:"_id"`
	RecordedAt time.Time `bson:"recordedAt"`
}

// MongoPendingLog stores pending task ids in their own collection.
type MongoPendingLog struct {
	coll  *mongo.Collection
	clock func() time.Time
}

func NewMongoPendingLog(db *mongo.Database) *MongoPendingLog {
	return &MongoPendingLog{coll: db.Collection(platformmongo.CollectionPendingCascades), clock: time.Now}
}

func (l *MongoPendingLog) Record(ctx context.Context, taskID id.TaskID) error {
	_, err := l.coll.UpdateOne(ctx,
		bson.M{"_id": taskID.String()},
		bson.M{"$setOnInsert": bson.M{"recordedAt": l.clock()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("record pending cleanup: %w", err)
	}
	return nil
}

func (l *MongoPendingLog) Remove(ctx context.Context, taskID id.TaskID) error {
	if _, err := l.coll.DeleteOne(ctx, bson.M{"_id": taskID.String()}); err != nil {
		return fmt.Errorf("remove pending cleanup: %w", err)
	}
	return nil
}

func (l *MongoPendingLog) List(ctx context.Context) ([]id.TaskID, error) {
	cursor, err := l.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "recordedAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list pending cleanups: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []pendingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode pending cleanups: %w", err)
	}
	out := make([]id.TaskID, 0, len(docs))
	for _, doc := range docs {
		taskID, err := id.ParseTaskID(doc.TaskID)
		if err != nil {
			continue
		}
		out = append(out, taskID)
	}
	return out, nil
}

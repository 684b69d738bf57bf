package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/nutrilog-backend/internal/logging"
)

const activityCollection = "entry_activity"

// ActivityRecord is one entry change in a user's history.
type ActivityRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"user_id" json:"-"`
	Action    string             `bson:"action" json:"action"` // e.g. meal.created, water.deleted
	Kind      string             `bson:"kind" json:"kind"`
	EntryID   string             `bson:"entry_id" json:"entry_id"`
	LocalDate string             `bson:"local_date" json:"local_date"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// ActivityLog is the write-behind history of entry changes. It is never read
// by the diary or the streak logic.
type ActivityLog interface {
	Record(rec ActivityRecord)
	Recent(ctx context.Context, userID string, before *time.Time, limit int64) ([]ActivityRecord, bool, error)
}

// NopActivityLog is used when MongoDB is not configured.
type NopActivityLog struct{}

func (NopActivityLog) Record(ActivityRecord) {}

func (NopActivityLog) Recent(context.Context, string, *time.Time, int64) ([]ActivityRecord, bool, error) {
	return []ActivityRecord{}, false, nil
}

type MongoActivityLog struct {
	col *mongo.Collection
	wg  sync.WaitGroup
}

func NewMongoActivityLog(db *mongo.Database) *MongoActivityLog {
	return &MongoActivityLog{col: db.Collection(activityCollection)}
}

// EnsureIndexes creates the (user_id, timestamp) index used for paging.
func (l *MongoActivityLog) EnsureIndexes(ctx context.Context) error {
	_, err := l.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "timestamp", Value: -1},
		},
		Options: options.Index().SetName("idx_user_timestamp"),
	})
	return err
}

// Record inserts asynchronously; callers never block on Mongo.
func (l *MongoActivityLog) Record(rec ActivityRecord) {
	l.wg.Add(1)
	go func(r ActivityRecord) {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if r.Timestamp.IsZero() {
			r.Timestamp = time.Now().UTC()
		}
		if _, err := l.col.InsertOne(ctx, r); err != nil {
			logging.Warn().Err(err).Str("user_id", r.UserID).Str("action", r.Action).Msg("failed to record activity")
		}
	}(rec)
}

// Wait blocks until pending inserts finish. Used on shutdown.
func (l *MongoActivityLog) Wait() {
	l.wg.Wait()
}

// Recent pages newest-first by timestamp.
func (l *MongoActivityLog) Recent(ctx context.Context, userID string, before *time.Time, limit int64) ([]ActivityRecord, bool, error) {
	limit = clampActivityLimit(limit)

	filter := bson.M{"user_id": userID}
	if before != nil {
		filter["timestamp"] = bson.M{"$lt": before.UTC()}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit + 1)

	cur, err := l.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	records := []ActivityRecord{}
	if err := cur.All(ctx, &records); err != nil {
		return nil, false, err
	}

	hasMore := int64(len(records)) > limit
	if hasMore {
		records = records[:limit]
	}
	return records, hasMore, nil
}

func clampActivityLimit(limit int64) int64 {
	if limit <= 0 || limit > 100 {
		return 50
	}
	return limit
}

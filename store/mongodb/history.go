package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
)

type History struct {
	coll *mongo.Collection
}

func NewHistory(db *mongo.Database) *History {
	return &History{coll: db.Collection(collHistory)}
}

func (s *History) GetByUserCourse(ctx context.Context, userID, courseID bson.ObjectID) (*models.HistoryEntry, error) {
	var h models.HistoryEntry
	err := s.coll.FindOne(ctx, bson.M{"user": userID, "course": courseID}).Decode(&h)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("history for user %s course %s: %w", userID.Hex(), courseID.Hex(), store.ErrNotFound)
		}
		return nil, fmt.Errorf("find history: %w", err)
	}
	return &h, nil
}

// Save upserts by (user, course); the unique index on the pair keeps the
// ledger at one entry per pair even under concurrent first completions.
func (s *History) Save(ctx context.Context, h *models.HistoryEntry) error {
	now := time.Now().UTC()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	h.UpdatedAt = now
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"user": h.User, "course": h.Course},
		h,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (s *History) ListByUser(ctx context.Context, userID bson.ObjectID) ([]models.HistoryEntry, error) {
	return s.find(ctx, bson.M{"user": userID})
}

func (s *History) ListAll(ctx context.Context) ([]models.HistoryEntry, error) {
	return s.find(ctx, bson.M{})
}

func (s *History) find(ctx context.Context, filter bson.M) ([]models.HistoryEntry, error) {
	cur, err := s.coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "completed_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	entries := []models.HistoryEntry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return entries, nil
}

package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
)

type Badges struct {
	coll *mongo.Collection
}

func NewBadges(db *mongo.Database) *Badges {
	return &Badges{coll: db.Collection(collBadges)}
}

// GetOrCreateForCourse is a single upsert: concurrent completions of the
// same course race through here, and the unique index on course plus
// $setOnInsert guarantee exactly one badge survives.
func (s *Badges) GetOrCreateForCourse(ctx context.Context, course *models.Course) (*models.Badge, error) {
	now := time.Now().UTC()
	var b models.Badge
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"course": course.ID},
		bson.M{"$setOnInsert": bson.M{
			"_id":         bson.NewObjectID(),
			"name":        fmt.Sprintf("%s - Completed", course.Title),
			"description": fmt.Sprintf("Badge awarded for completing the course %s", course.Title),
			"image":       "",
			"course":      course.ID,
			"earned_by":   []models.BadgeAward{},
			"created_at":  now,
			"updated_at":  now,
		}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&b)
	if err != nil {
		return nil, fmt.Errorf("get or create badge: %w", err)
	}
	return &b, nil
}

// AwardIfAbsent adds the user to earnedBy in one conditional update: the
// filter only matches while the user is absent, so a user can never appear
// twice no matter how calls interleave.
func (s *Badges) AwardIfAbsent(ctx context.Context, badgeID, userID bson.ObjectID, at time.Time) (bool, error) {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": badgeID, "earned_by.user": bson.M{"$ne": userID}},
		bson.M{
			"$push": bson.M{"earned_by": models.BadgeAward{User: userID, EarnedAt: at}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, fmt.Errorf("award badge: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (s *Badges) Create(ctx context.Context, b *models.Badge) error {
	if b.ID.IsZero() {
		b.ID = bson.NewObjectID()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.EarnedBy == nil {
		b.EarnedBy = []models.BadgeAward{}
	}
	if _, err := s.coll.InsertOne(ctx, b); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("badge for course %s: %w", b.Course.Hex(), store.ErrDuplicate)
		}
		return fmt.Errorf("insert badge: %w", err)
	}
	return nil
}

func (s *Badges) List(ctx context.Context) ([]models.Badge, error) {
	return s.find(ctx, bson.M{})
}

func (s *Badges) ListByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Badge, error) {
	if len(ids) == 0 {
		return []models.Badge{}, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *Badges) find(ctx context.Context, filter bson.M) ([]models.Badge, error) {
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	badges := []models.Badge{}
	if err := cur.All(ctx, &badges); err != nil {
		return nil, fmt.Errorf("decode badges: %w", err)
	}
	return badges, nil
}

func (s *Badges) DeleteByCourse(ctx context.Context, courseID bson.ObjectID) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"course": courseID}); err != nil {
		return fmt.Errorf("delete badge: %w", err)
	}
	return nil
}

package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
)

type Courses struct {
	coll *mongo.Collection
}

func NewCourses(db *mongo.Database) *Courses {
	return &Courses{coll: db.Collection(collCourses)}
}

func (s *Courses) Create(ctx context.Context, c *models.Course) error {
	if c.ID.IsZero() {
		c.ID = bson.NewObjectID()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Chapters == nil {
		c.Chapters = []models.Chapter{}
	}
	if _, err := s.coll.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

func (s *Courses) GetByID(ctx context.Context, id bson.ObjectID) (*models.Course, error) {
	var c models.Course
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("course %s: %w", id.Hex(), store.ErrNotFound)
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &c, nil
}

func (s *Courses) List(ctx context.Context) ([]models.Course, error) {
	return s.find(ctx, bson.M{})
}

func (s *Courses) ListByModules(ctx context.Context, moduleIDs []bson.ObjectID) ([]models.Course, error) {
	if len(moduleIDs) == 0 {
		return []models.Course{}, nil
	}
	return s.find(ctx, bson.M{"module": bson.M{"$in": moduleIDs}})
}

func (s *Courses) ListByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Course, error) {
	if len(ids) == 0 {
		return []models.Course{}, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *Courses) find(ctx context.Context, filter bson.M) ([]models.Course, error) {
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	courses := []models.Course{}
	if err := cur.All(ctx, &courses); err != nil {
		return nil, fmt.Errorf("decode courses: %w", err)
	}
	return courses, nil
}

func (s *Courses) Save(ctx context.Context, c *models.Course) error {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return fmt.Errorf("save course: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("course %s: %w", c.ID.Hex(), store.ErrNotFound)
	}
	return nil
}

func (s *Courses) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("course %s: %w", id.Hex(), store.ErrNotFound)
	}
	return nil
}

func (s *Courses) CountByModule(ctx context.Context, moduleID bson.ObjectID) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"module": moduleID})
	if err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return n, nil
}

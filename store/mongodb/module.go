package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
)

type Modules struct {
	coll *mongo.Collection
}

func NewModules(db *mongo.Database) *Modules {
	return &Modules{coll: db.Collection(collModules)}
}

func (s *Modules) Create(ctx context.Context, m *models.Module) error {
	if m.ID.IsZero() {
		m.ID = bson.NewObjectID()
	}
	if m.Slug == "" {
		m.Slug = slugify(m.Name)
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := s.coll.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("module %s: %w", m.Name, store.ErrDuplicate)
		}
		return fmt.Errorf("insert module: %w", err)
	}
	return nil
}

func (s *Modules) GetByID(ctx context.Context, id bson.ObjectID) (*models.Module, error) {
	var m models.Module
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("module %s: %w", id.Hex(), store.ErrNotFound)
		}
		return nil, fmt.Errorf("find module: %w", err)
	}
	return &m, nil
}

func (s *Modules) GetOrCreateByName(ctx context.Context, name string, createdBy bson.ObjectID) (*models.Module, error) {
	now := time.Now().UTC()
	var m models.Module
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"name": name},
		bson.M{"$setOnInsert": bson.M{
			"_id":        bson.NewObjectID(),
			"name":       name,
			"slug":       slugify(name),
			"created_by": createdBy,
			"created_at": now,
			"updated_at": now,
		}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return nil, fmt.Errorf("get or create module: %w", err)
	}
	return &m, nil
}

func (s *Modules) List(ctx context.Context) ([]models.Module, error) {
	cur, err := s.coll.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	modules := []models.Module{}
	if err := cur.All(ctx, &modules); err != nil {
		return nil, fmt.Errorf("decode modules: %w", err)
	}
	return modules, nil
}

func (s *Modules) Save(ctx context.Context, m *models.Module) error {
	m.UpdatedAt = time.Now().UTC()
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("save module: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("module %s: %w", m.ID.Hex(), store.ErrNotFound)
	}
	return nil
}

func (s *Modules) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete module: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("module %s: %w", id.Hex(), store.ErrNotFound)
	}
	return nil
}

func slugify(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}

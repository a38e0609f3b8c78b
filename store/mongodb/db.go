// Package mongodb implements the store interfaces on MongoDB. All of the
// invariants the completion workflow relies on (one history entry per
// (user, course), one badge per course, at-most-one award per user) are
// carried by unique indexes and single-document conditional updates here.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

const (
	collUsers   = "users"
	collCourses = "courses"
	collBadges  = "badges"
	collHistory = "history"
	collModules = "modules"
)

func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the store's atomicity contract depends
// on. Safe to run at every startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		collUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "subscribed_modules", Value: 1}}},
		},
		collCourses: {
			{Keys: bson.D{{Key: "module", Value: 1}}},
		},
		collBadges: {
			{Keys: bson.D{{Key: "course", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collHistory: {
			{
				Keys:    bson.D{{Key: "user", Value: 1}, {Key: "course", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "completed_at", Value: -1}}},
		},
		collModules: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes for %s: %w", name, err)
		}
	}
	return nil
}

// legacyCourse is the pre-migration course shape carrying a free-text
// category instead of a module reference.
type legacyCourse struct {
	ID        bson.ObjectID `bson:"_id"`
	Category  string        `bson:"category"`
	CreatedBy bson.ObjectID `bson:"created_by"`
}

// MigrateLegacyCategories collapses the old category-string field into a
// module reference: each distinct category becomes (or reuses) a module of
// that name. One-time data migration, idempotent, run at startup so no
// runtime code has to branch on the legacy shape.
func MigrateLegacyCategories(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	modules := NewModules(db)

	cur, err := db.Collection(collCourses).Find(ctx, bson.M{
		"category": bson.M{"$exists": true, "$nin": bson.A{"", nil}},
	})
	if err != nil {
		return fmt.Errorf("find legacy courses: %w", err)
	}
	defer cur.Close(ctx)

	migrated := 0
	for cur.Next(ctx) {
		var c legacyCourse
		if err := cur.Decode(&c); err != nil {
			return fmt.Errorf("decode legacy course: %w", err)
		}
		m, err := modules.GetOrCreateByName(ctx, c.Category, c.CreatedBy)
		if err != nil {
			return fmt.Errorf("resolve module for category %q: %w", c.Category, err)
		}
		_, err = db.Collection(collCourses).UpdateOne(ctx,
			bson.M{"_id": c.ID},
			bson.M{
				"$set":   bson.M{"module": m.ID},
				"$unset": bson.M{"category": ""},
			},
		)
		if err != nil {
			return fmt.Errorf("migrate course %s: %w", c.ID.Hex(), err)
		}
		migrated++
	}
	if err := cur.Err(); err != nil {
		return fmt.Errorf("iterate legacy courses: %w", err)
	}
	if migrated > 0 {
		log.Info("migrated legacy course categories", zap.Int("courses", migrated))
	}
	return nil
}

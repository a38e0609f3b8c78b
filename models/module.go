package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Module is a topical grouping of courses; users subscribe to modules to
// gain visibility into their courses.
type Module struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string        `bson:"name" json:"name"`
	Slug        string        `bson:"slug,omitempty" json:"slug,omitempty"`
	Description string        `bson:"description,omitempty" json:"description,omitempty"`
	CreatedBy   bson.ObjectID `bson:"created_by,omitempty" json:"createdBy,omitempty"`
	CreatedAt   time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updated_at" json:"updatedAt"`
}

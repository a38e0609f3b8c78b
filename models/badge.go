package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// BadgeAward records one user earning a badge. A user appears at most once
// in a badge's EarnedBy set.
type BadgeAward struct {
	User     bson.ObjectID `bson:"user" json:"user"`
	EarnedAt time.Time     `bson:"earned_at" json:"earnedAt"`
}

// Badge is created lazily the first time any user completes its course.
type Badge struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string        `bson:"name" json:"name"`
	Description string        `bson:"description" json:"description"`
	Image       string        `bson:"image,omitempty" json:"image,omitempty"`
	Course      bson.ObjectID `bson:"course" json:"course"`
	EarnedBy    []BadgeAward  `bson:"earned_by" json:"earnedBy"`
	CreatedAt   time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updated_at" json:"updatedAt"`
}

func (b *Badge) EarnedByUser(userID bson.ObjectID) bool {
	for _, a := range b.EarnedBy {
		if a.User == userID {
			return true
		}
	}
	return false
}

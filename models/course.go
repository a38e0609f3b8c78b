package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	ContentVideo        = "video"
	ContentPDF          = "pdf"
	ContentPresentation = "presentation"
)

type Content struct {
	Type string `bson:"type" json:"type"`
	URL  string `bson:"url" json:"url"`
}

// Chapter ids are assigned once at creation and never change; deleting a
// chapter must not renumber the others, so ids are opaque, not positional.
type Chapter struct {
	ID          bson.ObjectID `bson:"_id" json:"id"`
	Title       string        `bson:"title" json:"title"`
	Description string        `bson:"description" json:"description"`
	Content     []Content     `bson:"content" json:"content"`
}

type Course struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string        `bson:"title" json:"title"`
	Description string        `bson:"description" json:"description"`
	Module      bson.ObjectID `bson:"module,omitempty" json:"module,omitempty"`
	Thumbnail   string        `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Chapters    []Chapter     `bson:"chapters" json:"chapters"`
	CreatedBy   bson.ObjectID `bson:"created_by" json:"createdBy"`
	CreatedAt   time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updated_at" json:"updatedAt"`
}

// FindChapter looks a chapter up by its id. Returns nil when absent.
func (c *Course) FindChapter(id bson.ObjectID) *Chapter {
	for i := range c.Chapters {
		if c.Chapters[i].ID == id {
			return &c.Chapters[i]
		}
	}
	return nil
}

// RemoveChapter deletes the chapter with the given id, preserving the order
// and ids of the remaining chapters. Reports whether a chapter was removed.
func (c *Course) RemoveChapter(id bson.ObjectID) bool {
	for i := range c.Chapters {
		if c.Chapters[i].ID == id {
			c.Chapters = append(c.Chapters[:i], c.Chapters[i+1:]...)
			return true
		}
	}
	return false
}

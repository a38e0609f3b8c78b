package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// CompletedChapter snapshots the chapter title at completion time so the
// ledger survives later edits or deletions of the chapter.
type CompletedChapter struct {
	ChapterID   bson.ObjectID `bson:"chapter_id" json:"chapterId"`
	CompletedAt time.Time     `bson:"completed_at" json:"completedAt"`
	Title       string        `bson:"title" json:"title"`
}

// HistoryEntry is the append-only completion ledger for one (user, course)
// pair; the store enforces uniqueness of the pair.
type HistoryEntry struct {
	ID                bson.ObjectID      `bson:"_id,omitempty" json:"id"`
	User              bson.ObjectID      `bson:"user" json:"user"`
	Course            bson.ObjectID      `bson:"course" json:"course"`
	Category          string             `bson:"category" json:"category"`
	CompletedAt       *time.Time         `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	CompletedChapters []CompletedChapter `bson:"completed_chapters" json:"completedChapters"`
	TotalTime         int                `bson:"total_time" json:"totalTime"`
	CreatedAt         time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updatedAt"`
}

func (h *HistoryEntry) HasChapter(chapterID bson.ObjectID) bool {
	for _, c := range h.CompletedChapters {
		if c.ChapterID == chapterID {
			return true
		}
	}
	return false
}

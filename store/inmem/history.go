package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
)

type historyKey struct {
	user   bson.ObjectID
	course bson.ObjectID
}

type History struct {
	mu      sync.Mutex
	entries map[historyKey]*models.HistoryEntry
}

func NewHistory() *History {
	return &History{entries: make(map[historyKey]*models.HistoryEntry)}
}

func (s *History) GetByUserCourse(_ context.Context, userID, courseID bson.ObjectID) (*models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.entries[historyKey{userID, courseID}]
	if !ok {
		return nil, fmt.Errorf("history for user %s course %s: %w", userID.Hex(), courseID.Hex(), store.ErrNotFound)
	}
	return cloneHistory(h), nil
}

func (s *History) Save(_ context.Context, h *models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	h.UpdatedAt = now
	s.entries[historyKey{h.User, h.Course}] = cloneHistory(h)
	return nil
}

func (s *History) ListByUser(_ context.Context, userID bson.ObjectID) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.HistoryEntry{}
	for k, h := range s.entries {
		if k.user == userID {
			out = append(out, *cloneHistory(h))
		}
	}
	sortByCompletedAt(out)
	return out, nil
}

func (s *History) ListAll(_ context.Context) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.HistoryEntry{}
	for _, h := range s.entries {
		out = append(out, *cloneHistory(h))
	}
	sortByCompletedAt(out)
	return out, nil
}

func sortByCompletedAt(entries []models.HistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		var ti, tj time.Time
		if entries[i].CompletedAt != nil {
			ti = *entries[i].CompletedAt
		}
		if entries[j].CompletedAt != nil {
			tj = *entries[j].CompletedAt
		}
		return ti.After(tj)
	})
}

func cloneHistory(h *models.HistoryEntry) *models.HistoryEntry {
	c := *h
	c.CompletedChapters = append([]models.CompletedChapter(nil), h.CompletedChapters...)
	if h.CompletedAt != nil {
		t := *h.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

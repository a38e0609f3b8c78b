package inmem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
)

type Badges struct {
	mu     sync.Mutex
	badges map[bson.ObjectID]*models.Badge
}

func NewBadges() *Badges {
	return &Badges{badges: make(map[bson.ObjectID]*models.Badge)}
}

func (s *Badges) GetOrCreateForCourse(_ context.Context, course *models.Course) (*models.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.badges {
		if b.Course == course.ID {
			return cloneBadge(b), nil
		}
	}
	now := time.Now().UTC()
	b := &models.Badge{
		ID:          bson.NewObjectID(),
		Name:        fmt.Sprintf("%s - Completed", course.Title),
		Description: fmt.Sprintf("Badge awarded for completing the course %s", course.Title),
		Course:      course.ID,
		EarnedBy:    []models.BadgeAward{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.badges[b.ID] = b
	return cloneBadge(b), nil
}

func (s *Badges) AwardIfAbsent(_ context.Context, badgeID, userID bson.ObjectID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.badges[badgeID]
	if !ok {
		return false, fmt.Errorf("badge %s: %w", badgeID.Hex(), store.ErrNotFound)
	}
	if b.EarnedByUser(userID) {
		return false, nil
	}
	b.EarnedBy = append(b.EarnedBy, models.BadgeAward{User: userID, EarnedAt: at})
	b.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *Badges) Create(_ context.Context, b *models.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.badges {
		if existing.Course == b.Course {
			return fmt.Errorf("badge for course %s: %w", b.Course.Hex(), store.ErrDuplicate)
		}
	}
	if b.ID.IsZero() {
		b.ID = bson.NewObjectID()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.EarnedBy == nil {
		b.EarnedBy = []models.BadgeAward{}
	}
	s.badges[b.ID] = cloneBadge(b)
	return nil
}

func (s *Badges) List(_ context.Context) ([]models.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Badge{}
	for _, b := range s.badges {
		out = append(out, *cloneBadge(b))
	}
	return out, nil
}

func (s *Badges) ListByIDs(_ context.Context, ids []bson.ObjectID) ([]models.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Badge{}
	for _, id := range ids {
		if b, ok := s.badges[id]; ok {
			out = append(out, *cloneBadge(b))
		}
	}
	return out, nil
}

func (s *Badges) DeleteByCourse(_ context.Context, courseID bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.badges {
		if b.Course == courseID {
			delete(s.badges, id)
			return nil
		}
	}
	return nil
}

func cloneBadge(b *models.Badge) *models.Badge {
	c := *b
	c.EarnedBy = append([]models.BadgeAward(nil), b.EarnedBy...)
	return &c
}

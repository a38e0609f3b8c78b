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

type Courses struct {
	mu      sync.Mutex
	courses map[bson.ObjectID]*models.Course
}

func NewCourses() *Courses {
	return &Courses{courses: make(map[bson.ObjectID]*models.Course)}
}

func (s *Courses) Create(_ context.Context, c *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = bson.NewObjectID()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Chapters == nil {
		c.Chapters = []models.Chapter{}
	}
	s.courses[c.ID] = cloneCourse(c)
	return nil
}

func (s *Courses) GetByID(_ context.Context, id bson.ObjectID) (*models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", id.Hex(), store.ErrNotFound)
	}
	return cloneCourse(c), nil
}

func (s *Courses) List(_ context.Context) ([]models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Course{}
	for _, c := range s.courses {
		out = append(out, *cloneCourse(c))
	}
	return out, nil
}

func (s *Courses) ListByModules(_ context.Context, moduleIDs []bson.ObjectID) ([]models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Course{}
	for _, c := range s.courses {
		for _, id := range moduleIDs {
			if c.Module == id {
				out = append(out, *cloneCourse(c))
				break
			}
		}
	}
	return out, nil
}

func (s *Courses) ListByIDs(_ context.Context, ids []bson.ObjectID) ([]models.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Course{}
	for _, id := range ids {
		if c, ok := s.courses[id]; ok {
			out = append(out, *cloneCourse(c))
		}
	}
	return out, nil
}

func (s *Courses) Save(_ context.Context, c *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[c.ID]; !ok {
		return fmt.Errorf("course %s: %w", c.ID.Hex(), store.ErrNotFound)
	}
	c.UpdatedAt = time.Now().UTC()
	s.courses[c.ID] = cloneCourse(c)
	return nil
}

func (s *Courses) Delete(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[id]; !ok {
		return fmt.Errorf("course %s: %w", id.Hex(), store.ErrNotFound)
	}
	delete(s.courses, id)
	return nil
}

func (s *Courses) CountByModule(_ context.Context, moduleID bson.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.courses {
		if c.Module == moduleID {
			n++
		}
	}
	return n, nil
}

func cloneCourse(c *models.Course) *models.Course {
	cp := *c
	cp.Chapters = make([]models.Chapter, len(c.Chapters))
	for i, ch := range c.Chapters {
		cp.Chapters[i] = ch
		cp.Chapters[i].Content = append([]models.Content(nil), ch.Content...)
	}
	return &cp
}

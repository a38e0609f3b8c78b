package inmem

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
)

type Modules struct {
	mu      sync.Mutex
	modules map[bson.ObjectID]*models.Module
}

func NewModules() *Modules {
	return &Modules{modules: make(map[bson.ObjectID]*models.Module)}
}

func (s *Modules) Create(_ context.Context, m *models.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.modules {
		if existing.Name == m.Name {
			return fmt.Errorf("module %s: %w", m.Name, store.ErrDuplicate)
		}
	}
	if m.ID.IsZero() {
		m.ID = bson.NewObjectID()
	}
	if m.Slug == "" {
		m.Slug = strings.ToLower(strings.Join(strings.Fields(m.Name), "-"))
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	c := *m
	s.modules[m.ID] = &c
	return nil
}

func (s *Modules) GetByID(_ context.Context, id bson.ObjectID) (*models.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.modules[id]
	if !ok {
		return nil, fmt.Errorf("module %s: %w", id.Hex(), store.ErrNotFound)
	}
	c := *m
	return &c, nil
}

func (s *Modules) GetOrCreateByName(_ context.Context, name string, createdBy bson.ObjectID) (*models.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.modules {
		if m.Name == name {
			c := *m
			return &c, nil
		}
	}
	now := time.Now().UTC()
	m := &models.Module{
		ID:        bson.NewObjectID(),
		Name:      name,
		Slug:      strings.ToLower(strings.Join(strings.Fields(name), "-")),
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.modules[m.ID] = m
	c := *m
	return &c, nil
}

func (s *Modules) List(_ context.Context) ([]models.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Module{}
	for _, m := range s.modules {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Modules) Save(_ context.Context, m *models.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modules[m.ID]; !ok {
		return fmt.Errorf("module %s: %w", m.ID.Hex(), store.ErrNotFound)
	}
	m.UpdatedAt = time.Now().UTC()
	c := *m
	s.modules[m.ID] = &c
	return nil
}

func (s *Modules) Delete(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modules[id]; !ok {
		return fmt.Errorf("module %s: %w", id.Hex(), store.ErrNotFound)
	}
	delete(s.modules, id)
	return nil
}

// Package inmem provides in-memory store implementations used by the test
// suites. Mutating operations take the same atomic shape as the mongodb
// implementations (conditional add, find-or-create) so concurrency
// properties can be exercised without a database.
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

type Users struct {
	mu    sync.Mutex
	users map[bson.ObjectID]*models.User
}

func NewUsers() *Users {
	return &Users{users: make(map[bson.ObjectID]*models.User)}
}

func (s *Users) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("user %s: %w", u.Email, store.ErrDuplicate)
		}
	}
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *Users) GetByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), store.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, store.ErrNotFound)
}

func (s *Users) Save(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return fmt.Errorf("user %s: %w", u.ID.Hex(), store.ErrNotFound)
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *Users) AddSubscription(_ context.Context, userID, moduleID bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID.Hex(), store.ErrNotFound)
	}
	if !u.IsSubscribed(moduleID) {
		u.SubscribedModules = append(u.SubscribedModules, moduleID)
	}
	return nil
}

func (s *Users) RemoveSubscription(_ context.Context, userID, moduleID bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID.Hex(), store.ErrNotFound)
	}
	kept := u.SubscribedModules[:0]
	for _, id := range u.SubscribedModules {
		if id != moduleID {
			kept = append(kept, id)
		}
	}
	u.SubscribedModules = kept
	return nil
}

func (s *Users) ListSubscribers(_ context.Context, moduleID bson.ObjectID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		if u.IsSubscribed(moduleID) {
			out = append(out, *cloneUser(u))
		}
	}
	return out, nil
}

func (s *Users) PushNotification(_ context.Context, userID bson.ObjectID, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID.Hex(), store.ErrNotFound)
	}
	u.Notifications = append(u.Notifications, n)
	return nil
}

func (s *Users) MarkNotificationRead(_ context.Context, userID, notificationID bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID.Hex(), store.ErrNotFound)
	}
	for i := range u.Notifications {
		if u.Notifications[i].ID == notificationID {
			u.Notifications[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", notificationID.Hex(), store.ErrNotFound)
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Progress = make([]models.CourseProgress, len(u.Progress))
	for i, p := range u.Progress {
		c.Progress[i] = models.CourseProgress{
			CourseID:          p.CourseID,
			CompletedChapters: cloneIDs(p.CompletedChapters),
		}
	}
	c.CompletedCourses = cloneIDs(u.CompletedCourses)
	c.Badges = cloneIDs(u.Badges)
	c.SubscribedModules = cloneIDs(u.SubscribedModules)
	c.Notifications = append([]models.Notification(nil), u.Notifications...)
	return &c
}

func cloneIDs(ids []bson.ObjectID) []bson.ObjectID {
	return append([]bson.ObjectID(nil), ids...)
}

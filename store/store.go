// Package store defines the persistence interfaces the rest of the backend
// is written against. Implementations live in store/mongodb (production),
// store/blob (MinIO object storage) and store/inmem (test doubles).
package store

import (
	"context"
	"errors"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/JuanCarrill0/Kata-Middle-BB/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Save replaces the whole user document. Callers batch their in-memory
	// mutations and save once; cross-request races on set membership are
	// handled by the conditional updates below, not by Save.
	Save(ctx context.Context, u *models.User) error
	AddSubscription(ctx context.Context, userID, moduleID bson.ObjectID) error
	RemoveSubscription(ctx context.Context, userID, moduleID bson.ObjectID) error
	ListSubscribers(ctx context.Context, moduleID bson.ObjectID) ([]models.User, error)
	PushNotification(ctx context.Context, userID bson.ObjectID, n models.Notification) error
	MarkNotificationRead(ctx context.Context, userID, notificationID bson.ObjectID) error
}

type CourseStore interface {
	Create(ctx context.Context, c *models.Course) error
	GetByID(ctx context.Context, id bson.ObjectID) (*models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
	ListByModules(ctx context.Context, moduleIDs []bson.ObjectID) ([]models.Course, error)
	ListByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Course, error)
	Save(ctx context.Context, c *models.Course) error
	Delete(ctx context.Context, id bson.ObjectID) error
	CountByModule(ctx context.Context, moduleID bson.ObjectID) (int64, error)
}

type BadgeStore interface {
	// GetOrCreateForCourse atomically finds the course's badge or creates it
	// with a name and description derived from the course title. Concurrent
	// callers always converge on a single badge per course.
	GetOrCreateForCourse(ctx context.Context, course *models.Course) (*models.Badge, error)
	// AwardIfAbsent atomically adds the user to the badge's earnedBy set and
	// reports whether an award actually happened. Expressed as one
	// conditional update so no interleaving can duplicate an entry.
	AwardIfAbsent(ctx context.Context, badgeID, userID bson.ObjectID, at time.Time) (bool, error)
	Create(ctx context.Context, b *models.Badge) error
	List(ctx context.Context) ([]models.Badge, error)
	ListByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Badge, error)
	DeleteByCourse(ctx context.Context, courseID bson.ObjectID) error
}

type HistoryStore interface {
	GetByUserCourse(ctx context.Context, userID, courseID bson.ObjectID) (*models.HistoryEntry, error)
	// Save upserts keyed by (user, course); the store enforces uniqueness of
	// the pair.
	Save(ctx context.Context, h *models.HistoryEntry) error
	ListByUser(ctx context.Context, userID bson.ObjectID) ([]models.HistoryEntry, error)
	ListAll(ctx context.Context) ([]models.HistoryEntry, error)
}

type ModuleStore interface {
	Create(ctx context.Context, m *models.Module) error
	GetByID(ctx context.Context, id bson.ObjectID) (*models.Module, error)
	GetOrCreateByName(ctx context.Context, name string, createdBy bson.ObjectID) (*models.Module, error)
	List(ctx context.Context) ([]models.Module, error)
	Save(ctx context.Context, m *models.Module) error
	Delete(ctx context.Context, id bson.ObjectID) error
}

// Blob is a single object read back from the blob store.
type Blob struct {
	Content     io.ReadCloser
	ContentType string
	Size        int64
}

// BlobStore is a key/blob adapter over object storage. Keys are opaque; the
// only structure layered on top is the "/api/files/" URL prefix used for
// content served through the backend proxy, and that is stripped before any
// key reaches this interface.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*Blob, error)
	Delete(ctx context.Context, key string) error
}

package completion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
	"github.com/JuanCarrill0/Kata-Middle-BB/store/inmem"
)

type fixture struct {
	users   *inmem.Users
	courses *inmem.Courses
	badges  *inmem.Badges
	history *inmem.History
	modules *inmem.Modules
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:   inmem.NewUsers(),
		courses: inmem.NewCourses(),
		badges:  inmem.NewBadges(),
		history: inmem.NewHistory(),
		modules: inmem.NewModules(),
	}
	f.svc = NewService(f.users, f.courses, f.badges, f.history, f.modules, zap.NewNop())
	return f
}

func (f *fixture) seedUser(t *testing.T) *models.User {
	t.Helper()
	u := &models.User{
		Email:    "student@example.com",
		Name:     "Student",
		Role:     models.RoleUser,
		Progress: []models.CourseProgress{},
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) seedCourse(t *testing.T, chapters ...string) *models.Course {
	t.Helper()
	m := &models.Module{Name: "Backend"}
	require.NoError(t, f.modules.Create(context.Background(), m))

	c := &models.Course{Title: "Go Fundamentals", Module: m.ID}
	for _, title := range chapters {
		c.Chapters = append(c.Chapters, models.Chapter{ID: bson.NewObjectID(), Title: title})
	}
	require.NoError(t, f.courses.Create(context.Background(), c))
	return c
}

func TestCompleteChapterFirstOfTwo(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t)
	course := f.seedCourse(t, "Intro", "Goroutines")
	ctx := context.Background()

	res, err := f.svc.CompleteChapter(ctx, user.ID, course.ID, course.Chapters[0].ID)
	require.NoError(t, err)

	assert.Equal(t, MsgChapterCompleted, res.Message)
	assert.Empty(t, res.User.CompletedCourses)
	assert.Empty(t, res.User.Badges)
	require.Len(t, res.User.Progress, 1)
	assert.Equal(t, []bson.ObjectID{course.Chapters[0].ID}, res.User.Progress[0].CompletedChapters)

	h, err := f.history.GetByUserCourse(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.Nil(t, h.CompletedAt)
	require.Len(t, h.CompletedChapters, 1)
	assert.Equal(t, "Intro", h.CompletedChapters[0].Title)
	assert.Equal(t, "Backend", h.Category)
}

func TestCompleteChapterFinishesCourse(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t)
	course := f.seedCourse(t, "Intro", "Goroutines")
	ctx := context.Background()

	_, err := f.svc.CompleteChapter(ctx, user.ID, course.ID, course.Chapters[0].ID)
	require.NoError(t, err)
	res, err := f.svc.CompleteChapter(ctx, user.ID, course.ID, course.Chapters[1].ID)
	require.NoError(t, err)

	assert.Equal(t, MsgCourseCompleted, res.Message)
	require.Len(t, res.User.CompletedCourses, 1)
	assert.Equal(t, "Go Fundamentals", res.User.CompletedCourses[0].Title)
	require.Len(t, res.User.Badges, 1)
	assert.Equal(t, "Go Fundamentals - Completed", res.User.Badges[0].Name)
	assert.Equal(t, "Go Fundamentals", res.User.Badges[0].CourseTitle)

	h, err := f.history.GetByUserCourse(ctx, user.ID, course.ID)
	require.NoError(t, err)
	require.NotNil(t, h.CompletedAt)
	assert.Len(t, h.CompletedChapters, 2)

	badges, err := f.badges.List(ctx)
	require.NoError(t, err)
	require.Len(t, badges, 1)
	require.Len(t, badges[0].EarnedBy, 1)
	assert.Equal(t, user.ID, badges[0].EarnedBy[0].User)
}

func TestCompleteChapterIdempotent(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t)
	course := f.seedCourse(t, "Intro", "Goroutines")
	ctx := context.Background()

	for _, ch := range course.Chapters {
		_, err := f.svc.CompleteChapter(ctx, user.ID, course.ID, ch.ID)
		require.NoError(t, err)
	}

	// Replay every call; nothing may grow.
	for i := 0; i < 3; i++ {
		for _, ch := range course.Chapters {
			res, err := f.svc.CompleteChapter(ctx, user.ID, course.ID, ch.ID)
			require.NoError(t, err)
			assert.Len(t, res.User.Progress[0].CompletedChapters, 2)
			assert.Len(t, res.User.CompletedCourses, 1)
			assert.Len(t, res.User.Badges, 1)
		}
	}

	h, err := f.history.GetByUserCourse(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.Len(t, h.CompletedChapters, 2)

	badges, err := f.badges.List(ctx)
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Len(t, badges[0].EarnedBy, 1)
}

func TestCompleteChapterUnknownChapter(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t)
	course := f.seedCourse(t, "Intro")

	_, err := f.svc.CompleteChapter(context.Background(), user.ID, course.ID, bson.NewObjectID())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompleteChapterUnknownCourse(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t)

	_, err := f.svc.CompleteChapter(context.Background(), user.ID, bson.NewObjectID(), bson.NewObjectID())
	require.ErrorIs(t, err, store.ErrNotFound)
}

// Deleting a chapter after a user completed it must not let the orphaned id
// count towards completion of the remaining chapters.
func TestStaleCompletedChapterDoesNotFinishCourse(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t)
	course := f.seedCourse(t, "A", "B", "C")
	ctx := context.Background()

	_, err := f.svc.CompleteChapter(ctx, user.ID, course.ID, course.Chapters[0].ID)
	require.NoError(t, err)
	_, err = f.svc.CompleteChapter(ctx, user.ID, course.ID, course.Chapters[1].ID)
	require.NoError(t, err)

	// Remove chapter B from the course; user still has its id in progress.
	removed := course.Chapters[1].ID
	require.True(t, course.RemoveChapter(removed))
	require.NoError(t, f.courses.Save(ctx, course))

	res, err := f.svc.CompleteChapter(ctx, user.ID, course.ID, course.Chapters[1].ID) // chapter C now
	require.NoError(t, err)
	assert.Equal(t, MsgCourseCompleted, res.Message, "A and C are all surviving chapters")

	// But with C still pending, completing A again must not finish anything.
	f2 := newFixture(t)
	user2 := f2.seedUser(t)
	course2 := f2.seedCourse(t, "A", "B", "C")
	_, err = f2.svc.CompleteChapter(ctx, user2.ID, course2.ID, course2.Chapters[0].ID)
	require.NoError(t, err)
	_, err = f2.svc.CompleteChapter(ctx, user2.ID, course2.ID, course2.Chapters[1].ID)
	require.NoError(t, err)
	require.True(t, course2.RemoveChapter(course2.Chapters[1].ID))
	require.NoError(t, f2.courses.Save(ctx, course2))

	res, err = f2.svc.CompleteChapter(ctx, user2.ID, course2.ID, course2.Chapters[0].ID)
	require.NoError(t, err)
	assert.Equal(t, MsgChapterCompleted, res.Message)
	assert.Empty(t, res.User.CompletedCourses)
}

// A chapter title recorded in history stays as it was at completion time
// even after the chapter is renamed.
func TestHistoryTitleSnapshotSurvivesRename(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t)
	course := f.seedCourse(t, "Old Title", "Second")
	ctx := context.Background()

	_, err := f.svc.CompleteChapter(ctx, user.ID, course.ID, course.Chapters[0].ID)
	require.NoError(t, err)

	course.Chapters[0].Title = "New Title"
	require.NoError(t, f.courses.Save(ctx, course))

	_, err = f.svc.CompleteChapter(ctx, user.ID, course.ID, course.Chapters[1].ID)
	require.NoError(t, err)

	h, err := f.history.GetByUserCourse(ctx, user.ID, course.ID)
	require.NoError(t, err)
	require.Len(t, h.CompletedChapters, 2)
	assert.Equal(t, "Old Title", h.CompletedChapters[0].Title)
	assert.Equal(t, "Second", h.CompletedChapters[1].Title)
}

func TestCompletedAtMonotonic(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t)
	course := f.seedCourse(t, "Only")
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base }

	_, err := f.svc.CompleteChapter(ctx, user.ID, course.ID, course.Chapters[0].ID)
	require.NoError(t, err)

	h, err := f.history.GetByUserCourse(ctx, user.ID, course.ID)
	require.NoError(t, err)
	require.NotNil(t, h.CompletedAt)
	first := *h.CompletedAt

	// A later replay must not move the recorded completion time.
	f.svc.now = func() time.Time { return base.Add(time.Hour) }
	_, err = f.svc.CompleteChapter(ctx, user.ID, course.ID, course.Chapters[0].ID)
	require.NoError(t, err)

	h, err = f.history.GetByUserCourse(ctx, user.ID, course.ID)
	require.NoError(t, err)
	require.NotNil(t, h.CompletedAt)
	assert.Equal(t, first, *h.CompletedAt)
	assert.Equal(t, first, h.CompletedChapters[0].CompletedAt)
}

// Concurrent completions of the last chapter by many goroutines must still
// produce exactly one badge with exactly one award entry.
func TestBadgeAwardedExactlyOnceUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	course := f.seedCourse(t, "Only")
	ctx := context.Background()

	user := f.seedUser(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			badge, err := f.badges.GetOrCreateForCourse(ctx, course)
			assert.NoError(t, err)
			_, err = f.badges.AwardIfAbsent(ctx, badge.ID, user.ID, time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	badges, err := f.badges.List(ctx)
	require.NoError(t, err)
	require.Len(t, badges, 1)
	assert.Len(t, badges[0].EarnedBy, 1)
}

// Package completion owns the chapter-completion workflow: per-user
// progress, the append-only history ledger and badge awards. It is the only
// writer of User.progress, User.completedCourses and User.badges.
//
// The workflow is a sequence of idempotent single-document steps rather
// than a transaction: re-running CompleteChapter with the same arguments
// after any partial failure converges on the same end state, so the client
// retry is the recovery path.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
)

const (
	MsgChapterCompleted = "Chapter completed"
	MsgCourseCompleted  = "Course completed! You have earned a badge."
)

type Service struct {
	users   store.UserStore
	courses store.CourseStore
	badges  store.BadgeStore
	history store.HistoryStore
	modules store.ModuleStore
	log     *zap.Logger
	now     func() time.Time
}

func NewService(
	users store.UserStore,
	courses store.CourseStore,
	badges store.BadgeStore,
	history store.HistoryStore,
	modules store.ModuleStore,
	log *zap.Logger,
) *Service {
	return &Service{
		users:   users,
		courses: courses,
		badges:  badges,
		history: history,
		modules: modules,
		log:     log,
		now:     time.Now,
	}
}

// CourseRef is a completed course in the returned user snapshot.
type CourseRef struct {
	ID    bson.ObjectID `json:"id"`
	Title string        `json:"title"`
}

// BadgeRef is an earned badge in the returned user snapshot, with its
// course title resolved.
type BadgeRef struct {
	ID          bson.ObjectID `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Image       string        `json:"image,omitempty"`
	CourseID    bson.ObjectID `json:"courseId"`
	CourseTitle string        `json:"courseTitle"`
}

// Snapshot is the authoritative, freshly reloaded view of the user returned
// from every completion call, so the client never reconstructs completion
// state locally.
type Snapshot struct {
	ID               bson.ObjectID           `json:"id"`
	Email            string                  `json:"email"`
	Name             string                  `json:"name"`
	Role             string                  `json:"role"`
	Progress         []models.CourseProgress `json:"progress"`
	CompletedCourses []CourseRef             `json:"completedCourses"`
	Badges           []BadgeRef              `json:"badges"`
}

type Result struct {
	Message string    `json:"message"`
	User    *Snapshot `json:"user"`
}

// CompleteChapter records chapterID as completed by userID within courseID,
// appends to the history ledger, and on full course completion awards the
// course badge. Calling it again with the same arguments is a no-op that
// still succeeds.
func (s *Service) CompleteChapter(ctx context.Context, userID, courseID, chapterID bson.ObjectID) (*Result, error) {
	course, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	chapter := course.FindChapter(chapterID)
	if chapter == nil {
		return nil, fmt.Errorf("chapter %s in course %s: %w", chapterID.Hex(), courseID.Hex(), store.ErrNotFound)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	progress := recordChapterCompletion(user, courseID, chapterID)

	history, err := s.recordHistory(ctx, user, course, chapter, now)
	if err != nil {
		return nil, err
	}

	done := isCourseComplete(course, progress)
	if done && !user.HasCompletedCourse(courseID) {
		user.CompletedCourses = append(user.CompletedCourses, courseID)
		completedAt := now
		history.CompletedAt = &completedAt

		badge, err := s.badges.GetOrCreateForCourse(ctx, course)
		if err != nil {
			return nil, err
		}
		awarded, err := s.badges.AwardIfAbsent(ctx, badge.ID, userID, now)
		if err != nil {
			return nil, err
		}
		if !user.HasBadge(badge.ID) {
			user.Badges = append(user.Badges, badge.ID)
		}
		s.log.Info("course completed",
			zap.String("user", userID.Hex()),
			zap.String("course", courseID.Hex()),
			zap.String("badge", badge.ID.Hex()),
			zap.Bool("awarded", awarded))
	}

	// History first: a crash between the two writes leaves a state a retry
	// repairs, because every step above is idempotent.
	if err := s.history.Save(ctx, history); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	snapshot, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	msg := MsgChapterCompleted
	if done {
		msg = MsgCourseCompleted
	}
	return &Result{Message: msg, User: snapshot}, nil
}

// recordChapterCompletion adds chapterID to the user's completed set for
// the course, creating the progress entry on first touch. Pure in-memory
// mutation; the caller persists the user once per request.
func recordChapterCompletion(user *models.User, courseID, chapterID bson.ObjectID) *models.CourseProgress {
	p := user.ProgressFor(courseID)
	if p == nil {
		user.Progress = append(user.Progress, models.CourseProgress{
			CourseID:          courseID,
			CompletedChapters: []bson.ObjectID{},
		})
		p = &user.Progress[len(user.Progress)-1]
	}
	for _, id := range p.CompletedChapters {
		if id == chapterID {
			return p
		}
	}
	p.CompletedChapters = append(p.CompletedChapters, chapterID)
	return p
}

// recordHistory finds or creates the (user, course) ledger entry and
// appends the chapter completion unless the chapter is already recorded.
// The chapter title is snapshotted so later edits don't rewrite history.
// Course-level CompletedAt is not set here; the caller sets it on full
// completion only.
func (s *Service) recordHistory(ctx context.Context, user *models.User, course *models.Course, chapter *models.Chapter, at time.Time) (*models.HistoryEntry, error) {
	history, err := s.history.GetByUserCourse(ctx, user.ID, course.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		history = &models.HistoryEntry{
			ID:                bson.NewObjectID(),
			User:              user.ID,
			Course:            course.ID,
			Category:          s.moduleName(ctx, course),
			CompletedChapters: []models.CompletedChapter{},
		}
	case err != nil:
		return nil, err
	}

	if !history.HasChapter(chapter.ID) {
		history.CompletedChapters = append(history.CompletedChapters, models.CompletedChapter{
			ChapterID:   chapter.ID,
			CompletedAt: at,
			Title:       chapter.Title,
		})
	}
	return history, nil
}

func (s *Service) moduleName(ctx context.Context, course *models.Course) string {
	if course.Module.IsZero() {
		return ""
	}
	m, err := s.modules.GetByID(ctx, course.Module)
	if err != nil {
		s.log.Warn("resolve module name for history",
			zap.String("course", course.ID.Hex()), zap.Error(err))
		return ""
	}
	return m.Name
}

// isCourseComplete compares the number of completed chapters that still
// exist on the course against the current chapter count. Intersecting first
// means a chapter id orphaned by deletion can never inflate the count and
// trigger a premature completion.
func isCourseComplete(course *models.Course, progress *models.CourseProgress) bool {
	if len(course.Chapters) == 0 {
		return false
	}
	current := make(map[bson.ObjectID]struct{}, len(course.Chapters))
	for _, ch := range course.Chapters {
		current[ch.ID] = struct{}{}
	}
	n := 0
	for _, id := range progress.CompletedChapters {
		if _, ok := current[id]; ok {
			n++
		}
	}
	return n == len(course.Chapters)
}

func (s *Service) snapshot(ctx context.Context, userID bson.ObjectID) (*Snapshot, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	badges, err := s.badges.ListByIDs(ctx, user.Badges)
	if err != nil {
		return nil, err
	}
	completed, err := s.courses.ListByIDs(ctx, user.CompletedCourses)
	if err != nil {
		return nil, err
	}

	badgeCourseIDs := make([]bson.ObjectID, 0, len(badges))
	for _, b := range badges {
		badgeCourseIDs = append(badgeCourseIDs, b.Course)
	}
	badgeCourses, err := s.courses.ListByIDs(ctx, badgeCourseIDs)
	if err != nil {
		return nil, err
	}
	titles := make(map[bson.ObjectID]string, len(badgeCourses))
	for _, c := range badgeCourses {
		titles[c.ID] = c.Title
	}

	snap := &Snapshot{
		ID:               user.ID,
		Email:            user.Email,
		Name:             user.Name,
		Role:             user.Role,
		Progress:         user.Progress,
		CompletedCourses: make([]CourseRef, 0, len(completed)),
		Badges:           make([]BadgeRef, 0, len(badges)),
	}
	for _, c := range completed {
		snap.CompletedCourses = append(snap.CompletedCourses, CourseRef{ID: c.ID, Title: c.Title})
	}
	for _, b := range badges {
		snap.Badges = append(snap.Badges, BadgeRef{
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
			Image:       b.Image,
			CourseID:    b.Course,
			CourseTitle: titles[b.Course],
		})
	}
	return snap, nil
}

package controllers

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/JuanCarrill0/Kata-Middle-BB/completion"
	"github.com/JuanCarrill0/Kata-Middle-BB/config"
	"github.com/JuanCarrill0/Kata-Middle-BB/middleware"
	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
	"github.com/JuanCarrill0/Kata-Middle-BB/utils"
)

// ProxyPrefix marks content URLs served through the backend file proxy.
// The prefix is a routing concern only; stripping it yields the blob key.
const ProxyPrefix = "/api/files/"

type CoursesController struct {
	Users      store.UserStore
	Courses    store.CourseStore
	Modules    store.ModuleStore
	Badges     store.BadgeStore
	Blobs      store.BlobStore
	Completion *completion.Service
	Cfg        *config.Config
	Log        *zap.Logger
}

func NewCoursesController(
	users store.UserStore,
	courses store.CourseStore,
	modules store.ModuleStore,
	badges store.BadgeStore,
	blobs store.BlobStore,
	completionSvc *completion.Service,
	cfg *config.Config,
	log *zap.Logger,
) *CoursesController {
	return &CoursesController{
		Users:      users,
		Courses:    courses,
		Modules:    modules,
		Badges:     badges,
		Blobs:      blobs,
		Completion: completionSvc,
		Cfg:        cfg,
		Log:        log,
	}
}

// GetCourses lists every course for staff; regular users only see courses
// belonging to modules they subscribed to.
func (cc *CoursesController) GetCourses(c *fiber.Ctx) error {
	principal := middleware.PrincipalFrom(c)

	if principal.IsStaff() {
		courses, err := cc.Courses.List(c.Context())
		if err != nil {
			return utils.InternalServerError(c, "Error fetching courses")
		}
		return c.JSON(courses)
	}

	user, err := cc.Users.GetByID(c.Context(), principal.ID)
	if err != nil {
		return utils.StoreError(c, err, "Error fetching courses")
	}
	courses, err := cc.Courses.ListByModules(c.Context(), user.SubscribedModules)
	if err != nil {
		return utils.InternalServerError(c, "Error fetching courses")
	}
	return c.JSON(courses)
}

func (cc *CoursesController) GetCourse(c *fiber.Ctx) error {
	courseID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.NotFound(c, "Course not found")
	}
	course, err := cc.Courses.GetByID(c.Context(), courseID)
	if err != nil {
		return utils.StoreError(c, err, "Error fetching course")
	}

	principal := middleware.PrincipalFrom(c)
	if principal.IsStaff() {
		return c.JSON(course)
	}

	if course.Module.IsZero() {
		return utils.Forbidden(c, "Course not accessible")
	}
	user, err := cc.Users.GetByID(c.Context(), principal.ID)
	if err != nil {
		return utils.StoreError(c, err, "Error fetching course")
	}
	if !user.IsSubscribed(course.Module) {
		return utils.Forbidden(c, "Not subscribed to this module")
	}
	return c.JSON(course)
}

func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	principal := middleware.PrincipalFrom(c)

	title := c.FormValue("title")
	description := c.FormValue("description")
	if title == "" || description == "" {
		return utils.BadRequest(c, "title and description are required")
	}

	moduleHex := c.FormValue("module")
	if moduleHex == "" {
		return utils.BadRequest(c, "module is required")
	}
	moduleID, err := bson.ObjectIDFromHex(moduleHex)
	if err != nil {
		return utils.BadRequest(c, "invalid module id")
	}
	if _, err := cc.Modules.GetByID(c.Context(), moduleID); err != nil {
		return utils.StoreError(c, err, "Error creating course")
	}

	course := models.Course{
		Title:       title,
		Description: description,
		Module:      moduleID,
		Chapters:    []models.Chapter{},
		CreatedBy:   principal.ID,
	}

	if file, err := c.FormFile("thumbnail"); err == nil {
		key, err := cc.uploadFile(c, file)
		if err != nil {
			return utils.InternalServerError(c, "Error storing thumbnail")
		}
		course.Thumbnail = ProxyPrefix + key
	}

	if err := cc.Courses.Create(c.Context(), &course); err != nil {
		return utils.InternalServerError(c, "Error creating course")
	}

	cc.notifySubscribers(c, &course)

	return c.Status(fiber.StatusCreated).JSON(course)
}

// notifySubscribers pushes an in-app notification about a new course to
// every user subscribed to its module. Failures are logged, never surfaced:
// the course is already created.
func (cc *CoursesController) notifySubscribers(c *fiber.Ctx, course *models.Course) {
	subscribers, err := cc.Users.ListSubscribers(c.Context(), course.Module)
	if err != nil {
		cc.Log.Error("list subscribers for course notification",
			zap.String("course", course.ID.Hex()), zap.Error(err))
		return
	}
	link := fmt.Sprintf("%s/courses/%s", cc.Cfg.AppURL, course.ID.Hex())
	for _, sub := range subscribers {
		n := models.Notification{
			ID:        bson.NewObjectID(),
			Message:   fmt.Sprintf("New course available: %s", course.Title),
			Link:      link,
			Module:    course.Module,
			Course:    course.ID,
			CreatedAt: time.Now().UTC(),
		}
		if err := cc.Users.PushNotification(c.Context(), sub.ID, n); err != nil {
			cc.Log.Error("push course notification",
				zap.String("user", sub.ID.Hex()), zap.Error(err))
		}
	}
}

// AddChapter appends a chapter built from the uploaded files. Each file
// goes to the blob store under a fresh uuid key and is referenced through
// the backend proxy URL.
func (cc *CoursesController) AddChapter(c *fiber.Ctx) error {
	courseID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.NotFound(c, "Course not found")
	}
	course, err := cc.Courses.GetByID(c.Context(), courseID)
	if err != nil {
		return utils.StoreError(c, err, "Error adding chapter")
	}

	title := c.FormValue("title")
	description := c.FormValue("description")
	if title == "" {
		return utils.BadRequest(c, "title is required")
	}

	chapter := models.Chapter{
		ID:          bson.NewObjectID(),
		Title:       title,
		Description: description,
		Content:     []models.Content{},
	}

	if form, err := c.MultipartForm(); err == nil {
		for _, file := range form.File["files"] {
			key, err := cc.uploadFile(c, file)
			if err != nil {
				return utils.InternalServerError(c, "Error storing chapter content")
			}
			chapter.Content = append(chapter.Content, models.Content{
				Type: contentTypeFor(file.Header.Get("Content-Type")),
				URL:  ProxyPrefix + key,
			})
		}
	}

	course.Chapters = append(course.Chapters, chapter)
	if err := cc.Courses.Save(c.Context(), course); err != nil {
		return utils.StoreError(c, err, "Error adding chapter")
	}
	return c.Status(fiber.StatusCreated).JSON(course)
}

// CompleteChapter marks a chapter as completed by the authenticated user.
func (cc *CoursesController) CompleteChapter(c *fiber.Ctx) error {
	principal := middleware.PrincipalFrom(c)

	courseID, err := bson.ObjectIDFromHex(c.Params("courseId"))
	if err != nil {
		return utils.NotFound(c, "Course not found")
	}
	chapterID, err := bson.ObjectIDFromHex(c.Params("chapterId"))
	if err != nil {
		return utils.NotFound(c, "Chapter not found")
	}

	result, err := cc.Completion.CompleteChapter(c.Context(), principal.ID, courseID, chapterID)
	if err != nil {
		cc.Log.Error("complete chapter",
			zap.String("user", principal.ID.Hex()),
			zap.String("course", courseID.Hex()),
			zap.String("chapter", chapterID.Hex()),
			zap.Error(err))
		return utils.StoreError(c, err, "Error completing chapter")
	}
	return c.JSON(result)
}

// DeleteChapter removes a chapter and its content blobs. Individual blob
// deletions may fail without aborting: an orphaned blob is acceptable, a
// chapter record pointing at deleted content is not.
func (cc *CoursesController) DeleteChapter(c *fiber.Ctx) error {
	courseID, err := bson.ObjectIDFromHex(c.Params("courseId"))
	if err != nil {
		return utils.NotFound(c, "Course not found")
	}
	chapterID, err := bson.ObjectIDFromHex(c.Params("chapterId"))
	if err != nil {
		return utils.NotFound(c, "Chapter not found")
	}

	course, err := cc.Courses.GetByID(c.Context(), courseID)
	if err != nil {
		return utils.StoreError(c, err, "Error deleting chapter")
	}
	chapter := course.FindChapter(chapterID)
	if chapter == nil {
		return utils.NotFound(c, "Chapter not found")
	}

	for _, content := range chapter.Content {
		cc.deleteBlobByURL(c, content.URL)
	}

	course.RemoveChapter(chapterID)
	if err := cc.Courses.Save(c.Context(), course); err != nil {
		return utils.StoreError(c, err, "Error deleting chapter")
	}
	return c.JSON(fiber.Map{"message": "Chapter deleted"})
}

// DeleteCourse cascades: thumbnail and chapter content blobs (tolerant),
// the course badge, then the course record itself.
func (cc *CoursesController) DeleteCourse(c *fiber.Ctx) error {
	courseID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.NotFound(c, "Course not found")
	}
	course, err := cc.Courses.GetByID(c.Context(), courseID)
	if err != nil {
		return utils.StoreError(c, err, "Error deleting course")
	}

	if course.Thumbnail != "" {
		cc.deleteBlobByURL(c, course.Thumbnail)
	}
	for _, chapter := range course.Chapters {
		for _, content := range chapter.Content {
			cc.deleteBlobByURL(c, content.URL)
		}
	}

	if err := cc.Badges.DeleteByCourse(c.Context(), courseID); err != nil {
		cc.Log.Warn("delete badge for course",
			zap.String("course", courseID.Hex()), zap.Error(err))
	}

	if err := cc.Courses.Delete(c.Context(), courseID); err != nil {
		return utils.StoreError(c, err, "Error deleting course")
	}
	return c.JSON(fiber.Map{"message": "Course deleted"})
}

func (cc *CoursesController) uploadFile(c *fiber.Ctx, file *multipart.FileHeader) (string, error) {
	key := uuid.NewString() + filepath.Ext(file.Filename)
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	if err := cc.Blobs.Put(c.Context(), key, src, file.Size, file.Header.Get("Content-Type")); err != nil {
		return "", err
	}
	return key, nil
}

func (cc *CoursesController) deleteBlobByURL(c *fiber.Ctx, url string) {
	key := strings.TrimPrefix(url, ProxyPrefix)
	if key == "" {
		return
	}
	if err := cc.Blobs.Delete(c.Context(), key); err != nil {
		cc.Log.Warn("delete content blob", zap.String("key", key), zap.Error(err))
	}
}

// contentTypeFor maps an upload's MIME type to a chapter content type.
func contentTypeFor(mime string) string {
	switch {
	case mime == "application/pdf":
		return models.ContentPDF
	case strings.HasPrefix(mime, "video/"):
		return models.ContentVideo
	case mime == "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return models.ContentPresentation
	case strings.HasPrefix(mime, "image/"):
		return models.ContentPresentation
	default:
		return models.ContentPDF
	}
}

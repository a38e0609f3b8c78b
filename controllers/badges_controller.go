package controllers

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
	"github.com/JuanCarrill0/Kata-Middle-BB/utils"
)

type BadgesController struct {
	Badges  store.BadgeStore
	Courses store.CourseStore
	Blobs   store.BlobStore
}

func NewBadgesController(badges store.BadgeStore, courses store.CourseStore, blobs store.BlobStore) *BadgesController {
	return &BadgesController{Badges: badges, Courses: courses, Blobs: blobs}
}

type badgeView struct {
	models.Badge
	CourseTitle string `json:"courseTitle,omitempty"`
}

// List returns all badges with their course titles populated. Badges whose
// course has since been deleted keep an empty title.
func (bc *BadgesController) List(c *fiber.Ctx) error {
	badges, err := bc.Badges.List(c.Context())
	if err != nil {
		return utils.InternalServerError(c, "Error fetching badges")
	}

	ids := make([]bson.ObjectID, 0, len(badges))
	for _, b := range badges {
		ids = append(ids, b.Course)
	}
	courses, err := bc.Courses.ListByIDs(c.Context(), ids)
	if err != nil {
		return utils.InternalServerError(c, "Error fetching badges")
	}
	titles := make(map[bson.ObjectID]string, len(courses))
	for _, course := range courses {
		titles[course.ID] = course.Title
	}

	views := make([]badgeView, 0, len(badges))
	for _, b := range badges {
		views = append(views, badgeView{Badge: b, CourseTitle: titles[b.Course]})
	}
	return c.JSON(views)
}

// Create lets an admin pre-create a badge for a course, optionally with a
// custom image. Completion falls back to an auto-created badge when none
// exists.
func (bc *BadgesController) Create(c *fiber.Ctx) error {
	courseID, err := bson.ObjectIDFromHex(c.FormValue("course"))
	if err != nil {
		return utils.BadRequest(c, "course is required")
	}
	course, err := bc.Courses.GetByID(c.Context(), courseID)
	if err != nil {
		return utils.StoreError(c, err, "Error creating badge")
	}

	name := c.FormValue("name")
	if name == "" {
		name = course.Title + " - Completed"
	}
	description := c.FormValue("description")
	if description == "" {
		description = "Awarded for completing the course " + course.Title
	}

	b := models.Badge{
		Name:        name,
		Description: description,
		Course:      course.ID,
		EarnedBy:    []models.BadgeAward{},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if file, ferr := c.FormFile("image"); ferr == nil && file != nil {
		key := "badges/" + uuid.NewString() + filepath.Ext(file.Filename)
		src, err := file.Open()
		if err != nil {
			return utils.InternalServerError(c, "Error uploading badge image")
		}
		defer src.Close()
		if err := bc.Blobs.Put(c.Context(), key, src, file.Size, file.Header.Get("Content-Type")); err != nil {
			return utils.InternalServerError(c, "Error uploading badge image")
		}
		b.Image = ProxyPrefix + key
	}

	if err := bc.Badges.Create(c.Context(), &b); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return utils.BadRequest(c, "Badge already exists for this course")
		}
		return utils.InternalServerError(c, "Error creating badge")
	}
	return c.Status(fiber.StatusCreated).JSON(b)
}

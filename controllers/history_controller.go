package controllers

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/JuanCarrill0/Kata-Middle-BB/middleware"
	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
	"github.com/JuanCarrill0/Kata-Middle-BB/utils"
)

type HistoryController struct {
	History store.HistoryStore
	Courses store.CourseStore
}

func NewHistoryController(history store.HistoryStore, courses store.CourseStore) *HistoryController {
	return &HistoryController{History: history, Courses: courses}
}

type historyView struct {
	models.HistoryEntry
	CourseTitle string `json:"courseTitle,omitempty"`
}

type historyStats struct {
	TotalCourses  int            `json:"totalCourses"`
	TotalChapters int            `json:"totalChapters"`
	TotalTime     int            `json:"totalTime"`
	ByCategory    map[string]int `json:"byCategory"`
}

// MyHistory returns the caller's completion ledger together with aggregate
// stats. TotalCourses counts only fully completed courses.
func (hc *HistoryController) MyHistory(c *fiber.Ctx) error {
	principal := middleware.PrincipalFrom(c)

	entries, err := hc.History.ListByUser(c.Context(), principal.ID)
	if err != nil {
		return utils.InternalServerError(c, "Error fetching history")
	}

	views, err := hc.withTitles(c, entries)
	if err != nil {
		return utils.InternalServerError(c, "Error fetching history")
	}

	stats := historyStats{ByCategory: map[string]int{}}
	for _, e := range entries {
		if e.CompletedAt != nil {
			stats.TotalCourses++
			stats.ByCategory[e.Category]++
		}
		stats.TotalChapters += len(e.CompletedChapters)
		stats.TotalTime += e.TotalTime
	}

	return c.JSON(fiber.Map{"history": views, "stats": stats})
}

// CourseHistory returns the caller's ledger for one course, 404 when the
// user never completed a chapter in it.
func (hc *HistoryController) CourseHistory(c *fiber.Ctx) error {
	principal := middleware.PrincipalFrom(c)
	courseID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.NotFound(c, "No history for this course")
	}

	entry, err := hc.History.GetByUserCourse(c.Context(), principal.ID, courseID)
	if err != nil {
		return utils.StoreError(c, err, "Error fetching history")
	}
	return c.JSON(entry)
}

// All returns every user's ledger, admin only.
func (hc *HistoryController) All(c *fiber.Ctx) error {
	entries, err := hc.History.ListAll(c.Context())
	if err != nil {
		return utils.InternalServerError(c, "Error fetching history")
	}
	views, err := hc.withTitles(c, entries)
	if err != nil {
		return utils.InternalServerError(c, "Error fetching history")
	}
	return c.JSON(views)
}

func (hc *HistoryController) withTitles(c *fiber.Ctx, entries []models.HistoryEntry) ([]historyView, error) {
	ids := make([]bson.ObjectID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Course)
	}
	courses, err := hc.Courses.ListByIDs(c.Context(), ids)
	if err != nil {
		return nil, err
	}
	titles := make(map[bson.ObjectID]string, len(courses))
	for _, course := range courses {
		titles[course.ID] = course.Title
	}

	views := make([]historyView, 0, len(entries))
	for _, e := range entries {
		views = append(views, historyView{HistoryEntry: e, CourseTitle: titles[e.Course]})
	}
	return views, nil
}

package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/JuanCarrill0/Kata-Middle-BB/middleware"
	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
	"github.com/JuanCarrill0/Kata-Middle-BB/utils"
)

type ModulesController struct {
	Modules store.ModuleStore
	Courses store.CourseStore
}

func NewModulesController(modules store.ModuleStore, courses store.CourseStore) *ModulesController {
	return &ModulesController{Modules: modules, Courses: courses}
}

func (mc *ModulesController) List(c *fiber.Ctx) error {
	modules, err := mc.Modules.List(c.Context())
	if err != nil {
		return utils.InternalServerError(c, "Error fetching modules")
	}
	return c.JSON(modules)
}

func (mc *ModulesController) Get(c *fiber.Ctx) error {
	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.NotFound(c, "Module not found")
	}
	m, err := mc.Modules.GetByID(c.Context(), id)
	if err != nil {
		return utils.StoreError(c, err, "Error fetching module")
	}
	return c.JSON(m)
}

func (mc *ModulesController) Create(c *fiber.Ctx) error {
	principal := middleware.PrincipalFrom(c)
	var input struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil || input.Name == "" {
		return utils.BadRequest(c, "name is required")
	}

	m := models.Module{
		Name:        input.Name,
		Description: input.Description,
		CreatedBy:   principal.ID,
	}
	if err := mc.Modules.Create(c.Context(), &m); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return utils.BadRequest(c, "Module already exists")
		}
		return utils.InternalServerError(c, "Error creating module")
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

func (mc *ModulesController) Update(c *fiber.Ctx) error {
	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.NotFound(c, "Module not found")
	}
	m, err := mc.Modules.GetByID(c.Context(), id)
	if err != nil {
		return utils.StoreError(c, err, "Error updating module")
	}

	var input struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Name != nil && *input.Name != "" {
		m.Name = *input.Name
	}
	if input.Description != nil {
		m.Description = *input.Description
	}

	if err := mc.Modules.Save(c.Context(), m); err != nil {
		return utils.StoreError(c, err, "Error updating module")
	}
	return c.JSON(m)
}

// Delete refuses while courses still reference the module; the caller must
// move or delete them first.
func (mc *ModulesController) Delete(c *fiber.Ctx) error {
	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.NotFound(c, "Module not found")
	}

	n, err := mc.Courses.CountByModule(c.Context(), id)
	if err != nil {
		return utils.InternalServerError(c, "Error deleting module")
	}
	if n > 0 {
		return utils.BadRequest(c, "Module has courses. Delete or move courses before deleting module.")
	}

	if err := mc.Modules.Delete(c.Context(), id); err != nil {
		return utils.StoreError(c, err, "Error deleting module")
	}
	return c.JSON(fiber.Map{"message": "Module deleted"})
}

func (mc *ModulesController) ModuleCourses(c *fiber.Ctx) error {
	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.NotFound(c, "Module not found")
	}
	courses, err := mc.Courses.ListByModules(c.Context(), []bson.ObjectID{id})
	if err != nil {
		return utils.InternalServerError(c, "Error fetching courses for module")
	}
	return c.JSON(courses)
}

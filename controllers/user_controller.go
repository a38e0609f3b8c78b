package controllers

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/JuanCarrill0/Kata-Middle-BB/config"
	"github.com/JuanCarrill0/Kata-Middle-BB/middleware"
	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
	"github.com/JuanCarrill0/Kata-Middle-BB/utils"
)

type UserController struct {
	Users   store.UserStore
	Courses store.CourseStore
	Badges  store.BadgeStore
	Blobs   store.BlobStore
	Cfg     *config.Config
}

func NewUserController(users store.UserStore, courses store.CourseStore, badges store.BadgeStore, blobs store.BlobStore, cfg *config.Config) *UserController {
	return &UserController{Users: users, Courses: courses, Badges: badges, Blobs: blobs, Cfg: cfg}
}

func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	principal := middleware.PrincipalFrom(c)
	user, err := uc.Users.GetByID(c.Context(), principal.ID)
	if err != nil {
		return utils.StoreError(c, err, "Error fetching profile")
	}

	badges, err := uc.Badges.ListByIDs(c.Context(), user.Badges)
	if err != nil {
		return utils.InternalServerError(c, "Error fetching profile")
	}
	completed, err := uc.Courses.ListByIDs(c.Context(), user.CompletedCourses)
	if err != nil {
		return utils.InternalServerError(c, "Error fetching profile")
	}

	return c.JSON(fiber.Map{
		"id":                user.ID,
		"email":             user.Email,
		"name":              user.Name,
		"role":              user.Role,
		"avatar":            user.Avatar,
		"progress":          user.Progress,
		"completedCourses":  completed,
		"badges":            badges,
		"subscribedModules": user.SubscribedModules,
		"notifications":     user.Notifications,
	})
}

func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	principal := middleware.PrincipalFrom(c)
	user, err := uc.Users.GetByID(c.Context(), principal.ID)
	if err != nil {
		return utils.StoreError(c, err, "Error updating profile")
	}

	if name := c.FormValue("name"); name != "" {
		user.Name = name
	}

	if file, err := c.FormFile("avatar"); err == nil {
		key := uuid.NewString() + filepath.Ext(file.Filename)
		src, err := file.Open()
		if err != nil {
			return utils.InternalServerError(c, "Error reading avatar")
		}
		defer src.Close()
		contentType := file.Header.Get("Content-Type")
		if err := uc.Blobs.Put(c.Context(), key, src, file.Size, contentType); err != nil {
			return utils.InternalServerError(c, "Error storing avatar")
		}
		user.Avatar = ProxyPrefix + key
	}

	if err := uc.Users.Save(c.Context(), user); err != nil {
		return utils.StoreError(c, err, "Error updating profile")
	}

	return c.JSON(fiber.Map{
		"id":     user.ID,
		"email":  user.Email,
		"name":   user.Name,
		"role":   user.Role,
		"avatar": user.Avatar,
	})
}

func (uc *UserController) Subscribe(c *fiber.Ctx) error {
	principal := middleware.PrincipalFrom(c)
	moduleID, err := parseModuleBody(c)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}
	if err := uc.Users.AddSubscription(c.Context(), principal.ID, moduleID); err != nil {
		return utils.StoreError(c, err, "Error subscribing to module")
	}
	user, err := uc.Users.GetByID(c.Context(), principal.ID)
	if err != nil {
		return utils.StoreError(c, err, "Error subscribing to module")
	}
	return c.JSON(fiber.Map{"message": "Subscribed", "subscribedModules": user.SubscribedModules})
}

func (uc *UserController) Unsubscribe(c *fiber.Ctx) error {
	principal := middleware.PrincipalFrom(c)
	moduleID, err := parseModuleBody(c)
	if err != nil {
		return utils.BadRequest(c, err.Error())
	}
	if err := uc.Users.RemoveSubscription(c.Context(), principal.ID, moduleID); err != nil {
		return utils.StoreError(c, err, "Error unsubscribing from module")
	}
	user, err := uc.Users.GetByID(c.Context(), principal.ID)
	if err != nil {
		return utils.StoreError(c, err, "Error unsubscribing from module")
	}
	return c.JSON(fiber.Map{"message": "Unsubscribed", "subscribedModules": user.SubscribedModules})
}

func parseModuleBody(c *fiber.Ctx) (bson.ObjectID, error) {
	var input struct {
		Module string `json:"module"`
	}
	if err := c.BodyParser(&input); err != nil || input.Module == "" {
		return bson.ObjectID{}, fmt.Errorf("module is required")
	}
	id, err := bson.ObjectIDFromHex(input.Module)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("invalid module id")
	}
	return id, nil
}

func (uc *UserController) GetNotifications(c *fiber.Ctx) error {
	principal := middleware.PrincipalFrom(c)
	user, err := uc.Users.GetByID(c.Context(), principal.ID)
	if err != nil {
		return utils.StoreError(c, err, "Error fetching notifications")
	}

	notifications := append([]models.Notification(nil), user.Notifications...)
	sort.SliceStable(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return c.JSON(notifications)
}

func (uc *UserController) MarkNotificationRead(c *fiber.Ctx) error {
	principal := middleware.PrincipalFrom(c)
	notificationID, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid notification id")
	}

	if err := uc.Users.MarkNotificationRead(c.Context(), principal.ID, notificationID); err != nil {
		return utils.StoreError(c, err, "Error marking notification")
	}
	return c.JSON(fiber.Map{"message": "Marked read"})
}

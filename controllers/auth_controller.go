package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/JuanCarrill0/Kata-Middle-BB/config"
	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
	"github.com/JuanCarrill0/Kata-Middle-BB/utils"
)

type AuthController struct {
	Users store.UserStore
	Cfg   *config.Config
}

func NewAuthController(users store.UserStore, cfg *config.Config) *AuthController {
	return &AuthController{Users: users, Cfg: cfg}
}

func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Email == "" || input.Password == "" || input.Name == "" {
		return utils.BadRequest(c, "email, password and name are required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}

	user := models.User{
		Email:             strings.ToLower(strings.TrimSpace(input.Email)),
		Password:          string(hashed),
		Name:              strings.TrimSpace(input.Name),
		Role:              models.RoleUser,
		Progress:          []models.CourseProgress{},
		CompletedCourses:  []bson.ObjectID{},
		Badges:            []bson.ObjectID{},
		SubscribedModules: []bson.ObjectID{},
		Notifications:     []models.Notification{},
	}
	if err := ac.Users.Create(c.Context(), &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return utils.BadRequest(c, "Email already registered")
		}
		return utils.InternalServerError(c, "Error creating user")
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
	})
}

func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	user, err := ac.Users.GetByEmail(c.Context(), strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return utils.Unauthorized(c, "Invalid credentials")
		}
		return utils.InternalServerError(c, "Error during login")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return utils.Unauthorized(c, "Invalid credentials")
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
	})
}

package routes

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/JuanCarrill0/Kata-Middle-BB/completion"
	"github.com/JuanCarrill0/Kata-Middle-BB/config"
	"github.com/JuanCarrill0/Kata-Middle-BB/controllers"
	"github.com/JuanCarrill0/Kata-Middle-BB/middleware"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
)

// Deps bundles everything the route handlers need. main wires production
// implementations; tests wire the in-memory stores.
type Deps struct {
	Users      store.UserStore
	Courses    store.CourseStore
	Modules    store.ModuleStore
	Badges     store.BadgeStore
	History    store.HistoryStore
	Blobs      store.BlobStore
	Completion *completion.Service
	Cfg        *config.Config
	Log        *zap.Logger
}

func SetupRoutes(app *fiber.App, d Deps) {
	// Auth routes
	authController := controllers.NewAuthController(d.Users, d.Cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(d.Users, d.Cfg)
	staffMiddleware := middleware.RequireStaff()
	adminMiddleware := middleware.RequireAdmin()

	// User routes
	userController := controllers.NewUserController(d.Users, d.Courses, d.Badges, d.Blobs, d.Cfg)
	users := app.Group("/api/users", authMiddleware)
	users.Get("/profile", userController.GetProfile)
	users.Put("/profile", userController.UpdateProfile)
	users.Post("/subscribe", userController.Subscribe)
	users.Post("/unsubscribe", userController.Unsubscribe)
	users.Get("/notifications", userController.GetNotifications)
	users.Post("/notifications/:id/read", userController.MarkNotificationRead)

	// Module routes
	modulesController := controllers.NewModulesController(d.Modules, d.Courses)
	modules := app.Group("/api/modules", authMiddleware)
	modules.Get("/", modulesController.List)
	modules.Get("/:id", modulesController.Get)
	modules.Get("/:id/courses", modulesController.ModuleCourses)
	modules.Post("/", staffMiddleware, modulesController.Create)
	modules.Put("/:id", staffMiddleware, modulesController.Update)
	modules.Delete("/:id", staffMiddleware, modulesController.Delete)

	// Courses routes
	coursesController := controllers.NewCoursesController(
		d.Users, d.Courses, d.Modules, d.Badges, d.Blobs, d.Completion, d.Cfg, d.Log)
	courses := app.Group("/api/courses", authMiddleware)
	courses.Get("/", coursesController.GetCourses)
	courses.Get("/:id", coursesController.GetCourse)
	courses.Post("/", staffMiddleware, coursesController.CreateCourse)
	courses.Post("/:id/chapters", staffMiddleware, coursesController.AddChapter)
	courses.Post("/:courseId/chapters/:chapterId/complete", coursesController.CompleteChapter)
	courses.Delete("/:courseId/chapters/:chapterId", staffMiddleware, coursesController.DeleteChapter)
	courses.Delete("/:id", staffMiddleware, coursesController.DeleteCourse)

	// Badge routes
	badgesController := controllers.NewBadgesController(d.Badges, d.Courses, d.Blobs)
	badges := app.Group("/api/badges", authMiddleware)
	badges.Get("/", badgesController.List)
	badges.Post("/", adminMiddleware, badgesController.Create)

	// History routes
	historyController := controllers.NewHistoryController(d.History, d.Courses)
	history := app.Group("/api/history", authMiddleware)
	history.Get("/my-history", historyController.MyHistory)
	history.Get("/me", historyController.MyHistory)
	history.Get("/course/:id", historyController.CourseHistory)
	history.Get("/all", adminMiddleware, historyController.All)

	// File proxy routes
	filesController := controllers.NewFilesController(d.Blobs)
	app.Get("/api/files/*", authMiddleware, filesController.Get)
}

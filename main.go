package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/JuanCarrill0/Kata-Middle-BB/completion"
	"github.com/JuanCarrill0/Kata-Middle-BB/config"
	"github.com/JuanCarrill0/Kata-Middle-BB/middleware"
	"github.com/JuanCarrill0/Kata-Middle-BB/routes"
	"github.com/JuanCarrill0/Kata-Middle-BB/store/blob"
	"github.com/JuanCarrill0/Kata-Middle-BB/store/mongodb"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize database
	client, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Fatal("connect mongodb", zap.Error(err))
	}
	db := client.Database(cfg.MongoDB)
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal("ensure indexes", zap.Error(err))
	}
	if err := mongodb.MigrateLegacyCategories(ctx, db, logger); err != nil {
		logger.Fatal("migrate legacy categories", zap.Error(err))
	}

	// Initialize object storage
	blobs, err := blob.NewMinio(ctx, cfg)
	if err != nil {
		logger.Fatal("connect minio", zap.Error(err))
	}

	users := mongodb.NewUsers(db)
	courses := mongodb.NewCourses(db)
	modules := mongodb.NewModules(db)
	badges := mongodb.NewBadges(db)
	history := mongodb.NewHistory(db)
	completionSvc := completion.NewService(users, courses, badges, history, modules, logger)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 512 * 1024 * 1024,
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, routes.Deps{
		Users:      users,
		Courses:    courses,
		Modules:    modules,
		Badges:     badges,
		History:    history,
		Blobs:      blobs,
		Completion: completionSvc,
		Cfg:        cfg,
		Log:        logger,
	})

	// Start server
	logger.Fatal("server stopped", zap.Error(app.Listen(":"+cfg.ServerPort)))
}

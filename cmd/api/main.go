package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nutq-platform/nutq-api/internal/config"
	"github.com/nutq-platform/nutq-api/internal/database"
	"github.com/nutq-platform/nutq-api/internal/handler"
	"github.com/nutq-platform/nutq-api/internal/middleware"
	"github.com/nutq-platform/nutq-api/internal/models"
	"github.com/nutq-platform/nutq-api/internal/repository"
	"github.com/nutq-platform/nutq-api/internal/router"
	"github.com/nutq-platform/nutq-api/internal/service"
	cloud "github.com/nutq-platform/nutq-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.ExamTemplate{},
		&models.Question{},
		&models.Exam{},
		&models.LegacyResponse{},
		&models.ExamAnswer{},
		&models.ExamFeedback{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Redis and NATS are optional; the services degrade gracefully without them.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	storage, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	examRepo := repository.NewExamRepository(db)

	events := service.NewEventPublisher(natsConn, logger)

	authService := service.NewAuthService(userRepo, validate, cfg.JWTSecret, cfg.TokenTTL, logger)
	templateService := service.NewTemplateService(templateRepo, validate, logger)
	examService := service.NewExamService(examRepo, templateRepo, userRepo, validate, storage, events, logger)
	evaluationService := service.NewEvaluationService(examRepo, userRepo, validate, events, logger)
	userService := service.NewUserService(userRepo, examRepo, validate, redisClient, cfg.StatsCacheTTL, logger)

	authHandler := handler.NewAuthHandler(authService, logger)
	templateHandler := handler.NewTemplateHandler(templateService, logger)
	examHandler := handler.NewExamHandler(examService, evaluationService, logger)
	userHandler := handler.NewUserHandler(userService, authService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:     authHandler,
		TemplateHandler: templateHandler,
		ExamHandler:     examHandler,
		UserHandler:     userHandler,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}

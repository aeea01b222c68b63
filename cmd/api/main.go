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

	"github.com/persona-labs/persona-api/internal/config"
	"github.com/persona-labs/persona-api/internal/database"
	"github.com/persona-labs/persona-api/internal/handler"
	"github.com/persona-labs/persona-api/internal/middleware"
	"github.com/persona-labs/persona-api/internal/models"
	"github.com/persona-labs/persona-api/internal/repository"
	"github.com/persona-labs/persona-api/internal/router"
	"github.com/persona-labs/persona-api/internal/service"
	"github.com/persona-labs/persona-api/pkg/recommend"
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
		&models.Student{},
		&models.BaseTest{},
		&models.Metric{},
		&models.Test{},
		&models.Section{},
		&models.Question{},
		&models.SubQuestion{},
		&models.TestAttempt{},
		&models.Answer{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, catalog caching disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not configured, event publishing disabled")
	}

	var recommender service.Recommender
	if cfg.RecommendServiceURL != "" {
		client, err := recommend.New(recommend.Config{
			BaseURL: cfg.RecommendServiceURL,
			Timeout: cfg.RecommendTimeout,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create recommendation client: %v", err)
		}
		recommender = client
	} else {
		logger.Warn().Msg("recommendation service url not configured, hand-off disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	baseTestRepo := repository.NewBaseTestRepository(db)
	metricRepo := repository.NewMetricRepository(db)
	testRepo := repository.NewTestRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	answerRepo := repository.NewAnswerRepository(db)

	events := service.NewEventPublisher(natsConn, cfg.NATSSubject, logger)
	catalogService := service.NewCatalogService(testRepo, redisClient, cfg.CatalogCacheTTL, logger)
	baseTestService := service.NewBaseTestService(baseTestRepo, validate, logger)
	metricService := service.NewMetricService(metricRepo, baseTestRepo, validate, logger)
	testService := service.NewTestService(testRepo, baseTestRepo, validate, catalogService, logger)
	questionService := service.NewQuestionBankService(testRepo, sectionRepo, questionRepo, metricRepo, answerRepo, validate, logger)
	studentService := service.NewStudentService(studentRepo, validate, logger)
	attemptService := service.NewAttemptService(attemptRepo, answerRepo, testRepo, studentRepo, validate, recommender, events, logger)

	baseTestHandler := handler.NewBaseTestHandler(baseTestService, catalogService, logger)
	metricHandler := handler.NewMetricHandler(metricService, logger)
	testHandler := handler.NewTestHandler(testService, questionService, logger)
	studentHandler := handler.NewStudentHandler(studentService, attemptService, logger)
	attemptHandler := handler.NewAttemptHandler(attemptService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		BaseTestHandler: baseTestHandler,
		MetricHandler:   metricHandler,
		TestHandler:     testHandler,
		StudentHandler:  studentHandler,
		AttemptHandler:  attemptHandler,
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

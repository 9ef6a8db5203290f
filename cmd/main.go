package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"catalog-import-service/internal/config"
	"catalog-import-service/internal/events"
	"catalog-import-service/internal/handlers"
	"catalog-import-service/internal/middleware"
	"catalog-import-service/internal/repository"
)

// @title Catalog Import API
// @version 1.0.0
// @description Spreadsheet catalog import service with reconciliation and reset support

// @host localhost:8087
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	redisClient := redis.NewClient(redisOpts)

	// Test Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	// Initialize repository
	catalogRepo := repository.NewCatalogRepository(db, redisClient)

	// Initialize event publisher only if NATS_URL is set
	var eventsPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventsPublisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer func() {
		if eventsPublisher != nil {
			eventsPublisher.Close()
		}
	}()

	// Resolve the fallback category used when a row's category cannot be
	// matched. Missing is tolerated; classification then reports the row.
	fallbackCategoryID := uuid.Nil
	if id, found, err := catalogRepo.CategoryIDByName(cfg.DefaultCategoryName); err != nil {
		log.Printf("WARNING: Failed to resolve default category '%s': %v", cfg.DefaultCategoryName, err)
	} else if found {
		fallbackCategoryID = id
	} else {
		log.Printf("WARNING: Default category '%s' not found", cfg.DefaultCategoryName)
	}

	// Initialize handlers
	importHandler := handlers.NewImportHandler(catalogRepo, eventsPublisher, logger, fallbackCategoryID)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Health check endpoints (no auth required)
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.HealthCheck)

	// Protected API routes
	api := router.Group("/api/v1")
	if cfg.Environment == "development" {
		api.Use(middleware.DevelopmentAuthMiddleware())
	} else {
		api.Use(middleware.AuthMiddleware())
	}

	catalog := api.Group("/catalog")
	{
		catalog.GET("/import/template", importHandler.GetImportTemplate)
		catalog.POST("/import", importHandler.ImportCatalog)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Catalog import service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down catalog-import-service...")
	log.Println("Catalog import service stopped")
}

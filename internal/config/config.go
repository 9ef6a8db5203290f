package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"catalog-import-service/internal/models"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// NATS
	NATSURL string

	// Server
	Port        string
	Environment string

	// Import settings
	DefaultCategoryName string
	MaxUploadBytes      int64
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	maxUpload, _ := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "10485760"), 10, 64)

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "catalog_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		NATSURL: getEnv("NATS_URL", ""),

		Port:        getEnv("PORT", "8087"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DefaultCategoryName: getEnv("DEFAULT_CATEGORY_NAME", "Uncategorized"),
		MaxUploadBytes:      maxUpload,
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate models to keep schema up to date
	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Enterprise{},
		&models.Category{},
		&models.Product{},
		&models.Variant{},
		&models.VariantOverride{},
		&models.InventoryItem{},
	); err != nil {
		return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package config

import (
	"catalog-admin-service/internal/models"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Tesseract-Nexus/go-shared/secrets"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Server
	Port        string
	Environment string
	AppDebug    bool
	AppURL      string
	APIPrefix   string
	LogLevel    string
	CORSOrigins []string

	// Auth
	JWTSecret              string
	TokenTTL               time.Duration
	PasswordResetTTL       time.Duration
	PasswordResetThrottle  time.Duration
	PasswordResetURL       string
	NotificationServiceURL string

	// Infrastructure
	RedisURL string
	NATSURL  string

	// Public disk
	StoragePath    string
	AvatarMaxBytes int64

	// Pagination
	DefaultPageSize int
	MaxPageSize     int
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	defaultPageSize, _ := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "20"))
	maxPageSize, _ := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "100"))
	tokenMinutes, _ := strconv.Atoi(getEnv("TOKEN_EXPIRATION_MINUTES", "0"))
	resetMinutes, _ := strconv.Atoi(getEnv("PASSWORD_RESET_EXPIRE_MINUTES", "60"))
	throttleSeconds, _ := strconv.Atoi(getEnv("PASSWORD_RESET_THROTTLE_SECONDS", "60"))
	avatarMaxBytes, _ := strconv.ParseInt(getEnv("AVATAR_MAX_BYTES", "2097152"), 10, 64)
	appDebug, _ := strconv.ParseBool(getEnv("APP_DEBUG", "false"))

	appURL := strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/")

	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: secrets.GetDBPassword(),
		DBName:     getEnv("DB_NAME", "catalog_admin_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		AppDebug:    appDebug,
		AppURL:      appURL,
		APIPrefix:   getEnv("API_PREFIX", "/api"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),

		// Auth
		JWTSecret:              secrets.GetJWTSecret(),
		TokenTTL:               time.Duration(tokenMinutes) * time.Minute,
		PasswordResetTTL:       time.Duration(resetMinutes) * time.Minute,
		PasswordResetThrottle:  time.Duration(throttleSeconds) * time.Second,
		PasswordResetURL:       getEnv("PASSWORD_RESET_URL", appURL+"/reset-password"),
		NotificationServiceURL: getEnv("NOTIFICATION_SERVICE_URL", "http://notification-service:8090"),

		// Infrastructure
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		NATSURL:  getEnv("NATS_URL", "nats://localhost:4222"),

		// Public disk
		StoragePath:    getEnv("STORAGE_PATH", "./storage/public"),
		AvatarMaxBytes: avatarMaxBytes,

		// Pagination
		DefaultPageSize: defaultPageSize,
		MaxPageSize:     maxPageSize,
	}
}

// TokenExpiresIn is the bearer token lifetime in seconds, nil when tokens never expire.
func (c *Config) TokenExpiresIn() *int64 {
	if c.TokenTTL <= 0 {
		return nil
	}
	seconds := int64(c.TokenTTL / time.Second)
	return &seconds
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

	db, err := gorm.Open(postgres.Open(dsn), GormConfig(logger.Default.LogMode(logLevel)))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		log.Printf("Warning: Auto-migration failed: %v", err)
	} else {
		log.Println("✓ Database schema migration completed")
	}

	return db, nil
}

// GormConfig is shared by the postgres connection and the sqlite test databases.
// Foreign keys are not materialized: a force-deleted category keeps its children's parent_id.
func GormConfig(l logger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:                                   l,
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.PersonalAccessToken{},
		&models.PasswordResetToken{},
		&models.Category{},
		&models.Product{},
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-admin-service/internal/clients"
	"catalog-admin-service/internal/config"
	"catalog-admin-service/internal/events"
	"catalog-admin-service/internal/handlers"
	"catalog-admin-service/internal/middleware"
	"catalog-admin-service/internal/repository"
	"catalog-admin-service/internal/routes"
	"catalog-admin-service/internal/storage"
	"catalog-admin-service/internal/subscribers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Tesseract-Nexus/go-shared/secrets"
)

// @title Catalog Admin API
// @version 1.0.0
// @description Category and product administration with token authentication

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT secret is not configured")
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Redis is optional: without it category reads skip the cache
	redisClient := connectRedis(cfg.RedisURL)

	eventsPublisher, err := events.NewPublisher(cfg.NATSURL, logger)
	if err != nil {
		log.Printf("WARNING: Failed to initialize events publisher: %v (events won't be published)", err)
	} else {
		log.Println("✓ NATS events publisher initialized")
	}

	// Repositories
	categoryRepo := repository.NewCategoryRepository(db, redisClient)
	productRepo := repository.NewProductRepository(db)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	resetRepo := repository.NewPasswordResetRepository(db, cfg.PasswordResetTTL, cfg.PasswordResetThrottle)

	// Product events from any catalog writer keep products_count in step
	var countSubscriber *subscribers.ProductCountSubscriber
	if cfg.NATSURL != "" {
		countSubscriber, err = subscribers.NewProductCountSubscriber(cfg.NATSURL, categoryRepo, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize product count subscriber: %v", err)
		} else if err := countSubscriber.Start(context.Background()); err != nil {
			log.Printf("WARNING: Failed to start product count subscriber: %v", err)
			countSubscriber = nil
		} else {
			log.Println("✓ Product count subscriber started (listening for product.* events)")
		}
	}

	disk := storage.NewDisk(cfg.StoragePath, cfg.AppURL+"/storage")
	presenter := handlers.NewPresenter(cfg.AppURL, disk)
	pager := handlers.Pager{Default: cfg.DefaultPageSize, Max: cfg.MaxPageSize}
	signer := middleware.NewTokenSigner(cfg.JWTSecret)

	authHandler := handlers.NewAuthHandler(
		userRepo, tokenRepo, resetRepo, signer,
		clients.NewNotificationClient(cfg.NotificationServiceURL),
		presenter,
		handlers.AuthOptions{
			TokenTTL:         cfg.TokenTTL,
			PasswordResetURL: cfg.PasswordResetURL,
			PasswordResetTTL: cfg.PasswordResetTTL,
			AvatarMaxBytes:   cfg.AvatarMaxBytes,
		},
		logger,
	)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := routes.NewRouter(cfg,
		routes.Dependencies{
			Errors: middleware.NewErrorRegistry(cfg.AppDebug, logger),
			Signer: signer,
			Tokens: tokenRepo,
		},
		routes.Handlers{
			Health:     handlers.NewHealthHandler(db, redisClient, eventsPublisher),
			Auth:       authHandler,
			Categories: handlers.NewCategoryHandler(categoryRepo, productRepo, eventsPublisher, presenter, pager, logger),
			Products:   handlers.NewProductHandler(productRepo, categoryRepo, eventsPublisher, pager, logger),
			Import:     handlers.NewImportHandler(categoryRepo, eventsPublisher, logger),
		},
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Catalog admin service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down catalog-admin-service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if countSubscriber != nil {
		countSubscriber.Stop()
		log.Println("✓ Product count subscriber stopped")
	}
	if eventsPublisher != nil {
		eventsPublisher.Close()
		log.Println("✓ Events publisher closed")
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	log.Println("Catalog admin service stopped")
}

func connectRedis(redisURL string) *redis.Client {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		return nil
	}
	if password := secrets.GetRedisPassword(); password != "" {
		redisOpts.Password = password
	}
	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
		_ = client.Close()
		return nil
	}
	log.Println("✓ Redis connected successfully")
	return client
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"travel-booking/internal/analytics"
	analytics_api "travel-booking/internal/analytics/api"
	"travel-booking/internal/auth"
	"travel-booking/internal/booking"
	"travel-booking/internal/booking/booking_api"
	"travel-booking/internal/booking/confirmation"
	bookingdb "travel-booking/internal/booking/db"
	bookingkafka "travel-booking/internal/booking/kafka"
	"travel-booking/internal/booking/qr"
	bookingredis "travel-booking/internal/booking/redis"
	"travel-booking/internal/capacity"
	capacitycache "travel-booking/internal/capacity/cache"
	capacitydb "travel-booking/internal/capacity/db"
	"travel-booking/internal/config"
	"travel-booking/internal/database"
	"travel-booking/internal/database/migrations"
	"travel-booking/internal/kafka"
	"travel-booking/internal/logger"
	"travel-booking/internal/sse"
	"travel-booking/internal/tours"
	"travel-booking/internal/tours/tour_api"
	toursdb "travel-booking/internal/tours/db"
	"travel-booking/internal/users"
	usersdb "travel-booking/internal/users/db"
	"travel-booking/internal/users/user_api"
)

func prepareSchema(ctx context.Context, bunDB *bun.DB, cfg *config.Config, logger *logger.Logger) {
	if cfg.Database.Driver == database.DriverSQLite {
		if err := database.CreateSchema(ctx, bunDB); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Failed to create schema: %v", err))
		}
		logger.Info("DATABASE", "Schema ready")
		return
	}
	if !cfg.Migrations.AutoMigrate {
		logger.Info("MIGRATION", "AUTO_MIGRATE disabled, skipping migrations")
		return
	}

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
		Driver:        cfg.Database.Driver,
		MigrationsDir: cfg.Migrations.Dir,
		SeedData:      cfg.Migrations.SeedData,
	}, logger)
	if err := runner.Initialize(); err != nil {
		logger.Fatal("MIGRATION", fmt.Sprintf("Failed to initialize migrations: %v", err))
	}
	defer runner.Close()
	if err := runner.RunMigrations(); err != nil {
		logger.Fatal("MIGRATION", fmt.Sprintf("Failed to run migrations: %v", err))
	}
}

func newPublisher(ctx context.Context, cfg config.KafkaConfig, logger *logger.Logger) kafka.Publisher {
	if !cfg.Enabled {
		logger.Info("KAFKA", "Kafka disabled, events are not published")
		return nil
	}
	if cfg.MockMode {
		logger.Info("KAFKA", "Kafka mock mode, events are written to the log")
		return &kafka.LogProducer{Logger: logger}
	}

	logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Brokers))
	if err := kafka.EnsureTopicsExist(ctx, cfg.Brokers, cfg.Topics.All(), logger); err != nil {
		logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		logger.Info("KAFKA", "Required topics ensured successfully")
	}
	return kafka.NewProducer(cfg.Brokers, logger)
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting travel booking service")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()
	ctx := context.Background()

	bunDB, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()
	prepareSchema(ctx, bunDB, cfg, logger)

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = database.OpenRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("REDIS", err.Error())
		}
		defer redisClient.Close()
	} else {
		logger.Warn("REDIS", "Redis disabled: no sessions, availability cache or submission guard")
	}

	producer := newPublisher(ctx, cfg.Kafka, logger)
	if producer != nil {
		defer producer.Close()
	}

	stream := sse.NewAvailabilityEmitter()

	var (
		capacityCache capacity.Cache
		sessions      *auth.RedisSessionStore
		sessionLookup auth.SessionLookup
		sessionStore  user_api.SessionStore
	)
	if redisClient != nil {
		capacityCache = capacitycache.NewRedisCache(redisClient, cfg.Booking.AvailabilityCacheTTL)
		sessions = auth.NewRedisSessionStore(redisClient, cfg.Auth.SessionTTL)
		sessionLookup, sessionStore = sessions, sessions
	}
	engine := capacity.NewEngine(&capacitydb.DB{Bun: bunDB}, capacityCache, logger)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	bookingService := booking.NewService(&bookingdb.DB{Bun: bunDB}, booking.NewValidator(nil), logger)
	bookingService.Capacity = engine
	bookingService.Stream = stream
	if cfg.Booking.QRSecret != "" {
		bookingService.QR = qr.NewGenerator(cfg.Booking.QRSecret)
	} else {
		logger.Warn("CONFIG", "QR_SECRET_KEY not set, booking QR codes are disabled")
	}
	bookingService.Documents = confirmation.NewPDFGenerator()
	if redisClient != nil {
		bookingService.Guard = bookingredis.NewSubmissionGuard(redisClient, cfg.Booking.SubmissionGuardTTL)
	}

	tourService := tours.NewService(&toursdb.DB{Bun: bunDB}, engine, logger)
	tourService.Stream = stream
	if producer != nil {
		bookingService.Events = bookingkafka.NewPublisher(producer, cfg.Kafka.Topics)
		tourService.Events = producer
		tourService.Topic = cfg.Kafka.Topics.TourChanged
	}

	userService := users.NewService(&usersdb.DB{Bun: bunDB}, logger)
	analyticsService := analytics.NewService(bunDB)

	bookingHandler := booking_api.NewHandler(bookingService, logger)
	tourHandler := tour_api.NewHandler(tourService, stream, logger)
	userHandler := user_api.NewHandler(userService, sessionStore, tokens, user_api.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
		TTL:    cfg.Auth.SessionTTL,
	}, logger)
	analyticsHandler := analytics_api.NewHandler(analyticsService, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.HTTPMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(sessionLookup, tokens, cfg.Auth.CookieName, logger))
		logger.Info("AUTH", "Session and bearer token resolution applied to API routes")

		tourHandler.Mount(r)
		logger.Info("ROUTER", "Tour routes registered under /api/tours and /api/admin/tours")
		bookingHandler.Mount(r)
		logger.Info("ROUTER", "Booking routes registered under /api/bookings and /api/admin/bookings")
		userHandler.Mount(r)
		logger.Info("ROUTER", "User routes registered under /api/auth, /api/users and /api/admin/users")
		analyticsHandler.RegisterRoutes(r)
		logger.Info("ROUTER", "Analytics routes registered under /api/admin/analytics")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Travel booking service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Travel booking service shutdown complete")
	}
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/paired-app/paired/internal/auth"
	"github.com/paired-app/paired/internal/config"
	"github.com/paired-app/paired/internal/database"
	"github.com/paired-app/paired/internal/favorite"
	"github.com/paired-app/paired/internal/gift"
	httpServer "github.com/paired-app/paired/internal/http"
	"github.com/paired-app/paired/internal/logging"
	"github.com/paired-app/paired/internal/notify"
	"github.com/paired-app/paired/internal/ratelimit"
	"github.com/paired-app/paired/internal/task"
	"github.com/paired-app/paired/internal/upload"
	"github.com/paired-app/paired/internal/user"
	"github.com/paired-app/paired/internal/whisper"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	// Initialize database connection
	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Apply pending schema migrations before serving traffic
	if err := database.RunMigrations(context.Background(), db.DB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize Redis connection
	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Initialize repositories
	userRepo := user.NewRepository(db)
	giftRepo := gift.NewRepository(db)
	taskRepo := task.NewRepository(db)
	whisperRepo := whisper.NewRepository(db)
	favoriteRepo := favorite.NewRepository(db)
	sessionStore := auth.NewSessionStore(redisClient)

	// Initialize rate limiter
	rateLimiter := ratelimit.NewLimiter(redisClient)

	// Initialize token codec and session guard
	tokenCodec, err := auth.NewTokenCodec(cfg.Session.TokenKey)
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}
	guard := auth.NewGuard(tokenCodec, sessionStore, logger)

	// Initialize services
	webhook := notify.NewWebhook(cfg.Notify.WebhookURL, logger)
	authService := auth.NewService(userRepo, tokenCodec, sessionStore, logger, cfg.Session.Duration)
	exchangeStore := gift.NewBunExchangeStore(db, giftRepo, userRepo)
	exchangeService := gift.NewExchangeService(exchangeStore, webhook, logger)
	taskService := task.NewService(db, taskRepo, userRepo, logger)
	uploadService := upload.NewService(
		cfg.Upload.Endpoint,
		cfg.Upload.Token,
		cfg.Upload.FallbackURL,
		logger,
	)

	// Initialize HTTP handlers
	handlers := httpServer.Handlers{
		Auth:     auth.NewHandler(authService, rateLimiter, logger),
		Gift:     gift.NewHandler(giftRepo, exchangeService, logger),
		Task:     task.NewHandler(taskRepo, taskService, logger),
		Whisper:  whisper.NewHandler(whisperRepo, logger),
		Favorite: favorite.NewHandler(favoriteRepo, logger),
		Upload:   upload.NewHandler(uploadService, cfg.Upload.MaxFileSize, logger),
	}

	// Initialize router
	router := httpServer.NewRouter(cfg, handlers, guard, logger)

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received shutdown signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initDB initializes the database connection and returns a Bun DB instance
func initDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return database.NewBunDB(sqlDB), nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Verify connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

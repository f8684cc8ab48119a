package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/rateboard/internal/api"
	"github.com/hugh/rateboard/internal/api/handlers"
	"github.com/hugh/rateboard/internal/auth"
	"github.com/hugh/rateboard/internal/database"
	"github.com/hugh/rateboard/internal/invite"
	"github.com/hugh/rateboard/internal/mail"
	"github.com/hugh/rateboard/internal/tasks"
	"github.com/hugh/rateboard/internal/web"
	"github.com/hugh/rateboard/pkg/config"
	"github.com/hugh/rateboard/pkg/queue"
	"github.com/hugh/rateboard/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env, cfg.Server.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting rateboard server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
		"mail_driver", cfg.Mail.Driver,
	)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Schema is normally managed by cmd/migrate; AutoMigrate is a
	// development shortcut.
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			logger.Error("failed to auto-migrate", "error", err)
			os.Exit(1)
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	var asynqClient *asynq.Client
	var sender mail.Sender
	switch cfg.Mail.Driver {
	case "smtp":
		sender = mail.NewSMTPSender(cfg.Mail)
	case "queue":
		if redisClient == nil {
			logger.Error("mail driver queue requires Redis")
			os.Exit(1)
		}
		asynqClient = queue.NewClient(&cfg.Redis)
		sender = tasks.NewQueueSender(asynqClient)
	default:
		sender = mail.NewLogSender(logger)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry(), cfg.JWT.InviteExpiry())
	hasher := auth.NewHasher(auth.HashParams{
		Memory:      cfg.Password.MemoryKiB,
		Iterations:  cfg.Password.Iterations,
		Parallelism: cfg.Password.Parallelism,
	}, cfg.Password.MaxConcurrent)
	authService := auth.NewService(db, jwtService, hasher, logger)
	inviteService := invite.NewService(db, jwtService, hasher, sender, invite.Config{
		HostURL:      cfg.App.HostURL,
		InviteExpiry: cfg.JWT.InviteExpiry(),
	}, logger)

	pages, err := web.LoadTemplates()
	if err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	staticFS, err := web.GetStaticFS()
	if err != nil {
		logger.Error("failed to get static fs", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterConfig{
		DB:            db,
		Redis:         redisClient,
		Logger:        logger,
		Tokens:        jwtService,
		AuthService:   authService,
		InviteService: inviteService,
		Pages:         pages,
		StaticFS:      staticFS,
		Cookie: handlers.CookieConfig{
			Secure: cfg.Server.IsProduction(),
			MaxAge: cfg.JWT.Expiry(),
		},
		AllowedOrigins: cfg.App.AllowedOrigins,
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if asynqClient != nil {
		asynqClient.Close()
	}

	if redisClient != nil {
		redisClient.Close()
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info("server stopped")
}

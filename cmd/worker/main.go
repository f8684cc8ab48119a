package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/rateboard/internal/auth"
	"github.com/hugh/rateboard/internal/database"
	"github.com/hugh/rateboard/internal/invite"
	"github.com/hugh/rateboard/internal/mail"
	"github.com/hugh/rateboard/internal/tasks"
	"github.com/hugh/rateboard/pkg/config"
	"github.com/hugh/rateboard/pkg/queue"
	"github.com/hugh/rateboard/pkg/util"
	"github.com/joho/godotenv"
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

	logger.Info("starting rateboard worker", "mail_driver", cfg.Mail.Driver)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// The worker is where queued mail is delivered, so it never enqueues.
	var sender mail.Sender
	switch cfg.Mail.Driver {
	case "smtp", "queue":
		sender = mail.NewSMTPSender(cfg.Mail)
	default:
		sender = mail.NewLogSender(logger)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry(), cfg.JWT.InviteExpiry())
	hasher := auth.NewHasher(auth.HashParams{
		Memory:      cfg.Password.MemoryKiB,
		Iterations:  cfg.Password.Iterations,
		Parallelism: cfg.Password.Parallelism,
	}, cfg.Password.MaxConcurrent)
	inviteService := invite.NewService(db, jwtService, hasher, sender, invite.Config{
		HostURL:      cfg.App.HostURL,
		InviteExpiry: cfg.JWT.InviteExpiry(),
	}, logger)

	srv := queue.NewServer(&cfg.Redis, 10)

	handler := tasks.NewHandler(sender, inviteService, logger)
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	var scheduler *asynq.Scheduler
	if cfg.Invite.ResendCron != "" {
		scheduler = queue.NewScheduler(&cfg.Redis)
		entryID, err := scheduler.Register(cfg.Invite.ResendCron, tasks.NewInviteSweepTask(), asynq.Queue("low"))
		if err != nil {
			logger.Error("failed to register invite sweep", "error", err)
			os.Exit(1)
		}

		next, _ := util.NextRun(cfg.Invite.ResendCron, time.Now().UTC())
		logger.Info("invite sweep scheduled",
			"entry_id", entryID,
			"cron", cfg.Invite.ResendCron,
			"next_run", next,
		)

		if err := scheduler.Start(); err != nil {
			logger.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
	}

	if err := srv.Start(mux); err != nil {
		logger.Error("worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("worker started, waiting for tasks...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")
	if scheduler != nil {
		scheduler.Shutdown()
	}
	srv.Shutdown()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info("worker stopped")
}

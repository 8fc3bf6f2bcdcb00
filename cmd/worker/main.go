package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/hugh/prompthub/internal/mail"
	"github.com/hugh/prompthub/internal/tasks"
	"github.com/hugh/prompthub/pkg/config"
	"github.com/hugh/prompthub/pkg/crypto"
	"github.com/hugh/prompthub/pkg/queue"
	"github.com/hugh/prompthub/pkg/util"
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

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting prompthub worker", "mail_driver", cfg.Mail.Driver)

	if cfg.Encryption.Key == "" {
		logger.Error("ENCRYPTION_KEY is required to open queued mail")
		os.Exit(1)
	}
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}

	var sender mail.Sender = mail.NewLogSender(logger)
	if cfg.Mail.Driver == "smtp" {
		sender = mail.NewSMTPSender(&cfg.Mail)
	}

	srv := queue.NewServer(&cfg.Redis, 10)

	handler := tasks.NewHandler(sender, encryptor, logger)
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	if err := srv.Start(mux); err != nil {
		logger.Error("worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("worker started, waiting for tasks...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker...")
	srv.Shutdown()

	logger.Info("worker stopped")
}

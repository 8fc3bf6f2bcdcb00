package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/prompthub/internal/api"
	"github.com/hugh/prompthub/internal/api/handlers"
	"github.com/hugh/prompthub/internal/auth"
	"github.com/hugh/prompthub/internal/contract"
	"github.com/hugh/prompthub/internal/database"
	"github.com/hugh/prompthub/internal/mail"
	"github.com/hugh/prompthub/internal/permission"
	"github.com/hugh/prompthub/internal/prompt"
	"github.com/hugh/prompthub/internal/store"
	"github.com/hugh/prompthub/internal/tasks"
	"github.com/hugh/prompthub/internal/telemetry"
	"github.com/hugh/prompthub/pkg/config"
	"github.com/hugh/prompthub/pkg/crypto"
	"github.com/hugh/prompthub/pkg/metrics"
	"github.com/hugh/prompthub/pkg/queue"
	"github.com/hugh/prompthub/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const serviceName = "prompthub-api"

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

	logger.Info("starting prompthub server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	ctx := context.Background()
	shutdownTracing := telemetry.Setup(ctx, cfg.Telemetry, serviceName, logger)
	metrics.Init()

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Production schemas are migrated by scripts/seed.go before rollout.
	if cfg.Server.IsDevelopment() {
		if err := database.AutoMigrate(db); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("failed to connect to Redis", "error", err)
		_ = redisClient.Close()
		redisClient = nil
	}

	tokens, err := auth.NewJWTService(auth.TokenConfig{
		Algorithm:          cfg.Token.Algorithm,
		Secret:             []byte(cfg.Token.Secret),
		Issuer:             cfg.Token.Issuer,
		Audience:           cfg.Token.Audience,
		ActivationLifetime: cfg.Token.ActivationLifetime,
		APILifetime:        cfg.Token.APILifetime,
	})
	if err != nil {
		logger.Error("failed to create token service", "error", err)
		os.Exit(1)
	}

	st := store.New(db)
	engine := permission.NewEngine(st, logger)
	if err := engine.SeedResources(ctx); err != nil {
		logger.Error("failed to seed resources", "error", err)
		os.Exit(1)
	}

	mailer, asynqClient := newMailer(cfg, redisClient != nil, logger)

	authn := auth.NewAuthenticator(tokens, st.Accounts, cfg.Cookie.Name)
	contracts := contract.NewService(st, engine, cfg.Contract.DefaultMaxMembers, logger)
	authService := auth.NewService(auth.ServiceDeps{
		Store:         st,
		Tokens:        tokens,
		Authenticator: authn,
		Roles:         engine,
		Memberships:   contracts,
		Mailer:        mailer,
		Logger:        logger,
	}, auth.ServiceConfig{
		BaseURL:     cfg.App.BaseURL,
		PhoneRegion: cfg.App.PhoneRegion,
	})

	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		Authenticator:  authn,
		AuthService:    authService,
		Permissions:    engine,
		Contracts:      contracts,
		Prompts:        prompt.NewService(db, engine, logger),
		Cookie:         handlers.CookieSettings{Name: cfg.Cookie.Name, Secure: cfg.Cookie.Secure},
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	handler := router.Handler("")
	if cfg.Telemetry.Endpoint != "" {
		handler = router.Handler(serviceName)
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracer shutdown error", "error", err)
	}

	if asynqClient != nil {
		_ = asynqClient.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("server stopped")
}

// newMailer queues activation mail for the worker when Redis and a shared
// ENCRYPTION_KEY are available, and logs it in-process otherwise.
func newMailer(cfg *config.Config, redisUp bool, logger *slog.Logger) (auth.Mailer, *asynq.Client) {
	if !redisUp || cfg.Encryption.Key == "" {
		logger.Warn("mail queue disabled, activation mail will be logged",
			"redis", redisUp,
			"encryption_key_set", cfg.Encryption.Key != "",
		)
		return mail.NewLogSender(logger), nil
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}

	client := queue.NewClient(&cfg.Redis)
	return tasks.NewQueueMailer(client, encryptor, cfg.Mail.EnqueueTimeout, logger), client
}

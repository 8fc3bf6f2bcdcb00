//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hugh/prompthub/internal/auth"
	"github.com/hugh/prompthub/internal/credential"
	"github.com/hugh/prompthub/internal/database"
	"github.com/hugh/prompthub/internal/database/models"
	"github.com/hugh/prompthub/internal/permission"
	"github.com/hugh/prompthub/internal/store"
	"github.com/hugh/prompthub/pkg/config"
	"github.com/hugh/prompthub/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	ctx := context.Background()
	st := store.New(db)
	engine := permission.NewEngine(st, logger)
	if err := engine.SeedResources(ctx); err != nil {
		log.Fatalf("failed to seed resources: %v", err)
	}
	fmt.Printf("Seeded %d resources\n", len(permission.AllRoles))

	rawEmail := os.Getenv("ADMIN_EMAIL")
	if rawEmail == "" {
		rawEmail = "admin@prompthub.local"
	}
	rawPassword := os.Getenv("ADMIN_PASSWORD")
	if rawPassword == "" {
		log.Fatal("ADMIN_PASSWORD is required")
	}

	email, err := credential.ParseEmail(rawEmail)
	if err != nil {
		log.Fatalf("invalid ADMIN_EMAIL: %v", err)
	}
	password, err := credential.ParsePassword(rawPassword)
	if err != nil {
		log.Fatalf("invalid ADMIN_PASSWORD: %v", err)
	}

	if existing, err := st.Accounts.FindByEmail(ctx, email.String(), ""); err == nil {
		fmt.Printf("Admin account already exists: %s\n", existing.Email)
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Fatalf("failed to look up admin account: %v", err)
	}

	hash, err := auth.HashPassword(password.Reveal())
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now()
	account := &models.Account{
		Email:           email.String(),
		PasswordHash:    hash,
		Name:            "Administrator",
		ActivationState: models.ActivationActive,
		ActivatedAt:     &now,
	}
	if err := st.Accounts.Create(ctx, account); err != nil {
		log.Fatalf("failed to create admin account: %v", err)
	}

	if err := engine.Bootstrap(ctx, account.ID, permission.AllRoles...); err != nil {
		log.Fatalf("failed to grant admin roles: %v", err)
	}

	fmt.Printf("Admin account created successfully!\n")
	fmt.Printf("Email: %s\n", account.Email)
	fmt.Printf("Roles: %v\n", permission.AllRoles)
}

//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hugh/rateboard/internal/apperr"
	"github.com/hugh/rateboard/internal/auth"
	"github.com/hugh/rateboard/internal/database"
	"github.com/hugh/rateboard/internal/database/models"
	"github.com/hugh/rateboard/internal/invite"
	"github.com/hugh/rateboard/internal/mail"
	"github.com/hugh/rateboard/pkg/config"
	"github.com/hugh/rateboard/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env, cfg.Server.LogLevel)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry(), cfg.JWT.InviteExpiry())
	hasher := auth.NewHasher(auth.HashParams{
		Memory:      cfg.Password.MemoryKiB,
		Iterations:  cfg.Password.Iterations,
		Parallelism: cfg.Password.Parallelism,
	}, cfg.Password.MaxConcurrent)
	authService := auth.NewService(db, jwtService, hasher, logger)
	// Seeded invitations are only logged.
	inviteService := invite.NewService(db, jwtService, hasher, mail.NewLogSender(logger), invite.Config{
		HostURL:      cfg.App.HostURL,
		InviteExpiry: cfg.JWT.InviteExpiry(),
	}, logger)

	email := envOr("ADMIN_EMAIL", "admin@example.com")
	password := envOr("ADMIN_PASSWORD", "admin12345")
	orgName := envOr("ADMIN_ORGANIZATION", "Demo Organization")

	ctx := context.Background()
	result, err := authService.Register(ctx, auth.RegisterInput{
		FirstName:        "Admin",
		LastName:         "User",
		Email:            email,
		Password:         password,
		OrganizationName: orgName,
	})
	if err != nil {
		if apperr.CodeOf(err) == apperr.CodeUserAlreadyExists {
			fmt.Printf("Admin user already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to create admin user: %v", err)
	}

	inviter := invite.Inviter{UserID: result.User.ID, Name: result.User.DisplayName()}
	for _, m := range []struct {
		email string
		role  models.Role
	}{
		{"supervisor@example.com", models.RoleSupervisor},
		{"employee@example.com", models.RoleEmployee},
	} {
		if _, err := inviteService.Invite(ctx, inviter, result.Organization.ID, m.email, m.role); err != nil {
			log.Fatalf("failed to invite %s: %v", m.email, err)
		}
		fmt.Printf("Invited %s as %s\n", m.email, m.role)
	}

	fmt.Printf("Admin user created successfully!\n")
	fmt.Printf("Email: %s\n", result.User.Email)
	fmt.Printf("Organization: %s (%s)\n", result.Organization.Name, result.Organization.ID)
	fmt.Printf("Token: %s\n", result.Token)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

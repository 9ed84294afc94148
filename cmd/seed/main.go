package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-users-api/config"
	appuser "github.com/oksasatya/go-ddd-users-api/internal/application"
	"github.com/oksasatya/go-ddd-users-api/internal/infrastructure/storage"
	"github.com/oksasatya/go-ddd-users-api/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx := context.Background()
	repo, closeStore, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("failed to open storage: %v", err)
	}
	defer closeStore()

	svc := appuser.NewService(repo, logger, nil, nil, appuser.ParsePatchMode(cfg.UserPatchMode))

	email := "demo@example.com"
	password := "password123"
	u, err := svc.Create(ctx, appuser.CreateUserInput{
		Email:     email,
		Password:  password,
		Firstname: "Demo",
		Lastname:  "User",
	})
	if errors.Is(err, appuser.ErrUserExists) {
		fmt.Printf("user already seeded: email=%s\n", email)
		return
	}
	if err != nil {
		logger.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s password=%s\n", u.ID, u.Email, password)
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"juriscite-backend/auth"
	"juriscite-backend/config"
	"juriscite-backend/models"
	"juriscite-backend/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	email := flag.String("email", "", "user email (required)")
	name := flag.String("name", "", "display name")
	firm := flag.String("firm", "", "law firm name")
	rotate := flag.Bool("rotate", false, "issue a new token for an existing user")
	flag.Parse()

	if strings.TrimSpace(*email) == "" {
		log.Fatal("-email is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	users := repository.NewUserRepository(pool)

	secret, hash, err := auth.NewSecret()
	if err != nil {
		log.Fatalf("Failed to generate secret: %v", err)
	}

	existing, err := users.GetByEmail(ctx, *email)
	switch {
	case err == nil && !*rotate:
		log.Printf("User with email %s already exists (ID: %s); pass -rotate to issue a new token", *email, existing.ID)
		return
	case err == nil:
		if err := users.UpdateSecret(ctx, existing.ID, hash); err != nil {
			log.Fatalf("Failed to rotate token: %v", err)
		}
		fmt.Printf("✅ Token rotated for %s\n", existing.Email)
		fmt.Printf("   ID: %s\n", existing.ID)
		fmt.Printf("   Token: %s\n", auth.Token(existing.ID, secret))
		return
	case !errors.Is(err, repository.ErrNotFound):
		log.Fatalf("Failed to look up user: %v", err)
	}

	user := &models.User{
		Email:      strings.TrimSpace(*email),
		SecretHash: hash,
		Name:       *name,
	}
	if *firm != "" {
		user.FirmName = firm
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("✅ API user created successfully!\n")
	fmt.Printf("   ID: %s\n", user.ID)
	fmt.Printf("   Email: %s\n", user.Email)
	fmt.Printf("   Token: %s\n", auth.Token(user.ID, secret))
	fmt.Println("   The token is shown only once; send it as \"Authorization: Bearer <token>\".")
}

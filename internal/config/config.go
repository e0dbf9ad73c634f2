package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

type Config struct {
	Port         string
	DatabasePath string

	JWTSecret string
	TokenTTL  time.Duration

	// Seed credentials for the first admin account. Both must be set
	// for seeding to happen.
	AdminUsername string
	AdminPassword string
}

func New() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "licenses.db"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}

	tokenTTL := 24 * time.Hour
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
		}
		tokenTTL = parsed
	}

	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if (adminUsername == "") != (adminPassword == "") {
		return nil, errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}

	return &Config{
		Port:          port,
		DatabasePath:  dbPath,
		JWTSecret:     jwtSecret,
		TokenTTL:      tokenTTL,
		AdminUsername: adminUsername,
		AdminPassword: adminPassword,
	}, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"atclicenses.app/server/handlers"
	"atclicenses.app/server/internal/config"
	"atclicenses.app/server/internal/logger"
	"atclicenses.app/server/models"
	"atclicenses.app/server/storage"
)

var version = "dev"

func main() {
	if versionBytes, err := os.ReadFile("VERSION"); err == nil {
		version = strings.TrimSpace(string(versionBytes))
	}

	godotenv.Load()

	zl, err := logger.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer zl.Sync()
	sugar := zl.Sugar()

	cfg, err := config.New()
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		sugar.Fatalf("open storage: %v", err)
	}
	defer store.Close()

	if err := seedAdminUser(context.Background(), store, cfg); err != nil {
		sugar.Fatalf("seed admin user: %v", err)
	}

	server := handlers.NewServer(cfg, store, sugar)
	server.Version = version

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		sugar.Infow("license service starting", "version", version, "port", cfg.Port, "database", cfg.DatabasePath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		sugar.Warnf("shutdown: %v", err)
	}
}

// seedAdminUser creates the configured admin account on first start so
// a fresh deployment can log in.
func seedAdminUser(ctx context.Context, store storage.Storage, cfg *config.Config) error {
	if cfg.AdminUsername == "" {
		return nil
	}
	_, err := store.FindUserByUsername(ctx, cfg.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return store.CreateUser(ctx, &models.User{
		Username:     cfg.AdminUsername,
		PasswordHash: string(hash),
		Admin:        true,
	})
}

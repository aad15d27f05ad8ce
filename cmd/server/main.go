package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/mindfuly/auth"
	"github.com/diewo77/mindfuly/internal/cache"
	"github.com/diewo77/mindfuly/internal/config"
	"github.com/diewo77/mindfuly/internal/db"
	"github.com/diewo77/mindfuly/internal/logger"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Seed the demo account and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	if err := logger.Configure(logger.Options{
		Level: cfg.App.LogLevel,
		File:  cfg.App.LogFile,
		JSON:  cfg.App.LogJSON,
	}); err != nil {
		logger.Warn("logger configuration", "error", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration", err)
	}
	auth.SetSecret(cfg.Auth.SessionSecret)

	conn, err := db.Open(cfg.Database)
	if err != nil {
		fatal("failed to connect to database", err)
	}

	if *migrateOnlyFlag {
		if err := migrate(cfg, conn); err != nil {
			fatal("migration failed", err)
		}
		logger.Info("migrations completed")
		_ = db.Close(conn)
		return
	}

	if *seedOnlyFlag {
		if err := db.Seed(context.Background(), conn, time.Now()); err != nil {
			fatal("seeding failed", err)
		}
		logger.Info("seeding completed")
		_ = db.Close(conn)
		return
	}

	if err := migrate(cfg, conn); err != nil {
		fatal("migration failed", err)
	}

	c, err := cache.New(context.Background(), cfg.Redis.URL)
	if err != nil {
		logger.Warn("redis unavailable, continuing without cache", "error", err)
		c = nil
	}

	app := NewApp(cfg, conn, c)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "dev", cfg.App.Dev, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
	if err := app.Close(); err != nil {
		logger.Error("closing stores", "error", err)
	}
	logger.Info("server stopped gracefully")
}

// migrate applies the versioned SQL migrations on postgres when enabled and
// falls back to AutoMigrate otherwise.
func migrate(cfg *config.Config, conn *gorm.DB) error {
	url := ""
	if cfg.Database.Driver == "postgres" && (cfg.App.Migrations || *migrateOnlyFlag) {
		url = cfg.Database.URL()
	}
	return db.Migrate(conn, db.DefaultMigrationsSource, url)
}

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

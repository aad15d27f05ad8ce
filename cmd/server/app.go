package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/diewo77/mindfuly/auth"
	"github.com/diewo77/mindfuly/internal/cache"
	"github.com/diewo77/mindfuly/internal/config"
	"github.com/diewo77/mindfuly/internal/db"
	"github.com/diewo77/mindfuly/internal/handlers"
	"github.com/diewo77/mindfuly/internal/middleware"
	"github.com/diewo77/mindfuly/internal/repository"
	"github.com/diewo77/mindfuly/internal/services"
	"gorm.io/gorm"
)

// App is the main application handler. It owns the database and Redis handles
// and releases them on Close.
type App struct {
	handler http.Handler
	db      *gorm.DB
	cache   *cache.Cache
}

// NewApp wires repositories, services and routes. c may be nil when Redis is
// unreachable: weather responses are then not cached and Spotify linking
// reports the store as unavailable.
func NewApp(cfg *config.Config, conn *gorm.DB, c *cache.Cache) *App {
	deps := buildDeps(cfg, conn, c)
	auth.SetUserVerifier(deps.Users.Exists)
	return &App{handler: handlers.NewRouter(deps), db: conn, cache: c}
}

func buildDeps(cfg *config.Config, conn *gorm.DB, c *cache.Cache) handlers.Deps {
	users := repository.NewUserRepository(conn)
	moods := repository.NewMoodRepository(conn)

	var store *cache.SpotifyStore
	if c != nil {
		store = cache.NewSpotifyStore(c)
	}

	return handlers.Deps{
		Users:   users,
		Moods:   moods,
		Tokens:  auth.NewTokenIssuer(cfg.Auth.JWTSecret),
		Journal: services.NewJournalService(moods),
		Weather: services.NewWeatherService(cfg.Weather, c),
		YouTube: services.NewYouTubeService(cfg.YouTube.APIKey),
		Spotify: services.NewSpotifyService(cfg.Spotify, store),
		Limiter: middleware.NewRateLimiter(cfg.RateLimit),
		Ping:    func(ctx context.Context) error { return db.Ping(ctx, conn) },
	}
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// Close releases the store handles.
func (a *App) Close() error {
	return errors.Join(a.cache.Close(), db.Close(a.db))
}

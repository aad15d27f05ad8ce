package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diewo77/mindfuly/auth"
	"github.com/diewo77/mindfuly/internal/config"
	"github.com/diewo77/mindfuly/internal/repository"
	"github.com/diewo77/mindfuly/internal/services"
	"github.com/diewo77/mindfuly/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Auth:      config.AuthConfig{JWTSecret: "test-secret"},
		Spotify:   config.SpotifyConfig{ClientID: "id", ClientSecret: "secret"},
		RateLimit: config.RateLimitConfig{BasicRPS: 100, PremiumRPS: 100, Burst: 100},
	}
}

func TestAppServesWithoutCache(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	t.Cleanup(func() { auth.SetUserVerifier(nil) })
	app := NewApp(testConfig(), conn, nil)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err := repository.NewUserRepository(conn).Create(context.Background(), repository.NewUser{
		Name: "alice", Email: "alice@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/authorization/token", strings.NewReader("username=alice&password=secret1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "access_token")
}

func TestAppSpotifyNeedsStore(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	t.Cleanup(func() { auth.SetUserVerifier(nil) })
	deps := buildDeps(testConfig(), conn, nil)

	assert.True(t, deps.Spotify.Configured())
	_, err := deps.Spotify.AuthURL(context.Background(), "alice")
	assert.ErrorIs(t, err, services.ErrStoreUnavailable)
}

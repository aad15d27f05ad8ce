package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/diewo77/mindfuly/internal/cache"
	"github.com/diewo77/mindfuly/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func spotifyTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "http://localhost:8200/spotify/callback", r.PostForm.Get("redirect_uri"))

		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid authorization code"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600,"refresh_token":"rt-1"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestSpotify(t *testing.T) *SpotifyService {
	t.Helper()
	c, _ := newTestCache(t)
	srv := spotifyTokenServer(t)
	svc := NewSpotifyService(config.SpotifyConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8200/spotify/callback",
	}, cache.NewSpotifyStore(c))
	return svc.WithEndpoint(oauth2.Endpoint{
		AuthURL:   "https://accounts.example.com/authorize",
		TokenURL:  srv.URL + "/api/token",
		AuthStyle: oauth2.AuthStyleInHeader,
	})
}

func stateFrom(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestSpotifyAuthorizationFlow(t *testing.T) {
	svc := newTestSpotify(t)
	ctx := context.Background()

	authURL, err := svc.AuthURL(ctx, "alice")
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Contains(t, q.Get("scope"), "user-top-read")
	assert.NotEqual(t, "alice", q.Get("state"))

	assert.False(t, svc.Connected(ctx, "alice"))

	name, tok, err := svc.Complete(ctx, "good-code", stateFrom(t, authURL))
	require.NoError(t, err)
	assert.Equal(t, "alice", name)
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.InDelta(t, 3600, tok.ExpiresIn, 5)
	assert.True(t, svc.Connected(ctx, "alice"))

	_, _, err = svc.Complete(ctx, "good-code", stateFrom(t, authURL))
	assert.ErrorIs(t, err, ErrUnknownState)

	require.NoError(t, svc.Disconnect(ctx, "alice"))
	assert.False(t, svc.Connected(ctx, "alice"))
}

func TestSpotifyRejectsBadCode(t *testing.T) {
	svc := newTestSpotify(t)
	ctx := context.Background()

	authURL, err := svc.AuthURL(ctx, "bob")
	require.NoError(t, err)
	_, _, err = svc.Complete(ctx, "bad-code", stateFrom(t, authURL))
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestSpotifyNotReady(t *testing.T) {
	ctx := context.Background()

	_, err := NewSpotifyService(config.SpotifyConfig{}, nil).AuthURL(ctx, "carol")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewSpotifyService(config.SpotifyConfig{ClientID: "id", ClientSecret: "secret"}, nil).AuthURL(ctx, "carol")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/mindfuly/internal/cache"
	"github.com/diewo77/mindfuly/internal/config"
	"github.com/diewo77/mindfuly/internal/models"
	"github.com/diewo77/mindfuly/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

const weatherDoc = `{"weather":[{"main":"Clear","description":"clear sky"}],"main":{"temp":21.5},"name":"Paris"}`

func upstream(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestWeatherProxy(t *testing.T) {
	srv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lat") == "1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(weatherDoc))
	})
	e := newTestEnv(t, func(d *Deps) {
		d.Weather = services.NewWeatherService(config.WeatherConfig{APIKey: "key", BaseURL: srv.URL, CacheTTL: time.Minute}, newCache(t))
	})

	rec := e.do(t, http.MethodGet, "/weather?lat=48.85&lon=2.35", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, weatherDoc, rec.Body.String())

	tests := []struct {
		name, query string
		want        int
		wantMsg     string
	}{
		{"missing lon", "lat=48.85", http.StatusBadRequest, "lat and lon must be numbers"},
		{"latitude out of range", "lat=91&lon=0", http.StatusBadRequest, "invalid coordinates"},
		{"latitude not a number", "lat=NaN&lon=0", http.StatusBadRequest, "invalid coordinates"},
		{"upstream error", "lat=1&lon=1", http.StatusUnauthorized, "Weather API error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodGet, "/weather?"+tt.query, nil)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.wantMsg, decode[errorBody](t, rec).Error)
		})
	}
}

func TestWeatherProxyWithoutKey(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/weather?lat=48.85&lon=2.35", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Weather API Key not configured", decode[errorBody](t, rec).Error)
}

func youtubeUpstream(t *testing.T, h http.HandlerFunc) func(*Deps) {
	srv := upstream(t, h)
	return func(d *Deps) {
		d.YouTube = services.NewYouTubeService("key", option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	}
}

func videoItems(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"id":{"videoId":"v%d"},"snippet":{"title":"Song %d","channelTitle":"C"}}`, i, i)
	}
	return `{"items":[` + strings.Join(items, ",") + `]}`
}

func TestYouTubeProxy(t *testing.T) {
	var lastQuery url.Values
	e := newTestEnv(t, youtubeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		lastQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(videoItems(8)))
	}))

	rec := e.do(t, http.MethodGet, "/youtube/moods", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, services.Moods(), decode[map[string][]string](t, rec)["moods"])

	rec = e.do(t, http.MethodGet, "/youtube/search/by-mood/calm?max_results=4", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[map[string][]services.Video](t, rec)["videos"], 4)
	assert.Equal(t, "8", lastQuery.Get("maxResults"))

	rec = e.do(t, http.MethodGet, "/youtube/search?query=lofi", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lofi music", lastQuery.Get("q"))
	assert.Equal(t, "20", lastQuery.Get("maxResults"))

	rec = e.do(t, http.MethodGet, "/youtube/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "query is required", decode[errorBody](t, rec).Error)
}

func TestYouTubeProxyErrors(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/youtube/search/by-mood/happy", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "YouTube API key not configured", decode[errorBody](t, rec).Error)

	e = newTestEnv(t, youtubeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quota exceeded"}}`))
	}))
	rec = e.do(t, http.MethodGet, "/youtube/search/by-mood/happy", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "YouTube API error: quota exceeded", decode[errorBody](t, rec).Error)
}

func spotifyUpstream(t *testing.T) func(*Deps) {
	srv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600,"refresh_token":"rt-1"}`))
	})
	return func(d *Deps) {
		d.Spotify = services.NewSpotifyService(config.SpotifyConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:8200/spotify/callback",
		}, cache.NewSpotifyStore(newCache(t))).WithEndpoint(oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/authorize",
			TokenURL:  srv.URL + "/api/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		})
	}
}

func TestSpotifyProxy(t *testing.T) {
	e := newTestEnv(t, spotifyUpstream(t))
	e.createUser(t, "alice", models.TierBasic)
	e.createUser(t, "bob", models.TierBasic)
	tok := withBearer(e.token(t, "alice"))

	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodPost, "/spotify/auth/login", map[string]string{"username": "bob"}, tok).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPost, "/spotify/auth/login", map[string]string{"username": "ghost"}, tok).Code)

	rec := e.do(t, http.MethodPost, "/spotify/auth/login", map[string]string{"username": "alice"}, tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	authURL, err := url.Parse(decode[map[string]string](t, rec)["auth_url"])
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)
	assert.Equal(t, "client-id", authURL.Query().Get("client_id"))

	rec = e.do(t, http.MethodPost, "/spotify/auth/callback", map[string]string{"code": "good-code", "state": state})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tokBody := decode[services.SpotifyToken](t, rec)
	assert.Equal(t, "at-1", tokBody.AccessToken)
	assert.InDelta(t, 3600, tokBody.ExpiresIn, 5)

	rec = e.do(t, http.MethodPost, "/spotify/auth/callback", map[string]string{"code": "good-code", "state": state})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired state", decode[errorBody](t, rec).Error)

	rec = e.do(t, http.MethodPost, "/spotify/auth/login", map[string]string{"username": "alice"}, tok)
	authURL, err = url.Parse(decode[map[string]string](t, rec)["auth_url"])
	require.NoError(t, err)
	rec = e.do(t, http.MethodPost, "/spotify/auth/callback", map[string]string{"code": "bad-code", "state": authURL.Query().Get("state")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid authorization code", decode[errorBody](t, rec).Error)
}

func TestSpotifyProxyUnavailable(t *testing.T) {
	e := newTestEnv(t)
	e.createUser(t, "alice", models.TierBasic)
	tok := withBearer(e.token(t, "alice"))

	rec := e.do(t, http.MethodPost, "/spotify/auth/login", map[string]string{"username": "alice"}, tok)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Spotify API credentials not configured", decode[errorBody](t, rec).Error)
}

func TestSpotifyProxyWithoutStore(t *testing.T) {
	e := newTestEnv(t, func(d *Deps) {
		d.Spotify = services.NewSpotifyService(config.SpotifyConfig{ClientID: "id", ClientSecret: "secret"}, nil)
	})
	e.createUser(t, "alice", models.TierBasic)
	rec := e.do(t, http.MethodPost, "/spotify/auth/login", map[string]string{"username": "alice"}, withBearer(e.token(t, "alice")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSpotifyCallbackPage(t *testing.T) {
	e := newTestEnv(t, spotifyUpstream(t))
	e.createUser(t, "alice", models.TierBasic)

	rec := e.do(t, http.MethodPost, "/spotify/auth/login", map[string]string{"username": "alice"}, withBearer(e.token(t, "alice")))
	require.Equal(t, http.StatusOK, rec.Code)
	authURL, err := url.Parse(decode[map[string]string](t, rec)["auth_url"])
	require.NoError(t, err)

	rec = e.do(t, http.MethodGet, "/spotify/callback?code=good-code&state="+authURL.Query().Get("state"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	rec = e.do(t, http.MethodGet, "/spotify/callback?error=access_denied", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

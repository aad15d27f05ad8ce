package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/diewo77/mindfuly/internal/cache"
	"github.com/diewo77/mindfuly/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleWeather = `{"weather":[{"main":"Rain","description":"light rain"}],"main":{"temp":11.2},"name":"Lyon"}`

func newTestCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func weatherUpstream(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "45.76", q.Get("lat"))
		assert.Equal(t, "4.84", q.Get("lon"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestWeatherCurrentCachesResponse(t *testing.T) {
	srv, calls := weatherUpstream(t, http.StatusOK, sampleWeather)
	c, mr := newTestCache(t)
	svc := NewWeatherService(config.WeatherConfig{APIKey: "test-key", BaseURL: srv.URL, CacheTTL: time.Minute}, c)
	ctx := context.Background()

	doc, err := svc.Current(ctx, 45.76, 4.84)
	require.NoError(t, err)
	assert.JSONEq(t, sampleWeather, string(doc))

	doc, err = svc.Current(ctx, 45.76, 4.84)
	require.NoError(t, err)
	assert.JSONEq(t, sampleWeather, string(doc))
	assert.Equal(t, int32(1), calls.Load())

	mr.FastForward(2 * time.Minute)
	_, err = svc.Current(ctx, 45.76, 4.84)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWeatherWithoutCache(t *testing.T) {
	srv, calls := weatherUpstream(t, http.StatusOK, sampleWeather)
	svc := NewWeatherService(config.WeatherConfig{APIKey: "test-key", BaseURL: srv.URL, CacheTTL: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		_, err := svc.Current(context.Background(), 45.76, 4.84)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestWeatherErrors(t *testing.T) {
	srv, _ := weatherUpstream(t, http.StatusUnauthorized, `{"cod":401}`)
	ctx := context.Background()

	svc := NewWeatherService(config.WeatherConfig{BaseURL: srv.URL}, nil)
	_, err := svc.Current(ctx, 45.76, 4.84)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = svc.Current(ctx, 91, 0)
	var cerr *CoordinatesError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "out_of_range", cerr.Violations["lat"])

	svc = NewWeatherService(config.WeatherConfig{APIKey: "test-key", BaseURL: srv.URL}, nil)
	_, err = svc.Current(ctx, 45.76, 4.84)
	var uerr *UpstreamError
	require.True(t, errors.As(err, &uerr))
	assert.Equal(t, http.StatusUnauthorized, uerr.Status)
}

func TestConditions(t *testing.T) {
	cases := map[string]string{
		`{"weather":[{"main":"Clear"}]}`:        "sunny",
		`{"weather":[{"main":"Clouds"}]}`:       "cloudy",
		`{"weather":[{"main":"Drizzle"}]}`:      "rainy",
		`{"weather":[{"main":"Thunderstorm"}]}`: "stormy",
		`{"weather":[{"main":"Snow"}]}`:         "snowy",
		`{"weather":[{"main":"Mist"}]}`:         "foggy",
		`{"weather":[{"main":"Tornado"}]}`:      "tornado",
		`{"weather":[]}`:                        "",
		`not json`:                              "",
	}
	for doc, want := range cases {
		assert.Equal(t, want, Conditions(json.RawMessage(doc)), doc)
	}
}

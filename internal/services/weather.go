package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/mindfuly/internal/cache"
	"github.com/diewo77/mindfuly/internal/config"
	"github.com/diewo77/mindfuly/internal/logger"
	"github.com/diewo77/mindfuly/validation"
)

const DefaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// CoordinatesError rejects latitude or longitude outside the globe.
type CoordinatesError struct {
	Violations validation.Violations
}

func (e *CoordinatesError) Error() string { return "invalid coordinates" }

// WeatherService proxies OpenWeatherMap current conditions, caching answers in Redis.
type WeatherService struct {
	apiKey  string
	baseURL string
	ttl     time.Duration
	client  *http.Client
	cache   *cache.Cache
}

// NewWeatherService builds the proxy. c may be nil to disable caching.
func NewWeatherService(cfg config.WeatherConfig, c *cache.Cache) *WeatherService {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultWeatherBaseURL
	}
	return &WeatherService{
		apiKey:  cfg.APIKey,
		baseURL: base,
		ttl:     cfg.CacheTTL,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   c,
	}
}

func (s *WeatherService) Configured() bool { return s.apiKey != "" }

func weatherCacheKey(lat, lon float64) string {
	return fmt.Sprintf("weather:%.2f:%.2f", lat, lon)
}

// Current returns the upstream JSON document for the given coordinates, in metric units.
func (s *WeatherService) Current(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	v := validation.Violations{}
	validation.RangeFloat("lat", lat, -90, 90, v)
	validation.RangeFloat("lon", lon, -180, 180, v)
	if !v.Empty() {
		return nil, &CoordinatesError{Violations: v}
	}
	if !s.Configured() {
		return nil, fmt.Errorf("weather: %w", ErrNotConfigured)
	}

	key := weatherCacheKey(lat, lon)
	if s.cache != nil {
		var cached json.RawMessage
		ok, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			logger.FromContext(ctx).Warn("weather cache read failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", s.apiKey)
	q.Set("units", "metric")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Service: "weather", Status: resp.StatusCode}
	}
	if !json.Valid(body) {
		return nil, &UpstreamError{Service: "weather", Status: http.StatusBadGateway, Message: "invalid json"}
	}

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.SetJSON(ctx, key, json.RawMessage(body), s.ttl); err != nil {
			logger.FromContext(ctx).Warn("weather cache write failed", "error", err)
		}
	}
	return body, nil
}

// Conditions maps an OpenWeatherMap document to the short label stored on mood logs.
func Conditions(doc json.RawMessage) string {
	var parsed struct {
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
	}
	if err := json.Unmarshal(doc, &parsed); err != nil || len(parsed.Weather) == 0 {
		return ""
	}
	switch strings.ToLower(parsed.Weather[0].Main) {
	case "clear":
		return "sunny"
	case "clouds":
		return "cloudy"
	case "rain", "drizzle":
		return "rainy"
	case "thunderstorm":
		return "stormy"
	case "snow":
		return "snowy"
	case "mist", "fog", "haze", "smoke", "dust", "sand":
		return "foggy"
	default:
		return strings.ToLower(parsed.Weather[0].Main)
	}
}

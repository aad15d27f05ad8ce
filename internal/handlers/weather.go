package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/diewo77/mindfuly/httpx"
	"github.com/diewo77/mindfuly/internal/logger"
	"github.com/diewo77/mindfuly/internal/services"
	"github.com/gorilla/mux"
)

type WeatherHandler struct {
	weather *services.WeatherService
}

func NewWeatherHandler(weather *services.WeatherService) *WeatherHandler {
	return &WeatherHandler{weather: weather}
}

func (h *WeatherHandler) Routes(r *mux.Router) {
	r.HandleFunc("", h.Current).Methods(http.MethodGet)
}

// Current proxies OpenWeatherMap's current weather for ?lat=&lon=.
func (h *WeatherHandler) Current(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		httpx.JSONError(w, http.StatusBadRequest, "lat and lon must be numbers", nil)
		return
	}

	doc, err := h.weather.Current(r.Context(), lat, lon)
	var (
		coordErr    *services.CoordinatesError
		upstreamErr *services.UpstreamError
	)
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, doc)
	case errors.As(err, &coordErr):
		httpx.JSONError(w, http.StatusBadRequest, "invalid coordinates", coordErr.Violations)
	case errors.Is(err, services.ErrNotConfigured):
		httpx.JSONError(w, http.StatusInternalServerError, "Weather API Key not configured", nil)
	case errors.As(err, &upstreamErr):
		httpx.JSONError(w, upstreamErr.Status, "Weather API error", nil)
	default:
		logger.FromContext(r.Context()).Error("weather request failed", "error", err)
		httpx.JSONError(w, http.StatusBadGateway, "Failed to connect to Weather API", nil)
	}
}

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/mindfuly/httpx"
	"github.com/diewo77/mindfuly/internal/logger"
	"github.com/diewo77/mindfuly/internal/services"
	"github.com/gorilla/mux"
)

const maxVideoResults = 50

type YouTubeHandler struct {
	youtube *services.YouTubeService
}

func NewYouTubeHandler(youtube *services.YouTubeService) *YouTubeHandler {
	return &YouTubeHandler{youtube: youtube}
}

func (h *YouTubeHandler) Routes(r *mux.Router) {
	r.HandleFunc("/moods", h.Moods).Methods(http.MethodGet)
	r.HandleFunc("/search/by-mood/{mood}", h.ByMood).Methods(http.MethodGet)
	r.HandleFunc("/search", h.Search).Methods(http.MethodGet)
}

func (h *YouTubeHandler) Moods(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string][]string{"moods": services.Moods()})
}

func (h *YouTubeHandler) ByMood(w http.ResponseWriter, r *http.Request) {
	n, err := httpx.QueryInt(r, "max_results", services.DefaultVideoResults, 1, maxVideoResults)
	if err != nil {
		badRequest(w, err)
		return
	}
	videos, err := h.youtube.SearchByMood(r.Context(), mux.Vars(r)["mood"], n)
	h.respond(w, r, videos, err)
}

func (h *YouTubeHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		httpx.JSONError(w, http.StatusBadRequest, "query is required", nil)
		return
	}
	n, err := httpx.QueryInt(r, "max_results", services.DefaultVideoResults, 1, maxVideoResults)
	if err != nil {
		badRequest(w, err)
		return
	}
	videos, err := h.youtube.Search(r.Context(), query, n)
	h.respond(w, r, videos, err)
}

func (h *YouTubeHandler) respond(w http.ResponseWriter, r *http.Request, videos []services.Video, err error) {
	var upstreamErr *services.UpstreamError
	switch {
	case err == nil:
		httpx.JSON(w, http.StatusOK, map[string][]services.Video{"videos": list(videos)})
	case errors.Is(err, services.ErrNotConfigured):
		httpx.JSONError(w, http.StatusInternalServerError, "YouTube API key not configured", nil)
	case errors.As(err, &upstreamErr):
		httpx.JSONError(w, upstreamErr.Status, "YouTube API error: "+upstreamErr.Message, nil)
	default:
		logger.FromContext(r.Context()).Error("youtube search failed", "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "Failed to connect to YouTube API: "+err.Error(), nil)
	}
}

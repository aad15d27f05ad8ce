package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/mindfuly/httpx"
	"github.com/diewo77/mindfuly/internal/logger"
	"github.com/diewo77/mindfuly/internal/policy"
	"github.com/diewo77/mindfuly/internal/services"
	"github.com/diewo77/mindfuly/validation"
	"github.com/gorilla/mux"
)

type SpotifyHandler struct {
	*identity
	spotify *services.SpotifyService
}

func NewSpotifyHandler(ids *identity, spotify *services.SpotifyService) *SpotifyHandler {
	return &SpotifyHandler{identity: ids, spotify: spotify}
}

func (h *SpotifyHandler) Routes(r *mux.Router) {
	r.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/auth/callback", h.Callback).Methods(http.MethodPost)
	r.HandleFunc("/callback", h.CallbackPage).Methods(http.MethodGet)
}

// Login starts the authorization flow for a user the caller owns.
func (h *SpotifyHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	v := validation.Violations{}
	validation.Required("username", in.Username, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation failed", v)
		return
	}
	if !h.spotify.Configured() {
		spotifyError(w, r, services.ErrNotConfigured)
		return
	}
	user := h.owned(w, r, in.Username, policy.ActionUpdate)
	if user == nil {
		return
	}
	url, err := h.spotify.AuthURL(r.Context(), user.Name)
	if err != nil {
		spotifyError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"auth_url": url})
}

// Callback redeems the code and state Spotify redirected with.
func (h *SpotifyHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Code  string `json:"code"`
		State string `json:"state"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	username, tok, err := h.spotify.Complete(r.Context(), in.Code, in.State)
	if err != nil {
		spotifyError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("spotify connected", "user", username)
	httpx.JSON(w, http.StatusOK, tok)
}

// CallbackPage is the redirect target in the browser flow.
func (h *SpotifyHandler) CallbackPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	l := logger.FromContext(r.Context())
	if reason := q.Get("error"); reason != "" {
		l.Warn("spotify authorization denied", "reason", reason)
		render(w, r, "spotify_callback.html", map[string]any{"Connected": false, "Status": http.StatusBadRequest})
		return
	}
	username, _, err := h.spotify.Complete(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		l.Warn("spotify callback failed", "error", err)
		render(w, r, "spotify_callback.html", map[string]any{"Connected": false, "Status": http.StatusBadRequest})
		return
	}
	l.Info("spotify connected", "user", username)
	render(w, r, "spotify_callback.html", map[string]any{"Connected": true})
}

func spotifyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotConfigured):
		httpx.JSONError(w, http.StatusInternalServerError, "Spotify API credentials not configured", nil)
	case errors.Is(err, services.ErrStoreUnavailable):
		httpx.JSONError(w, http.StatusServiceUnavailable, "Spotify session store unavailable", nil)
	case errors.Is(err, services.ErrUnknownState):
		httpx.JSONError(w, http.StatusBadRequest, "Invalid or expired state", nil)
	case errors.Is(err, services.ErrInvalidCode):
		httpx.JSONError(w, http.StatusBadRequest, "Invalid authorization code", nil)
	default:
		logger.FromContext(r.Context()).Error("spotify request failed", "error", err)
		httpx.JSONError(w, http.StatusBadGateway, "Spotify API error", nil)
	}
}

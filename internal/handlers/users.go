package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/mindfuly/auth"
	"github.com/diewo77/mindfuly/httpx"
	"github.com/diewo77/mindfuly/internal/logger"
	"github.com/diewo77/mindfuly/internal/models"
	"github.com/diewo77/mindfuly/internal/policy"
	"github.com/diewo77/mindfuly/internal/repository"
	"github.com/diewo77/mindfuly/internal/services"
	"github.com/gorilla/mux"
)

type UserHandler struct {
	*identity
	spotify *services.SpotifyService
}

func NewUserHandler(ids *identity, spotify *services.SpotifyService) *UserHandler {
	return &UserHandler{identity: ids, spotify: spotify}
}

func (h *UserHandler) Routes(r *mux.Router) {
	r.HandleFunc("/test", health).Methods(http.MethodGet)
	r.HandleFunc("/create_user", h.Create).Methods(http.MethodPost)
	// Keeps PUT and DELETE on /create_user from reaching /{username}.
	r.Handle("/create_user", methodNotAllowed([]string{http.MethodPost}))
	r.HandleFunc("/{username}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/{username}", h.Delete).Methods(http.MethodDelete)
}

type userView struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Tier  int    `json:"tier"`
}

func userResponse(u *models.User) map[string]userView {
	return map[string]userView{"user": {ID: u.ID, Name: u.Name, Email: u.Email, Tier: u.Tier}}
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Tier     int    `json:"tier"`
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in createUserRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	user, err := h.users.Create(r.Context(), repository.NewUser{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Tier:     in.Tier,
	})
	if errors.Is(err, repository.ErrConflict) {
		httpx.JSONError(w, http.StatusConflict, "User already exists", nil)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("user created", "user_id", user.ID, "tier", user.Tier)
	httpx.JSON(w, http.StatusCreated, userResponse(user))
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	target := h.owned(w, r, mux.Vars(r)["username"], policy.ActionUpdate)
	if target == nil {
		return
	}
	var in updateUserRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	user, err := h.users.UpdateSettings(r.Context(), target.ID, repository.UserSettings{
		Email:    in.Email,
		Password: in.Password,
	})
	if errors.Is(err, repository.ErrConflict) {
		httpx.JSONError(w, http.StatusConflict, "Email already in use", nil)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, userResponse(user))
}

// Delete removes the account, its mood logs and any stored Spotify token.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	target := h.owned(w, r, mux.Vars(r)["username"], policy.ActionDelete)
	if target == nil {
		return
	}
	if err := h.users.Delete(r.Context(), target.ID); err != nil {
		writeError(w, r, err)
		return
	}
	if h.spotify != nil {
		if err := h.spotify.Disconnect(r.Context(), target.Name); err != nil {
			logger.FromContext(r.Context()).Warn("drop spotify token", "user", target.Name, "error", err)
		}
	}
	if _, ok := auth.UserIDFromContext(r.Context()); ok {
		auth.ClearSession(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

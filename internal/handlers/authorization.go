package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/mindfuly/auth"
	"github.com/diewo77/mindfuly/httpx"
	"github.com/diewo77/mindfuly/internal/repository"
	"github.com/gorilla/mux"
)

type AuthorizationHandler struct {
	users  *repository.UserRepository
	tokens *auth.TokenIssuer
}

func NewAuthorizationHandler(users *repository.UserRepository, tokens *auth.TokenIssuer) *AuthorizationHandler {
	return &AuthorizationHandler{users: users, tokens: tokens}
}

func (h *AuthorizationHandler) Routes(r *mux.Router) {
	r.HandleFunc("/test", health).Methods(http.MethodGet)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/token", h.Token).Methods(http.MethodPost)
	r.Handle("/verify", auth.RequireToken(http.HandlerFunc(h.Verify))).Methods(http.MethodGet)
	r.Handle("/refresh", auth.RequireToken(http.HandlerFunc(h.Refresh))).Methods(http.MethodPost)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges JSON credentials for a bearer token.
func (h *AuthorizationHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	h.authenticate(w, r, in)
}

// Token is the form-encoded variant of Login used by OAuth2 password-flow clients.
func (h *AuthorizationHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		badRequest(w, err)
		return
	}
	h.authenticate(w, r, credentials{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	})
}

func (h *AuthorizationHandler) authenticate(w http.ResponseWriter, r *http.Request, in credentials) {
	user, err := h.users.Authenticate(r.Context(), in.Username, in.Password)
	if errors.Is(err, repository.ErrInvalidCredentials) {
		auth.BearerChallenge(w, "Incorrect username or password")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.issue(w, r, user.Name)
}

func (h *AuthorizationHandler) issue(w http.ResponseWriter, r *http.Request, username string) {
	token, _, err := h.tokens.Issue(username, auth.LoginTokenTTL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *AuthorizationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	name, _ := auth.UsernameFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{"valid": true, "username": name})
}

// Refresh issues a fresh token as long as the subject still exists.
func (h *AuthorizationHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	name, _ := auth.UsernameFromContext(r.Context())
	user, err := h.users.GetByName(r.Context(), name)
	if errors.Is(err, repository.ErrNotFound) {
		auth.BearerChallenge(w, "Could not validate credentials")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.issue(w, r, user.Name)
}

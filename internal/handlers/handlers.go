// Package handlers serves the JSON API and the server-rendered pages.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/mindfuly/auth"
	"github.com/diewo77/mindfuly/httpx"
	"github.com/diewo77/mindfuly/internal/logger"
	"github.com/diewo77/mindfuly/internal/middleware"
	"github.com/diewo77/mindfuly/internal/policy"
	"github.com/diewo77/mindfuly/internal/repository"
	"github.com/diewo77/mindfuly/internal/services"
	"github.com/diewo77/mindfuly/view"
	"github.com/gorilla/mux"
)

// Deps is everything the router needs. Limiter and Ping may be nil.
type Deps struct {
	Users   *repository.UserRepository
	Moods   *repository.MoodRepository
	Tokens  *auth.TokenIssuer
	Journal *services.JournalService
	Weather *services.WeatherService
	YouTube *services.YouTubeService
	Spotify *services.SpotifyService
	Limiter *middleware.RateLimiter
	// Ping checks the store for /healthz.
	Ping func(ctx context.Context) error
}

// NewRouter registers every route. API groups are rate limited per caller and tier.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = methodNotAllowed(nil)

	// Order matters: logging sees the status written by Recover.
	r.Use(middleware.RequestID, middleware.Logging, middleware.Recover)
	r.Use(auth.Middleware, d.Tokens.BearerMiddleware, middleware.Prefs)

	ids := &identity{users: d.Users, policy: policy.NewOwnershipPolicy()}
	var limits []mux.MiddlewareFunc
	if d.Limiter != nil {
		limits = append(limits, d.Limiter.Middleware(ids.rateCaller))
	}

	r.HandleFunc("/health", health).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthz(d.Ping)).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(view.StaticDir()))))

	NewAuthorizationHandler(d.Users, d.Tokens).Routes(group(r, "/authorization", limits...))
	NewUserHandler(ids, d.Spotify).Routes(group(r, "/users", limits...))
	NewMoodHandler(ids, d.Moods).Routes(group(r, "/mood", limits...))
	NewWeatherHandler(d.Weather).Routes(group(r, "/weather", limits...))
	NewYouTubeHandler(d.YouTube).Routes(group(r, "/youtube", limits...))
	NewSpotifyHandler(ids, d.Spotify).Routes(group(r, "/spotify", limits...))

	NewPageHandler(ids, d.Journal, d.Weather, d.YouTube, d.Spotify).Routes(r)
	allowMethods(r)
	return r
}

// allowMethods registers a 405 fallback for every path that has method-bound
// routes. mux forgets a method mismatch as soon as a later route in the same
// subrouter matches the shared prefix, so the mismatch alone cannot be trusted.
func allowMethods(r *mux.Router) {
	allowed := map[string][]string{}
	var paths []string
	_ = r.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tpl, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			return nil
		}
		if _, ok := allowed[tpl]; !ok {
			paths = append(paths, tpl)
		}
		allowed[tpl] = append(allowed[tpl], methods...)
		return nil
	})
	for _, tpl := range paths {
		r.Path(tpl).Handler(methodNotAllowed(allowed[tpl]))
	}
}

func methodNotAllowed(methods []string) http.Handler {
	allow := strings.Join(methods, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if allow != "" {
			w.Header().Set("Allow", allow)
		}
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})
}

func group(r *mux.Router, prefix string, mws ...mux.MiddlewareFunc) *mux.Router {
	sub := r.PathPrefix(prefix).Subrouter()
	sub.Use(mws...)
	return sub
}

func health(w http.ResponseWriter, _ *http.Request) {
	httpx.OK(w)
}

func healthz(ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				logger.FromContext(r.Context()).Error("health check failed", "error", err)
				httpx.JSONError(w, http.StatusServiceUnavailable, "database unavailable", nil)
				return
			}
		}
		httpx.OK(w)
	}
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	httpx.JSONError(w, http.StatusNotFound, "not found", nil)
}

// writeError maps repository errors to status codes. Anything unexpected is logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *repository.ValidationError
	switch {
	case errors.As(err, &ve):
		httpx.JSONError(w, http.StatusBadRequest, "validation failed", ve.Violations)
	case errors.Is(err, repository.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not found", nil)
	case errors.Is(err, repository.ErrConflict):
		httpx.JSONError(w, http.StatusConflict, "conflict", nil)
	default:
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "internal server error", nil)
	}
}

func badRequest(w http.ResponseWriter, err error) {
	httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
}

// list keeps empty results encoding as [] rather than null.
func list[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

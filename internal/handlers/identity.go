package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/diewo77/mindfuly/auth"
	"github.com/diewo77/mindfuly/httpx"
	"github.com/diewo77/mindfuly/internal/middleware"
	"github.com/diewo77/mindfuly/internal/models"
	"github.com/diewo77/mindfuly/internal/policy"
	"github.com/diewo77/mindfuly/internal/repository"
)

// identity resolves who is calling and whether they own the user a route names.
type identity struct {
	users  *repository.UserRepository
	policy *policy.OwnershipPolicy
}

// current returns the authenticated user, bearer token first, then session cookie.
// It returns nil for anonymous callers and for callers whose account is gone.
func (id *identity) current(r *http.Request) (*models.User, error) {
	ctx := r.Context()
	var (
		user *models.User
		err  error
	)
	if name, ok := auth.UsernameFromContext(ctx); ok {
		user, err = id.users.GetByName(ctx, name)
	} else if uid, ok := auth.UserIDFromContext(ctx); ok {
		user, err = id.users.GetByID(ctx, uid)
	} else {
		return nil, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// rateCaller keys authenticated callers by user id and tier. Anonymous callers
// get an empty key so the limiter falls back to the client IP.
func (id *identity) rateCaller(r *http.Request) middleware.Caller {
	user, err := id.current(r)
	if err != nil || user == nil {
		return middleware.Caller{}
	}
	return middleware.Caller{Key: "user:" + strconv.FormatUint(uint64(user.ID), 10), Tier: user.Tier}
}

// owned loads the user called username and checks the caller may perform action on it.
// On failure it writes the response and returns nil.
func (id *identity) owned(w http.ResponseWriter, r *http.Request, username string, action policy.Action) *models.User {
	me, err := id.current(r)
	if err != nil {
		writeError(w, r, err)
		return nil
	}
	if me == nil {
		auth.BearerChallenge(w, "Not authenticated")
		return nil
	}
	target, err := id.users.GetByName(r.Context(), username)
	if errors.Is(err, repository.ErrNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "User not found", nil)
		return nil
	}
	if err != nil {
		writeError(w, r, err)
		return nil
	}
	if err := id.policy.Authorize(r.Context(), me.ID, action, target); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "Not authorized to access this user's data", nil)
		return nil
	}
	return target
}

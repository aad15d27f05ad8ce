package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/diewo77/mindfuly/httpx"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL applies when Issue is called without a lifetime.
	DefaultTokenTTL = 60 * time.Minute
	// LoginTokenTTL is the lifetime of tokens handed out by login and refresh.
	LoginTokenTTL = 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer mints and verifies HS256 bearer tokens whose subject is a username.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy that reads the current time from now.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	clone := *i
	clone.now = now
	return &clone
}

// Issue signs a token for subject. A ttl of zero or less uses DefaultTokenTTL.
func (i *TokenIssuer) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("issue token: empty subject")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := i.now()
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature and expiry and returns the token subject.
func (i *TokenIssuer) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

const usernameCtxKey = ctxKey("username")

func WithUsername(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, usernameCtxKey, name)
}

// UsernameFromContext returns the subject of a verified bearer token.
func UsernameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(usernameCtxKey).(string)
	return name, ok && name != ""
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// BearerMiddleware attaches the username of a valid bearer token to the context.
// Requests without a token pass through untouched; an invalid token is rejected with 401.
func (i *TokenIssuer) BearerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		name, err := i.Verify(token)
		if err != nil {
			BearerChallenge(w, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), name)))
	})
}

// RequireToken rejects requests that did not carry a valid bearer token.
func RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UsernameFromContext(r.Context()); !ok {
			BearerChallenge(w, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BearerChallenge writes a 401 JSON error with a WWW-Authenticate header.
func BearerChallenge(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	httpx.JSONError(w, http.StatusUnauthorized, msg, nil)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/mindfuly/internal/cache"
	"github.com/diewo77/mindfuly/internal/config"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/spotify"
)

var (
	// ErrUnknownState is returned for a callback whose state was never issued or already used.
	ErrUnknownState = errors.New("unknown or expired state")
	// ErrInvalidCode is returned when Spotify refuses the authorization code.
	ErrInvalidCode = errors.New("invalid authorization code")
	// ErrStoreUnavailable is returned when Redis is not connected.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

var spotifyScopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"playlist-read-private",
	"playlist-read-collaborative",
	"user-library-read",
	"user-top-read",
}

// SpotifyToken is the part of an access token returned to API clients.
type SpotifyToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// SpotifyService runs the authorization-code flow and keeps tokens per username.
type SpotifyService struct {
	oauth *oauth2.Config
	store *cache.SpotifyStore
}

// NewSpotifyService builds the flow against Spotify's accounts service. store may be nil
// when Redis is down, in which case every call fails with ErrStoreUnavailable.
func NewSpotifyService(cfg config.SpotifyConfig, store *cache.SpotifyStore) *SpotifyService {
	return &SpotifyService{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       spotifyScopes,
			Endpoint:     spotify.Endpoint,
		},
		store: store,
	}
}

// WithEndpoint returns a copy talking to a different accounts service.
func (s *SpotifyService) WithEndpoint(ep oauth2.Endpoint) *SpotifyService {
	conf := *s.oauth
	conf.Endpoint = ep
	return &SpotifyService{oauth: &conf, store: s.store}
}

func (s *SpotifyService) Configured() bool {
	return s.oauth.ClientID != "" && s.oauth.ClientSecret != ""
}

func (s *SpotifyService) ready() error {
	if !s.Configured() {
		return fmt.Errorf("spotify: %w", ErrNotConfigured)
	}
	if s.store == nil {
		return fmt.Errorf("spotify: %w", ErrStoreUnavailable)
	}
	return nil
}

// AuthURL starts an authorization for username and returns the consent page URL.
func (s *SpotifyService) AuthURL(ctx context.Context, username string) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	state := uuid.NewString()
	if err := s.store.SaveState(ctx, state, username); err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(state), nil
}

// Complete redeems state and exchanges code for a token stored under the user who started the flow.
func (s *SpotifyService) Complete(ctx context.Context, code, state string) (string, *SpotifyToken, error) {
	if err := s.ready(); err != nil {
		return "", nil, err
	}
	if code == "" || state == "" {
		return "", nil, ErrUnknownState
	}
	username, ok, err := s.store.ConsumeState(ctx, state)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, ErrUnknownState
	}
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return "", nil, fmt.Errorf("%w: %s", ErrInvalidCode, re.ErrorCode)
		}
		return "", nil, fmt.Errorf("spotify token exchange: %w", err)
	}
	if err := s.store.SaveToken(ctx, username, tok); err != nil {
		return "", nil, err
	}
	return username, toSpotifyToken(tok), nil
}

func toSpotifyToken(tok *oauth2.Token) *SpotifyToken {
	out := &SpotifyToken{AccessToken: tok.AccessToken, TokenType: tok.TokenType}
	if !tok.Expiry.IsZero() {
		out.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	return out
}

// Connected reports whether username holds a usable token, refreshing it when expired.
func (s *SpotifyService) Connected(ctx context.Context, username string) bool {
	if s.ready() != nil {
		return false
	}
	tok, ok, err := s.store.Token(ctx, username)
	if err != nil || !ok {
		return false
	}
	if tok.Valid() {
		return true
	}
	fresh, err := s.oauth.TokenSource(ctx, tok).Token()
	if err != nil {
		return false
	}
	return s.store.SaveToken(ctx, username, fresh) == nil
}

// Disconnect drops the stored token of username.
func (s *SpotifyService) Disconnect(ctx context.Context, username string) error {
	if s.store == nil {
		return nil
	}
	return s.store.ForgetUser(ctx, username)
}

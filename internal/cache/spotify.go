package cache

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// StateTTL bounds how long a Spotify authorization request stays redeemable.
const StateTTL = 10 * time.Minute

// SpotifyStore keeps pending OAuth states and the tokens obtained per username.
type SpotifyStore struct {
	cache *Cache
}

func NewSpotifyStore(c *Cache) *SpotifyStore {
	return &SpotifyStore{cache: c}
}

func stateKey(state string) string   { return "spotify:state:" + state }
func tokenKey(username string) string { return "spotify:token:" + username }

// SaveState remembers which user started the authorization identified by state.
func (s *SpotifyStore) SaveState(ctx context.Context, state, username string) error {
	return s.cache.SetString(ctx, stateKey(state), username, StateTTL)
}

// ConsumeState returns the username bound to state. A state can be redeemed once.
func (s *SpotifyStore) ConsumeState(ctx context.Context, state string) (string, bool, error) {
	return s.cache.TakeString(ctx, stateKey(state))
}

// SaveToken stores the token for username. Tokens carrying a refresh token never expire
// from the store; others expire with the access token.
func (s *SpotifyStore) SaveToken(ctx context.Context, username string, tok *oauth2.Token) error {
	var ttl time.Duration
	if tok.RefreshToken == "" && !tok.Expiry.IsZero() {
		ttl = time.Until(tok.Expiry)
		if ttl <= 0 {
			return nil
		}
	}
	return s.cache.SetJSON(ctx, tokenKey(username), tok, ttl)
}

func (s *SpotifyStore) Token(ctx context.Context, username string) (*oauth2.Token, bool, error) {
	var tok oauth2.Token
	ok, err := s.cache.GetJSON(ctx, tokenKey(username), &tok)
	if err != nil || !ok {
		return nil, false, err
	}
	return &tok, true, nil
}

// ForgetUser drops any token stored for username.
func (s *SpotifyStore) ForgetUser(ctx context.Context, username string) error {
	return s.cache.Del(ctx, tokenKey(username))
}

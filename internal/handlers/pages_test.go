package handlers

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/diewo77/mindfuly/internal/models"
	"github.com/diewo77/mindfuly/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var english = func(r *http.Request) { r.Header.Set("Accept-Language", "en") }

func sessionFrom(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == "session" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestRootRedirectsHome(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/home", rec.Header().Get("Location"))

	rec = e.do(t, http.MethodGet, "/home", nil, english)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}

func TestSignupLoginDashboard(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/signup", url.Values{
		"name": {"alice"}, "email": {"alice@example.com"}, "password": {"secret1"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/login?flash=auth.created", rec.Header().Get("Location"))

	rec = e.do(t, http.MethodGet, "/login?flash=auth.created", nil, english)
	assert.Contains(t, rec.Body.String(), "Account created, you can log in now")

	rec = e.do(t, http.MethodGet, "/login?flash=made.up", nil, english)
	assert.NotContains(t, rec.Body.String(), "alert success")

	rec = e.do(t, http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"wrong"}}, english)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect username or password")
	assert.Contains(t, rec.Body.String(), `value="alice"`)

	rec = e.do(t, http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"secret1"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	session := sessionFrom(t, rec.Result())

	rec = e.do(t, http.MethodGet, "/dashboard", nil, withCookie(session), english)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "alice")

	rec = e.do(t, http.MethodGet, "/login", nil, withCookie(session))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = e.do(t, http.MethodPost, "/logout", nil, withCookie(session))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/home", rec.Header().Get("Location"))
}

func TestSignupRejections(t *testing.T) {
	e := newTestEnv(t)
	e.createUser(t, "alice", models.TierBasic)

	rec := e.do(t, http.MethodPost, "/signup", url.Values{
		"name": {"alice"}, "email": {"other@example.com"}, "password": {"secret1"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, http.MethodPost, "/signup", url.Values{"name": {"bob"}, "email": {"not-an-email"}, "password": {"123"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="bob"`)
}

func TestPagesRequireSession(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/dashboard", "/journal", "/analytics", "/music", "/settings"} {
		rec := e.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}

	rec := e.do(t, http.MethodGet, "/dashboard", nil, func(r *http.Request) { r.Header.Set("Accept", "application/json") })
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A session for a user that no longer exists is rejected.
	rec = e.do(t, http.MethodGet, "/dashboard", nil, withCookie(sessionCookie(t, 4242)))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestJournalCreatesThenEditsToday(t *testing.T) {
	e := newTestEnv(t)
	alice := e.createUser(t, "alice", models.TierBasic)
	session := withCookie(sessionCookie(t, alice.ID))
	ctx := context.Background()

	rec := e.do(t, http.MethodGet, "/journal", nil, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/journal", url.Values{
		"mood_value": {"4"}, "energy_level": {"3"}, "notes": {"walk"}, "weather": {"sunny"},
	}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/dashboard?flash=mood.saved", rec.Header().Get("Location"))

	rec = e.do(t, http.MethodPost, "/journal", url.Values{"mood_value": {"2"}, "energy_level": {"1"}}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	logs, err := e.moods.ListLogs(ctx, alice.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1, "a second entry on the same day edits the first")
	assert.Equal(t, 2, logs[0].MoodValue)
	assert.Equal(t, 1, logs[0].EnergyLevel)
	require.NotNil(t, logs[0].Weather)
	assert.Equal(t, "sunny", *logs[0].Weather)

	rec = e.do(t, http.MethodGet, "/journal", nil, session)
	assert.Contains(t, rec.Body.String(), "readonly")

	rec = e.do(t, http.MethodPost, "/journal", url.Values{"mood_value": {"x"}, "energy_level": {"9"}}, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsAndMusicPages(t *testing.T) {
	e := newTestEnv(t)
	alice := e.createUser(t, "alice", models.TierBasic)
	session := withCookie(sessionCookie(t, alice.ID))
	_, err := e.moods.CreateLog(context.Background(), repository.NewMoodLog{UserID: alice.ID, MoodValue: 5, EnergyLevel: 4})
	require.NoError(t, err)

	rec := e.do(t, http.MethodGet, "/analytics", nil, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/music?mood=happy", nil, session, english)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "alert error", "suggestions are unavailable without a YouTube key")

	rec = e.do(t, http.MethodPost, "/music/spotify", nil, session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/music?flash=spotify.failed", rec.Header().Get("Location"))
}

func TestSettingsAndAccountDeletion(t *testing.T) {
	e := newTestEnv(t)
	alice := e.createUser(t, "alice", models.TierBasic)
	session := withCookie(sessionCookie(t, alice.ID))
	ctx := context.Background()

	rec := e.do(t, http.MethodGet, "/settings", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@example.com")

	rec = e.do(t, http.MethodPost, "/settings", url.Values{"email": {"alice@new.example.com"}, "password": {"newsecret"}}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/settings?flash=settings.saved", rec.Header().Get("Location"))
	_, err := e.users.Authenticate(ctx, "alice", "newsecret")
	require.NoError(t, err)

	rec = e.do(t, http.MethodPost, "/settings", url.Values{"email": {"broken"}}, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/settings/delete", nil, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/home", rec.Header().Get("Location"))
	_, err = e.users.GetByID(ctx, alice.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	rec = e.do(t, http.MethodGet, "/dashboard", nil, session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/diewo77/mindfuly/auth"
	"github.com/diewo77/mindfuly/i18n"
	"github.com/diewo77/mindfuly/internal/logger"
	"github.com/diewo77/mindfuly/internal/models"
	"github.com/diewo77/mindfuly/internal/repository"
	"github.com/diewo77/mindfuly/internal/services"
	"github.com/diewo77/mindfuly/validation"
	"github.com/diewo77/mindfuly/view"
	"github.com/gorilla/mux"
)

const defaultScore = 3

// flashes lists the messages a ?flash= parameter may display.
var flashes = map[string]bool{
	"auth.created":      true,
	"mood.saved":        true,
	"settings.saved":    true,
	"spotify.connected": true,
	"spotify.failed":    true,
}

type PageHandler struct {
	*identity
	journal *services.JournalService
	weather *services.WeatherService
	youtube *services.YouTubeService
	spotify *services.SpotifyService
}

func NewPageHandler(ids *identity, journal *services.JournalService, weather *services.WeatherService,
	youtube *services.YouTubeService, spotify *services.SpotifyService) *PageHandler {
	return &PageHandler{identity: ids, journal: journal, weather: weather, youtube: youtube, spotify: spotify}
}

func (h *PageHandler) Routes(r *mux.Router) {
	r.Handle("/", http.RedirectHandler("/home", http.StatusFound))
	r.HandleFunc("/home", h.Home).Methods(http.MethodGet)
	r.HandleFunc("/login", h.LoginForm).Methods(http.MethodGet)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/signup", h.SignupForm).Methods(http.MethodGet)
	r.HandleFunc("/signup", h.Signup).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.Logout).Methods(http.MethodGet, http.MethodPost)

	private := r.NewRoute().Subrouter()
	private.Use(auth.RequireAuth)
	private.HandleFunc("/dashboard", h.Dashboard).Methods(http.MethodGet)
	private.HandleFunc("/journal", h.JournalForm).Methods(http.MethodGet)
	private.HandleFunc("/journal", h.Journal).Methods(http.MethodPost)
	private.HandleFunc("/analytics", h.Analytics).Methods(http.MethodGet)
	private.HandleFunc("/music", h.Music).Methods(http.MethodGet)
	private.HandleFunc("/music/spotify", h.ConnectSpotify).Methods(http.MethodPost)
	private.HandleFunc("/settings", h.SettingsForm).Methods(http.MethodGet)
	private.HandleFunc("/settings", h.Settings).Methods(http.MethodPost)
	private.HandleFunc("/settings/delete", h.DeleteAccount).Methods(http.MethodPost)
}

func render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if err := view.Render(w, r, name, data); err != nil {
		logger.FromContext(r.Context()).Error("render page", "template", name, "error", err)
		http.Error(w, i18n.T(i18n.LangFromContext(r.Context()), "error.internal"), http.StatusInternalServerError)
	}
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context()).Error("page failed", "path", r.URL.Path, "error", err)
	render(w, r, "error.html", map[string]any{"Title": "error.internal", "Status": http.StatusInternalServerError})
}

func flash(r *http.Request) string {
	if f := r.URL.Query().Get("flash"); flashes[f] {
		return f
	}
	return ""
}

// sessionUser loads the user of the session cookie. RequireAuth guarantees one is present.
func (h *PageHandler) sessionUser(r *http.Request) (*models.User, error) {
	uid, _ := auth.UserIDFromContext(r.Context())
	return h.users.GetByID(r.Context(), uid)
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	render(w, r, "home.html", nil)
}

func (h *PageHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	render(w, r, "login.html", map[string]any{"Flash": flash(r)})
}

func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("username"))
	user, err := h.users.Authenticate(r.Context(), name, r.FormValue("password"))
	if errors.Is(err, repository.ErrInvalidCredentials) {
		render(w, r, "login.html", map[string]any{
			"Error":    "auth.invalid",
			"Username": name,
			"Status":   http.StatusUnauthorized,
		})
		return
	}
	if err != nil {
		renderError(w, r, err)
		return
	}
	auth.CreateSession(w, user.ID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *PageHandler) SignupForm(w http.ResponseWriter, r *http.Request) {
	render(w, r, "signup.html", nil)
}

func (h *PageHandler) Signup(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	_, err := h.users.Create(r.Context(), repository.NewUser{
		Name:     name,
		Email:    email,
		Password: r.FormValue("password"),
		Tier:     models.TierBasic,
	})
	data := map[string]any{"Name": name, "Email": email}
	var ve *repository.ValidationError
	switch {
	case err == nil:
		http.Redirect(w, r, "/login?flash=auth.created", http.StatusSeeOther)
	case errors.As(err, &ve):
		data["Errors"] = ve.Violations
		data["Status"] = http.StatusBadRequest
		render(w, r, "signup.html", data)
	case errors.Is(err, repository.ErrConflict):
		data["Error"] = "auth.exists"
		data["Status"] = http.StatusConflict
		render(w, r, "signup.html", data)
	default:
		renderError(w, r, err)
	}
}

func (h *PageHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessionUser(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	d, err := h.journal.Dashboard(r.Context(), user.ID)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render(w, r, "dashboard.html", map[string]any{"User": user, "Dashboard": d, "Flash": flash(r)})
}

func (h *PageHandler) JournalForm(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	today, err := h.journal.Today(r.Context(), uid)
	if err != nil {
		renderError(w, r, err)
		return
	}
	data := map[string]any{"Today": today, "MoodValue": defaultScore, "EnergyLevel": defaultScore}
	if today != nil {
		data["MoodValue"] = today.MoodValue
		data["EnergyLevel"] = today.EnergyLevel
		data["Notes"] = view.Deref(today.Notes)
		data["Weather"] = view.Deref(today.Weather)
	}
	render(w, r, "journal.html", data)
}

// Journal records today's entry. Without a typed weather label it is looked up
// from the browser's coordinates when the weather service is configured.
func (h *PageHandler) Journal(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	v := validation.Violations{}
	mood, err := strconv.Atoi(r.FormValue("mood_value"))
	if err != nil {
		v["mood_value"] = "required"
	}
	energy, err := strconv.Atoi(r.FormValue("energy_level"))
	if err != nil {
		v["energy_level"] = "required"
	}
	entry := services.JournalEntry{
		MoodValue:   mood,
		EnergyLevel: energy,
		Notes:       r.FormValue("notes"),
		Weather:     strings.TrimSpace(r.FormValue("weather")),
	}

	if v.Empty() {
		if entry.Weather == "" {
			entry.Weather = h.weatherAt(r, r.FormValue("lat"), r.FormValue("lon"))
		}
		_, _, err = h.journal.Record(r.Context(), uid, entry)
		var ve *repository.ValidationError
		switch {
		case err == nil:
			http.Redirect(w, r, "/dashboard?flash=mood.saved", http.StatusSeeOther)
			return
		case errors.As(err, &ve):
			v = ve.Violations
		default:
			renderError(w, r, err)
			return
		}
	}

	today, _ := h.journal.Today(r.Context(), uid)
	render(w, r, "journal.html", map[string]any{
		"Today":       today,
		"MoodValue":   max(mood, models.MinScore),
		"EnergyLevel": max(energy, models.MinScore),
		"Notes":       entry.Notes,
		"Weather":     entry.Weather,
		"Errors":      v,
		"Status":      http.StatusBadRequest,
	})
}

// weatherAt returns the weather label at lat/lon, or "" when it cannot be determined.
func (h *PageHandler) weatherAt(r *http.Request, rawLat, rawLon string) string {
	if h.weather == nil || !h.weather.Configured() || rawLat == "" || rawLon == "" {
		return ""
	}
	lat, latErr := strconv.ParseFloat(rawLat, 64)
	lon, lonErr := strconv.ParseFloat(rawLon, 64)
	if latErr != nil || lonErr != nil {
		return ""
	}
	doc, err := h.weather.Current(r.Context(), lat, lon)
	if err != nil {
		logger.FromContext(r.Context()).Warn("journal weather lookup failed", "error", err)
		return ""
	}
	return services.Conditions(doc)
}

func (h *PageHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	a, err := h.journal.Analytics(r.Context(), uid)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render(w, r, "analytics.html", map[string]any{"Analytics": a})
}

func (h *PageHandler) Music(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessionUser(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	mood := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("mood")))
	data := map[string]any{
		"Moods":            services.Moods(),
		"Mood":             mood,
		"SpotifyEnabled":   h.spotify != nil && h.spotify.Configured(),
		"SpotifyConnected": h.spotify != nil && h.spotify.Connected(r.Context(), user.Name),
		"Flash":            flash(r),
	}
	if mood != "" {
		if h.youtube == nil || !h.youtube.Configured() {
			data["Unavailable"] = true
		} else if videos, err := h.youtube.SearchByMood(r.Context(), mood, services.DefaultVideoResults); err != nil {
			logger.FromContext(r.Context()).Warn("music suggestions failed", "mood", mood, "error", err)
			data["Unavailable"] = true
		} else {
			data["Videos"] = videos
		}
	}
	render(w, r, "music.html", data)
}

// ConnectSpotify sends the browser to Spotify's consent page.
func (h *PageHandler) ConnectSpotify(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessionUser(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	if h.spotify == nil {
		http.Redirect(w, r, "/music?flash=spotify.failed", http.StatusSeeOther)
		return
	}
	url, err := h.spotify.AuthURL(r.Context(), user.Name)
	if err != nil {
		logger.FromContext(r.Context()).Warn("spotify authorization unavailable", "error", err)
		http.Redirect(w, r, "/music?flash=spotify.failed", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func (h *PageHandler) SettingsForm(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessionUser(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render(w, r, "settings.html", map[string]any{"User": user, "Flash": flash(r)})
}

// Settings updates the email and, when one was typed, the password.
func (h *PageHandler) Settings(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessionUser(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	var s repository.UserSettings
	if email := strings.TrimSpace(r.FormValue("email")); email != "" && email != user.Email {
		s.Email = &email
	}
	if password := r.FormValue("password"); password != "" {
		s.Password = &password
	}

	_, err = h.users.UpdateSettings(r.Context(), user.ID, s)
	var ve *repository.ValidationError
	switch {
	case err == nil:
		http.Redirect(w, r, "/settings?flash=settings.saved", http.StatusSeeOther)
	case errors.As(err, &ve):
		render(w, r, "settings.html", map[string]any{"User": user, "Errors": ve.Violations, "Status": http.StatusBadRequest})
	case errors.Is(err, repository.ErrConflict):
		render(w, r, "settings.html", map[string]any{"User": user, "Error": "auth.exists", "Status": http.StatusConflict})
	default:
		renderError(w, r, err)
	}
}

func (h *PageHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessionUser(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	if err := h.users.Delete(r.Context(), user.ID); err != nil {
		renderError(w, r, err)
		return
	}
	if h.spotify != nil {
		if err := h.spotify.Disconnect(r.Context(), user.Name); err != nil {
			logger.FromContext(r.Context()).Warn("drop spotify token", "user", user.Name, "error", err)
		}
	}
	auth.ClearSession(w)
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

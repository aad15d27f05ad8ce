// Package i18n holds the UI strings in French and English.
package i18n

import (
	"context"
	"strings"
)

const DefaultLang = "fr"

var messages = map[string]map[string]string{
	"fr": {
		"required":           "Requis",
		"invalid_email":      "Email invalide",
		"too_short":          "Trop court",
		"too_long":           "Trop long",
		"out_of_range":       "Hors limites",
		"app.title":          "Mindfuly",
		"nav.home":           "Accueil",
		"nav.dashboard":      "Tableau de bord",
		"nav.journal":        "Journal",
		"nav.analytics":      "Analyses",
		"nav.music":          "Musique",
		"nav.settings":       "Paramètres",
		"nav.login":          "Connexion",
		"nav.signup":         "Inscription",
		"nav.logout":         "Déconnexion",
		"auth.username":      "Nom d'utilisateur",
		"auth.email":         "Email",
		"auth.password":      "Mot de passe",
		"auth.invalid":       "Nom d'utilisateur ou mot de passe incorrect",
		"auth.exists":        "Ce nom d'utilisateur ou cet email est déjà pris",
		"auth.created":       "Compte créé, vous pouvez vous connecter",
		"mood.mood":          "Humeur",
		"mood.energy":        "Énergie",
		"mood.notes":         "Notes",
		"mood.weather":       "Météo",
		"mood.save":          "Enregistrer",
		"mood.saved":         "Entrée enregistrée",
		"mood.logged_today":  "Vous avez déjà noté votre journée",
		"mood.not_logged":    "Pas encore d'entrée aujourd'hui",
		"mood.recent":        "Entrées récentes",
		"mood.total":         "Entrées",
		"mood.none":          "Aucune entrée pour l'instant",
		"stats.weather":      "Humeur selon la météo",
		"stats.weekly":       "Humeur par jour de la semaine",
		"stats.running":      "Moyenne glissante",
		"music.suggestions":  "Suggestions musicales",
		"music.unavailable":  "Suggestions indisponibles",
		"music.connect":      "Connecter Spotify",
		"settings.update":    "Mettre à jour",
		"settings.saved":     "Paramètres enregistrés",
		"settings.delete":    "Supprimer mon compte",
		"settings.confirm":   "Cette action supprime toutes vos entrées.",
		"spotify.connected":  "Spotify connecté",
		"spotify.failed":     "Connexion Spotify échouée",
		"home.tagline":       "Notez votre humeur, comprenez vos journées.",
		"error.internal":     "Erreur interne",
		"error.rate_limited": "Trop de requêtes",
	},
	"en": {
		"required":           "Required",
		"invalid_email":      "Invalid email",
		"too_short":          "Too short",
		"too_long":           "Too long",
		"out_of_range":       "Out of range",
		"app.title":          "Mindfuly",
		"nav.home":           "Home",
		"nav.dashboard":      "Dashboard",
		"nav.journal":        "Journal",
		"nav.analytics":      "Analytics",
		"nav.music":          "Music",
		"nav.settings":       "Settings",
		"nav.login":          "Log in",
		"nav.signup":         "Sign up",
		"nav.logout":         "Log out",
		"auth.username":      "Username",
		"auth.email":         "Email",
		"auth.password":      "Password",
		"auth.invalid":       "Incorrect username or password",
		"auth.exists":        "That username or email is already taken",
		"auth.created":       "Account created, you can log in now",
		"mood.mood":          "Mood",
		"mood.energy":        "Energy",
		"mood.notes":         "Notes",
		"mood.weather":       "Weather",
		"mood.save":          "Save",
		"mood.saved":         "Entry saved",
		"mood.logged_today":  "You already logged today",
		"mood.not_logged":    "No entry yet today",
		"mood.recent":        "Recent entries",
		"mood.total":         "Entries",
		"mood.none":          "No entries yet",
		"stats.weather":      "Mood by weather",
		"stats.weekly":       "Mood by weekday",
		"stats.running":      "Running mean",
		"music.suggestions":  "Music suggestions",
		"music.unavailable":  "Suggestions unavailable",
		"music.connect":      "Connect Spotify",
		"settings.update":    "Update",
		"settings.saved":     "Settings saved",
		"settings.delete":    "Delete my account",
		"settings.confirm":   "This removes all of your entries.",
		"spotify.connected":  "Spotify connected",
		"spotify.failed":     "Spotify connection failed",
		"home.tagline":       "Log your mood, understand your days.",
		"error.internal":     "Internal error",
		"error.rate_limited": "Too many requests",
	},
}

// T translates code into lang, falling back to French and then to the code itself.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := messages[DefaultLang][code]; ok {
		return s
	}
	return code
}

// DetectLanguage picks a supported language from an Accept-Language header.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		base, _, _ := strings.Cut(strings.ToLower(tag), "-")
		if _, ok := messages[base]; ok {
			return base
		}
	}
	return DefaultLang
}

// Supported reports whether lang has a translation table.
func Supported(lang string) bool {
	_, ok := messages[lang]
	return ok
}

type langKey struct{}

func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// LangFromContext returns the request language, DefaultLang when unset.
func LangFromContext(ctx context.Context) string {
	if l, ok := ctx.Value(langKey{}).(string); ok && l != "" {
		return l
	}
	return DefaultLang
}

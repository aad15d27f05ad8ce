package middleware

import (
	"net/http"
	"time"

	"github.com/diewo77/mindfuly/i18n"
	"github.com/diewo77/mindfuly/view"
)

const (
	langCookie  = "lang"
	themeCookie = "theme"
	prefsMaxAge = 365 * 24 * time.Hour
)

var themes = map[string]bool{"light": true, "dark": true, "system": true}

func remember(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(prefsMaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

// Prefs resolves language and theme for the pages. A ?lang= or ?theme= query
// parameter wins and is remembered in a cookie; otherwise the cookie, then
// Accept-Language, then defaults apply.
func Prefs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := ""
		if q := r.URL.Query().Get("lang"); i18n.Supported(q) {
			lang = q
			remember(w, langCookie, q)
		} else if c, err := r.Cookie(langCookie); err == nil && i18n.Supported(c.Value) {
			lang = c.Value
		} else {
			lang = i18n.DetectLanguage(r.Header.Get("Accept-Language"))
		}

		theme := "system"
		if q := r.URL.Query().Get("theme"); themes[q] {
			theme = q
			remember(w, themeCookie, q)
		} else if c, err := r.Cookie(themeCookie); err == nil && themes[c.Value] {
			theme = c.Value
		}

		ctx := view.WithTheme(i18n.WithLang(r.Context(), lang), theme)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

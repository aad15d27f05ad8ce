// Package view renders the server-side HTML pages from templates/.
package view

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/diewo77/mindfuly/auth"
	"github.com/diewo77/mindfuly/i18n"
	"github.com/diewo77/mindfuly/internal/models"
)

type themeKey struct{}

func WithTheme(ctx context.Context, theme string) context.Context {
	return context.WithValue(ctx, themeKey{}, theme)
}

// ThemeFromContext returns the page theme, "system" when unset.
func ThemeFromContext(ctx context.Context) string {
	if theme, ok := ctx.Value(themeKey{}).(string); ok && theme != "" {
		return theme
	}
	return "system"
}

var (
	baseDir   string
	staticDir = "static"
	once      sync.Once
	tplCache  = struct {
		sync.RWMutex
		m map[string]*template.Template
	}{m: map[string]*template.Template{}}
	assetHashes = struct {
		sync.Mutex
		m map[string]string
	}{m: map[string]string{}}
)

// partials are parsed alongside every page that uses the layout.
var partials = []string{"header.html", "flash.html", "mood-scale.html"}

func devMode() bool { return os.Getenv("DEV") == "1" || os.Getenv("DEV") == "true" }

func detectBase() {
	for _, c := range []string{"templates", "../templates", "../../templates"} {
		if fi, err := os.Stat(c); err == nil && fi.IsDir() {
			baseDir = filepath.Clean(c)
			staticDir = filepath.Join(filepath.Dir(baseDir), "static")
			return
		}
	}
	baseDir = "templates"
}

// SetBaseDir overrides the template directory.
func SetBaseDir(path string) {
	if path == "" {
		return
	}
	baseDir = filepath.Clean(path)
	staticDir = filepath.Join(filepath.Dir(baseDir), "static")
	once = sync.Once{}
	once.Do(func() {}) // keep detectBase from overriding the explicit dir
	ResetCache()
}

// StaticDir returns the directory served under /static/.
func StaticDir() string {
	once.Do(detectBase)
	return staticDir
}

// ResetCache drops parsed templates and asset hashes.
func ResetCache() {
	tplCache.Lock()
	tplCache.m = map[string]*template.Template{}
	tplCache.Unlock()
	assetHashes.Lock()
	assetHashes.m = map[string]string{}
	assetHashes.Unlock()
}

// Funcs returns the template helpers bound to the request language and theme.
func Funcs(r *http.Request) template.FuncMap {
	lang := i18n.LangFromContext(r.Context())
	theme := ThemeFromContext(r.Context())
	return template.FuncMap{
		"t":         func(code string) string { return i18n.T(lang, code) },
		"lang":      func() string { return lang },
		"theme":     func() string { return theme },
		"year":      func() int { return time.Now().Year() },
		"asset":     asset,
		"moodLabel": models.MoodLabel,
		"pct":       scorePercent,
		"deref":     Deref,
		"date":      func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
		"json":      toJSON,
		"seq":       seq,
		// dict builds the argument map for partials: {{ template "mood-scale" (dict "Name" "mood" "Value" 3) }}
		"dict": func(kv ...any) map[string]any {
			m := make(map[string]any, len(kv)/2)
			for i := 0; i+1 < len(kv); i += 2 {
				if k, ok := kv[i].(string); ok {
					m[k] = kv[i+1]
				}
			}
			return m
		},
	}
}

// scorePercent maps a 1..5 score, or a mean of scores, to a 0..100 bar width.
func scorePercent(v any) int {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	default:
		return 0
	}
	if f <= 0 {
		return 0
	}
	p := int((f / float64(models.MaxScore)) * 100)
	return min(p, 100)
}

// Deref returns the pointed-to string, or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// toJSON embeds data for chart scripts.
func toJSON(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}

func seq(from, to int) []int {
	if to < from {
		return nil
	}
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

// asset returns /static/<rel>?v=<hash> so browsers refetch changed files.
func asset(rel string) string {
	if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") || strings.HasPrefix(rel, "//") {
		return rel
	}
	if !devMode() {
		assetHashes.Lock()
		h, ok := assetHashes.m[rel]
		assetHashes.Unlock()
		if ok {
			return h
		}
	}
	url := "/static/" + rel
	if b, err := os.ReadFile(filepath.Join(staticDir, rel)); err == nil {
		sum := sha1.Sum(b)
		url += "?v=" + fmt.Sprintf("%x", sum[:8])
	}
	assetHashes.Lock()
	assetHashes.m[rel] = url
	assetHashes.Unlock()
	return url
}

func parse(r *http.Request, name string) (*template.Template, error) {
	mainPath := filepath.Join(baseDir, name)
	content, err := os.ReadFile(mainPath)
	if err != nil {
		return nil, err
	}
	funcs := Funcs(r)
	// Full documents render standalone.
	if bytes.Contains(bytes.ToLower(content), []byte("<!doctype")) {
		return template.New(name).Funcs(funcs).ParseFiles(mainPath)
	}
	files := []string{filepath.Join(baseDir, "layout.html"), mainPath}
	for _, p := range partials {
		pp := filepath.Join(baseDir, "partials", p)
		if fi, err := os.Stat(pp); err == nil && !fi.IsDir() {
			files = append(files, pp)
		}
	}
	return template.New("layout.html").Funcs(funcs).ParseFiles(files...)
}

// Render executes templates/<name> inside the layout. Templates are cached per
// name and language outside dev mode.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	once.Do(detectBase)
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["IsLoggedIn"]; !ok {
		_, loggedIn := auth.UserIDFromContext(r.Context())
		data["IsLoggedIn"] = loggedIn
	}
	if _, ok := data["Path"]; !ok {
		data["Path"] = r.URL.Path
	}

	key := name + "|" + i18n.LangFromContext(r.Context()) + "|" + ThemeFromContext(r.Context())
	var t *template.Template
	if !devMode() {
		tplCache.RLock()
		t = tplCache.m[key]
		tplCache.RUnlock()
	}
	if t == nil {
		parsed, err := parse(r, name)
		if err != nil {
			return err
		}
		t = parsed
		if !devMode() {
			tplCache.Lock()
			tplCache.m[key] = t
			tplCache.Unlock()
		}
	}

	// Buffer so a failing template does not leave a half-written page.
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status, ok := data["Status"].(int); ok && status != 0 {
		w.WriteHeader(status)
	}
	_, err := buf.WriteTo(w)
	return err
}

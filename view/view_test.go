package view

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diewo77/mindfuly/i18n"
)

func TestScorePercent(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{5, 100},
		{int64(1), 20},
		{2.5, 50},
		{0, 0},
		{9.0, 100},
		{"3", 0},
	}
	for _, c := range cases {
		if got := scorePercent(c.in); got != c.want {
			t.Errorf("scorePercent(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestSeqAndDeref(t *testing.T) {
	if got := seq(1, 5); len(got) != 5 || got[0] != 1 || got[4] != 5 {
		t.Fatalf("seq(1,5) = %v", got)
	}
	if got := seq(3, 1); got != nil {
		t.Fatalf("seq(3,1) = %v, want nil", got)
	}
	s := "rain"
	if Deref(&s) != "rain" || Deref(nil) != "" {
		t.Fatal("Deref mismatch")
	}
}

func TestRenderUsesRequestLanguage(t *testing.T) {
	ResetCache()
	for lang, want := range map[string]string{"en": "Internal error", "fr": "Erreur interne"} {
		r := httptest.NewRequest(http.MethodGet, "/boom", nil)
		r = r.WithContext(i18n.WithLang(r.Context(), lang))
		rec := httptest.NewRecorder()
		err := Render(rec, r, "error.html", map[string]any{"Title": "error.internal", "Status": http.StatusInternalServerError})
		if err != nil {
			t.Fatalf("render %s: %v", lang, err)
		}
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s: status = %d", lang, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("%s: body missing %q", lang, want)
		}
	}
}

func TestRenderMissingTemplate(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := Render(httptest.NewRecorder(), r, "nope.html", nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

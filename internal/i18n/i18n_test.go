package i18n

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "gate.first")
	if !strings.Contains(got, "plan") {
		t.Errorf("T(gate.first) = %q, want gate message mentioning the plan", got)
	}

	got = T(ctx, "fallback.strict")
	if !strings.Contains(got, "your own") {
		t.Errorf("T(fallback.strict) = %q, want strict fallback", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "greeting.initial")
	if !strings.Contains(got, "Привет") {
		t.Errorf("T(greeting.initial) = %q, want Russian greeting", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "problems.remaining", 1)
	if got1 != "1 problem left in this assignment." {
		t.Errorf("Tp(problems.remaining, 1) = %q", got1)
	}

	got5 := Tp(ctx, "problems.remaining", 5)
	if got5 != "5 problems left in this assignment." {
		t.Errorf("Tp(problems.remaining, 5) = %q", got5)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "resume.problem", map[string]any{"Number": 2, "Title": "Read five numbers"})
	if got != "We're on problem 2: Read five numbers." {
		t.Errorf("Td(resume.problem) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want key echoed back", got)
	}
}

func TestNoLocalizerFallsBackToInitLanguage(t *testing.T) {
	if err := Init("ru"); err != nil {
		t.Fatalf("Init(ru): %v", err)
	}

	got := T(context.Background(), "greeting.initial")
	if !strings.Contains(got, "Привет") {
		t.Errorf("T without localizer = %q, want the configured Russian greeting", got)
	}
}

func TestMiddlewareHonorsAcceptLanguage(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init(en): %v", err)
	}

	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, T(r.Context(), "greeting.initial"))
	}))

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"russian browser", "ru", "Привет"},
		{"no header", "", "Hi"},
		{"unshipped language", "fr", "Hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Accept-Language", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if got := rec.Body.String(); !strings.Contains(got, tt.want) {
				t.Errorf("greeting for Accept-Language %q = %q, want it to contain %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestEveryToneHasFallback(t *testing.T) {
	ctx := initLang(t, "en")
	for _, tone := range []string{"encouraging", "firm_but_kind", "strict", "empathetic", "celebratory"} {
		id := "fallback." + tone
		if got := T(ctx, id); got == id {
			t.Errorf("missing fallback translation for tone %s", tone)
		}
	}
}

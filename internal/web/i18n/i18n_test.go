package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/text/language"
)

func TestResolveTagPrefersQueryParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/reset?lang=en", nil)
	req.AddCookie(&http.Cookie{Name: LangCookieName, Value: "es"})
	req.Header.Set("Accept-Language", "es-ES")

	tag, persist := ResolveTag(req, language.Spanish)
	if tag != language.English || !persist {
		t.Fatalf("ResolveTag = %v, %v; want en, true", tag, persist)
	}
}

func TestResolveTagCookieThenHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: LangCookieName, Value: "en"})
	req.Header.Set("Accept-Language", "es")
	if tag, persist := ResolveTag(req, language.Spanish); tag != language.English || persist {
		t.Fatalf("cookie: got %v, %v", tag, persist)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "fr-FR, en-GB;q=0.8")
	if tag, _ := ResolveTag(req, language.Spanish); tag != language.English {
		t.Fatalf("header: got %v, want en", tag)
	}
}

func TestResolveTagFallsBackToDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?lang=xx-invalid-", nil)
	if tag, persist := ResolveTag(req, language.Spanish); tag != language.Spanish || persist {
		t.Fatalf("got %v, %v; want es, false", tag, persist)
	}
	if tag, _ := ResolveTag(nil, language.English); tag != language.English {
		t.Fatalf("nil request: got %v", tag)
	}
}

func TestNormalizeTag(t *testing.T) {
	if got := NormalizeTag("es-MX", language.English); got != language.Spanish {
		t.Fatalf("NormalizeTag(es-MX) = %v", got)
	}
	if got := NormalizeTag("", language.Spanish); got != language.Spanish {
		t.Fatalf("NormalizeTag(\"\") = %v", got)
	}
}

func TestCatalogsCoverFlowKeys(t *testing.T) {
	keys := []string{
		"confirm.loading", "confirm.success", "confirm.failed",
		"reset.validating", "reset.ready", "reset.link_failed", "reset.too_short",
		"reset.not_ready", "reset.updating", "reset.failed", "reset.success",
		"link.invalid", "link.unexpected",
	}
	for _, tag := range Supported() {
		p := Printer(tag)
		for _, key := range keys {
			if got := p.Sprintf(key); got == key {
				t.Errorf("%v: missing translation for %q", tag, key)
			}
		}
	}
}

func TestSpanishMessages(t *testing.T) {
	p := Printer(language.Spanish)
	if got := p.Sprintf("reset.too_short"); got != "La contraseña debe tener al menos 6 caracteres." {
		t.Fatalf("reset.too_short = %q", got)
	}
}

func TestSetLanguageCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	SetLanguageCookie(rec, language.English)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != LangCookieName || cookies[0].Value != "en" {
		t.Fatalf("cookies = %+v", cookies)
	}
}

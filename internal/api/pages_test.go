package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/fuomag9/colive-web/internal/config"
	"github.com/fuomag9/colive-web/internal/flow"
	"github.com/fuomag9/colive-web/internal/identity"
	"github.com/fuomag9/colive-web/internal/store"
	"github.com/fuomag9/colive-web/internal/websocket"
)

type fakeIdentity struct {
	mu sync.Mutex

	verified  []string
	exchanged []string
	updates   []string
	updatedBy []string

	session   *identity.Session
	redeemErr error
	updateErr error
	refreshed *identity.Session
}

func (f *fakeIdentity) VerifyRecoveryToken(_ context.Context, tokenHash string) (*identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, tokenHash)
	if f.redeemErr != nil {
		return nil, f.redeemErr
	}
	return f.session, nil
}

func (f *fakeIdentity) ExchangeCodeForSession(_ context.Context, code, _ string) (*identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanged = append(f.exchanged, code)
	if f.redeemErr != nil {
		return nil, f.redeemErr
	}
	return f.session, nil
}

func (f *fakeIdentity) UpdateUserPassword(_ context.Context, session *identity.Session, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, password)
	f.updatedBy = append(f.updatedBy, session.AccessToken)
	return f.updateErr
}

func (f *fakeIdentity) CurrentSession(_ context.Context, session *identity.Session) (*identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshed != nil {
		return f.refreshed, nil
	}
	return session, nil
}

func (f *fakeIdentity) calls() (verify, exchange, update int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.verified), len(f.exchanged), len(f.updates)
}

func testConfig() *config.Config {
	return &config.Config{
		Port:        8080,
		Environment: "development",
		CORSOrigins: []string{"http://localhost:3000"},
		Brand: config.BrandConfig{
			Name:            "LJL – CoLive",
			Tagline:         "Comparte · Vive · Conecta",
			DefaultLanguage: "es",
		},
		Mobile: config.MobileConfig{
			Scheme:         "ljlcolive",
			AndroidPackage: "com.example.am_proyectofinal_ljl",
			Path:           "auth/callback",
			FallbackDelay:  700 * time.Millisecond,
		},
		Store: config.StoreConfig{
			Driver:     config.StoreMemory,
			SessionTTL: 15 * time.Minute,
			TicketTTL:  2 * time.Minute,
		},
		RateLimit: config.RateLimitConfig{PerSecond: 100, Burst: 100},
	}
}

type testEnv struct {
	cfg      *config.Config
	identity *fakeIdentity
	store    *store.Memory
	handler  http.Handler
}

func newTestEnv(t *testing.T, configure ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	for _, fn := range configure {
		fn(cfg)
	}

	id := &fakeIdentity{session: &identity.Session{AccessToken: "access-1", RefreshToken: "refresh-1", User: identity.User{ID: "user-1"}}}
	mem := store.NewMemory()
	h := flow.NewHandoff(cfg.Mobile.Scheme, cfg.Mobile.AndroidPackage, cfg.Mobile.Path, cfg.Mobile.FallbackDelay)
	d := &Deps{Config: cfg, Identity: id, Store: mem, Handoff: h}

	limiter := NewRateLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst)
	handler := NewRouter(d, websocket.NewHandoffServer(mem, h, cfg.CORSOrigins), limiter)

	return &testEnv{cfg: cfg, identity: id, store: mem, handler: handler}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	resp := rec.Result()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func postPassword(password string, cookies ...*http.Cookie) *http.Request {
	form := url.Values{"password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/reset", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

func TestLandingAndHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("landing status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Web Auxiliar") {
		t.Fatal("landing page missing title")
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" || resp.Header.Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("security headers missing: %v", resp.Header)
	}

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.StatusCode != http.StatusOK || body != "OK" {
		t.Fatalf("health = %d %q", resp.StatusCode, body)
	}
}

func TestCallbackWithoutCodeMakesNoCall(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/callback", nil))

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(body, "Enlace inválido o incompleto") {
		t.Fatalf("missing invalid-link message:\n%s", body)
	}
	if v, x, u := env.identity.calls(); v+x+u != 0 {
		t.Fatalf("identity called without link parameters: %d %d %d", v, x, u)
	}
	if strings.Contains(body, "intent://") {
		t.Fatal("failed confirmation must not offer a hand-off")
	}
}

func TestCallbackSuccessIssuesTicket(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc", nil))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if _, x, _ := env.identity.calls(); x != 1 || env.identity.exchanged[0] != "abc" {
		t.Fatalf("exchanged = %v, want [abc]", env.identity.exchanged)
	}
	if !strings.Contains(body, "¡Listo! Tu cuenta fue confirmada.") {
		t.Fatal("missing success message")
	}
	if !strings.Contains(body, "intent://auth/callback?confirmed=1#Intent;scheme=ljlcolive;package=com.example.am_proyectofinal_ljl;end;") {
		t.Fatal("missing intent link")
	}

	if !strings.Contains(body, "ticket") {
		t.Fatalf("hand-off ticket not rendered:\n%s", body)
	}
	purged, err := env.store.PurgeExpired(context.Background(), time.Now().Add(time.Hour))
	if err != nil || purged != 1 {
		t.Fatalf("expected exactly one issued ticket, purged=%d err=%v", purged, err)
	}
}

func TestCallbackProviderErrorIsShown(t *testing.T) {
	env := newTestEnv(t)
	env.identity.redeemErr = &identity.Error{Status: 403, Code: "otp_expired", Message: "Email link is invalid or has expired"}

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/callback?code=stale", nil))

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	if !strings.Contains(body, "No se pudo confirmar la cuenta") || !strings.Contains(body, "Email link is invalid or has expired") {
		t.Fatalf("missing failure text:\n%s", body)
	}
}

func TestHardenedErrorsHideProviderText(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Identity.HardenedErrors = true })
	env.identity.redeemErr = &identity.Error{Status: 403, Message: "User not found: alice@example.com"}

	_, body := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/callback?code=x", nil))

	if strings.Contains(body, "alice@example.com") {
		t.Fatal("provider text leaked with hardened errors")
	}
	if !strings.Contains(body, "No se pudo confirmar la cuenta") {
		t.Fatal("missing generic failure message")
	}
}

func TestTransportFailureIsUnexpected(t *testing.T) {
	env := newTestEnv(t)
	env.identity.redeemErr = errors.New("dial tcp: connection refused")

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/reset?code=c", nil))

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	if !strings.Contains(body, "Ocurrió un error al procesar el enlace") || strings.Contains(body, "connection refused") {
		t.Fatalf("unexpected failure not generic:\n%s", body)
	}
	if findCookie(resp, FlowCookieName) != nil && findCookie(resp, FlowCookieName).MaxAge >= 0 {
		t.Fatal("failed redemption must not start a flow session")
	}
}

func TestResetLinkPrefersRecoveryToken(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/reset?token_hash=h1&type=recovery&code=c1", nil))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if v, x, _ := env.identity.calls(); v != 1 || x != 0 || env.identity.verified[0] != "h1" {
		t.Fatalf("verify=%d exchange=%d, want recovery verification only", v, x)
	}
	if !strings.Contains(body, "Ingresa tu nueva contraseña.") {
		t.Fatal("missing ready message")
	}
	if strings.Contains(body, "disabled>") {
		t.Fatal("form must be enabled once ready")
	}

	cookie := findCookie(resp, FlowCookieName)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("flow cookie not set")
	}
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteStrictMode || cookie.Path != "/reset" {
		t.Fatalf("cookie attributes = %+v", cookie)
	}
}

func TestResetLinkWrongTypeFallsBackToCode(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, httptest.NewRequest(http.MethodGet, "/reset?token_hash=h1&type=signup&code=c1", nil))

	if v, x, _ := env.identity.calls(); v != 0 || x != 1 {
		t.Fatalf("verify=%d exchange=%d, want code exchange", v, x)
	}
}

func TestSubmitBeforeReadyIsRejected(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, postPassword("long-enough-password"))

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(body, "Primero debes validar el enlace") {
		t.Fatalf("missing not-ready message:\n%s", body)
	}
	if _, _, u := env.identity.calls(); u != 0 {
		t.Fatal("password update called before the link was validated")
	}

	resp, _ = env.do(t, postPassword("long-enough-password", &http.Cookie{Name: FlowCookieName, Value: "forged"}))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("forged cookie status = %d, want 400", resp.StatusCode)
	}
}

func TestResetFlowEndToEnd(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/reset?code=c1", nil))
	cookie := findCookie(resp, FlowCookieName)
	if cookie == nil {
		t.Fatal("flow cookie not set")
	}

	resp, body := env.do(t, postPassword("12345", cookie))
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(body, "al menos 6 caracteres") {
		t.Fatalf("short password: status=%d body:\n%s", resp.StatusCode, body)
	}
	if _, _, u := env.identity.calls(); u != 0 {
		t.Fatal("short password reached the identity provider")
	}
	if strings.Contains(body, "disabled>") {
		t.Fatal("form must stay usable after a validation error")
	}

	resp, body = env.do(t, postPassword("  12345  ", cookie))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("padded short password status = %d, want 400", resp.StatusCode)
	}

	env.identity.refreshed = &identity.Session{AccessToken: "access-2", RefreshToken: "refresh-2", User: identity.User{ID: "user-1"}}
	resp, body = env.do(t, postPassword("secret1", cookie))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200:\n%s", resp.StatusCode, body)
	}
	if !strings.Contains(body, "Contraseña actualizada con éxito.") {
		t.Fatal("missing success message")
	}
	if !strings.Contains(body, "disabled>") {
		t.Fatal("form must be disabled after success")
	}
	if len(env.identity.updates) != 1 || env.identity.updates[0] != "secret1" || env.identity.updatedBy[0] != "access-2" {
		t.Fatalf("updates = %v by %v", env.identity.updates, env.identity.updatedBy)
	}

	cleared := findCookie(resp, FlowCookieName)
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Fatalf("flow cookie not cleared: %+v", cleared)
	}
	if _, err := env.store.GetSession(context.Background(), cookie.Value); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("flow session not deleted: %v", err)
	}
}

func TestResetUpdateFailureKeepsFormUsable(t *testing.T) {
	env := newTestEnv(t)
	env.identity.updateErr = &identity.Error{Status: 422, Code: "same_password", Message: "New password should be different from the old password."}

	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/reset?code=c1", nil))
	cookie := findCookie(resp, FlowCookieName)

	resp, body := env.do(t, postPassword("secret1", cookie))
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	if !strings.Contains(body, "No se pudo actualizar la contraseña: New password should be different from the old password.") {
		t.Fatalf("missing provider text:\n%s", body)
	}
	if strings.Contains(body, "disabled>") {
		t.Fatal("form must stay usable after a failed update")
	}
	if _, err := env.store.GetSession(context.Background(), cookie.Value); err != nil {
		t.Fatalf("flow session dropped after failed update: %v", err)
	}
}

func TestLanguageSelection(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/reset?lang=en", nil))
	if !strings.Contains(body, "Invalid or incomplete link.") {
		t.Fatalf("english page not rendered:\n%s", body)
	}
	if c := findCookie(resp, "colive_lang"); c == nil || c.Value != "en" {
		t.Fatalf("language cookie = %+v", c)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.RateLimit = config.RateLimitConfig{PerSecond: 0.001, Burst: 1}
	})

	first := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	if resp, _ := env.do(t, first); resp.StatusCode == http.StatusTooManyRequests {
		t.Fatal("first request rate limited")
	}

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/callback", nil))
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if !strings.Contains(body, "Demasiados intentos") {
		t.Fatalf("rate limit message = %q", body)
	}

	if resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/", nil)); resp.StatusCode != http.StatusOK {
		t.Fatal("landing page must not be rate limited")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		snap flow.Snapshot
		want int
	}{
		{flow.Snapshot{State: flow.StateSuccess}, http.StatusOK},
		{flow.Snapshot{State: flow.StateIdle, Ready: true}, http.StatusOK},
		{flow.Snapshot{State: flow.StateError, Message: flow.MsgLinkInvalid}, http.StatusBadRequest},
		{flow.Snapshot{State: flow.StateError, Message: flow.MsgResetTooShort}, http.StatusBadRequest},
		{flow.Snapshot{State: flow.StateError, Message: flow.MsgResetNotReady}, http.StatusBadRequest},
		{flow.Snapshot{State: flow.StateError, Message: flow.MsgConfirmFailed}, http.StatusBadGateway},
		{flow.Snapshot{State: flow.StateError, Message: flow.MsgUnexpected}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		if got := statusFor(tt.snap); got != tt.want {
			t.Errorf("statusFor(%s/%s) = %d, want %d", tt.snap.State, tt.snap.Message, got, tt.want)
		}
	}
}

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fuomag9/colive-web/internal/config"
)

// Client talks to a GoTrue-compatible identity provider (Supabase Auth)
type Client struct {
	baseURL    string
	anonKey    string
	claims     *ClaimsParser
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new identity client
func NewClient(cfg config.IdentityConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("identity provider URL is not configured")
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("invalid identity provider URL: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/") + "/auth/v1",
		anonKey: cfg.AnonKey,
		claims:  NewClaimsParser(cfg.JWTSecret),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}, nil
}

// VerifyRecoveryToken redeems a password-recovery token hash for a session
func (c *Client) VerifyRecoveryToken(ctx context.Context, tokenHash string) (*Session, error) {
	body := map[string]string{
		"type":       "recovery",
		"token_hash": tokenHash,
	}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/verify", "", body, &session); err != nil {
		return nil, err
	}
	return c.finishSession(&session)
}

// ExchangeCodeForSession redeems a PKCE authorization code for a session.
// The verifier may be empty when the flow was started outside this site.
func (c *Client) ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*Session, error) {
	body := map[string]string{
		"auth_code":     code,
		"code_verifier": codeVerifier,
	}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=pkce", "", body, &session); err != nil {
		return nil, err
	}
	return c.finishSession(&session)
}

// RefreshSession trades a refresh token for a new session
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrNoSession
	}

	body := map[string]string{"refresh_token": refreshToken}

	var session Session
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &session); err != nil {
		return nil, err
	}
	return c.finishSession(&session)
}

// UpdateUserPassword sets a new password for the user owning the session
func (c *Client) UpdateUserPassword(ctx context.Context, session *Session, newPassword string) error {
	if session == nil || session.AccessToken == "" {
		return ErrNoSession
	}

	body := map[string]string{"password": newPassword}
	return c.do(ctx, http.MethodPut, "/user", session.AccessToken, body, nil)
}

// GetUser fetches the user behind an access token
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, ErrNoSession
	}

	var user User
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("user response missing id")
	}
	return &user, nil
}

// CurrentSession returns a usable session: the given one while its access token
// is live, a refreshed one once it has expired.
func (c *Client) CurrentSession(ctx context.Context, session *Session) (*Session, error) {
	if session == nil || session.AccessToken == "" {
		return nil, ErrNoSession
	}

	claims, err := c.claims.Parse(session.AccessToken)
	if err != nil && !errors.Is(err, ErrTokenExpired) {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	if err == nil && (claims.ExpiresAt.IsZero() || claims.ExpiresAt.After(c.now())) {
		return session, nil
	}

	refreshed, err := c.RefreshSession(ctx, session.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return refreshed, nil
}

func (c *Client) finishSession(session *Session) (*Session, error) {
	if session.AccessToken == "" {
		return nil, fmt.Errorf("session response missing access_token")
	}

	if session.User.ID == "" || session.ExpiresAt == 0 {
		claims, err := c.claims.Parse(session.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("invalid access token: %w", err)
		}
		if session.User.ID == "" {
			session.User.ID = claims.Subject
			session.User.Email = claims.Email
		}
		if session.ExpiresAt == 0 && !claims.ExpiresAt.IsZero() {
			session.ExpiresAt = claims.ExpiresAt.Unix()
		}
	}

	if session.ExpiresAt == 0 && session.ExpiresIn > 0 {
		session.ExpiresAt = c.now().Add(time.Duration(session.ExpiresIn) * time.Second).Unix()
	}

	return session, nil
}

// do issues a JSON request against the identity API and decodes the response into out
func (c *Client) do(ctx context.Context, method, path, accessToken string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	switch {
	case accessToken != "":
		req.Header.Set("Authorization", "Bearer "+accessToken)
	case c.anonKey != "":
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return decodeError(resp.StatusCode, raw)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode identity response: %w", err)
	}
	return nil
}

package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of access-token claims used by the site
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

type accessTokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// ClaimsParser reads access-token claims. With a secret it also verifies the
// HS256 signature; without one the token is only decoded.
type ClaimsParser struct {
	secret []byte
}

// NewClaimsParser creates a parser; an empty secret disables signature checks
func NewClaimsParser(secret string) *ClaimsParser {
	p := &ClaimsParser{}
	if secret != "" {
		p.secret = []byte(secret)
	}
	return p
}

// Parse decodes the token. Expired tokens return the claims together with ErrTokenExpired.
func (p *ClaimsParser) Parse(token string) (*Claims, error) {
	var raw accessTokenClaims

	if p.secret == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(token, &raw); err != nil {
			return nil, fmt.Errorf("decode access token: %w", err)
		}
		claims := toClaims(&raw)
		if !claims.ExpiresAt.IsZero() && !claims.ExpiresAt.After(time.Now()) {
			return claims, ErrTokenExpired
		}
		return claims, nil
	}

	_, err := jwt.ParseWithClaims(token, &raw, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return toClaims(&raw), ErrTokenExpired
		}
		return nil, fmt.Errorf("verify access token: %w", err)
	}
	return toClaims(&raw), nil
}

func toClaims(raw *accessTokenClaims) *Claims {
	claims := &Claims{
		Subject: raw.Subject,
		Email:   raw.Email,
	}
	if raw.ExpiresAt != nil {
		claims.ExpiresAt = raw.ExpiresAt.Time
	}
	return claims
}

// Package auth issues and verifies the session tokens of the API.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName carries the session token for browser requests.
	CookieName = "session_token"

	DefaultTTL = 24 * time.Hour
)

var (
	// ErrNoToken is returned when a request carries no session token.
	ErrNoToken = errors.New("no authorization token found")

	// ErrInvalidToken is returned for malformed, expired or forged tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the JWT claims of a session token. The subject is the user ID.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a Tokens with the given signing secret.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime of issued tokens.
func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue signs a token for userID.
func (t *Tokens) Issue(userID, email, name string) (string, error) {
	now := t.now()
	claims := Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns its claims.
func (t *Tokens) Parse(tokenString string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &claims, nil
}

// FromHeaders extracts the session token from a Bearer Authorization
// header or the session cookie. Header names match case-insensitively.
func FromHeaders(headers map[string]string) (string, error) {
	header := func(name string) string {
		for k, v := range headers {
			if strings.EqualFold(k, name) {
				return v
			}
		}
		return ""
	}

	if v, ok := strings.CutPrefix(header("Authorization"), "Bearer "); ok && v != "" {
		return v, nil
	}
	for _, part := range strings.Split(header("Cookie"), ";") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(part), CookieName+"="); ok && v != "" {
			return v, nil
		}
	}
	return "", ErrNoToken
}

// Cookie returns a Set-Cookie value carrying token. Cross-site deployments
// need SameSite=None; same-origin development uses Lax.
func Cookie(token string, maxAge time.Duration, crossSite bool) string {
	sameSite := "Lax"
	if crossSite {
		sameSite = "None"
	}
	return fmt.Sprintf("%s=%s; HttpOnly; Path=/; Max-Age=%d; SameSite=%s; Secure", CookieName, token, int(maxAge.Seconds()), sameSite)
}

// Package verifier lets a resource server check authcore access tokens offline with the
// shared HMAC secret, without calling the authcore service.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrWrongTokenType   = errors.New("not an access token")
	ErrMissingToken     = errors.New("missing bearer token")
	ErrSecretTooShort   = errors.New("secret must be at least 32 bytes")
	ErrMissingPermission = errors.New("missing permission")
)

// Claims are the fields authcore writes into an access token.
type Claims struct {
	jwt.RegisteredClaims
	Email       string   `json:"email"`
	Permissions []string `json:"permissions"`
	TokenType   string   `json:"tokenType"`
}

// HasPermission reports whether the token carries name. The list is a snapshot taken at
// issue time; it goes stale until the token is refreshed.
func (c *Claims) HasPermission(name string) bool {
	for _, p := range c.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// Verifier checks signature, issuer, audience, expiry and token type.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// Option configures a Verifier.
type Option func(*[]jwt.ParserOption)

// WithLeeway tolerates clock skew between authcore and the resource server.
func WithLeeway(d time.Duration) Option {
	return func(opts *[]jwt.ParserOption) { *opts = append(*opts, jwt.WithLeeway(d)) }
}

// WithTimeFunc overrides the clock, mainly for tests.
func WithTimeFunc(now func() time.Time) Option {
	return func(opts *[]jwt.ParserOption) { *opts = append(*opts, jwt.WithTimeFunc(now)) }
}

// New creates a Verifier for tokens issued by issuer for audience.
func New(secret []byte, issuer, audience string, opts ...Option) (*Verifier, error) {
	if len(secret) < 32 {
		return nil, ErrSecretTooShort
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	}
	for _, opt := range opts {
		opt(&parserOpts)
	}
	return &Verifier{
		secret: append([]byte(nil), secret...),
		parser: jwt.NewParser(parserOpts...),
	}, nil
}

// Verify parses token and returns its claims when every check passes.
func (v *Verifier) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.TokenType != "access" {
		return nil, ErrWrongTokenType
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

type contextKey struct{}

// FromContext returns the claims stored by Middleware.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok
}

// Middleware rejects requests without a valid access token, and without permission when
// permission is not empty.
func (v *Verifier) Middleware(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				http.Error(w, ErrMissingToken.Error(), http.StatusUnauthorized)
				return
			}
			claims, err := v.Verify(strings.TrimSpace(token))
			if err != nil {
				http.Error(w, ErrInvalidToken.Error(), http.StatusUnauthorized)
				return
			}
			if permission != "" && !claims.HasPermission(permission) {
				http.Error(w, ErrMissingPermission.Error(), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, claims)))
		})
	}
}

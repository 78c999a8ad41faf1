// Package service provides the domain services of the authcore security core.
package service

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// placeholderSecrets are well-known default secrets that must never sign production tokens.
var placeholderSecrets = []string{
	"secret",
	"changeme",
	"change-me",
	"your-secret-key",
	"your-256-bit-secret",
	"default-secret-key",
	"mysecretkey",
	"please-change-this-secret-key-in-production",
	"authcore-default-signing-secret-change-me",
}

// DefaultPlaceholderSecret is the value shipped in the default configuration. It is rejected at startup.
const DefaultPlaceholderSecret = "authcore-default-signing-secret-change-me"

// TokenServiceConfig holds the immutable signing configuration.
type TokenServiceConfig struct {
	Secret     []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService issues and validates HS256-signed access and refresh tokens.
// It performs no I/O and is safe for concurrent use.
type TokenService struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	metrics    Metrics
	logger     logger.Logger
}

// TokenServiceOption customizes a TokenService.
type TokenServiceOption func(*TokenService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTokenMetrics sets the metrics sink.
func WithTokenMetrics(m Metrics) TokenServiceOption {
	return func(s *TokenService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTokenLogger sets the logger.
func WithTokenLogger(l logger.Logger) TokenServiceOption {
	return func(s *TokenService) {
		if l != nil {
			s.logger = l.WithComponent("token_service")
		}
	}
}

// NewTokenService validates the signing key and builds the service. A placeholder or short
// secret is rejected here so a misconfigured process never starts.
func NewTokenService(cfg TokenServiceConfig, opts ...TokenServiceOption) (*TokenService, error) {
	if err := checkSigningSecret(cfg.Secret); err != nil {
		return nil, err
	}

	s := &TokenService{
		secret:     append([]byte(nil), cfg.Secret...),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
		metrics:    NoopMetrics{},
		logger:     logger.NewNoopLogger(),
	}
	if s.issuer == "" {
		s.issuer = constants.DefaultIssuer
	}
	if s.audience == "" {
		s.audience = constants.DefaultAudience
	}
	if s.accessTTL <= 0 {
		s.accessTTL = constants.AccessTokenDefaultTTL
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = constants.RefreshTokenDefaultTTL
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func checkSigningSecret(secret []byte) error {
	trimmed := strings.ToLower(strings.TrimSpace(string(secret)))
	if trimmed == "" {
		return errors.ErrInsecureSigningKey("secret is empty")
	}
	for _, placeholder := range placeholderSecrets {
		if trimmed == placeholder {
			return errors.ErrInsecureSigningKey("secret is a known placeholder value")
		}
	}
	if len(secret) < constants.MinSigningKeyBytes {
		return errors.ErrInsecureSigningKey("secret must be at least 32 bytes")
	}
	return nil
}

// ================================================================================
// Issuance
// ================================================================================

// GenerateAccessToken issues an access token embedding the permission set.
func (s *TokenService) GenerateAccessToken(userID, email string, permissions []string) (models.Token, error) {
	return s.issue(constants.TokenTypeAccess, userID, email, permissions, s.now())
}

// GenerateRefreshToken issues a refresh token. It carries no permissions.
func (s *TokenService) GenerateRefreshToken(userID, email string) (models.Token, error) {
	return s.issue(constants.TokenTypeRefresh, userID, email, nil, s.now())
}

// GenerateTokenPair issues an access and a refresh token at the same instant.
func (s *TokenService) GenerateTokenPair(userID, email string, permissions []string) (models.TokenPair, error) {
	now := s.now()
	access, err := s.issue(constants.TokenTypeAccess, userID, email, permissions, now)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, err := s.issue(constants.TokenTypeRefresh, userID, email, nil, now)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *TokenService) issue(tokenType constants.TokenType, userID, email string, permissions []string, now time.Time) (models.Token, error) {
	if strings.TrimSpace(userID) == "" {
		return models.Token{}, errors.ErrInvalidArgument("userId", "must not be blank")
	}
	if strings.TrimSpace(email) == "" {
		return models.Token{}, errors.ErrInvalidArgument("email", "must not be blank")
	}

	ttl := s.accessTTL
	if tokenType == constants.TokenTypeRefresh {
		ttl = s.refreshTTL
	}
	issuedAt := now.Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)

	claims := jwt.MapClaims{
		constants.ClaimSubject:   userID,
		constants.ClaimEmail:     email,
		constants.ClaimTokenType: string(tokenType),
		constants.ClaimJTI:       uuid.NewString(),
		constants.ClaimIssuer:    s.issuer,
		constants.ClaimAudience:  s.audience,
		constants.ClaimIssuedAt:  issuedAt.Unix(),
		constants.ClaimExpiresAt: expiresAt.Unix(),
	}
	if tokenType == constants.TokenTypeAccess {
		claims[constants.ClaimPermissions] = permissionSet(permissions)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		s.logger.Error(context.Background(), "Failed to sign token", err, logger.String("token_type", string(tokenType)))
		return models.Token{}, errors.ErrInfrastructure("token signing", err)
	}

	s.metrics.RecordTokenIssued(tokenType)
	return models.Token{Value: signed, ExpiresAt: expiresAt, Type: tokenType}, nil
}

// permissionSet deduplicates and sorts permission names, dropping blanks.
func permissionSet(permissions []string) []string {
	set := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		if p = strings.TrimSpace(p); p != "" {
			set[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ================================================================================
// Validation
// ================================================================================

// ValidateToken verifies signature, issuer, audience and expiry. It never returns an error:
// every failure is reported as an invalid result.
func (s *TokenService) ValidateToken(token string) models.TokenValidation {
	return s.validate(token, "")
}

// ValidateAccessToken is ValidateToken restricted to access tokens.
func (s *TokenService) ValidateAccessToken(token string) models.TokenValidation {
	return s.validate(token, constants.TokenTypeAccess)
}

// ValidateRefreshToken is ValidateToken restricted to refresh tokens.
func (s *TokenService) ValidateRefreshToken(token string) models.TokenValidation {
	return s.validate(token, constants.TokenTypeRefresh)
}

func (s *TokenService) validate(token string, expected constants.TokenType) models.TokenValidation {
	result := s.parse(token, expected)
	if !result.Valid {
		s.metrics.RecordTokenValidation(result.Failure)
	}
	return result
}

func (s *TokenService) parse(token string, expected constants.TokenType) models.TokenValidation {
	if strings.TrimSpace(token) == "" {
		return invalid(models.TokenFailureMalformed, "token is empty")
	}

	parser := jwt.NewParser(
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)

	claims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, stderrors.New("unsupported signing algorithm")
		}
		return s.secret, nil
	})
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenMalformed) && signatureUndecodable(token) {
			return invalid(models.TokenFailureBadSignature, "token signature is invalid")
		}
		return classify(err)
	}

	subject, _ := claims[constants.ClaimSubject].(string)
	if subject == "" {
		return invalid(models.TokenFailureOtherInvalid, "token has no subject")
	}
	tokenType, _ := claims[constants.ClaimTokenType].(string)
	if expected != "" && tokenType != string(expected) {
		return invalid(models.TokenFailureOtherInvalid, "unexpected token type")
	}

	out := make(map[string]interface{}, len(claims))
	for k, v := range claims {
		out[k] = v
	}
	return models.TokenValidation{Valid: true, Claims: out}
}

func classify(err error) models.TokenValidation {
	switch {
	case stderrors.Is(err, jwt.ErrTokenMalformed):
		return invalid(models.TokenFailureMalformed, "token is malformed")
	case stderrors.Is(err, jwt.ErrTokenUnverifiable):
		return invalid(models.TokenFailureUnsupportedFormat, "token format is not supported")
	case stderrors.Is(err, jwt.ErrTokenSignatureInvalid):
		return invalid(models.TokenFailureBadSignature, "token signature is invalid")
	case stderrors.Is(err, jwt.ErrTokenExpired):
		return invalid(models.TokenFailureExpired, "token has expired")
	default:
		return invalid(models.TokenFailureOtherInvalid, "token is invalid")
	}
}

// signatureUndecodable reports a token whose header and payload decode but whose signature
// segment is not strict base64url, which is an altered signature rather than a malformed token.
func signatureUndecodable(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	enc := base64.RawURLEncoding.Strict()
	for _, part := range parts[:2] {
		if _, err := enc.DecodeString(part); err != nil {
			return false
		}
	}
	_, err := enc.DecodeString(parts[2])
	return err != nil
}

func invalid(failure models.TokenFailure, reason string) models.TokenValidation {
	return models.TokenValidation{Valid: false, Failure: failure, Reason: reason}
}

// ================================================================================
// Claim Extraction
// ================================================================================

// ExtractUserID returns the subject of a valid token.
func (s *TokenService) ExtractUserID(token string) (string, bool) {
	return s.stringClaim(token, constants.ClaimSubject)
}

// ExtractUserEmail returns the email claim of a valid token.
func (s *TokenService) ExtractUserEmail(token string) (string, bool) {
	return s.stringClaim(token, constants.ClaimEmail)
}

// ExtractPermissions returns the permission set of a valid access token.
func (s *TokenService) ExtractPermissions(token string) ([]string, bool) {
	result := s.ValidateToken(token)
	if !result.Valid {
		return nil, false
	}
	return PermissionsFromClaims(result.Claims)
}

// IsTokenExpired reports whether token is expired. Anything that cannot be validated counts as expired.
func (s *TokenService) IsTokenExpired(token string) bool {
	return !s.ValidateToken(token).Valid
}

func (s *TokenService) stringClaim(token, name string) (string, bool) {
	result := s.ValidateToken(token)
	if !result.Valid {
		return "", false
	}
	value, ok := result.Claims[name].(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// PermissionsFromClaims reads the permissions claim of a decoded claim map.
func PermissionsFromClaims(claims map[string]interface{}) ([]string, bool) {
	raw, ok := claims[constants.ClaimPermissions].([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		name, ok := v.(string)
		if !ok {
			return nil, false
		}
		out = append(out, name)
	}
	return out, true
}

//Personal.AI order the ending

// Package constants defines system-wide constants for the authcore security core.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Token Constants
// ================================================================================

// TokenType represents the type of a signed session token
type TokenType string

const (
	// TokenTypeAccess represents a short-lived access token carrying permissions
	TokenTypeAccess TokenType = "access"

	// TokenTypeRefresh represents a long-lived refresh token without permissions
	TokenTypeRefresh TokenType = "refresh"

	// TokenTypeBearer is the scheme used in the HTTP Authorization header
	TokenTypeBearer = "Bearer"
)

const (
	// AccessTokenDefaultTTL is the default lifetime for access tokens (900 seconds)
	AccessTokenDefaultTTL = 900 * time.Second

	// RefreshTokenDefaultTTL is the default lifetime for refresh tokens (604800 seconds)
	RefreshTokenDefaultTTL = 604800 * time.Second

	// DefaultIssuer is the issuer written into every token unless configured otherwise
	DefaultIssuer = "authcore"

	// DefaultAudience is the audience written into every token unless configured otherwise
	DefaultAudience = "authcore-clients"

	// MinSigningKeyBytes is the shortest HMAC secret accepted at startup
	MinSigningKeyBytes = 32
)

// Claim names embedded in issued tokens.
const (
	ClaimSubject     = "sub"
	ClaimEmail       = "email"
	ClaimPermissions = "permissions"
	ClaimTokenType   = "tokenType"
	ClaimJTI         = "jti"
	ClaimIssuer      = "iss"
	ClaimAudience    = "aud"
	ClaimIssuedAt    = "iat"
	ClaimExpiresAt   = "exp"
)

// ================================================================================
// Cache Constants
// ================================================================================

const (
	// CacheKeyUserByEmail prefixes the user-by-email family
	CacheKeyUserByEmail = "auth:user:email:"

	// CacheKeyUserPermissions prefixes the permission-set-by-user-id family
	CacheKeyUserPermissions = "auth:user:permissions:"

	// CacheKeyPermissionCheck prefixes the permission-check-result family
	CacheKeyPermissionCheck = "auth:permission:check:"

	// CacheKeyRateLimit prefixes every rate-limit counter and block record
	CacheKeyRateLimit = "auth:ratelimit:"

	// RateLimitBlockSuffix is appended to a counter key to form its block record key
	RateLimitBlockSuffix = ":block"
)

const (
	// UserByEmailCacheTTL is the lifetime of a cached user profile (300 seconds)
	UserByEmailCacheTTL = 300 * time.Second

	// UserPermissionsCacheTTL is the lifetime of a cached permission set (600 seconds)
	UserPermissionsCacheTTL = 600 * time.Second

	// PermissionCheckCacheTTL is the lifetime of a cached permission decision (300 seconds)
	PermissionCheckCacheTTL = 300 * time.Second

	// NegativeCacheTTL is the lifetime of a confirmed-absent marker
	NegativeCacheTTL = 60 * time.Second
)

// ================================================================================
// Rate Limit Constants
// ================================================================================

// LimitType is the dimension a rate-limit record is keyed by
type LimitType string

const (
	// LimitTypeByIP limits attempts per client address
	LimitTypeByIP LimitType = "BY_IP"

	// LimitTypeByUser limits attempts per account identifier
	LimitTypeByUser LimitType = "BY_USER"

	// LimitTypeByGlobal limits attempts across all callers of an endpoint
	LimitTypeByGlobal LimitType = "BY_GLOBAL"
)

// Human-readable denial reasons returned by the limiter.
const (
	RateLimitReasonExceeded = "rate limit exceeded"
	RateLimitReasonBlocked  = "temporarily blocked"
)

// ================================================================================
// Username Constants
// ================================================================================

const (
	// UsernameMinLength is the shortest accepted username
	UsernameMinLength = 3

	// UsernameMaxLength is the longest accepted username
	UsernameMaxLength = 64

	// EmailMaxLength is the longest accepted normalized email address
	EmailMaxLength = 254

	// MaxCollisionAttempts bounds numeric suffixing during username resolution
	MaxCollisionAttempts = 100

	// MaxUsernameLookupFailures is the number of failed existence checks tolerated in one resolution
	MaxUsernameLookupFailures = 10

	// UsernameFallbackFragmentLength is the length of the random hex fragment used by the fallback
	UsernameFallbackFragmentLength = 8
)

// ================================================================================
// Audit Event Constants
// ================================================================================

// AuditEventType represents different types of auditable events
type AuditEventType string

const (
	AuditEventTokenIssued            AuditEventType = "token.issued"
	AuditEventTokenRefreshed         AuditEventType = "token.refreshed"
	AuditEventAuthenticationFailed   AuditEventType = "authentication.failed"
	AuditEventAuthenticationSuccess  AuditEventType = "authentication.succeeded"
	AuditEventCacheHit               AuditEventType = "cache.hit"
	AuditEventCacheMiss              AuditEventType = "cache.miss"
	AuditEventCacheInvalidated       AuditEventType = "cache.invalidated"
	AuditEventUsernameCollision      AuditEventType = "username.collision_attempt"
	AuditEventUsernameFallback       AuditEventType = "username.fallback"
	AuditEventRateLimitBlocked       AuditEventType = "ratelimit.blocked"
	AuditEventRateLimitBlockRemoved  AuditEventType = "ratelimit.block_removed"
	AuditEventAuthorizationEvaluated AuditEventType = "authorization.evaluated"
)

// ================================================================================
// Logging & Context Constants
// ================================================================================

// LogLevel represents the severity level of log messages
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

// ContextKey represents keys used in context.Context
type ContextKey string

const (
	// ContextKeyRequestID is the key for request ID in context
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyUserID is the key for the authenticated principal id in context
	ContextKeyUserID ContextKey = "user_id"

	// ContextKeyClientIP is the key for the caller address in context
	ContextKeyClientIP ContextKey = "client_ip"
)

//Personal.AI order the ending

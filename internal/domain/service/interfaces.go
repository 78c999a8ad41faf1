package service

import (
	"context"
	"time"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
)

// KeyValueStore is the shared store behind the permission cache and the rate limiter.
// Implementations must return found=false (not an error) for missing keys.
// KeyValueStore 是权限缓存与限流器共享的键值存储。
type KeyValueStore interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key with the given TTL. A zero TTL keeps the key without expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// Delete removes every given key. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// ScanKeysByPrefix returns every key starting with prefix.
	ScanKeysByPrefix(ctx context.Context, prefix string) ([]string, error)

	// ZAdd adds member with score to the sorted set at key.
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRemRangeByScore removes members whose score lies in [min, max].
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) error

	// ZCard returns the number of members of the sorted set at key.
	ZCard(ctx context.Context, key string) (int64, error)

	// Expire refreshes the TTL of key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// PermissionCache is the cache-aside layer for the three permission key families.
// Reads never fail: any read problem is reported as models.CacheMiss.
type PermissionCache interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, models.CacheLookup)
	PutUserByEmail(ctx context.Context, email string, user *models.User) error
	PutUserAbsent(ctx context.Context, email string) error
	GetUserPermissions(ctx context.Context, userID string) ([]models.Permission, models.CacheLookup)
	PutUserPermissions(ctx context.Context, userID string, perms []models.Permission) error
	PutUserPermissionsAbsent(ctx context.Context, userID string) error
	GetPermissionCheck(ctx context.Context, userID, permissionKey string) (bool, models.CacheLookup)
	PutPermissionCheck(ctx context.Context, userID, permissionKey string, allowed bool) error
	InvalidateUser(ctx context.Context, userID, email string) error
}

// RateLimiter is the sliding-window abuse limiter keyed by (identifier, endpoint, limitType).
type RateLimiter interface {
	Check(ctx context.Context, identifier, endpoint string, limitType constants.LimitType) (models.RateLimitResult, error)
	RecordFailedAttempt(ctx context.Context, identifier, endpoint string, limitType constants.LimitType) (models.RateLimitResult, error)
	RecordSuccessfulAttempt(ctx context.Context, identifier, endpoint string, limitType constants.LimitType) error
	TemporaryBlock(ctx context.Context, identifier, endpoint string, limitType constants.LimitType, duration time.Duration) (time.Time, error)
	RemoveBlock(ctx context.Context, identifier, endpoint string, limitType constants.LimitType) error
	Status(ctx context.Context, identifier, endpoint string, limitType constants.LimitType) (models.RateLimitStatus, error)
}

// UsernameChecker reports whether a username is already taken.
type UsernameChecker interface {
	Exists(ctx context.Context, username string) (bool, error)
}

// PermissionSource is the authoritative source of effective permissions.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, userID string) ([]models.Permission, error)
}

// UserDirectory resolves users by email. A missing user is reported as found=false.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, bool, error)
}

// CredentialVerifier checks a login secret for an email and returns the principal on success.
// A wrong secret or unknown email returns ok=false with a nil error.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (user *models.User, ok bool, err error)
}

// AuditSink receives structured audit events. Callers never fail a primary operation on its error.
// AuditSink 接收结构化审计事件，其失败不得影响主流程。
type AuditSink interface {
	Emit(ctx context.Context, event models.AuditEvent) error
}

//Personal.AI order the ending


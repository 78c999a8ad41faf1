// Package cache implements the cache-aside layer in front of the permission source.
//
// Three independent key families share one store:
//
//	auth:user:email:<email>                        user profile        (300s)
//	auth:user:permissions:<userId>                 effective set       (600s)
//	auth:permission:check:<userId>:<permissionKey> check decision      (300s)
//
// Every value is a JSON envelope. A confirmed-absent marker is stored with its own shorter TTL
// and is reported as LookupAbsent, never as a miss and never as a grant.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// Family names used in logs and metrics.
const (
	FamilyUserByEmail     = "user_by_email"
	FamilyUserPermissions = "user_permissions"
	FamilyPermissionCheck = "permission_check"
)

// Lookup is the outcome of a cache read.
type Lookup = models.CacheLookup

// Lookup outcomes, re-exported for callers of this package.
const (
	LookupMiss   = models.CacheMiss
	LookupHit    = models.CacheHit
	LookupAbsent = models.CacheAbsent
)

// TTLs holds the lifetime of each family.
type TTLs struct {
	UserByEmail     time.Duration
	UserPermissions time.Duration
	PermissionCheck time.Duration
	Negative        time.Duration
}

// TTLsFrom reads the lifetimes from configuration.
func TTLsFrom(cfg config.CacheConfig) TTLs {
	return TTLs{
		UserByEmail:     cfg.UserByEmailTTL,
		UserPermissions: cfg.UserPermissionsTTL,
		PermissionCheck: cfg.PermissionCheckTTL,
		Negative:        cfg.NegativeTTL,
	}
}

// Longest returns the longest positive lifetime, the bound on how long an entry can outlive
// a directory change when nobody invalidates it.
func (t TTLs) Longest() time.Duration {
	longest := t.UserByEmail
	for _, d := range []time.Duration{t.UserPermissions, t.PermissionCheck} {
		if d > longest {
			longest = d
		}
	}
	return longest
}

// DefaultTTLs returns the built-in lifetimes.
func DefaultTTLs() TTLs {
	return TTLs{
		UserByEmail:     constants.UserByEmailCacheTTL,
		UserPermissions: constants.UserPermissionsCacheTTL,
		PermissionCheck: constants.PermissionCheckCacheTTL,
		Negative:        constants.NegativeCacheTTL,
	}
}

var _ service.PermissionCache = (*PermissionCache)(nil)

type envelope struct {
	Absent  bool            `json:"absent,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PermissionCache reads degrade to LookupMiss on any store or decode failure. Writes and
// invalidation return their errors.
type PermissionCache struct {
	store   service.KeyValueStore
	ttls    TTLs
	metrics service.Metrics
	audit   service.AuditSink
	logger  logger.Logger
}

// NewPermissionCache creates the cache. metrics, audit and log may be nil.
func NewPermissionCache(store service.KeyValueStore, ttls TTLs, metrics service.Metrics, audit service.AuditSink, log logger.Logger) *PermissionCache {
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}
	defaults := DefaultTTLs()
	if ttls.UserByEmail <= 0 {
		ttls.UserByEmail = defaults.UserByEmail
	}
	if ttls.UserPermissions <= 0 {
		ttls.UserPermissions = defaults.UserPermissions
	}
	if ttls.PermissionCheck <= 0 {
		ttls.PermissionCheck = defaults.PermissionCheck
	}
	if ttls.Negative <= 0 {
		ttls.Negative = defaults.Negative
	}
	return &PermissionCache{
		store:   store,
		ttls:    ttls,
		metrics: metrics,
		audit:   audit,
		logger:  log.WithComponent("permission_cache"),
	}
}

// ================================================================================
// Key scheme
// ================================================================================

// UserByEmailKey returns auth:user:email:<email>.
func UserByEmailKey(email string) string {
	return constants.CacheKeyUserByEmail + email
}

// UserPermissionsKey returns auth:user:permissions:<userId>.
func UserPermissionsKey(userID string) string {
	return constants.CacheKeyUserPermissions + userID
}

// PermissionCheckKey returns auth:permission:check:<userId>:<permissionKey>.
func PermissionCheckKey(userID, permissionKey string) string {
	return PermissionCheckPrefix(userID) + permissionKey
}

// PermissionCheckPrefix returns the prefix shared by every check decision of userID.
func PermissionCheckPrefix(userID string) string {
	return constants.CacheKeyPermissionCheck + userID + ":"
}

// ================================================================================
// User by email
// ================================================================================

// GetUserByEmail reads the user-by-email family.
func (c *PermissionCache) GetUserByEmail(ctx context.Context, email string) (*models.User, Lookup) {
	var user models.User
	lookup := c.read(ctx, FamilyUserByEmail, UserByEmailKey(email), &user)
	if lookup != LookupHit {
		return nil, lookup
	}
	return &user, LookupHit
}

// PutUserByEmail caches user under email.
func (c *PermissionCache) PutUserByEmail(ctx context.Context, email string, user *models.User) error {
	return c.write(ctx, FamilyUserByEmail, UserByEmailKey(email), user, c.ttls.UserByEmail)
}

// PutUserAbsent stores a confirmed-absent marker for email.
func (c *PermissionCache) PutUserAbsent(ctx context.Context, email string) error {
	return c.writeAbsent(ctx, FamilyUserByEmail, UserByEmailKey(email))
}

// ================================================================================
// Permission set by user id
// ================================================================================

// GetUserPermissions reads the effective permission set of userID.
func (c *PermissionCache) GetUserPermissions(ctx context.Context, userID string) ([]models.Permission, Lookup) {
	var perms []models.Permission
	lookup := c.read(ctx, FamilyUserPermissions, UserPermissionsKey(userID), &perms)
	if lookup != LookupHit {
		return nil, lookup
	}
	if perms == nil {
		perms = []models.Permission{}
	}
	return perms, LookupHit
}

// PutUserPermissions caches the effective permission set of userID.
func (c *PermissionCache) PutUserPermissions(ctx context.Context, userID string, perms []models.Permission) error {
	if perms == nil {
		perms = []models.Permission{}
	}
	return c.write(ctx, FamilyUserPermissions, UserPermissionsKey(userID), perms, c.ttls.UserPermissions)
}

// PutUserPermissionsAbsent marks userID as unknown to the permission source.
func (c *PermissionCache) PutUserPermissionsAbsent(ctx context.Context, userID string) error {
	return c.writeAbsent(ctx, FamilyUserPermissions, UserPermissionsKey(userID))
}

// ================================================================================
// Permission check decisions
// ================================================================================

// GetPermissionCheck reads a prior decision. The bool is meaningful only for LookupHit.
func (c *PermissionCache) GetPermissionCheck(ctx context.Context, userID, permissionKey string) (bool, Lookup) {
	var allowed bool
	lookup := c.read(ctx, FamilyPermissionCheck, PermissionCheckKey(userID, permissionKey), &allowed)
	if lookup != LookupHit {
		return false, lookup
	}
	return allowed, LookupHit
}

// PutPermissionCheck caches a decision.
func (c *PermissionCache) PutPermissionCheck(ctx context.Context, userID, permissionKey string, allowed bool) error {
	return c.write(ctx, FamilyPermissionCheck, PermissionCheckKey(userID, permissionKey), allowed, c.ttls.PermissionCheck)
}

// ================================================================================
// Invalidation
// ================================================================================

// InvalidateUser removes every cached entry of a principal: its profile, its permission set
// and all check decisions found by prefix scan. Any store failure is returned; a partial
// invalidation is an error, not a success.
func (c *PermissionCache) InvalidateUser(ctx context.Context, userID, email string) error {
	keys := make([]string, 0, 2)
	if email != "" {
		keys = append(keys, UserByEmailKey(email))
	}
	if userID != "" {
		keys = append(keys, UserPermissionsKey(userID))
	}
	if len(keys) == 0 {
		return errors.ErrInvalidArgument("userId", "userId or email is required")
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.Error(ctx, "Failed to invalidate user cache", err, logger.String("user_id", userID))
		return err
	}

	removed := len(keys)
	if userID != "" {
		checks, err := c.store.ScanKeysByPrefix(ctx, PermissionCheckPrefix(userID))
		if err != nil {
			c.logger.Error(ctx, "Failed to scan permission check keys", err, logger.String("user_id", userID))
			return err
		}
		if len(checks) > 0 {
			if err := c.store.Delete(ctx, checks...); err != nil {
				c.logger.Error(ctx, "Failed to delete permission check keys", err, logger.String("user_id", userID))
				return err
			}
		}
		removed += len(checks)
	}

	c.logger.Info(ctx, "User cache invalidated",
		logger.String("user_id", userID),
		logger.Int("keys", removed))
	c.emit(ctx, constants.AuditEventCacheInvalidated, userID, "all")
	return nil
}

// ================================================================================
// Envelope codec
// ================================================================================

func (c *PermissionCache) read(ctx context.Context, family, key string, out interface{}) Lookup {
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn(ctx, "Cache read failed, treating as miss",
			logger.String("family", family),
			logger.Error(err))
		return c.observe(ctx, family, LookupMiss)
	}
	if !found {
		return c.observe(ctx, family, LookupMiss)
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		c.logger.Warn(ctx, "Undecodable cache entry, treating as miss",
			logger.String("family", family),
			logger.Error(err))
		return c.observe(ctx, family, LookupMiss)
	}
	if env.Absent {
		return c.observe(ctx, family, LookupAbsent)
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		c.logger.Warn(ctx, "Undecodable cache payload, treating as miss",
			logger.String("family", family),
			logger.Error(err))
		return c.observe(ctx, family, LookupMiss)
	}
	return c.observe(ctx, family, LookupHit)
}

func (c *PermissionCache) write(ctx context.Context, family, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return errors.ErrInfrastructure("cache encode", err)
	}
	return c.put(ctx, family, key, envelope{Payload: payload}, ttl)
}

func (c *PermissionCache) writeAbsent(ctx context.Context, family, key string) error {
	return c.put(ctx, family, key, envelope{Absent: true}, c.ttls.Negative)
}

func (c *PermissionCache) put(ctx context.Context, family, key string, env envelope, ttl time.Duration) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return errors.ErrInfrastructure("cache encode", err)
	}
	if err := c.store.Set(ctx, key, string(raw), ttl); err != nil {
		c.metrics.RecordCacheWriteFailure(family)
		return err
	}
	return nil
}

func (c *PermissionCache) observe(ctx context.Context, family string, lookup Lookup) Lookup {
	c.metrics.RecordCacheAccess(family, lookup.String())
	eventType := constants.AuditEventCacheMiss
	if lookup != LookupMiss {
		eventType = constants.AuditEventCacheHit
	}
	c.emit(ctx, eventType, "", family)
	return lookup
}

func (c *PermissionCache) emit(ctx context.Context, eventType constants.AuditEventType, subject, family string) {
	if c.audit == nil {
		return
	}
	event := models.AuditEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Subject:    subject,
		Success:    true,
		OccurredAt: time.Now().UTC(),
		Attributes: map[string]string{"family": family},
	}
	if err := c.audit.Emit(ctx, event); err != nil {
		c.logger.Debug(ctx, "Failed to emit cache audit event", logger.Error(err))
	}
}

// Package ratelimit provides the sliding-window abuse limiter.
//
// Each (limitType, endpoint, identifier) owns two keys in the shared store:
//
//	auth:ratelimit:<limitType>:<endpoint>:<identifier>        sorted set of attempt timestamps (ms)
//	auth:ratelimit:<limitType>:<endpoint>:<identifier>:block  block expiry (unix ms), TTL = block duration
//
// Trim, add and count run as back-to-back store operations. Concurrent writers may double count
// briefly; the next check converges.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// Decision outcomes reported to metrics.
const (
	outcomeAllowed  = "allowed"
	outcomeExceeded = "exceeded"
	outcomeBlocked  = "blocked"
)

var _ service.RateLimiter = (*SlidingWindowLimiter)(nil)

type policySet map[constants.LimitType]models.RateLimitPolicy

// SlidingWindowLimiter implements the rate-limit state machine on a service.KeyValueStore.
type SlidingWindowLimiter struct {
	store    service.KeyValueStore
	policies atomic.Pointer[policySet]
	now      func() time.Time
	metrics  service.Metrics
	audit    service.AuditSink
	logger   logger.Logger
}

// Option customizes a SlidingWindowLimiter.
type Option func(*SlidingWindowLimiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *SlidingWindowLimiter) { l.now = now }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m service.Metrics) Option {
	return func(l *SlidingWindowLimiter) { l.metrics = m }
}

// WithAudit sets the audit sink used for block events.
func WithAudit(a service.AuditSink) Option {
	return func(l *SlidingWindowLimiter) { l.audit = a }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(l *SlidingWindowLimiter) { l.logger = log.WithComponent("rate_limiter") }
}

// NewSlidingWindowLimiter creates a limiter. A nil policies map selects the defaults.
func NewSlidingWindowLimiter(store service.KeyValueStore, policies map[constants.LimitType]models.RateLimitPolicy, opts ...Option) (*SlidingWindowLimiter, error) {
	l := &SlidingWindowLimiter{
		store:   store,
		now:     time.Now,
		metrics: service.NoopMetrics{},
		logger:  logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if policies == nil {
		policies = models.DefaultRateLimitPolicies()
	}
	if err := l.SetPolicies(policies); err != nil {
		return nil, err
	}
	return l, nil
}

// SetPolicies atomically replaces the policy table. Records already in the store keep their
// keys; only the thresholds applied on the next call change.
func (l *SlidingWindowLimiter) SetPolicies(policies map[constants.LimitType]models.RateLimitPolicy) error {
	next := make(policySet, len(policies))
	for limitType, p := range policies {
		if p.MaxAttempts <= 0 || p.Window <= 0 || p.Block <= 0 {
			return errors.ErrInvalidArgument("policy", fmt.Sprintf("%s requires positive attempts, window and block", limitType))
		}
		next[limitType] = p
	}
	l.policies.Store(&next)
	l.logger.Info(context.Background(), "Rate limit policies applied", logger.Int("policies", len(next)))
	return nil
}

// Policy returns the active policy for limitType.
func (l *SlidingWindowLimiter) Policy(limitType constants.LimitType) (models.RateLimitPolicy, error) {
	p, ok := (*l.policies.Load())[limitType]
	if !ok {
		return models.RateLimitPolicy{}, errors.ErrInvalidArgument("limitType", "unknown limit type "+string(limitType))
	}
	return p, nil
}

// ================================================================================
// Checks
// ================================================================================

// Check reports whether one more attempt is allowed. It does not record anything.
// An active block wins over the attempt counter. Store failures are returned, never allowed.
func (l *SlidingWindowLimiter) Check(ctx context.Context, identifier, endpoint string, limitType constants.LimitType) (models.RateLimitResult, error) {
	key, policy, err := l.prepare(identifier, endpoint, limitType)
	if err != nil {
		return models.RateLimitResult{}, err
	}
	now := l.now()

	blockedUntil, blocked, err := l.activeBlock(ctx, key, now)
	if err != nil {
		return models.RateLimitResult{}, err
	}
	if blocked {
		l.metrics.RecordRateLimitDecision(limitType, outcomeBlocked)
		return blockedResult(blockedUntil), nil
	}

	count, err := l.trimAndCount(ctx, key, policy, now)
	if err != nil {
		return models.RateLimitResult{}, err
	}
	if count >= policy.MaxAttempts {
		l.metrics.RecordRateLimitDecision(limitType, outcomeExceeded)
		return models.RateLimitResult{Allowed: false, Remaining: 0, Reason: constants.RateLimitReasonExceeded}, nil
	}

	l.metrics.RecordRateLimitDecision(limitType, outcomeAllowed)
	return models.RateLimitResult{Allowed: true, Remaining: policy.MaxAttempts - count}, nil
}

// RecordFailedAttempt appends an attempt, trims the window and blocks the record once the
// count reaches MaxAttempts. The returned result describes the state after recording.
func (l *SlidingWindowLimiter) RecordFailedAttempt(ctx context.Context, identifier, endpoint string, limitType constants.LimitType) (models.RateLimitResult, error) {
	key, policy, err := l.prepare(identifier, endpoint, limitType)
	if err != nil {
		return models.RateLimitResult{}, err
	}
	now := l.now()
	nowMs := now.UnixMilli()

	member := strconv.FormatInt(nowMs, 10) + "-" + uuid.NewString()
	if err := l.store.ZAdd(ctx, key, float64(nowMs), member); err != nil {
		return models.RateLimitResult{}, err
	}
	count, err := l.trimAndCount(ctx, key, policy, now)
	if err != nil {
		return models.RateLimitResult{}, err
	}
	if err := l.store.Expire(ctx, key, policy.Window); err != nil {
		return models.RateLimitResult{}, err
	}

	if count < policy.MaxAttempts {
		return models.RateLimitResult{Allowed: true, Remaining: policy.MaxAttempts - count}, nil
	}

	until, err := l.block(ctx, key, policy.Block, now)
	if err != nil {
		return models.RateLimitResult{}, err
	}
	l.logger.Warn(ctx, "Rate limit threshold reached, identifier blocked",
		logger.String("limit_type", string(limitType)),
		logger.String("endpoint", endpoint),
		logger.Int("attempts", count),
		logger.Duration("block", policy.Block),
	)
	l.emit(ctx, constants.AuditEventRateLimitBlocked, identifier, endpoint, limitType)
	return blockedResult(&until), nil
}

// RecordSuccessfulAttempt clears the counter and any block.
func (l *SlidingWindowLimiter) RecordSuccessfulAttempt(ctx context.Context, identifier, endpoint string, limitType constants.LimitType) error {
	return l.Reset(ctx, identifier, endpoint, limitType)
}

// Reset deletes both keys of a record.
func (l *SlidingWindowLimiter) Reset(ctx context.Context, identifier, endpoint string, limitType constants.LimitType) error {
	key, _, err := l.prepare(identifier, endpoint, limitType)
	if err != nil {
		return err
	}
	return l.store.Delete(ctx, key, blockKey(key))
}

// TemporaryBlock blocks a record for duration regardless of its counter.
func (l *SlidingWindowLimiter) TemporaryBlock(ctx context.Context, identifier, endpoint string, limitType constants.LimitType, duration time.Duration) (time.Time, error) {
	if duration <= 0 {
		return time.Time{}, errors.ErrInvalidArgument("duration", "must be positive")
	}
	key, _, err := l.prepare(identifier, endpoint, limitType)
	if err != nil {
		return time.Time{}, err
	}
	until, err := l.block(ctx, key, duration, l.now())
	if err != nil {
		return time.Time{}, err
	}
	l.logger.Info(ctx, "Identifier blocked by operator",
		logger.String("limit_type", string(limitType)),
		logger.String("endpoint", endpoint),
		logger.Duration("duration", duration),
	)
	l.emit(ctx, constants.AuditEventRateLimitBlocked, identifier, endpoint, limitType)
	return until, nil
}

// RemoveBlock deletes the block record only. The counter is left untouched.
func (l *SlidingWindowLimiter) RemoveBlock(ctx context.Context, identifier, endpoint string, limitType constants.LimitType) error {
	key, _, err := l.prepare(identifier, endpoint, limitType)
	if err != nil {
		return err
	}
	if err := l.store.Delete(ctx, blockKey(key)); err != nil {
		return err
	}
	l.emit(ctx, constants.AuditEventRateLimitBlockRemoved, identifier, endpoint, limitType)
	return nil
}

// Status returns the attempt count and block expiry without recording an attempt. Expired
// entries are trimmed from the window as in Check.
func (l *SlidingWindowLimiter) Status(ctx context.Context, identifier, endpoint string, limitType constants.LimitType) (models.RateLimitStatus, error) {
	key, policy, err := l.prepare(identifier, endpoint, limitType)
	if err != nil {
		return models.RateLimitStatus{}, err
	}
	now := l.now()
	count, err := l.trimAndCount(ctx, key, policy, now)
	if err != nil {
		return models.RateLimitStatus{}, err
	}
	status := models.RateLimitStatus{
		Identifier:  identifier,
		Endpoint:    endpoint,
		LimitType:   limitType,
		Attempts:    count,
		MaxAttempts: policy.MaxAttempts,
	}
	until, blocked, err := l.activeBlock(ctx, key, now)
	if err != nil {
		return models.RateLimitStatus{}, err
	}
	if blocked {
		status.BlockedUntil = until
	}
	return status, nil
}

// ================================================================================
// Store helpers
// ================================================================================

func (l *SlidingWindowLimiter) prepare(identifier, endpoint string, limitType constants.LimitType) (string, models.RateLimitPolicy, error) {
	if strings.TrimSpace(identifier) == "" {
		return "", models.RateLimitPolicy{}, errors.ErrInvalidArgument("identifier", "must not be blank")
	}
	if strings.TrimSpace(endpoint) == "" {
		return "", models.RateLimitPolicy{}, errors.ErrInvalidArgument("endpoint", "must not be blank")
	}
	policy, err := l.Policy(limitType)
	if err != nil {
		return "", models.RateLimitPolicy{}, err
	}
	return CounterKey(identifier, endpoint, limitType), policy, nil
}

// trimAndCount drops entries aged >= the window, then counts what is left.
func (l *SlidingWindowLimiter) trimAndCount(ctx context.Context, key string, policy models.RateLimitPolicy, now time.Time) (int, error) {
	cutoff := now.Add(-policy.Window).UnixMilli()
	if err := l.store.ZRemRangeByScore(ctx, key, math.Inf(-1), float64(cutoff)); err != nil {
		return 0, err
	}
	n, err := l.store.ZCard(ctx, key)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (l *SlidingWindowLimiter) block(ctx context.Context, key string, duration time.Duration, now time.Time) (time.Time, error) {
	until := now.Add(duration)
	value := strconv.FormatInt(until.UnixMilli(), 10)
	if err := l.store.Set(ctx, blockKey(key), value, duration); err != nil {
		return time.Time{}, err
	}
	return until, nil
}

// activeBlock reads the block record. An unparseable record counts as blocked.
func (l *SlidingWindowLimiter) activeBlock(ctx context.Context, key string, now time.Time) (*time.Time, bool, error) {
	raw, found, err := l.store.Get(ctx, blockKey(key))
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		l.logger.Warn(ctx, "Unreadable block record, treating as blocked", logger.String("key", blockKey(key)))
		return nil, true, nil
	}
	until := time.UnixMilli(ms)
	if !now.Before(until) {
		return nil, false, nil
	}
	return &until, true, nil
}

func (l *SlidingWindowLimiter) emit(ctx context.Context, eventType constants.AuditEventType, identifier, endpoint string, limitType constants.LimitType) {
	if l.audit == nil {
		return
	}
	event := models.AuditEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Subject:    identifier,
		Success:    true,
		OccurredAt: l.now().UTC(),
		Attributes: map[string]string{"endpoint": endpoint, "limit_type": string(limitType)},
	}
	if err := l.audit.Emit(ctx, event); err != nil {
		l.logger.Warn(ctx, "Failed to emit audit event", logger.String("event_type", string(eventType)), logger.Error(err))
	}
}

func blockedResult(until *time.Time) models.RateLimitResult {
	return models.RateLimitResult{
		Allowed:      false,
		Remaining:    0,
		Reason:       constants.RateLimitReasonBlocked,
		Blocked:      true,
		BlockedUntil: until,
	}
}

// CounterKey returns the store key of a rate-limit record.
func CounterKey(identifier, endpoint string, limitType constants.LimitType) string {
	return constants.CacheKeyRateLimit + string(limitType) + ":" + endpoint + ":" + identifier
}

func blockKey(counterKey string) string {
	return counterKey + constants.RateLimitBlockSuffix
}

//Personal.AI order the ending

package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// Outcomes recorded for every resolver step.
const (
	usernameOutcomeAvailable   = "available"
	usernameOutcomeTaken       = "taken"
	usernameOutcomeLookupError = "lookup_error"
	usernameOutcomeFallback    = "fallback"
	usernameOutcomeExhausted   = "exhausted"
)

// ResolvedUsername is the outcome of a collision resolution.
// ResolvedUsername 是用户名冲突解析的结果。
type ResolvedUsername struct {
	// Username is the chosen, unused username.
	Username string

	// Attempts is the number of candidates checked for existence.
	Attempts int

	// UsedFallback is true when the name carries a random fragment instead of a numeric suffix.
	UsedFallback bool
}

// UsernameResolver picks a free username for a new account. The base is tried first, then
// base2, base3, ... until a free candidate is found, the candidate would exceed the length
// limit (random fallback), or the attempt ceiling is reached (limit error).
type UsernameResolver struct {
	checker UsernameChecker
	audit   AuditSink
	metrics Metrics
	logger  logger.Logger
	now     func() time.Time
}

// NewUsernameResolver creates a resolver. audit, metrics and log may be nil.
func NewUsernameResolver(checker UsernameChecker, audit AuditSink, metrics Metrics, log logger.Logger) *UsernameResolver {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &UsernameResolver{
		checker: checker,
		audit:   audit,
		metrics: metrics,
		logger:  log.WithComponent("username_resolver"),
		now:     time.Now,
	}
}

// ResolveCollision returns the first free candidate derived from base. base must already be normalized.
//
// Errors:
//   - ErrInvalidArgument when base is blank or too long
//   - ErrUsernameGenerationLimit after MaxCollisionAttempts taken candidates
//   - ErrUsernameGeneration when more than MaxUsernameLookupFailures existence checks fail
func (r *UsernameResolver) ResolveCollision(ctx context.Context, base string) (ResolvedUsername, error) {
	if strings.TrimSpace(base) == "" {
		return ResolvedUsername{}, errors.ErrInvalidArgument("base", "must not be blank")
	}
	if len(base) > constants.UsernameMaxLength {
		return ResolvedUsername{}, errors.ErrInvalidArgument("base", "exceeds 64 characters")
	}

	failures := 0
	for attempt := 1; attempt <= constants.MaxCollisionAttempts; {
		candidate := base
		if attempt > 1 {
			candidate = base + strconv.Itoa(attempt)
		}
		if len(candidate) > constants.UsernameMaxLength {
			r.logger.Debug(ctx, "Numeric suffix exceeds username length, using fallback",
				logger.String("base", base),
				logger.Int("attempt", attempt))
			return r.fallback(ctx, base, attempt-1), nil
		}

		if err := ctx.Err(); err != nil {
			return ResolvedUsername{}, errors.ErrUsernameGeneration(base, err)
		}

		taken, err := r.checker.Exists(ctx, candidate)
		if err != nil {
			failures++
			r.metrics.RecordUsernameAttempt(usernameOutcomeLookupError)
			r.logger.Warn(ctx, "Username existence check failed",
				logger.String("candidate", candidate),
				logger.Int("failures", failures),
				logger.Error(err))
			if failures > constants.MaxUsernameLookupFailures {
				return ResolvedUsername{}, errors.ErrUsernameGeneration(base, err)
			}
			continue
		}

		r.emit(ctx, constants.AuditEventUsernameCollision, candidate, !taken, map[string]string{
			"base":    base,
			"attempt": strconv.Itoa(attempt),
		})

		if !taken {
			r.metrics.RecordUsernameAttempt(usernameOutcomeAvailable)
			return ResolvedUsername{Username: candidate, Attempts: attempt}, nil
		}
		r.metrics.RecordUsernameAttempt(usernameOutcomeTaken)
		attempt++
	}

	r.metrics.RecordUsernameAttempt(usernameOutcomeExhausted)
	return ResolvedUsername{}, errors.ErrUsernameGenerationLimit(base, constants.MaxCollisionAttempts)
}

// Fallback builds base truncated to leave room for a random 8-character hex fragment.
// The result is not checked for existence.
func (r *UsernameResolver) Fallback(ctx context.Context, base string) ResolvedUsername {
	return r.fallback(ctx, base, 0)
}

func (r *UsernameResolver) fallback(ctx context.Context, base string, attempts int) ResolvedUsername {
	limit := constants.UsernameMaxLength - constants.UsernameFallbackFragmentLength
	truncated := base
	if len(truncated) > limit {
		truncated = truncated[:limit]
	}
	fragment := strings.ReplaceAll(uuid.NewString(), "-", "")[:constants.UsernameFallbackFragmentLength]
	username := truncated + fragment

	r.metrics.RecordUsernameAttempt(usernameOutcomeFallback)
	r.emit(ctx, constants.AuditEventUsernameFallback, username, true, map[string]string{
		"base": base,
	})
	return ResolvedUsername{Username: username, Attempts: attempts, UsedFallback: true}
}

// emit is fire-and-forget: a failing sink never fails resolution.
func (r *UsernameResolver) emit(ctx context.Context, eventType constants.AuditEventType, subject string, success bool, attrs map[string]string) {
	if r.audit == nil {
		return
	}
	event := models.AuditEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Subject:    subject,
		Success:    success,
		OccurredAt: r.now().UTC(),
		Attributes: attrs,
	}
	if err := r.audit.Emit(ctx, event); err != nil {
		r.logger.Warn(ctx, "Failed to emit audit event",
			logger.String("event_type", string(eventType)),
			logger.Error(err))
	}
}

package handlers

import (
	"context"
	"strings"

	"github.com/turtacn/authcore/internal/application/bus"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// Dependencies are the collaborators behind the handlers.
type Dependencies struct {
	Tokens      *service.TokenService
	Usernames   *service.UsernameResolver
	Limiter     service.RateLimiter
	Cache       service.PermissionCache
	Permissions service.PermissionSource
	Users       service.UserDirectory
	Credentials service.CredentialVerifier
	Audit       service.AuditSink
	Logger      logger.Logger

	// FailOnCacheWriteError turns a failed cache write-back into a request error.
	FailOnCacheWriteError bool
}

// Handlers implements every command and query handler.
type Handlers struct {
	deps       Dependencies
	authorizer *Authorizer
	logger     logger.Logger
}

// New validates deps and builds the handler set.
func New(deps Dependencies) (*Handlers, error) {
	switch {
	case deps.Tokens == nil:
		return nil, errors.ErrInvalidArgument("tokens", "token service is required")
	case deps.Usernames == nil:
		return nil, errors.ErrInvalidArgument("usernames", "username resolver is required")
	case deps.Limiter == nil:
		return nil, errors.ErrInvalidArgument("limiter", "rate limiter is required")
	case deps.Cache == nil:
		return nil, errors.ErrInvalidArgument("cache", "permission cache is required")
	case deps.Permissions == nil:
		return nil, errors.ErrInvalidArgument("permissions", "permission source is required")
	case deps.Users == nil:
		return nil, errors.ErrInvalidArgument("users", "user directory is required")
	case deps.Credentials == nil:
		return nil, errors.ErrInvalidArgument("credentials", "credential verifier is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNoopLogger()
	}
	return &Handlers{
		deps:       deps,
		authorizer: NewAuthorizer(deps.Cache, deps.Permissions, deps.Audit, deps.Logger, deps.FailOnCacheWriteError),
		logger:     deps.Logger.WithComponent("handlers"),
	}, nil
}

// RegisterAll builds both buses, registers every handler once and seals them.
func RegisterAll(deps Dependencies, opts ...bus.Option) (*bus.CommandBus, *bus.QueryBus, error) {
	h, err := New(deps)
	if err != nil {
		return nil, nil, err
	}

	commands := bus.NewCommandBus(opts...)
	queries := bus.NewQueryBus(opts...)

	for _, register := range []func() error{
		func() error { return bus.RegisterCommand(commands, h.Authenticate) },
		func() error { return bus.RegisterCommand(commands, h.RefreshToken) },
		func() error { return bus.RegisterCommand(commands, h.GenerateUsername) },
		func() error { return bus.RegisterCommand(commands, h.InvalidateUserCache) },
		func() error { return bus.RegisterCommand(commands, h.BlockIdentifier) },
		func() error { return bus.RegisterCommand(commands, h.UnblockIdentifier) },
		func() error { return bus.RegisterCommand(commands, h.RecordFailedAttempt) },
		func() error { return bus.RegisterCommand(commands, h.RecordSuccessfulAttempt) },
		func() error { return bus.RegisterQuery(queries, h.CheckPermission) },
		func() error { return bus.RegisterQuery(queries, h.GetUserPermissions) },
		func() error { return bus.RegisterQuery(queries, h.FindUserByEmail) },
		func() error { return bus.RegisterQuery(queries, h.CheckRateLimit) },
	} {
		if err := register(); err != nil {
			return nil, nil, err
		}
	}

	commands.Seal()
	queries.Seal()
	return commands, queries, nil
}

// ================================================================================
// Authentication
// ================================================================================

// Authenticate checks both rate-limit dimensions, verifies the credentials, records the
// outcome and issues a token pair carrying the effective permission names.
func (h *Handlers) Authenticate(ctx context.Context, cmd AuthenticateCommand) (AuthenticationResult, error) {
	email, err := models.NormalizeEmail(cmd.Email)
	if err != nil {
		return AuthenticationResult{}, err
	}
	if cmd.Password == "" {
		return AuthenticationResult{}, errors.ErrInvalidArgument("password", "must not be blank")
	}

	dims := h.loginDimensions(email, cmd.ClientIP)
	for _, d := range dims {
		res, err := h.deps.Limiter.Check(ctx, d.identifier, EndpointLogin, d.limitType)
		if err != nil {
			return AuthenticationResult{}, err
		}
		if !res.Allowed {
			h.logger.Warn(ctx, "Login rejected by rate limiter",
				logger.String("limit_type", string(d.limitType)),
				logger.String("reason", res.Reason))
			emit(ctx, h.deps.Audit, h.logger, constants.AuditEventAuthenticationFailed, email, false,
				map[string]string{"reason": res.Reason, "limit_type": string(d.limitType)})
			return AuthenticationResult{}, errors.ErrRateLimited(res.Reason, res.Remaining)
		}
	}

	user, ok, err := h.deps.Credentials.VerifyCredentials(ctx, email, cmd.Password)
	if err != nil {
		return AuthenticationResult{}, errors.Wrap(err, errors.KindInfrastructure, errors.CodeInfrastructure, "credential verification failed")
	}
	if !ok || user == nil || !user.Enabled {
		remaining := -1
		for _, d := range dims {
			res, err := h.deps.Limiter.RecordFailedAttempt(ctx, d.identifier, EndpointLogin, d.limitType)
			if err != nil {
				return AuthenticationResult{}, err
			}
			if remaining < 0 || res.Remaining < remaining {
				remaining = res.Remaining
			}
		}
		emit(ctx, h.deps.Audit, h.logger, constants.AuditEventAuthenticationFailed, email, false,
			map[string]string{"reason": "invalid credentials"})
		return AuthenticationResult{}, errors.ErrInvalidCredentials().WithMetadata("remaining", remaining)
	}

	for _, d := range dims {
		if err := h.deps.Limiter.RecordSuccessfulAttempt(ctx, d.identifier, EndpointLogin, d.limitType); err != nil {
			return AuthenticationResult{}, err
		}
	}

	result, err := h.issue(ctx, *user)
	if err != nil {
		return AuthenticationResult{}, err
	}
	emit(ctx, h.deps.Audit, h.logger, constants.AuditEventAuthenticationSuccess, user.ID, true, nil)
	emit(ctx, h.deps.Audit, h.logger, constants.AuditEventTokenIssued, user.ID, true,
		map[string]string{"flow": "login"})
	return result, nil
}

// RefreshToken validates a refresh token and re-issues a pair with the current permissions.
// A principal that no longer exists or was disabled cannot refresh.
func (h *Handlers) RefreshToken(ctx context.Context, cmd RefreshTokenCommand) (AuthenticationResult, error) {
	validation := h.deps.Tokens.ValidateRefreshToken(cmd.RefreshToken)
	if !validation.Valid {
		if cmd.ClientIP != "" {
			if _, err := h.deps.Limiter.RecordFailedAttempt(ctx, cmd.ClientIP, EndpointRefresh, constants.LimitTypeByIP); err != nil {
				return AuthenticationResult{}, err
			}
		}
		return AuthenticationResult{}, errors.ErrInvalidToken(validation.Reason).
			WithMetadata("failure", string(validation.Failure))
	}

	email, _ := validation.Claims[constants.ClaimEmail].(string)
	subject, _ := validation.Claims[constants.ClaimSubject].(string)
	user, err := h.FindUserByEmail(ctx, FindUserByEmailQuery{Email: email})
	if errors.IsNotFoundError(err) {
		return AuthenticationResult{}, errors.ErrInvalidToken("token subject is no longer valid")
	}
	if err != nil {
		return AuthenticationResult{}, err
	}
	if user.ID != subject || !user.Enabled {
		return AuthenticationResult{}, errors.ErrInvalidToken("token subject is no longer valid")
	}

	result, err := h.issue(ctx, *user)
	if err != nil {
		return AuthenticationResult{}, err
	}
	emit(ctx, h.deps.Audit, h.logger, constants.AuditEventTokenRefreshed, user.ID, true, nil)
	return result, nil
}

func (h *Handlers) issue(ctx context.Context, user models.User) (AuthenticationResult, error) {
	perms, err := h.authorizer.Permissions(ctx, user.ID)
	if err != nil {
		return AuthenticationResult{}, err
	}
	names := models.PermissionNames(perms)
	pair, err := h.deps.Tokens.GenerateTokenPair(user.ID, user.Email, names)
	if err != nil {
		return AuthenticationResult{}, err
	}
	return AuthenticationResult{User: user, Tokens: pair, Permissions: names}, nil
}

type dimension struct {
	identifier string
	limitType  constants.LimitType
}

func (h *Handlers) loginDimensions(email, clientIP string) []dimension {
	dims := []dimension{{identifier: email, limitType: constants.LimitTypeByUser}}
	if ip := strings.TrimSpace(clientIP); ip != "" {
		dims = append([]dimension{{identifier: ip, limitType: constants.LimitTypeByIP}}, dims...)
	}
	return dims
}

// ================================================================================
// Users
// ================================================================================

// GenerateUsername derives a base, validates it and resolves collisions. When numeric
// suffixing runs out of attempts the random fallback is used.
func (h *Handlers) GenerateUsername(ctx context.Context, cmd GenerateUsernameCommand) (service.ResolvedUsername, error) {
	var base string
	if preferred := models.NormalizeUsername(cmd.Preferred); preferred != "" {
		if err := models.ValidateUsername(preferred); err != nil {
			return service.ResolvedUsername{}, err
		}
		base = preferred
	} else {
		email, err := models.NormalizeEmail(cmd.Email)
		if err != nil {
			return service.ResolvedUsername{}, err
		}
		base = models.DeriveUsernameBase(email)
	}

	resolved, err := h.deps.Usernames.ResolveCollision(ctx, base)
	if errors.HasCode(err, errors.CodeUsernameGenerationLimit) {
		h.logger.Warn(ctx, "Username suffixes exhausted, using fallback", logger.String("base", base))
		return h.deps.Usernames.Fallback(ctx, base), nil
	}
	return resolved, err
}

// FindUserByEmail reads the user-by-email family and falls through to the directory on a miss.
// Confirmed-absent users are cached with the negative TTL.
func (h *Handlers) FindUserByEmail(ctx context.Context, q FindUserByEmailQuery) (*models.User, error) {
	email, err := models.NormalizeEmail(q.Email)
	if err != nil {
		return nil, err
	}

	user, lookup := h.deps.Cache.GetUserByEmail(ctx, email)
	switch lookup {
	case models.CacheHit:
		return user, nil
	case models.CacheAbsent:
		return nil, errors.ErrNotFound("user")
	}

	user, found, err := h.deps.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInfrastructure, errors.CodeInfrastructure, "user lookup failed")
	}
	if !found {
		if err := applyWritePolicy(ctx, h.logger, h.deps.FailOnCacheWriteError, h.deps.Cache.PutUserAbsent(ctx, email)); err != nil {
			return nil, err
		}
		return nil, errors.ErrNotFound("user")
	}
	if err := applyWritePolicy(ctx, h.logger, h.deps.FailOnCacheWriteError, h.deps.Cache.PutUserByEmail(ctx, email, user)); err != nil {
		return nil, err
	}
	return user, nil
}

// InvalidateUserCache removes every cached entry of a principal. Failures are returned.
func (h *Handlers) InvalidateUserCache(ctx context.Context, cmd InvalidateUserCacheCommand) (Done, error) {
	email := ""
	if strings.TrimSpace(cmd.Email) != "" {
		normalized, err := models.NormalizeEmail(cmd.Email)
		if err != nil {
			return Done{}, err
		}
		email = normalized
	}
	if err := h.deps.Cache.InvalidateUser(ctx, strings.TrimSpace(cmd.UserID), email); err != nil {
		return Done{}, err
	}
	return Done{}, nil
}

// ================================================================================
// Authorization
// ================================================================================

// CheckPermission is the Authorizer.
func (h *Handlers) CheckPermission(ctx context.Context, q CheckPermissionQuery) (bool, error) {
	return h.authorizer.Check(ctx, q)
}

// GetUserPermissions returns the effective permission set.
func (h *Handlers) GetUserPermissions(ctx context.Context, q GetUserPermissionsQuery) ([]models.Permission, error) {
	return h.authorizer.Permissions(ctx, q.UserID)
}

// ================================================================================
// Rate limiting
// ================================================================================

// CheckRateLimit reports whether one more attempt is allowed.
func (h *Handlers) CheckRateLimit(ctx context.Context, q CheckRateLimitQuery) (models.RateLimitResult, error) {
	return h.deps.Limiter.Check(ctx, q.Identifier, q.Endpoint, q.LimitType)
}

// RecordFailedAttempt records one failed attempt.
func (h *Handlers) RecordFailedAttempt(ctx context.Context, cmd RecordFailedAttemptCommand) (models.RateLimitResult, error) {
	return h.deps.Limiter.RecordFailedAttempt(ctx, cmd.Identifier, cmd.Endpoint, cmd.LimitType)
}

// RecordSuccessfulAttempt resets a record.
func (h *Handlers) RecordSuccessfulAttempt(ctx context.Context, cmd RecordSuccessfulAttemptCommand) (Done, error) {
	return Done{}, h.deps.Limiter.RecordSuccessfulAttempt(ctx, cmd.Identifier, cmd.Endpoint, cmd.LimitType)
}

// BlockIdentifier applies an operator block.
func (h *Handlers) BlockIdentifier(ctx context.Context, cmd BlockIdentifierCommand) (BlockResult, error) {
	until, err := h.deps.Limiter.TemporaryBlock(ctx, cmd.Identifier, cmd.Endpoint, cmd.LimitType, cmd.Duration)
	if err != nil {
		return BlockResult{}, err
	}
	return BlockResult{BlockedUntil: until}, nil
}

// UnblockIdentifier removes an operator or threshold block.
func (h *Handlers) UnblockIdentifier(ctx context.Context, cmd UnblockIdentifierCommand) (Done, error) {
	return Done{}, h.deps.Limiter.RemoveBlock(ctx, cmd.Identifier, cmd.Endpoint, cmd.LimitType)
}

//Personal.AI order the ending

// Package handlers contains the command and query handlers reachable through the dispatch buses.
package handlers

import (
	"time"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
)

// Endpoint names used as the rate-limit record dimension.
const (
	EndpointLogin   = "login"
	EndpointRefresh = "refresh"
)

// ================================================================================
// Commands
// ================================================================================

// AuthenticateCommand verifies credentials and issues a token pair.
type AuthenticateCommand struct {
	Email    string
	Password string
	ClientIP string
}

// AuthenticationResult is returned by AuthenticateCommand and RefreshTokenCommand.
type AuthenticationResult struct {
	User        models.User
	Tokens      models.TokenPair
	Permissions []string
}

// RefreshTokenCommand exchanges a refresh token for a new pair with current permissions.
type RefreshTokenCommand struct {
	RefreshToken string
	ClientIP     string
}

// GenerateUsernameCommand picks a free username for a new account. Preferred, when set,
// replaces the base derived from Email.
type GenerateUsernameCommand struct {
	Email     string
	Preferred string
}

// InvalidateUserCacheCommand drops every cached entry of a principal.
type InvalidateUserCacheCommand struct {
	UserID string
	Email  string
}

// BlockIdentifierCommand blocks a rate-limit record for Duration.
type BlockIdentifierCommand struct {
	Identifier string
	Endpoint   string
	LimitType  constants.LimitType
	Duration   time.Duration
}

// BlockResult reports when an operator block ends.
type BlockResult struct {
	BlockedUntil time.Time
}

// UnblockIdentifierCommand removes the block record of a rate-limit record.
type UnblockIdentifierCommand struct {
	Identifier string
	Endpoint   string
	LimitType  constants.LimitType
}

// RecordFailedAttemptCommand records one failed attempt.
type RecordFailedAttemptCommand struct {
	Identifier string
	Endpoint   string
	LimitType  constants.LimitType
}

// RecordSuccessfulAttemptCommand resets a rate-limit record.
type RecordSuccessfulAttemptCommand struct {
	Identifier string
	Endpoint   string
	LimitType  constants.LimitType
}

// Done is the empty result of commands that only report success or failure.
type Done struct{}

// ================================================================================
// Queries
// ================================================================================

// CheckPermissionQuery asks whether UserID holds Permission (exact name) or, when Permission
// is empty, any permission on Resource/Action.
type CheckPermissionQuery struct {
	UserID     string
	Resource   string
	Action     string
	Permission string
}

// GetUserPermissionsQuery returns the effective permission set of UserID.
type GetUserPermissionsQuery struct {
	UserID string
}

// FindUserByEmailQuery resolves a user by email through the user-by-email cache family.
type FindUserByEmailQuery struct {
	Email string
}

// CheckRateLimitQuery reports whether one more attempt is allowed.
type CheckRateLimitQuery struct {
	Identifier string
	Endpoint   string
	LimitType  constants.LimitType
}

//Personal.AI order the ending

package models

import (
	"time"

	"github.com/turtacn/authcore/pkg/constants"
)

// RateLimitPolicy bounds attempts for one LimitType.
type RateLimitPolicy struct {
	MaxAttempts int           `json:"max_attempts"`
	Window      time.Duration `json:"window"`
	Block       time.Duration `json:"block"`
}

// DefaultRateLimitPolicies returns the built-in policies.
func DefaultRateLimitPolicies() map[constants.LimitType]RateLimitPolicy {
	return map[constants.LimitType]RateLimitPolicy{
		constants.LimitTypeByIP:     {MaxAttempts: 5, Window: 15 * time.Minute, Block: 60 * time.Minute},
		constants.LimitTypeByUser:   {MaxAttempts: 3, Window: 15 * time.Minute, Block: 30 * time.Minute},
		constants.LimitTypeByGlobal: {MaxAttempts: 100, Window: time.Minute, Block: 5 * time.Minute},
	}
}

// RateLimitResult is the outcome of a limiter check or update.
type RateLimitResult struct {
	Allowed      bool       `json:"allowed"`
	Remaining    int        `json:"remaining"`
	Reason       string     `json:"reason,omitempty"`
	Blocked      bool       `json:"blocked"`
	BlockedUntil *time.Time `json:"blocked_until,omitempty"`
}

// RateLimitStatus is a read-only view of one rate-limit record.
type RateLimitStatus struct {
	Identifier   string              `json:"identifier"`
	Endpoint     string              `json:"endpoint"`
	LimitType    constants.LimitType `json:"limit_type"`
	Attempts     int                 `json:"attempts"`
	MaxAttempts  int                 `json:"max_attempts"`
	BlockedUntil *time.Time          `json:"blocked_until,omitempty"`
}

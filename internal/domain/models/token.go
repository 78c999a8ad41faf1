// Package models defines the domain models for the authcore security core.
// This file contains the Token domain model.
package models

import (
	"time"

	"github.com/turtacn/authcore/pkg/constants"
)

// Token is a signed session token together with its expiry and type.
// Token 是一个已签名的会话令牌，包含其过期时间和类型。
type Token struct {
	// Value is the compact serialized JWT.
	// Value 是紧凑序列化的 JWT。
	Value string `json:"value"`

	// ExpiresAt is the instant after which the token is no longer valid.
	// ExpiresAt 是令牌失效的时间点。
	ExpiresAt time.Time `json:"expires_at"`

	// Type is either access or refresh.
	// Type 为 access 或 refresh。
	Type constants.TokenType `json:"type"`
}

// IsExpired reports whether the token is expired at now. A token is valid strictly before ExpiresAt.
// IsExpired 判断令牌在 now 时刻是否已过期。
func (t Token) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TokenPair groups an access token with its refresh token, both issued at the same instant.
// TokenPair 将同一时刻签发的访问令牌与刷新令牌组合在一起。
type TokenPair struct {
	AccessToken  Token `json:"access_token"`
	RefreshToken Token `json:"refresh_token"`
}

// TokenFailure classifies why a token failed validation.
// TokenFailure 描述令牌验证失败的原因。
type TokenFailure string

const (
	TokenFailureNone              TokenFailure = ""
	TokenFailureExpired           TokenFailure = "expired"
	TokenFailureMalformed         TokenFailure = "malformed"
	TokenFailureUnsupportedFormat TokenFailure = "unsupported_format"
	TokenFailureBadSignature      TokenFailure = "bad_signature"
	TokenFailureOtherInvalid      TokenFailure = "invalid"
)

// TokenValidation is the fail-closed outcome of validating a token. Claims is only set when Valid is true.
// TokenValidation 是令牌验证的结果，仅在 Valid 为 true 时携带 Claims。
type TokenValidation struct {
	Valid   bool
	Failure TokenFailure
	Reason  string
	Claims  map[string]interface{}
}

// IsValid reports whether the token passed every check.
func (v TokenValidation) IsValid() bool {
	return v.Valid
}

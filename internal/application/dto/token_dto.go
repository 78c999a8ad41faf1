// Package dto holds the JSON bodies of the HTTP surface.
package dto

import (
	"time"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
)

// LoginRequest 登录请求 DTO
type LoginRequest struct {
	Email    string `json:"email" binding:"required,max=254"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest 令牌刷新请求 DTO
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenPairResponse 令牌对响应 DTO
type TokenPairResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	TokenType             string    `json:"token_type"`
	ExpiresIn             int64     `json:"expires_in"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	UserID                string    `json:"user_id"`
	Permissions           []string  `json:"permissions"`
}

// NewTokenPairResponse renders pair as seen at now.
func NewTokenPairResponse(user models.User, pair models.TokenPair, permissions []string, now time.Time) TokenPairResponse {
	expiresIn := int64(pair.AccessToken.ExpiresAt.Sub(now).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	if permissions == nil {
		permissions = []string{}
	}
	return TokenPairResponse{
		AccessToken:           pair.AccessToken.Value,
		RefreshToken:          pair.RefreshToken.Value,
		TokenType:             constants.TokenTypeBearer,
		ExpiresIn:             expiresIn,
		AccessTokenExpiresAt:  pair.AccessToken.ExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshToken.ExpiresAt,
		UserID:                user.ID,
		Permissions:           permissions,
	}
}

// PermissionCheckResponse 权限检查结果
type PermissionCheckResponse struct {
	UserID     string `json:"user_id"`
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

// BlockRequest 封禁请求 DTO. Duration uses Go duration syntax, e.g. "30m".
type BlockRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Endpoint   string `json:"endpoint" binding:"required"`
	LimitType  string `json:"limit_type" binding:"required,oneof=BY_IP BY_USER BY_GLOBAL"`
	Duration   string `json:"duration" binding:"required"`
}

// BlockResponse 封禁结果
type BlockResponse struct {
	BlockedUntil time.Time `json:"blocked_until"`
}

// UsernameRequest 用户名生成请求 DTO
type UsernameRequest struct {
	Email     string `json:"email"`
	Preferred string `json:"preferred"`
}

// UsernameResponse 用户名生成结果
type UsernameResponse struct {
	Username     string `json:"username"`
	Attempts     int    `json:"attempts"`
	UsedFallback bool   `json:"used_fallback"`
}

//Personal.AI order the ending

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/turtacn/authcore/internal/application/bus"
	"github.com/turtacn/authcore/internal/application/dto"
	"github.com/turtacn/authcore/internal/application/handlers"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/logger"
)

// Gin context keys set by BearerAuth.
const (
	ContextUserID = "user_id"
	ContextClaims = "claims"
)

// AccessTokenValidator is the part of the token service BearerAuth needs.
type AccessTokenValidator interface {
	ValidateAccessToken(token string) models.TokenValidation
}

// extractBearer extracts the token from the Authorization header.
func extractBearer(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], constants.TokenTypeBearer) {
		return ""
	}
	return parts[1]
}

// BearerAuth 验证 Authorization 头中的访问令牌。
// Any validation failure, including an unreadable subject, ends the request with 401.
func BearerAuth(validator AccessTokenValidator, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractBearer(c.GetHeader("Authorization"))
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.UnauthorizedResponse("missing bearer token", dto.TraceID(c)))
			return
		}

		result := validator.ValidateAccessToken(tokenStr)
		if !result.Valid {
			log.Warn(c.Request.Context(), "access token rejected",
				logger.String("failure", string(result.Failure)),
				logger.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.UnauthorizedResponse(result.Reason, dto.TraceID(c)))
			return
		}

		userID, _ := result.Claims[constants.ClaimSubject].(string)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.UnauthorizedResponse("token has no subject", dto.TraceID(c)))
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextClaims, result.Claims)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), constants.ContextKeyUserID, userID))
		c.Next()
	}
}

// RequirePermission 要求已认证主体拥有指定权限。
// The decision is made against the current permission set, not the token claims, so a
// revoked grant takes effect as soon as the cache entry is invalidated.
func RequirePermission(queries *bus.QueryBus, permission string, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.UnauthorizedResponse("authentication required", dto.TraceID(c)))
			return
		}

		allowed, err := bus.SendQuery[bool](c.Request.Context(), queries, handlers.CheckPermissionQuery{
			UserID:     userID,
			Permission: permission,
		})
		if err != nil {
			log.Error(c.Request.Context(), "permission check failed", err,
				logger.String("user_id", userID),
				logger.String("permission", permission))
			status, body := dto.ErrorResponse(err, dto.TraceID(c))
			c.AbortWithStatusJSON(status, body)
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ForbiddenResponse("missing permission "+permission, dto.TraceID(c)))
			return
		}
		c.Next()
	}
}

//Personal.AI order the ending

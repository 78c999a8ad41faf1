package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/turtacn/authcore/internal/application/bus"
	"github.com/turtacn/authcore/internal/application/dto"
	"github.com/turtacn/authcore/internal/application/handlers"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// RateLimitByIP rejects callers whose address is over the BY_IP policy for endpoint.
// A limiter failure rejects the request with 503; an unavailable limiter never waves traffic through.
func RateLimitByIP(queries *bus.QueryBus, endpoint string, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		result, err := bus.SendQuery[models.RateLimitResult](c.Request.Context(), queries, handlers.CheckRateLimitQuery{
			Identifier: ip,
			Endpoint:   endpoint,
			LimitType:  constants.LimitTypeByIP,
		})
		if err != nil {
			log.Error(c.Request.Context(), "rate limiter failed", err, logger.String("endpoint", endpoint))
			_, body := dto.ErrorResponse(err, dto.TraceID(c))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, body)
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if result.Allowed {
			c.Next()
			return
		}

		if result.BlockedUntil != nil {
			retry := int(time.Until(*result.BlockedUntil).Seconds()) + 1
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
		}
		log.Warn(c.Request.Context(), "rate limit exceeded",
			logger.String("endpoint", endpoint),
			logger.String("reason", result.Reason))
		status, body := dto.ErrorResponse(errors.ErrRateLimited(result.Reason, result.Remaining), dto.TraceID(c))
		c.AbortWithStatusJSON(status, body)
	}
}

//Personal.AI order the ending

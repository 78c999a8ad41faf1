// Package handlers adapts HTTP requests onto the command and query buses.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/authcore/internal/application/dto"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// fail logs err at a level matching its kind and writes the error envelope.
func fail(c *gin.Context, log logger.Logger, operation string, err error) {
	ctx := c.Request.Context()
	switch errors.KindOf(err) {
	case errors.KindValidation, errors.KindNotFound, errors.KindConflict:
		log.Debug(ctx, operation+" rejected", logger.Error(err))
	case errors.KindSecurityInvalid, errors.KindLimitExceeded:
		log.Warn(ctx, operation+" denied", logger.Error(err))
	default:
		log.Error(ctx, operation+" failed", err)
	}
	dto.SendError(c, err)
}

// badRequest reports a body or query string that could not be bound.
func badRequest(c *gin.Context, err error) {
	dto.SendError(c, errors.ErrInvalidArgument("request", err.Error()))
}

//Personal.AI order the ending

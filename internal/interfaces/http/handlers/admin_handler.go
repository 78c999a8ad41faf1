package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/authcore/internal/application/bus"
	"github.com/turtacn/authcore/internal/application/dto"
	app "github.com/turtacn/authcore/internal/application/handlers"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// AdminHandler exposes operator actions. Every route is expected behind RequirePermission.
type AdminHandler struct {
	commands *bus.CommandBus
	log      logger.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(commands *bus.CommandBus, log logger.Logger) *AdminHandler {
	return &AdminHandler{commands: commands, log: log.WithComponent("http.admin")}
}

// InvalidateUserCache drops every cached entry of the user in the path. An optional
// ?email= also drops the user-by-email entry.
func (h *AdminHandler) InvalidateUserCache(c *gin.Context) {
	_, err := bus.SendCommand[app.Done](c.Request.Context(), h.commands, app.InvalidateUserCacheCommand{
		UserID: c.Param("id"),
		Email:  c.Query("email"),
	})
	if err != nil {
		fail(c, h.log, "cache invalidation", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Block applies an operator block to a rate-limit record.
func (h *AdminHandler) Block(c *gin.Context) {
	var req dto.BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		dto.SendError(c, errors.ErrInvalidArgument("duration", err.Error()))
		return
	}

	result, err := bus.SendCommand[app.BlockResult](c.Request.Context(), h.commands, app.BlockIdentifierCommand{
		Identifier: req.Identifier,
		Endpoint:   req.Endpoint,
		LimitType:  constants.LimitType(req.LimitType),
		Duration:   duration,
	})
	if err != nil {
		fail(c, h.log, "block", err)
		return
	}
	dto.SendSuccess(c, http.StatusCreated, dto.BlockResponse{BlockedUntil: result.BlockedUntil})
}

// Unblock removes the block record named by the query string.
func (h *AdminHandler) Unblock(c *gin.Context) {
	_, err := bus.SendCommand[app.Done](c.Request.Context(), h.commands, app.UnblockIdentifierCommand{
		Identifier: c.Query("identifier"),
		Endpoint:   c.Query("endpoint"),
		LimitType:  constants.LimitType(c.Query("limit_type")),
	})
	if err != nil {
		fail(c, h.log, "unblock", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GenerateUsername proposes a free username for a new account.
func (h *AdminHandler) GenerateUsername(c *gin.Context) {
	var req dto.UsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resolved, err := bus.SendCommand[service.ResolvedUsername](c.Request.Context(), h.commands, app.GenerateUsernameCommand{
		Email:     req.Email,
		Preferred: req.Preferred,
	})
	if err != nil {
		fail(c, h.log, "username generation", err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, dto.UsernameResponse{
		Username:     resolved.Username,
		Attempts:     resolved.Attempts,
		UsedFallback: resolved.UsedFallback,
	})
}

//Personal.AI order the ending

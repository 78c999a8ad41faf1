package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/authcore/internal/application/bus"
	"github.com/turtacn/authcore/internal/application/dto"
	app "github.com/turtacn/authcore/internal/application/handlers"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/interfaces/http/middleware"
	"github.com/turtacn/authcore/pkg/logger"
)

// AuthzHandler answers permission questions about the authenticated caller.
type AuthzHandler struct {
	queries *bus.QueryBus
	log     logger.Logger
}

// NewAuthzHandler creates a new AuthzHandler.
func NewAuthzHandler(queries *bus.QueryBus, log logger.Logger) *AuthzHandler {
	return &AuthzHandler{queries: queries, log: log.WithComponent("http.authz")}
}

// Check evaluates ?permission= or ?resource=&action= for the bearer of the request.
// A denial is a normal 200 answer with allowed=false.
func (h *AuthzHandler) Check(c *gin.Context) {
	query := app.CheckPermissionQuery{
		UserID:     c.GetString(middleware.ContextUserID),
		Resource:   c.Query("resource"),
		Action:     c.Query("action"),
		Permission: c.Query("permission"),
	}

	allowed, err := bus.SendQuery[bool](c.Request.Context(), h.queries, query)
	if err != nil {
		fail(c, h.log, "permission check", err)
		return
	}

	name := query.Permission
	if name == "" {
		name = query.Resource + ":" + query.Action
	}
	dto.SendSuccess(c, http.StatusOK, dto.PermissionCheckResponse{
		UserID:     query.UserID,
		Permission: name,
		Allowed:    allowed,
	})
}

// Permissions lists the effective permission names of the caller.
func (h *AuthzHandler) Permissions(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	permissions, err := bus.SendQuery[[]models.Permission](c.Request.Context(), h.queries, app.GetUserPermissionsQuery{UserID: userID})
	if err != nil {
		fail(c, h.log, "permission listing", err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, gin.H{
		"user_id":     userID,
		"permissions": models.PermissionNames(permissions),
	})
}

//Personal.AI order the ending

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/authcore/internal/application/bus"
	"github.com/turtacn/authcore/internal/application/dto"
	app "github.com/turtacn/authcore/internal/application/handlers"
	"github.com/turtacn/authcore/pkg/logger"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	commands *bus.CommandBus
	log      logger.Logger
	now      func() time.Time
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(commands *bus.CommandBus, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		commands: commands,
		log:      log.WithComponent("http.auth"),
		now:      time.Now,
	}
}

// Login exchanges email and password for a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := bus.SendCommand[app.AuthenticationResult](c.Request.Context(), h.commands, app.AuthenticateCommand{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		fail(c, h.log, "login", err)
		return
	}

	dto.SendSuccess(c, http.StatusOK, dto.NewTokenPairResponse(result.User, result.Tokens, result.Permissions, h.now()))
}

// Refresh exchanges a refresh token for a new pair carrying current permissions.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := bus.SendCommand[app.AuthenticationResult](c.Request.Context(), h.commands, app.RefreshTokenCommand{
		RefreshToken: req.RefreshToken,
		ClientIP:     c.ClientIP(),
	})
	if err != nil {
		fail(c, h.log, "refresh", err)
		return
	}

	dto.SendSuccess(c, http.StatusOK, dto.NewTokenPairResponse(result.User, result.Tokens, result.Permissions, h.now()))
}

//Personal.AI order the ending

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesKindAndCode(t *testing.T) {
	inner := ErrCommandNotFound("LoginCommand")
	wrapped := Wrap(fmt.Errorf("dispatch: %w", inner), KindInfrastructure, CodeInfrastructure, "dispatch failed")

	assert.Equal(t, KindNotFound, wrapped.Kind)
	assert.Equal(t, CodeCommandNotFound, wrapped.Code)
	assert.True(t, stderrors.Is(wrapped, ErrCommandNotFound("other")))
}

func TestKindOfForeignErrorIsInfrastructure(t *testing.T) {
	assert.Equal(t, KindInfrastructure, KindOf(stderrors.New("connection reset")))
	assert.Equal(t, KindLimitExceeded, KindOf(ErrUsernameGenerationLimit("john", 100)))
	assert.True(t, IsLimitExceeded(ErrRateLimited("rate limit exceeded", 0)))
	assert.True(t, IsNotFoundError(ErrQueryNotFound("CheckPermissionQuery")))
}

func TestToErrorResponseHidesInfrastructureDetail(t *testing.T) {
	status, body := ToErrorResponse(ErrInfrastructure("redis get", stderrors.New("dial tcp 10.0.0.1:6379: refused")))
	require.NotNil(t, body)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotContains(t, body.ErrorDescription, "10.0.0.1")

	status, body = ToErrorResponse(ErrInvalidToken("token expired"))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, CodeInvalidToken, body.Error)
	assert.Equal(t, "token expired", body.ErrorDescription)
}

func TestStatusForKind(t *testing.T) {
	assert.Equal(t, http.StatusConflict, ErrHandlerRegistration("X").Status)
	assert.Equal(t, http.StatusTooManyRequests, ErrRateLimited("blocked", 0).Status)
	assert.Equal(t, http.StatusBadRequest, ErrInvalidArgument("userId", "must not be blank").Status)
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/authcore/pkg/constants"
)

func TestToken_IsExpired(t *testing.T) {
	expiresAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	token := Token{Value: "x.y.z", ExpiresAt: expiresAt, Type: constants.TokenTypeAccess}

	assert.False(t, token.IsExpired(expiresAt.Add(-time.Second)))
	assert.True(t, token.IsExpired(expiresAt), "expiry instant itself is no longer valid")
	assert.True(t, token.IsExpired(expiresAt.Add(time.Second)))
}

func TestTokenValidation_IsValid(t *testing.T) {
	assert.True(t, TokenValidation{Valid: true}.IsValid())
	assert.False(t, TokenValidation{Failure: TokenFailureExpired}.IsValid())
}

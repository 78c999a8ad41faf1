package verifier_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/sdk/go/verifier"
)

var secret = []byte("0123456789abcdef0123456789abcdef-sdk")

func issuer(t *testing.T) *service.TokenService {
	t.Helper()
	tokens, err := service.NewTokenService(service.TokenServiceConfig{Secret: secret})
	require.NoError(t, err)
	return tokens
}

func TestVerify_AcceptsAccessTokens(t *testing.T) {
	pair, err := issuer(t).GenerateTokenPair("u-1", "alice@example.com", []string{"READ_DOCUMENTS"})
	require.NoError(t, err)

	v, err := verifier.New(secret, constants.DefaultIssuer, constants.DefaultAudience)
	require.NoError(t, err)

	claims, err := v.Verify(pair.AccessToken.Value)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.True(t, claims.HasPermission("READ_DOCUMENTS"))
	assert.False(t, claims.HasPermission("ADMIN_MANAGE"))

	_, err = v.Verify(pair.RefreshToken.Value)
	assert.ErrorIs(t, err, verifier.ErrWrongTokenType)
}

func TestVerify_Rejects(t *testing.T) {
	tok, err := issuer(t).GenerateAccessToken("u-1", "alice@example.com", nil)
	require.NoError(t, err)

	other, err := verifier.New([]byte("another-secret-another-secret-0123"), constants.DefaultIssuer, constants.DefaultAudience)
	require.NoError(t, err)
	_, err = other.Verify(tok.Value)
	assert.ErrorIs(t, err, verifier.ErrInvalidToken)

	wrongAudience, err := verifier.New(secret, constants.DefaultIssuer, "someone-else")
	require.NoError(t, err)
	_, err = wrongAudience.Verify(tok.Value)
	assert.ErrorIs(t, err, verifier.ErrInvalidToken)

	late, err := verifier.New(secret, constants.DefaultIssuer, constants.DefaultAudience,
		verifier.WithTimeFunc(func() time.Time { return time.Now().Add(time.Hour) }))
	require.NoError(t, err)
	_, err = late.Verify(tok.Value)
	assert.ErrorIs(t, err, verifier.ErrInvalidToken)

	_, err = verifier.New([]byte("short"), constants.DefaultIssuer, constants.DefaultAudience)
	assert.ErrorIs(t, err, verifier.ErrSecretTooShort)
}

func TestVerify_RejectsAlteredSignature(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

	tok, err := issuer(t).GenerateAccessToken("u-1", "alice@example.com", []string{"READ_DOCUMENTS"})
	require.NoError(t, err)
	v, err := verifier.New(secret, constants.DefaultIssuer, constants.DefaultAudience)
	require.NoError(t, err)

	parts := strings.Split(tok.Value, ".")
	alter := func(pos int, next func(byte) byte) string {
		sig := []byte(parts[2])
		sig[pos] = next(sig[pos])
		return parts[0] + "." + parts[1] + "." + string(sig)
	}

	for pos := range parts[2] {
		_, err := v.Verify(alter(pos, func(b byte) byte { return b ^ 0x01 }))
		assert.ErrorIs(t, err, verifier.ErrInvalidToken, "position %d", pos)
	}

	last := len(parts[2]) - 1
	_, err = v.Verify(alter(last, func(b byte) byte {
		return alphabet[strings.IndexByte(alphabet, b)^1]
	}))
	assert.ErrorIs(t, err, verifier.ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	tokens := issuer(t)
	reader, err := tokens.GenerateAccessToken("u-1", "alice@example.com", []string{"READ_DOCUMENTS"})
	require.NoError(t, err)
	v, err := verifier.New(secret, constants.DefaultIssuer, constants.DefaultAudience)
	require.NoError(t, err)

	handler := v.Middleware("READ_DOCUMENTS")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := verifier.FromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(claims.Subject))
	}))

	serve := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/docs", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	w := serve("Bearer " + reader.Value)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve("").Code)
	assert.Equal(t, http.StatusUnauthorized, serve("Bearer garbage").Code)

	noPerms, err := tokens.GenerateAccessToken("u-2", "bob@example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, serve("Bearer "+noPerms.Value).Code)
}

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/turtacn/authcore/internal/application/bus"
	"github.com/turtacn/authcore/internal/application/dto"
	"github.com/turtacn/authcore/internal/application/handlers"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubValidator struct {
	result models.TokenValidation
	seen   string
}

func (s *stubValidator) ValidateAccessToken(token string) models.TokenValidation {
	s.seen = token
	return s.result
}

type recordingMetrics struct {
	mu       sync.Mutex
	active   int
	observed []int
}

func (m *recordingMetrics) ActiveRequestsInc(path, method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active++
}

func (m *recordingMetrics) ActiveRequestsDec(path, method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active--
}

func (m *recordingMetrics) ObserveRequestDuration(path, method string, status int, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed = append(m.observed, status)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.APIResponse {
	t.Helper()
	var body dto.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func validToken(userID string) models.TokenValidation {
	return models.TokenValidation{
		Valid:  true,
		Claims: map[string]interface{}{constants.ClaimSubject: userID},
	}
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		result     models.TokenValidation
		wantStatus int
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{
			name:       "invalid token",
			header:     "Bearer bad",
			result:     models.TokenValidation{Failure: models.TokenFailureExpired, Reason: "token is invalid"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no subject",
			header:     "Bearer ok",
			result:     models.TokenValidation{Valid: true, Claims: map[string]interface{}{}},
			wantStatus: http.StatusUnauthorized,
		},
		{name: "valid", header: "bearer ok", result: validToken("u-1"), wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := &stubValidator{result: tt.result}
			r := gin.New()
			r.GET("/p", BearerAuth(validator, logger.NewNoopLogger()), func(c *gin.Context) {
				assert.Equal(t, "u-1", c.GetString(ContextUserID))
				assert.Equal(t, "u-1", c.Request.Context().Value(constants.ContextKeyUserID))
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/p", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				assert.False(t, decode(t, w).Success)
			}
		})
	}
}

func permissionBus(t *testing.T, fn bus.HandlerFunc[handlers.CheckPermissionQuery, bool]) *bus.QueryBus {
	t.Helper()
	queries := bus.NewQueryBus()
	require.NoError(t, bus.RegisterQuery(queries, fn))
	queries.Seal()
	return queries
}

func TestRequirePermission(t *testing.T) {
	var asked handlers.CheckPermissionQuery
	queries := permissionBus(t, func(ctx context.Context, q handlers.CheckPermissionQuery) (bool, error) {
		asked = q
		switch q.UserID {
		case "admin":
			return true, nil
		case "broken":
			return false, errors.ErrInfrastructure("permission lookup", assert.AnError)
		default:
			return false, nil
		}
	})

	serve := func(userID string) *httptest.ResponseRecorder {
		r := gin.New()
		r.GET("/admin", func(c *gin.Context) {
			if userID != "" {
				c.Set(ContextUserID, userID)
			}
			c.Next()
		}, RequirePermission(queries, "ADMIN_MANAGE", logger.NewNoopLogger()), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
		return w
	}

	assert.Equal(t, http.StatusNoContent, serve("admin").Code)
	assert.Equal(t, "ADMIN_MANAGE", asked.Permission)
	assert.Equal(t, http.StatusForbidden, serve("viewer").Code)
	assert.Equal(t, http.StatusUnauthorized, serve("").Code)

	w := serve("broken")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, errors.CodeInfrastructure, body.Error.Code)
	assert.Empty(t, body.Error.Details)
}

func TestRateLimitByIP(t *testing.T) {
	until := time.Now().Add(10 * time.Minute)
	var result models.RateLimitResult
	var failure error
	var asked handlers.CheckRateLimitQuery

	queries := bus.NewQueryBus()
	require.NoError(t, bus.RegisterQuery(queries, func(ctx context.Context, q handlers.CheckRateLimitQuery) (models.RateLimitResult, error) {
		asked = q
		return result, failure
	}))

	r := gin.New()
	r.POST("/v1/auth/refresh", RateLimitByIP(queries, "refresh", logger.NewNoopLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	serve := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("allowed", func(t *testing.T) {
		result = models.RateLimitResult{Allowed: true, Remaining: 4}
		w := serve()
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "203.0.113.7", asked.Identifier)
		assert.Equal(t, constants.LimitTypeByIP, asked.LimitType)
		assert.Equal(t, "refresh", asked.Endpoint)
	})

	t.Run("blocked", func(t *testing.T) {
		result = models.RateLimitResult{Reason: constants.RateLimitReasonBlocked, Blocked: true, BlockedUntil: &until}
		w := serve()
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Equal(t, errors.CodeRateLimited, decode(t, w).Error.Code)
	})

	t.Run("limiter failure fails closed", func(t *testing.T) {
		result = models.RateLimitResult{Allowed: true}
		failure = errors.ErrInfrastructure("rate limit check", assert.AnError)
		defer func() { failure = nil }()
		w := serve()
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestObservabilityAndRequestID(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	metrics := &recordingMetrics{}

	r := gin.New()
	r.Use(RequestID(), Observability(provider.Tracer("test"), metrics), AccessLog(logger.NewNoopLogger()))
	var traceID string
	r.GET("/v1/things/:id", func(c *gin.Context) {
		traceID = dto.TraceID(c)
		c.Status(http.StatusAccepted)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/things/42", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, []int{http.StatusAccepted}, metrics.observed)
	assert.Zero(t, metrics.active)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /v1/things/:id", spans[0].Name)
	assert.Equal(t, spans[0].SpanContext.TraceID().String(), traceID)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/things/1", nil)
	req.Header.Set(RequestIDHeader, "req-abc")
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-abc", w.Header().Get(RequestIDHeader))
}

//Personal.AI order the ending

package monitoring

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/logger"
)

func TestMetrics_DomainObservations(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordTokenIssued(constants.TokenTypeAccess)
	m.RecordTokenIssued(constants.TokenTypeAccess)
	m.RecordTokenValidation(models.TokenFailureNone)
	m.RecordTokenValidation(models.TokenFailureExpired)
	m.RecordCacheAccess("user_permissions", "hit")
	m.RecordCacheWriteFailure("permission_check")
	m.RecordRateLimitDecision(constants.LimitTypeByIP, "blocked")
	m.RecordUsernameAttempt("taken")
	m.RecordDispatch("command", "handlers.AuthenticateCommand", 5*time.Millisecond, stderrors.New("boom"))
	m.RecordDispatch("command", "handlers.AuthenticateCommand", 5*time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokensIssued.WithLabelValues("access")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenValidations.WithLabelValues("valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenValidations.WithLabelValues("expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheAccess.WithLabelValues("user_permissions", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheWriteFailures.WithLabelValues("permission_check")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitDecisions.WithLabelValues("BY_IP", "blocked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsernameAttempts.WithLabelValues("taken")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchErrors.WithLabelValues("command", "handlers.AuthenticateCommand")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.DispatchLatency))
}

func TestMetrics_HTTP(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ActiveRequestsInc("/v1/auth/login", "POST")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPActiveRequests.WithLabelValues("/v1/auth/login", "POST")))
	m.ActiveRequestsDec("/v1/auth/login", "POST")
	m.ObserveRequestDuration("/v1/auth/login", "POST", 429, 0.01)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPActiveRequests.WithLabelValues("/v1/auth/login", "POST")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/v1/auth/login", "POST", "429")))
}

func TestZapLogger_EnrichesAndMasks(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewLoggerFromCore(core).WithComponent("test")

	exporter := tracetest.NewInMemoryExporter()
	tm, err := NewTracingManager(config.TracingConfig{Enabled: true, ServiceName: "authcore", SamplingRate: 1}, nil,
		WithSyncSpanExporter(exporter))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tm.Shutdown(context.Background()) })

	ctx, span := tm.StartSpan(context.Background(), "op")
	ctx = context.WithValue(ctx, constants.ContextKeyRequestID, "req-1")
	log.Info(ctx, "hello", logger.String("refresh_token", "abcdefghijklmnop"), logger.Int("n", 3))
	log.Error(ctx, "failed", stderrors.New("boom"))
	span.End()

	require.Equal(t, 2, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "test", fields["component"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, tm.GetTraceID(ctx), fields["trace_id"])
	assert.NotEmpty(t, fields["span_id"])
	assert.Equal(t, "abcd***mnop", fields["refresh_token"])
	assert.Equal(t, int64(3), fields["n"])
	assert.Equal(t, "boom", logs.All()[1].ContextMap()["error"])

	assert.Len(t, exporter.GetSpans(), 1)
}

func TestTracingManager_Disabled(t *testing.T) {
	tm, err := NewTracingManager(config.TracingConfig{Enabled: false}, nil)
	require.NoError(t, err)

	ctx, span := tm.StartSpan(context.Background(), "op")
	defer span.End()
	assert.Empty(t, tm.GetTraceID(ctx))
	assert.NoError(t, tm.Shutdown(context.Background()))
}

func TestNewZapLogger_InvalidLevelFallsBack(t *testing.T) {
	log, err := NewZapLogger(config.LogConfig{Level: "verbose", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

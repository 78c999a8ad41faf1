package monitoring

import (
	"time"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/constants"
)

var _ service.Metrics = (*Metrics)(nil)

// RecordTokenIssued counts one signed token.
// RecordTokenIssued 统计一次令牌签发。
func (m *Metrics) RecordTokenIssued(tokenType constants.TokenType) {
	m.TokensIssued.WithLabelValues(string(tokenType)).Inc()
}

// RecordTokenValidation counts a validation outcome. An empty failure is a valid token.
// RecordTokenValidation 统计一次令牌验证结果。
func (m *Metrics) RecordTokenValidation(failure models.TokenFailure) {
	result := string(failure)
	if failure == models.TokenFailureNone {
		result = "valid"
	}
	m.TokenValidations.WithLabelValues(result).Inc()
}

// RecordCacheAccess counts a cache read.
func (m *Metrics) RecordCacheAccess(family string, result string) {
	m.CacheAccess.WithLabelValues(family, result).Inc()
}

// RecordCacheWriteFailure counts a failed cache write.
func (m *Metrics) RecordCacheWriteFailure(family string) {
	m.CacheWriteFailures.WithLabelValues(family).Inc()
}

// RecordRateLimitDecision counts a limiter decision.
// RecordRateLimitDecision 统计一次限流决策。
func (m *Metrics) RecordRateLimitDecision(limitType constants.LimitType, outcome string) {
	m.RateLimitDecisions.WithLabelValues(string(limitType), outcome).Inc()
}

// RecordUsernameAttempt counts one resolution step.
func (m *Metrics) RecordUsernameAttempt(outcome string) {
	m.UsernameAttempts.WithLabelValues(outcome).Inc()
}

// RecordDispatch observes handler latency and counts failures.
// RecordDispatch 记录处理器耗时并统计失败次数。
func (m *Metrics) RecordDispatch(bus, message string, duration time.Duration, err error) {
	m.DispatchLatency.WithLabelValues(bus, message).Observe(duration.Seconds())
	if err != nil {
		m.DispatchErrors.WithLabelValues(bus, message).Inc()
	}
}

//Personal.AI order the ending

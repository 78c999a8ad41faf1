package service

import (
	"time"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
)

// Metrics defines the interface for collecting business metrics.
// This abstraction allows the domain layer to remain independent of the specific monitoring implementation (e.g., Prometheus).
// Metrics 定义了收集业务指标的接口。
// 这种抽象使领域层能够独立于具体的监控实现（例如 Prometheus）。
type Metrics interface {
	// RecordTokenIssued counts one signed token.
	// RecordTokenIssued 记录一次令牌签发。
	RecordTokenIssued(tokenType constants.TokenType)

	// RecordTokenValidation counts one rejected token by failure category.
	// RecordTokenValidation 按失败类别记录一次令牌校验失败。
	RecordTokenValidation(failure models.TokenFailure)

	// RecordCacheAccess records a hit, miss or absent result for a cache family.
	// RecordCacheAccess 记录缓存族的命中、未命中或不存在结果。
	RecordCacheAccess(family string, result string)

	// RecordCacheWriteFailure counts a failed cache write-back.
	RecordCacheWriteFailure(family string)

	// RecordRateLimitDecision records allowed, denied or blocked per dimension.
	// RecordRateLimitDecision 按维度记录限流决策。
	RecordRateLimitDecision(limitType constants.LimitType, outcome string)

	// RecordUsernameAttempt records one candidate tried by the username resolver.
	RecordUsernameAttempt(outcome string)

	// RecordDispatch records latency and outcome of one bus dispatch.
	// RecordDispatch 记录一次总线分发的耗时与结果。
	RecordDispatch(bus, message string, duration time.Duration, err error)
}

// NoopMetrics discards every observation.
type NoopMetrics struct{}

func (NoopMetrics) RecordTokenIssued(constants.TokenType)               {}
func (NoopMetrics) RecordTokenValidation(models.TokenFailure)           {}
func (NoopMetrics) RecordCacheAccess(string, string)                    {}
func (NoopMetrics) RecordCacheWriteFailure(string)                      {}
func (NoopMetrics) RecordRateLimitDecision(constants.LimitType, string) {}
func (NoopMetrics) RecordUsernameAttempt(string)                        {}
func (NoopMetrics) RecordDispatch(string, string, time.Duration, error) {}

var _ Metrics = NoopMetrics{}

//Personal.AI order the ending

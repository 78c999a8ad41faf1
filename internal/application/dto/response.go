package dto

import (
	"time"

	"github.com/turtacn/authcore/pkg/errors"
)

// APIResponse 通用 API 响应结构
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorDTO   `json:"error,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDTO 错误信息 DTO
type ErrorDTO struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SuccessResponse 创建成功响应
func SuccessResponse(data interface{}, traceID string) *APIResponse {
	return &APIResponse{
		Success:   true,
		Data:      data,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// ErrorResponse 创建错误响应 and returns the HTTP status to send it with. Infrastructure
// failures are reported generically; their cause stays in the log.
func ErrorResponse(err error, traceID string) (int, *APIResponse) {
	status, body := errors.ToErrorResponse(err)
	errorDTO := &ErrorDTO{Code: body.Error, Message: body.ErrorDescription}

	if appErr, ok := errors.AsAppError(err); ok && appErr.Kind != errors.KindInfrastructure && len(appErr.Metadata) > 0 {
		errorDTO.Details = appErr.Metadata
	}

	return status, &APIResponse{
		Success:   false,
		Error:     errorDTO,
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// UnauthorizedResponse 创建未授权响应
func UnauthorizedResponse(message string, traceID string) *APIResponse {
	return &APIResponse{
		Success:   false,
		Error:     &ErrorDTO{Code: "unauthorized", Message: message},
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

// ForbiddenResponse 创建禁止访问响应
func ForbiddenResponse(message string, traceID string) *APIResponse {
	return &APIResponse{
		Success:   false,
		Error:     &ErrorDTO{Code: "forbidden", Message: message},
		TraceID:   traceID,
		Timestamp: time.Now().Unix(),
	}
}

//Personal.AI order the ending

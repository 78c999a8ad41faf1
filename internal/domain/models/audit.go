package models

import (
	"time"

	"github.com/turtacn/authcore/pkg/constants"
)

// AuditEvent is a structured, fire-and-forget record of a security-relevant action.
// AuditEvent 是安全相关操作的结构化记录，发送后不等待结果。
type AuditEvent struct {
	ID         string                   `json:"id"`
	Type       constants.AuditEventType `json:"type"`
	Subject    string                   `json:"subject,omitempty"`
	Success    bool                     `json:"success"`
	OccurredAt time.Time                `json:"occurred_at"`
	Attributes map[string]string        `json:"attributes,omitempty"`
}

package audit

import (
	"context"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/logger"
)

// LogSink writes audit events to the structured log. Used when no broker is configured.
type LogSink struct {
	logger logger.Logger
}

var _ service.AuditSink = (*LogSink)(nil)

func NewLogSink(log logger.Logger) *LogSink {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &LogSink{logger: log.WithComponent("audit")}
}

func (s *LogSink) Emit(ctx context.Context, event models.AuditEvent) error {
	fields := []logger.Field{
		logger.String("event_id", event.ID),
		logger.String("event_type", string(event.Type)),
		logger.String("subject", event.Subject),
		logger.Bool("success", event.Success),
		logger.Time("occurred_at", event.OccurredAt),
	}
	for k, v := range event.Attributes {
		fields = append(fields, logger.String("attr."+k, v))
	}
	s.logger.Info(ctx, "Audit event", fields...)
	return nil
}

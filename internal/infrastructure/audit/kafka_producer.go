// Package audit implements the AuditSink interface on Kafka, a relational table and the log.
package audit

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// SignatureHeader carries the HMAC of the message value when a signing key is configured.
const SignatureHeader = "x-audit-signature"

// MessageWriter is the subset of *kafka.Writer used by the sink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes audit events as JSON, keyed by subject so one principal's events stay ordered.
type KafkaSink struct {
	writer     MessageWriter
	signingKey []byte
	logger     logger.Logger
}

var _ service.AuditSink = (*KafkaSink)(nil)

// NewKafkaSink creates a sink writing to cfg.KafkaTopic.
func NewKafkaSink(cfg config.AuditConfig, log logger.Logger) (*KafkaSink, error) {
	if len(cfg.KafkaBrokers) == 0 || cfg.KafkaTopic == "" {
		return nil, errors.ErrInvalidArgument("audit", "kafka brokers and topic are required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: cfg.BatchTimeout,
	}
	return NewKafkaSinkWithWriter(writer, []byte(cfg.SigningKey), log), nil
}

// NewKafkaSinkWithWriter wraps an existing writer. signingKey may be empty.
func NewKafkaSinkWithWriter(writer MessageWriter, signingKey []byte, log logger.Logger) *KafkaSink {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &KafkaSink{
		writer:     writer,
		signingKey: signingKey,
		logger:     log.WithComponent("KafkaSink"),
	}
}

// Emit sends an audit event to the Kafka topic.
func (p *KafkaSink) Emit(ctx context.Context, event models.AuditEvent) error {
	bytes, err := json.Marshal(event)
	if err != nil {
		p.logger.Error(ctx, "failed to marshal audit event", err)
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Subject),
		Value: bytes,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if len(p.signingKey) > 0 {
		msg.Headers = append(msg.Headers, kafka.Header{Key: SignatureHeader, Value: []byte(Sign(bytes, p.signingKey))})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error(ctx, "failed to write message to Kafka", err, logger.String("event_type", string(event.Type)))
		return errors.ErrInfrastructure("audit publish", err)
	}
	return nil
}

// Close closes the underlying Kafka writer.
func (p *KafkaSink) Close() error {
	return p.writer.Close()
}

//Personal.AI order the ending

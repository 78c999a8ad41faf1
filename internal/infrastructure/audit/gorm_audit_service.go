package audit

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/errors"
)

// AuditRecord is the persisted form of an audit event.
type AuditRecord struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Type       string    `gorm:"size:64;index"`
	Subject    string    `gorm:"size:255;index"`
	Success    bool
	OccurredAt time.Time `gorm:"index"`
	Attributes string    `gorm:"type:text"`
}

// TableName pins the table name.
func (AuditRecord) TableName() string { return "audit_events" }

// GormSink stores audit events in a relational table.
type GormSink struct {
	db *gorm.DB
}

var _ service.AuditSink = (*GormSink)(nil)

// NewGormSink creates a GormSink.
func NewGormSink(db *gorm.DB) *GormSink {
	return &GormSink{db: db}
}

// Migrate creates the audit table.
func (s *GormSink) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&AuditRecord{})
}

// Emit saves an AuditEvent to the database.
func (s *GormSink) Emit(ctx context.Context, event models.AuditEvent) error {
	attrs, err := json.Marshal(event.Attributes)
	if err != nil {
		return err
	}
	record := AuditRecord{
		ID:         event.ID,
		Type:       string(event.Type),
		Subject:    event.Subject,
		Success:    event.Success,
		OccurredAt: event.OccurredAt,
		Attributes: string(attrs),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return errors.ErrInfrastructure("audit insert", err)
	}
	return nil
}

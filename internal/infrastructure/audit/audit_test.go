package audit

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type collectingSink struct {
	mu     sync.Mutex
	events []models.AuditEvent
	block  chan struct{}
}

func (s *collectingSink) Emit(_ context.Context, e models.AuditEvent) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *collectingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func sampleEvent(id string) models.AuditEvent {
	return models.AuditEvent{
		ID:         id,
		Type:       constants.AuditEventAuthenticationFailed,
		Subject:    "alice@example.com",
		OccurredAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Attributes: map[string]string{"reason": "invalid credentials"},
	}
}

func TestKafkaSink_Emit(t *testing.T) {
	w := &fakeWriter{}
	key := []byte("audit-signing-key")
	sink := NewKafkaSinkWithWriter(w, key, nil)

	require.NoError(t, sink.Emit(context.Background(), sampleEvent("e-1")))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "alice@example.com", string(msg.Key))
	var decoded models.AuditEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "e-1", decoded.ID)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, string(constants.AuditEventAuthenticationFailed), headers["event_type"])
	assert.True(t, Verify(msg.Value, key, headers[SignatureHeader]))
	assert.False(t, Verify(msg.Value, []byte("other"), headers[SignatureHeader]))

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestKafkaSink_WriteFailure(t *testing.T) {
	sink := NewKafkaSinkWithWriter(&fakeWriter{err: stderrors.New("broker down")}, nil, nil)

	err := sink.Emit(context.Background(), sampleEvent("e-1"))
	assert.Equal(t, errors.KindInfrastructure, errors.KindOf(err))
}

func TestNewKafkaSink_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaSink(config.AuditConfig{KafkaTopic: "audit"}, nil)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
}

func TestGormSink_Emit(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sink := NewGormSink(db)
	require.NoError(t, sink.Migrate(context.Background()))

	require.NoError(t, sink.Emit(context.Background(), sampleEvent("e-1")))

	var stored AuditRecord
	require.NoError(t, db.First(&stored, "id = ?", "e-1").Error)
	assert.Equal(t, string(constants.AuditEventAuthenticationFailed), stored.Type)
	assert.JSONEq(t, `{"reason":"invalid credentials"}`, stored.Attributes)

	err = sink.Emit(context.Background(), sampleEvent("e-1"))
	assert.Equal(t, errors.KindInfrastructure, errors.KindOf(err))
}

func TestAsyncSink_ForwardsAndDrains(t *testing.T) {
	next := &collectingSink{}
	sink := NewAsyncSink(next, 16, nil)

	for i := 0; i < 10; i++ {
		require.NoError(t, sink.Emit(context.Background(), sampleEvent("e")))
	}
	sink.Close()

	assert.Equal(t, 10, next.count())
	assert.Zero(t, sink.Dropped())

	require.NoError(t, sink.Emit(context.Background(), sampleEvent("late")))
	assert.Equal(t, uint64(1), sink.Dropped())
}

func TestAsyncSink_DropsWhenFull(t *testing.T) {
	next := &collectingSink{block: make(chan struct{})}
	sink := NewAsyncSink(next, 1, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, sink.Emit(context.Background(), sampleEvent("e")))
	}
	assert.Positive(t, sink.Dropped())

	close(next.block)
	sink.Close()
	assert.Equal(t, uint64(5), sink.Dropped()+uint64(next.count()))
}

func TestLogSink_NeverFails(t *testing.T) {
	assert.NoError(t, NewLogSink(nil).Emit(context.Background(), sampleEvent("e-1")))
}

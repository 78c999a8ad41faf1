package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/turtacn/authcore/internal/domain/models"
	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/logger"
)

// AsyncSink forwards events to another sink from a single background goroutine so a slow
// broker never adds latency to the request path. Events are dropped when the buffer is full.
type AsyncSink struct {
	next   service.AuditSink
	logger logger.Logger

	ch        chan models.AuditEvent
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

var _ service.AuditSink = (*AsyncSink)(nil)

// NewAsyncSink starts the forwarding goroutine. Close must be called to flush.
func NewAsyncSink(next service.AuditSink, bufferSize int, log logger.Logger) *AsyncSink {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}
	s := &AsyncSink{
		next:   next,
		logger: log.WithComponent("audit_async"),
		ch:     make(chan models.AuditEvent, bufferSize),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *AsyncSink) run() {
	defer s.wg.Done()
	for {
		select {
		case event := <-s.ch:
			s.forward(event)
		case <-s.done:
			for {
				select {
				case event := <-s.ch:
					s.forward(event)
				default:
					return
				}
			}
		}
	}
}

func (s *AsyncSink) forward(event models.AuditEvent) {
	ctx := context.Background()
	if err := s.next.Emit(ctx, event); err != nil {
		s.logger.Warn(ctx, "Audit sink rejected event",
			logger.String("event_type", string(event.Type)),
			logger.Error(err))
	}
}

// Emit enqueues event. It never blocks and never fails.
func (s *AsyncSink) Emit(_ context.Context, event models.AuditEvent) error {
	if s.closed.Load() {
		s.dropped.Add(1)
		return nil
	}
	select {
	case s.ch <- event:
	case <-s.done:
		s.dropped.Add(1)
	default:
		s.dropped.Add(1)
	}
	return nil
}

// Close drains the buffer and stops the goroutine.
func (s *AsyncSink) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.wg.Wait()
	})
}

// Dropped returns the number of events lost to a full buffer or a closed sink.
func (s *AsyncSink) Dropped() uint64 {
	return s.dropped.Load()
}

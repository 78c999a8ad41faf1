// Package bus routes commands and queries to exactly one registered handler.
//
// Two independent buses exist: the CommandBus for state-changing operations and the
// QueryBus for side-effect-free reads. Both share the same dispatcher: handlers are keyed by
// the message's runtime type, a second registration for a type is rejected, and an unknown
// type fails with a not-found error specific to the bus.
//
// Registration happens once at startup. Seal freezes the table so that dispatch afterwards
// only ever reads it.
package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/authcore/internal/domain/service"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// TracerName is the instrumentation name of dispatch spans.
const TracerName = "github.com/turtacn/authcore/internal/application/bus"

type busKind string

const (
	kindCommand busKind = "command"
	kindQuery   busKind = "query"
)

// HandlerFunc handles one message type M and produces R.
type HandlerFunc[M any, R any] func(ctx context.Context, msg M) (R, error)

type handler func(ctx context.Context, msg interface{}) (interface{}, error)

// Option customizes a bus.
type Option func(*dispatcher)

// WithTracer sets the tracer used for dispatch spans. Defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(d *dispatcher) { d.tracer = t }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m service.Metrics) Option {
	return func(d *dispatcher) { d.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(d *dispatcher) { d.logger = l }
}

type dispatcher struct {
	kind busKind

	mu       sync.RWMutex
	handlers map[reflect.Type]handler
	sealed   bool

	tracer  trace.Tracer
	metrics service.Metrics
	logger  logger.Logger
}

func newDispatcher(kind busKind, opts ...Option) *dispatcher {
	d := &dispatcher{
		kind:     kind,
		handlers: make(map[reflect.Type]handler),
		metrics:  service.NoopMetrics{},
		logger:   logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.tracer == nil {
		d.tracer = otel.Tracer(TracerName)
	}
	d.logger = d.logger.WithComponent(string(kind) + "_bus")
	return d
}

func (d *dispatcher) register(messageType reflect.Type, h handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := typeName(messageType)
	if d.sealed {
		return errors.NewError(errors.KindConflict, errors.CodeHandlerRegistration,
			fmt.Sprintf("%s bus is sealed, cannot register %s", d.kind, name))
	}
	if _, exists := d.handlers[messageType]; exists {
		return errors.ErrHandlerRegistration(name)
	}
	d.handlers[messageType] = h
	d.logger.Debug(context.Background(), "Handler registered", logger.String("message_type", name))
	return nil
}

func (d *dispatcher) seal() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sealed = true
}

func (d *dispatcher) registered(messageType reflect.Type) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[messageType]
	return ok
}

func (d *dispatcher) notFound(name string) error {
	if d.kind == kindCommand {
		return errors.ErrCommandNotFound(name)
	}
	return errors.ErrQueryNotFound(name)
}

// send looks up the handler for msg and invokes it. The handler's error is returned unchanged.
func (d *dispatcher) send(ctx context.Context, msg interface{}) (result interface{}, err error) {
	if msg == nil {
		return nil, errors.ErrInvalidArgument(string(d.kind), "must not be nil")
	}
	messageType := reflect.TypeOf(msg)
	name := typeName(messageType)

	d.mu.RLock()
	h, ok := d.handlers[messageType]
	d.mu.RUnlock()
	if !ok {
		return nil, d.notFound(name)
	}

	ctx, span := d.tracer.Start(ctx, string(d.kind)+" "+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("bus.kind", string(d.kind)),
			attribute.String("bus.message_type", name),
		),
	)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error(ctx, "Handler panicked", fmt.Errorf("%v", r), logger.String("message_type", name))
			err = errors.ErrInfrastructure(string(d.kind)+" handler "+name, fmt.Errorf("panic: %v", r))
			result = nil
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		d.metrics.RecordDispatch(string(d.kind), name, time.Since(start), err)
	}()

	return h(ctx, msg)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func typeOf[M any]() reflect.Type {
	return reflect.TypeOf((*M)(nil)).Elem()
}

func wrap[M any, R any](h HandlerFunc[M, R]) handler {
	return func(ctx context.Context, msg interface{}) (interface{}, error) {
		return h(ctx, msg.(M))
	}
}

func cast[R any](result interface{}, err error) (R, error) {
	var zero R
	if err != nil {
		return zero, err
	}
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(R)
	if !ok {
		return zero, errors.ErrInvalidArgument("result", fmt.Sprintf("handler returned %T, caller expected %s", result, typeOf[R]()))
	}
	return typed, nil
}

// ================================================================================
// Command bus
// ================================================================================

// CommandBus dispatches state-changing commands.
type CommandBus struct {
	d *dispatcher
}

// NewCommandBus creates an empty command bus.
func NewCommandBus(opts ...Option) *CommandBus {
	return &CommandBus{d: newDispatcher(kindCommand, opts...)}
}

// Send dispatches cmd and waits for its handler.
func (b *CommandBus) Send(ctx context.Context, cmd interface{}) (interface{}, error) {
	return b.d.send(ctx, cmd)
}

// SendAsync dispatches cmd on a new goroutine.
func (b *CommandBus) SendAsync(ctx context.Context, cmd interface{}) *Future[interface{}] {
	return goFuture(func() (interface{}, error) { return b.d.send(ctx, cmd) })
}

// Seal rejects every later registration.
func (b *CommandBus) Seal() { b.d.seal() }

// Handles reports whether a handler is registered for the runtime type of cmd.
func (b *CommandBus) Handles(cmd interface{}) bool { return b.d.registered(reflect.TypeOf(cmd)) }

// RegisterCommand registers h as the only handler for command type C.
func RegisterCommand[C any, R any](b *CommandBus, h HandlerFunc[C, R]) error {
	return b.d.register(typeOf[C](), wrap(h))
}

// SendCommand dispatches cmd and returns the handler's result as R.
func SendCommand[R any](ctx context.Context, b *CommandBus, cmd interface{}) (R, error) {
	return cast[R](b.d.send(ctx, cmd))
}

// SendCommandAsync dispatches cmd on a new goroutine.
func SendCommandAsync[R any](ctx context.Context, b *CommandBus, cmd interface{}) *Future[R] {
	return goFuture(func() (R, error) { return SendCommand[R](ctx, b, cmd) })
}

// ================================================================================
// Query bus
// ================================================================================

// QueryBus dispatches side-effect-free queries.
type QueryBus struct {
	d *dispatcher
}

// NewQueryBus creates an empty query bus.
func NewQueryBus(opts ...Option) *QueryBus {
	return &QueryBus{d: newDispatcher(kindQuery, opts...)}
}

// Send dispatches query and waits for its handler.
func (b *QueryBus) Send(ctx context.Context, query interface{}) (interface{}, error) {
	return b.d.send(ctx, query)
}

// SendAsync dispatches query on a new goroutine.
func (b *QueryBus) SendAsync(ctx context.Context, query interface{}) *Future[interface{}] {
	return goFuture(func() (interface{}, error) { return b.d.send(ctx, query) })
}

// Seal rejects every later registration.
func (b *QueryBus) Seal() { b.d.seal() }

// Handles reports whether a handler is registered for the runtime type of query.
func (b *QueryBus) Handles(query interface{}) bool { return b.d.registered(reflect.TypeOf(query)) }

// RegisterQuery registers h as the only handler for query type Q.
func RegisterQuery[Q any, R any](b *QueryBus, h HandlerFunc[Q, R]) error {
	return b.d.register(typeOf[Q](), wrap(h))
}

// SendQuery dispatches query and returns the handler's result as R.
func SendQuery[R any](ctx context.Context, b *QueryBus, query interface{}) (R, error) {
	return cast[R](b.d.send(ctx, query))
}

// SendQueryAsync dispatches query on a new goroutine.
func SendQueryAsync[R any](ctx context.Context, b *QueryBus, query interface{}) *Future[R] {
	return goFuture(func() (R, error) { return SendQuery[R](ctx, b, query) })
}

//Personal.AI order the ending

package bus_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/turtacn/authcore/internal/application/bus"
	"github.com/turtacn/authcore/pkg/errors"
)

type pingQuery struct{ Name string }

type renameCommand struct{ From, To string }

type unknownCommand struct{}

func TestQueryBus_SendReturnsHandlerResult(t *testing.T) {
	b := bus.NewQueryBus()
	require.NoError(t, bus.RegisterQuery(b, func(_ context.Context, q pingQuery) (string, error) {
		return "pong " + q.Name, nil
	}))

	got, err := bus.SendQuery[string](context.Background(), b, pingQuery{Name: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "pong alice", got)
	assert.True(t, b.Handles(pingQuery{}))
}

func TestBus_DuplicateRegistrationIsRejected(t *testing.T) {
	b := bus.NewCommandBus()
	first := func(_ context.Context, c renameCommand) (string, error) { return "first", nil }
	second := func(_ context.Context, c renameCommand) (string, error) { return "second", nil }

	require.NoError(t, bus.RegisterCommand(b, first))
	err := bus.RegisterCommand(b, second)
	require.Error(t, err)
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))
	assert.True(t, errors.HasCode(err, errors.CodeHandlerRegistration))

	// The original handler is still the one invoked.
	got, err := bus.SendCommand[string](context.Background(), b, renameCommand{})
	require.NoError(t, err)
	assert.Equal(t, "first", got)
}

func TestBus_NotFoundIsSpecificToBus(t *testing.T) {
	commands := bus.NewCommandBus()
	queries := bus.NewQueryBus()

	_, err := commands.Send(context.Background(), unknownCommand{})
	assert.True(t, errors.HasCode(err, errors.CodeCommandNotFound))
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))

	_, err = queries.Send(context.Background(), pingQuery{})
	assert.True(t, errors.HasCode(err, errors.CodeQueryNotFound))

	_, err = queries.Send(context.Background(), nil)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
}

func TestBus_ErrorsAreForwardedUnchanged(t *testing.T) {
	sentinel := stderrors.New("handler failed")
	b := bus.NewCommandBus()
	require.NoError(t, bus.RegisterCommand(b, func(_ context.Context, c renameCommand) (int, error) {
		return 0, sentinel
	}))

	_, err := bus.SendCommand[int](context.Background(), b, renameCommand{})
	assert.Same(t, sentinel, err)

	_, err = bus.SendCommandAsync[int](context.Background(), b, renameCommand{}).Await(context.Background())
	assert.Same(t, sentinel, err)
}

func TestBus_SealRejectsLateRegistration(t *testing.T) {
	b := bus.NewQueryBus()
	b.Seal()

	err := bus.RegisterQuery(b, func(_ context.Context, q pingQuery) (string, error) { return "", nil })
	assert.Equal(t, errors.KindConflict, errors.KindOf(err))
	assert.False(t, b.Handles(pingQuery{}))
}

func TestBus_PanicBecomesInfrastructureError(t *testing.T) {
	b := bus.NewCommandBus()
	require.NoError(t, bus.RegisterCommand(b, func(_ context.Context, c renameCommand) (string, error) {
		panic("boom")
	}))

	_, err := b.Send(context.Background(), renameCommand{})
	require.Error(t, err)
	assert.Equal(t, errors.KindInfrastructure, errors.KindOf(err))
}

func TestBus_ResultTypeMismatch(t *testing.T) {
	b := bus.NewQueryBus()
	require.NoError(t, bus.RegisterQuery(b, func(_ context.Context, q pingQuery) (string, error) { return "x", nil }))

	_, err := bus.SendQuery[int](context.Background(), b, pingQuery{})
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
}

func TestFuture_AwaitAndCancellation(t *testing.T) {
	release := make(chan struct{})
	b := bus.NewQueryBus()
	require.NoError(t, bus.RegisterQuery(b, func(ctx context.Context, q pingQuery) (string, error) {
		<-release
		return "late", nil
	}))

	future := bus.SendQueryAsync[string](context.Background(), b, pingQuery{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := future.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	got, err := future.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", got)

	select {
	case <-future.Done():
	default:
		t.Fatal("future should be resolved")
	}
}

func TestBus_ConcurrentDispatch(t *testing.T) {
	b := bus.NewQueryBus()
	require.NoError(t, bus.RegisterQuery(b, func(_ context.Context, q pingQuery) (string, error) {
		return q.Name, nil
	}))
	b.Seal()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := bus.SendQuery[string](context.Background(), b, pingQuery{Name: "n"})
			assert.NoError(t, err)
			assert.Equal(t, "n", got)
		}()
	}
	wg.Wait()
}

func TestBus_DispatchIsTraced(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	b := bus.NewCommandBus(bus.WithTracer(provider.Tracer("test")))
	require.NoError(t, bus.RegisterCommand(b, func(_ context.Context, c renameCommand) (bool, error) {
		if c.To == "" {
			return false, stderrors.New("empty target")
		}
		return true, nil
	}))

	_, err := b.Send(context.Background(), renameCommand{From: "a", To: "b"})
	require.NoError(t, err)
	_, err = b.Send(context.Background(), renameCommand{From: "a"})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "command bus_test.renameCommand", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

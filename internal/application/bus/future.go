package bus

import "context"

// Future is the deferred result of an asynchronous dispatch. It resolves exactly once.
type Future[R any] struct {
	done  chan struct{}
	value R
	err   error
}

func goFuture[R any](fn func() (R, error)) *Future[R] {
	f := &Future[R]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn()
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx ends. Giving up on ctx does not cancel the
// handler; cancellation is carried by the context passed to the dispatch.
func (f *Future[R]) Await(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

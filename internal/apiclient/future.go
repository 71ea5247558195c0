package apiclient

import "context"

// Future is a deferred result of a call running in the background.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go starts fn in a new goroutine and returns its Future.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx ends.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then is the callback-style adapter: onSuccess runs only when the call
// succeeded, and a failure is swallowed since its handler has already
// reported it. The returned Future resolves after onSuccess returned and
// never carries an error.
func (f *Future[T]) Then(onSuccess func(T)) *Future[T] {
	next := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(next.done)
		<-f.done
		if f.err != nil {
			return
		}
		if onSuccess != nil {
			onSuccess(f.val)
		}
		next.val = f.val
	}()
	return next
}

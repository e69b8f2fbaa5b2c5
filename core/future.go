package core

import (
	"context"
	"fmt"
)

// Future is the consumer half of a single-producer, single-consumer result
// channel created for each submitted task whose outcome must be observable.
// The executing goroutine completes it exactly once; the submitter retrieves
// the value exactly once.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// complete resolves the future with a value and/or error. Calling it more
// than once is a bug in the producer; the second call panics on the closed
// channel, which is intentional.
func (f *Future[T]) complete(val T, err error) {
	f.val = val
	f.err = err
	close(f.done)
}

// Get blocks until the task has executed and returns its result. Any error
// returned by the task function, or a PanicError if it panicked, is passed
// through unchanged.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.val, f.err
}

// GetContext is Get with cancellation. If ctx expires first, the task is
// still queued and will still execute; only the wait is abandoned.
func (f *Future[T]) GetContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel closed when the result is available, for callers
// that want to select over several futures.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// PanicError reports a panic recovered while executing a submitted task. It
// is delivered through the task's Future on the Call path, or to the
// FailureHandler on the Cast path.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

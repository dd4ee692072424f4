package repository

import "context"

// Pending is the eventual outcome of an operation started with Start.
type Pending[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Start runs operation on a new goroutine and returns immediately.
// The operation receives executionContext, so cancelling it terminates any git process the operation spawned.
func Start[T any](executionContext context.Context, operation func(context.Context) (T, error)) *Pending[T] {
	pending := &Pending[T]{done: make(chan struct{})}
	go func() {
		defer close(pending.done)
		pending.value, pending.err = operation(executionContext)
	}()
	return pending
}

// StartAction is Start for operations that only report an error.
func StartAction(executionContext context.Context, operation func(context.Context) error) *Pending[struct{}] {
	return Start(executionContext, func(operationContext context.Context) (struct{}, error) {
		return struct{}{}, operation(operationContext)
	})
}

// Done is closed once the operation has finished.
func (pending *Pending[T]) Done() <-chan struct{} {
	return pending.done
}

// Wait blocks until the operation finishes or waitContext ends, whichever comes first.
// Abandoning the wait does not cancel the operation itself.
func (pending *Pending[T]) Wait(waitContext context.Context) (T, error) {
	select {
	case <-pending.done:
		return pending.value, pending.err
	case <-waitContext.Done():
		var zeroValue T
		return zeroValue, waitContext.Err()
	}
}

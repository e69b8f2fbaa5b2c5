package core

import (
	"context"
)

// Task is the unit of work: an arbitrary zero-argument callable, already
// bound with whatever state or arguments it needs (Closure). It is the
// uniform element type held by the TaskQueue, so the queue itself never
// needs to know about heterogeneous callables or their results.
//
// Result-bearing functions are erased into a Task by the Submit/Call
// helpers, which close over a Future and complete it when the task runs.
type Task func(ctx context.Context)

// ResultFunc is a result-bearing function, erased into a Task plus a
// Future[T] by Submit.
type ResultFunc[T any] func(ctx context.Context) (T, error)

// =============================================================================
// Context Helper
// =============================================================================

type workThreadKeyType struct{}

var workThreadKey workThreadKeyType

// CurrentWorkThread returns the WorkThread executing the calling task, or
// nil when the context did not come from a WorkThread consumer loop.
func CurrentWorkThread(ctx context.Context) *WorkThread {
	if v := ctx.Value(workThreadKey); v != nil {
		return v.(*WorkThread)
	}
	return nil
}

package actorkit

import "github.com/actorkit/actorkit/core"

// Re-export commonly used types from the core package for convenience.
// This allows users to import only the actorkit package for most use cases.

// Task is the unit of work (Closure)
type Task = core.Task

// WorkThread executes tasks sequentially on one dedicated goroutine
type WorkThread = core.WorkThread

// WorkThreadPool is a fixed-size, round-robin collection of WorkThreads
type WorkThreadPool = core.WorkThreadPool

// Actor is the embeddable base for single-thread-owned state
type Actor = core.Actor

// Timer is the drift-corrected deadline timer
type Timer = core.Timer

// OneShot is a timer that expires once
type OneShot = core.OneShot

// Periodic is a timer that fires at a fixed interval
type Periodic = core.Periodic

// TaskQueue is the bounded, backpressured FIFO underneath each WorkThread
type TaskQueue = core.TaskQueue

// Future is the consumer half of a per-task result channel
type Future[T any] = core.Future[T]

// Option configures WorkThread, Actor, and Timer constructors
type Option = core.Option

// Constructors and options, re-exported.
var (
	NewWorkThread     = core.NewWorkThread
	NewWorkThreadPool = core.NewWorkThreadPool
	NewActor          = core.NewActor
	NewTimer          = core.NewTimer
	NewOneShot        = core.NewOneShot
	NewPeriodic       = core.NewPeriodic
	NewTaskQueue      = core.NewTaskQueue

	WithName           = core.WithName
	WithQueueCapacity  = core.WithQueueCapacity
	WithLogger         = core.WithLogger
	WithMetrics        = core.WithMetrics
	WithFailureHandler = core.WithFailureHandler
	WithHistory        = core.WithHistory
)

// Submit queues a result-bearing task on a WorkThread and returns its
// future. Re-exported from core.
func Submit[T any](w *WorkThread, f core.ResultFunc[T]) *Future[T] {
	return core.Submit(w, f)
}

// Call submits then blocks for the task's result. Re-exported from core.
func Call[T any](w *WorkThread, f core.ResultFunc[T]) (T, error) {
	return core.Call(w, f)
}

// Package actorkit provides exclusive-ownership task execution for Go: a
// bounded, backpressured task queue; work threads that run arbitrary tasks
// sequentially on one dedicated goroutine; an actor base built on a work
// thread that makes lock-free access to owned state a structural guarantee;
// and a drift-corrected one-shot/periodic timer.
//
// # Quick Start
//
// Create a work thread and submit work to it:
//
//	wt := actorkit.NewWorkThread()
//	defer wt.Stop()
//
//	// Fire and forget.
//	wt.Cast(func(ctx context.Context) {
//		// runs on the dedicated goroutine
//	})
//
//	// Blocking call with a result.
//	n, err := actorkit.Call(wt, func(ctx context.Context) (int, error) {
//		return 42, nil
//	})
//
// # Key Concepts
//
// WorkThread: one dedicated goroutine, one FIFO queue. Every task submitted
// to the same work thread runs in strict submission order, to completion,
// before the next. State touched only from its tasks needs no locking.
//
// Actor: embeds a WorkThread and the client/server method discipline.
// Public "client" methods only schedule work; unexported "server" methods
// run on the actor thread and own the state. A Call issued after a Cast is
// guaranteed to observe the Cast's effects.
//
// Backpressure: bound the queue with WithQueueCapacity and producers
// block when the consumer falls behind, capping memory growth from queued
// work.
//
// Timer: a dedicated goroutine sleeping to deadlines. Periodic timers
// correct for callback overrun by pulling the next deadline forward rather
// than firing catch-up bursts.
//
// # System Pool
//
// A process-wide pool of work threads, sized to the hardware by default, is
// available through SystemPool. It is constructed lazily and must outlive
// every actor or caller still flushing against it; shut it down last:
//
//	defer actorkit.ShutdownSystemPool()
//	wt := actorkit.NextThread()
package actorkit

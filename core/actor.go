package core

import (
	"context"
	"fmt"
)

// Actor is the base for objects whose mutable state is owned by one
// dedicated thread and accessed only through queued requests. Embed it in a
// struct and partition the methods in two:
//
//   - "server" methods touch the owned state, are unexported, and run only
//     on the actor thread, scheduled through Call/Cast. Guard them with
//     AssertActorThread.
//   - "client" methods are the public surface. They never touch the state
//     directly; they only schedule server methods.
//
// Because exactly one goroutine executes server methods, and it processes
// requests in strict submission order, the state needs no locking and
// external callers observe sequentially consistent behavior: a get issued
// via Call after a set, even an asynchronous Cast set, sees that set's
// effect.
type Actor struct {
	thr *WorkThread
}

// NewActor creates an actor with its own dedicated work thread.
func NewActor(opts ...Option) *Actor {
	return &Actor{thr: NewWorkThread(opts...)}
}

// Thread returns the actor's work thread, for use with the generic
// Submit/Call helpers.
func (a *Actor) Thread() *WorkThread {
	return a.thr
}

// OnActorThread reports whether the caller is currently executing on the
// actor's own thread. Server methods use it to assert exclusive access;
// this discipline is a convention checked at runtime, not enforced by the
// type system.
func (a *Actor) OnActorThread() bool {
	return a.thr.OnWorkerThread()
}

// AssertActorThread panics when called from any goroutine other than the
// actor's own. Place it at the top of every server method.
func (a *Actor) AssertActorThread() {
	if !a.OnActorThread() {
		panic(fmt.Sprintf("actor %q: server method invoked off the actor thread", a.thr.Name()))
	}
}

// Call schedules f on the actor thread and blocks until it has run,
// propagating its error to the caller.
func (a *Actor) Call(f func(ctx context.Context) error) error {
	return a.thr.Call(f)
}

// Cast schedules f on the actor thread without waiting. Failures go to the
// thread's FailureHandler, never to the caller.
func (a *Actor) Cast(f Task) error {
	return a.thr.Cast(f)
}

// Flush blocks until every request scheduled before it has completed.
func (a *Actor) Flush() error {
	return a.thr.Flush()
}

// Close drains pending requests and joins the actor thread.
func (a *Actor) Close() {
	a.thr.Stop()
}

package core_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	core "github.com/actorkit/actorkit/core"
)

// recordingFailureHandler captures failures for assertions.
type recordingFailureHandler struct {
	mu       sync.Mutex
	failures []error
	names    []string
}

func (h *recordingFailureHandler) HandleFailure(ctx context.Context, name string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failures = append(h.failures, err)
	h.names = append(h.names, name)
}

func (h *recordingFailureHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.failures)
}

func (h *recordingFailureHandler) last() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.failures) == 0 {
		return nil
	}
	return h.failures[len(h.failures)-1]
}

// TestWorkThread_SequentialExecution verifies FIFO task execution
// Given: A work thread
// When: Multiple tasks are cast from one producer
// Then: Tasks execute in submission order, one at a time
func TestWorkThread_SequentialExecution(t *testing.T) {
	// Arrange
	w := core.NewWorkThread(core.WithLogger(core.NewNoOpLogger()))
	defer w.Stop()

	var mu sync.Mutex
	var order []int

	// Act
	for i := 1; i <= 100; i++ {
		id := i
		if err := w.Cast(func(ctx context.Context) {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Cast(%d) failed: %v", id, err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	// Assert
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 100 {
		t.Fatalf("executed %d tasks, want 100", len(order))
	}
	for i, id := range order {
		if id != i+1 {
			t.Fatalf("order[%d] = %d, want %d", i, id, i+1)
		}
	}
}

// TestWorkThread_FlushBarrier verifies the flush contract
// Given: A work thread with slow tasks queued
// When: Flush is called
// Then: It returns only after every previously queued task has finished
func TestWorkThread_FlushBarrier(t *testing.T) {
	// Arrange
	w := core.NewWorkThread(core.WithLogger(core.NewNoOpLogger()))
	defer w.Stop()

	var done atomic.Int32
	for i := 0; i < 5; i++ {
		w.Cast(func(ctx context.Context) {
			time.Sleep(10 * time.Millisecond)
			done.Add(1)
		})
	}

	// Act
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	// Assert
	if got := done.Load(); got != 5 {
		t.Errorf("tasks done after Flush = %d, want 5", got)
	}
}

// TestWorkThread_CallReturnsResult verifies the blocking result path
func TestWorkThread_CallReturnsResult(t *testing.T) {
	w := core.NewWorkThread(core.WithLogger(core.NewNoOpLogger()))
	defer w.Stop()

	got, err := core.Call(w, func(ctx context.Context) (int, error) {
		return 6 * 7, nil
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if got != 42 {
		t.Errorf("Call result = %d, want 42", got)
	}
}

// TestWorkThread_CallPropagatesError verifies that a task error reaches the
// blocking caller, not the failure handler
func TestWorkThread_CallPropagatesError(t *testing.T) {
	// Arrange
	sink := &recordingFailureHandler{}
	w := core.NewWorkThread(
		core.WithLogger(core.NewNoOpLogger()),
		core.WithFailureHandler(sink),
	)
	defer w.Stop()
	boom := errors.New("boom")

	// Act
	err := w.Call(func(ctx context.Context) error { return boom })

	// Assert
	if !errors.Is(err, boom) {
		t.Errorf("Call error = %v, want boom", err)
	}
	if sink.count() != 0 {
		t.Errorf("failure handler saw %d failures, want 0 for the call path", sink.count())
	}
}

// TestWorkThread_CallPropagatesPanic verifies panic conversion
// Given: A task that panics when submitted via Call
// When: The caller blocks for the result
// Then: It receives a PanicError and the consumer loop survives
func TestWorkThread_CallPropagatesPanic(t *testing.T) {
	// Arrange
	w := core.NewWorkThread(core.WithLogger(core.NewNoOpLogger()))
	defer w.Stop()

	// Act
	_, err := core.Call(w, func(ctx context.Context) (string, error) {
		panic("kaboom")
	})

	// Assert
	var pe *core.PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("Call error = %v, want *PanicError", err)
	}
	if pe.Value != "kaboom" {
		t.Errorf("panic value = %v, want kaboom", pe.Value)
	}

	// The loop survives: the thread still executes tasks.
	got, err := core.Call(w, func(ctx context.Context) (int, error) { return 1, nil })
	if err != nil || got != 1 {
		t.Errorf("Call after panic = (%d, %v), want (1, nil)", got, err)
	}
}

// TestWorkThread_CastPanicGoesToFailureHandler verifies the cast failure sink
// Given: A thread with a recording failure handler
// When: A cast task panics
// Then: The failure handler receives a PanicError and the loop survives
func TestWorkThread_CastPanicGoesToFailureHandler(t *testing.T) {
	// Arrange
	sink := &recordingFailureHandler{}
	w := core.NewWorkThread(
		core.WithName("sink-thread"),
		core.WithLogger(core.NewNoOpLogger()),
		core.WithFailureHandler(sink),
	)
	defer w.Stop()

	// Act
	w.Cast(func(ctx context.Context) { panic("lost panic") })
	w.Flush()

	// Assert
	if sink.count() != 1 {
		t.Fatalf("failure handler saw %d failures, want 1", sink.count())
	}
	var pe *core.PanicError
	if !errors.As(sink.last(), &pe) {
		t.Fatalf("failure = %v, want *PanicError", sink.last())
	}
	if pe.Value != "lost panic" {
		t.Errorf("panic value = %v, want lost panic", pe.Value)
	}
	sink.mu.Lock()
	name := sink.names[0]
	sink.mu.Unlock()
	if name != "sink-thread" {
		t.Errorf("failure thread name = %q, want sink-thread", name)
	}
}

// TestWorkThread_CastErrGoesToFailureHandler verifies error-bearing casts
func TestWorkThread_CastErrGoesToFailureHandler(t *testing.T) {
	sink := &recordingFailureHandler{}
	w := core.NewWorkThread(
		core.WithLogger(core.NewNoOpLogger()),
		core.WithFailureHandler(sink),
	)
	defer w.Stop()
	boom := errors.New("cast failed")

	w.CastErr(func(ctx context.Context) error { return boom })
	w.Flush()

	if sink.count() != 1 {
		t.Fatalf("failure handler saw %d failures, want 1", sink.count())
	}
	if !errors.Is(sink.last(), boom) {
		t.Errorf("failure = %v, want cast failed", sink.last())
	}
}

// TestWorkThread_SubmitFuture verifies the asynchronous result path
// Given: A work thread
// When: A task is submitted
// Then: The future completes with the task's result
func TestWorkThread_SubmitFuture(t *testing.T) {
	w := core.NewWorkThread(core.WithLogger(core.NewNoOpLogger()))
	defer w.Stop()

	fut := core.Submit(w, func(ctx context.Context) (string, error) {
		return "hello", nil
	})

	select {
	case <-fut.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("future did not complete")
	}
	got, err := fut.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("future value = %q, want hello", got)
	}
}

// TestWorkThread_QuitDrainsQueue verifies graceful shutdown
// Given: A thread with queued tasks
// When: Quit is requested
// Then: Already-queued tasks still run before the consumer exits
func TestWorkThread_QuitDrainsQueue(t *testing.T) {
	// Arrange
	w := core.NewWorkThread(core.WithLogger(core.NewNoOpLogger()))

	var done atomic.Int32
	block := make(chan struct{})
	w.Cast(func(ctx context.Context) { <-block })
	for i := 0; i < 5; i++ {
		w.Cast(func(ctx context.Context) { done.Add(1) })
	}

	// Act - quit while tasks are still queued behind the blocker
	w.Quit()
	close(block)
	w.Join()

	// Assert
	if got := done.Load(); got != 5 {
		t.Errorf("tasks done after drain = %d, want 5", got)
	}
}

// TestWorkThread_CastAfterStop verifies fail-fast after shutdown
func TestWorkThread_CastAfterStop(t *testing.T) {
	w := core.NewWorkThread(core.WithLogger(core.NewNoOpLogger()))
	w.Stop()

	if err := w.Cast(noop); !errors.Is(err, core.ErrThreadStopped) {
		t.Errorf("Cast after Stop error = %v, want ErrThreadStopped", err)
	}
	if w.TryCast(noop) {
		t.Error("TryCast after Stop = true, want false")
	}

	_, err := core.Call(w, func(ctx context.Context) (int, error) { return 0, nil })
	if !errors.Is(err, core.ErrThreadStopped) {
		t.Errorf("Call after Stop error = %v, want ErrThreadStopped", err)
	}
}

// TestWorkThread_StopIdempotent verifies repeated Stop is safe
func TestWorkThread_StopIdempotent(t *testing.T) {
	w := core.NewWorkThread(core.WithLogger(core.NewNoOpLogger()))
	w.Stop()
	w.Stop()
	w.Stop()
}

// TestWorkThread_OnWorkerThread verifies goroutine identity checks
// Given: A work thread
// When: OnWorkerThread is called from a task and from the test goroutine
// Then: It reports true inside and false outside
func TestWorkThread_OnWorkerThread(t *testing.T) {
	// Arrange
	w := core.NewWorkThread(core.WithLogger(core.NewNoOpLogger()))
	defer w.Stop()

	// Act
	inside, err := core.Call(w, func(ctx context.Context) (bool, error) {
		return w.OnWorkerThread(), nil
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	// Assert
	if !inside {
		t.Error("OnWorkerThread inside a task = false, want true")
	}
	if w.OnWorkerThread() {
		t.Error("OnWorkerThread outside = true, want false")
	}
	if w.ThreadID() == 0 {
		t.Error("ThreadID() = 0 after the loop started, want nonzero")
	}
}

// TestWorkThread_CurrentWorkThread verifies the context plumbing
func TestWorkThread_CurrentWorkThread(t *testing.T) {
	w := core.NewWorkThread(core.WithLogger(core.NewNoOpLogger()))
	defer w.Stop()

	got, err := core.Call(w, func(ctx context.Context) (*core.WorkThread, error) {
		return core.CurrentWorkThread(ctx), nil
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if got != w {
		t.Error("CurrentWorkThread inside a task did not return the owning thread")
	}
	if core.CurrentWorkThread(context.Background()) != nil {
		t.Error("CurrentWorkThread on a plain context != nil")
	}
}

// TestWorkThread_Backpressure verifies the bounded-queue submission path
// Given: A thread with queue capacity 1 whose consumer is blocked
// When: A second task is cast beyond capacity
// Then: The cast blocks until the consumer frees a slot
func TestWorkThread_Backpressure(t *testing.T) {
	// Arrange
	w := core.NewWorkThread(
		core.WithQueueCapacity(1),
		core.WithLogger(core.NewNoOpLogger()),
	)
	defer w.Stop()

	block := make(chan struct{})
	running := make(chan struct{})
	w.Cast(func(ctx context.Context) {
		close(running)
		<-block
	})
	<-running

	// Fill the single queue slot.
	w.Cast(noop)

	// Act - this cast exceeds capacity and must block
	var castDone atomic.Bool
	unblocked := make(chan struct{})
	go func() {
		w.Cast(noop)
		castDone.Store(true)
		close(unblocked)
	}()
	time.Sleep(50 * time.Millisecond)

	// Assert
	if castDone.Load() {
		t.Fatal("Cast returned while the queue was at capacity")
	}

	// Act - release the consumer
	close(block)

	select {
	case <-unblocked:
	case <-time.After(2 * time.Second):
		t.Fatal("Cast did not unblock after the consumer caught up")
	}
}

// TestWorkThread_WaitObservesOutstanding verifies Wait
func TestWorkThread_WaitObservesOutstanding(t *testing.T) {
	w := core.NewWorkThread(core.WithLogger(core.NewNoOpLogger()))
	defer w.Stop()

	var done atomic.Int32
	for i := 0; i < 10; i++ {
		w.Cast(func(ctx context.Context) {
			time.Sleep(time.Millisecond)
			done.Add(1)
		})
	}

	w.Wait()

	if got := done.Load(); got != 10 {
		t.Errorf("tasks done after Wait = %d, want 10", got)
	}
	if w.NumTasks() != 0 {
		t.Errorf("NumTasks() after Wait = %d, want 0", w.NumTasks())
	}
}

// TestWorkThread_Stats verifies the snapshot fields
func TestWorkThread_Stats(t *testing.T) {
	w := core.NewWorkThread(
		core.WithName("stats-thread"),
		core.WithQueueCapacity(8),
		core.WithLogger(core.NewNoOpLogger()),
	)

	stats := w.Stats()
	if stats.Name != "stats-thread" {
		t.Errorf("stats.Name = %q, want stats-thread", stats.Name)
	}
	if stats.Capacity != 8 {
		t.Errorf("stats.Capacity = %d, want 8", stats.Capacity)
	}
	if stats.Stopped {
		t.Error("stats.Stopped = true before Stop, want false")
	}

	w.Stop()
	if !w.Stats().Stopped {
		t.Error("stats.Stopped = false after Stop, want true")
	}
}

// TestWorkThread_History verifies the execution history ring
// Given: A thread with history enabled
// When: Tasks run, one of them panicking
// Then: RecentHistory returns records newest first with the panic flagged
func TestWorkThread_History(t *testing.T) {
	// Arrange
	w := core.NewWorkThread(
		core.WithHistory(10),
		core.WithLogger(core.NewNoOpLogger()),
		core.WithFailureHandler(&core.NilFailureHandler{}),
	)
	defer w.Stop()

	// Act
	w.Cast(noop)
	w.Cast(func(ctx context.Context) { panic("recorded") })
	w.Flush()

	// Assert - flush itself is also recorded
	records := w.RecentHistory(10)
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	// Newest first: flush, panicking task, noop.
	if records[0].Panicked {
		t.Error("flush record flagged as panicked")
	}
	if !records[1].Panicked {
		t.Error("panicking task record not flagged")
	}

	// History disabled by default.
	w2 := core.NewWorkThread(core.WithLogger(core.NewNoOpLogger()))
	defer w2.Stop()
	if w2.RecentHistory(10) != nil {
		t.Error("RecentHistory without WithHistory != nil")
	}
}

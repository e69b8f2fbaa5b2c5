package actorkit_test

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"

	actorkit "github.com/actorkit/actorkit"
	core "github.com/actorkit/actorkit/core"
)

// TestSystemPool_Lifecycle verifies the process-wide pool
// Given: No system pool yet
// When: SystemPool is called, used, and shut down
// Then: It is built lazily at CPU size, runs tasks, and rebuilds after
// shutdown
func TestSystemPool_Lifecycle(t *testing.T) {
	// Arrange - make sure no earlier test left a pool behind
	actorkit.ShutdownSystemPool()

	// Act - lazy construction
	pool := actorkit.SystemPool()

	// Assert
	if pool.Size() != runtime.NumCPU() {
		t.Errorf("default pool size = %d, want %d", pool.Size(), runtime.NumCPU())
	}
	if actorkit.SystemPool() != pool {
		t.Error("SystemPool returned a different pool on the second call")
	}

	// Act - run work through the facade helpers
	var done atomic.Int32
	for i := 0; i < 10; i++ {
		actorkit.NextThread().Cast(func(ctx context.Context) { done.Add(1) })
	}
	if err := actorkit.FlushSystemPool(); err != nil {
		t.Fatalf("FlushSystemPool failed: %v", err)
	}
	if got := done.Load(); got != 10 {
		t.Errorf("tasks done = %d, want 10", got)
	}

	// Act - shutdown and rebuild
	actorkit.ShutdownSystemPool()
	rebuilt := actorkit.SystemPool()

	// Assert
	if rebuilt == pool {
		t.Error("SystemPool after shutdown returned the stopped pool")
	}
	actorkit.ShutdownSystemPool()
}

// TestInitSystemPool_ExplicitSize verifies explicit sizing
// Given: No system pool yet
// When: InitSystemPool is called with a size, then called again
// Then: The first call wins; a later init is a no-op
func TestInitSystemPool_ExplicitSize(t *testing.T) {
	actorkit.ShutdownSystemPool()
	defer actorkit.ShutdownSystemPool()

	actorkit.InitSystemPool(2, actorkit.WithLogger(core.NewNoOpLogger()))
	if got := actorkit.SystemPool().Size(); got != 2 {
		t.Errorf("pool size = %d, want 2", got)
	}

	actorkit.InitSystemPool(5)
	if got := actorkit.SystemPool().Size(); got != 2 {
		t.Errorf("pool size after second init = %d, want 2 (first init wins)", got)
	}
}

// TestFacade_ReExports verifies that the facade aliases are usable end to end
func TestFacade_ReExports(t *testing.T) {
	w := actorkit.NewWorkThread(actorkit.WithLogger(core.NewNoOpLogger()))
	defer w.Stop()

	got, err := actorkit.Call(w, func(ctx context.Context) (int, error) {
		return 21 * 2, nil
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if got != 42 {
		t.Errorf("Call result = %d, want 42", got)
	}

	fut := actorkit.Submit(w, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	if v, err := fut.Get(); err != nil || v != "ok" {
		t.Errorf("Submit result = (%q, %v), want (ok, nil)", v, err)
	}
}

package actorkit

import (
	"sync"

	"github.com/actorkit/actorkit/core"
)

// =============================================================================
// System Pool (process-wide, lazily constructed)
// =============================================================================

var (
	systemPool *core.WorkThreadPool
	systemMu   sync.Mutex
)

// InitSystemPool constructs the process-wide pool with the given number of
// work threads. Calling it when the pool already exists is a no-op; call it
// before any SystemPool use if the default hardware sizing is not wanted.
func InitSystemPool(n int, opts ...core.Option) {
	systemMu.Lock()
	defer systemMu.Unlock()

	if systemPool != nil {
		return
	}
	systemPool = core.NewWorkThreadPool(n, opts...)
}

// SystemPool returns the process-wide pool, constructing it on first use
// with one work thread per logical CPU. The pool lives until
// ShutdownSystemPool; it must outlive every actor or work-thread client
// that might still be flushing against it.
func SystemPool() *core.WorkThreadPool {
	systemMu.Lock()
	defer systemMu.Unlock()

	if systemPool == nil {
		systemPool = core.NewWorkThreadPool(0)
	}
	return systemPool
}

// NextThread hands out the next system-pool thread in round-robin order.
func NextThread() *core.WorkThread {
	return SystemPool().NextThread()
}

// FlushSystemPool runs a synchronous barrier on every system-pool thread.
func FlushSystemPool() error {
	return SystemPool().Flush()
}

// ShutdownSystemPool drains and joins the process-wide pool. A later
// SystemPool call constructs a fresh one.
func ShutdownSystemPool() {
	systemMu.Lock()
	defer systemMu.Unlock()

	if systemPool != nil {
		systemPool.Stop()
		systemPool = nil
	}
}

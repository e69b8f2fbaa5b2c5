package core

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkThreadPool is a fixed-size collection of WorkThreads handed out
// round-robin. It is not a shared-queue thread pool: each thread keeps its
// own queue and its strict FIFO guarantee, so callers that need sequencing
// pin themselves to the thread NextThread returned.
type WorkThreadPool struct {
	threads []*WorkThread
	next    atomic.Uint64

	stopOnce sync.Once
	stopped  atomic.Bool
}

// NewWorkThreadPool creates and starts n work threads. When n <= 0, the
// pool is sized to the hardware's logical CPU count.
func NewWorkThreadPool(n int, opts ...Option) *WorkThreadPool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p := &WorkThreadPool{threads: make([]*WorkThread, n)}
	for i := range p.threads {
		threadOpts := append([]Option{WithName(fmt.Sprintf("pool-thread-%d", i))}, opts...)
		p.threads[i] = NewWorkThread(threadOpts...)
	}
	return p
}

// Size returns the number of threads in the pool.
func (p *WorkThreadPool) Size() int {
	return len(p.threads)
}

// NextThread returns the next thread in round-robin order. Successive
// callers are spread across the pool; a caller that needs FIFO sequencing
// must hold on to the returned thread rather than asking again.
func (p *WorkThreadPool) NextThread() *WorkThread {
	n := p.next.Add(1) - 1
	return p.threads[n%uint64(len(p.threads))]
}

// Thread returns the i-th thread.
func (p *WorkThreadPool) Thread(i int) *WorkThread {
	return p.threads[i]
}

// Flush runs a synchronous barrier on every thread in the pool. When it
// returns, every task submitted to any pool thread before the call has
// finished.
func (p *WorkThreadPool) Flush() error {
	for _, t := range p.threads {
		if err := t.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Stop drains and joins every thread. The pool must outlive every actor or
// caller still submitting against it.
func (p *WorkThreadPool) Stop() {
	p.stopOnce.Do(func() {
		p.stopped.Store(true)
		for _, t := range p.threads {
			t.Quit()
		}
		for _, t := range p.threads {
			t.Stop()
		}
	})
}

// Stats captures a point-in-time snapshot across the pool.
func (p *WorkThreadPool) Stats() PoolStats {
	stats := PoolStats{
		Size:    len(p.threads),
		Stopped: p.stopped.Load(),
		Threads: make([]ThreadStats, 0, len(p.threads)),
	}
	for _, t := range p.threads {
		ts := t.Stats()
		stats.QueueDepth += ts.QueueDepth
		stats.Outstanding += ts.Outstanding
		stats.Threads = append(stats.Threads, ts)
	}
	return stats
}

package prometheus

import (
	"testing"
	"time"

	"github.com/actorkit/actorkit/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type threadStub struct {
	stats core.ThreadStats
}

func (s threadStub) Stats() core.ThreadStats { return s.stats }

type poolStub struct {
	stats core.PoolStats
}

func (s poolStub) Stats() core.PoolStats { return s.stats }

func TestSnapshotPoller_CollectsThreadAndPoolStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddThread("thread-a", threadStub{stats: core.ThreadStats{
		Name:        "thread-a",
		QueueDepth:  3,
		Outstanding: 5,
		Capacity:    16,
		Stopped:     true,
	}})
	poller.AddPool("pool-a", poolStub{stats: core.PoolStats{
		Size:        8,
		QueueDepth:  4,
		Outstanding: 6,
		Stopped:     false,
	}})

	poller.Start()
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		depth := testutil.ToFloat64(poller.threadQueueDepth.WithLabelValues("thread-a"))
		queued := testutil.ToFloat64(poller.poolQueued.WithLabelValues("pool-a"))
		return depth == 3 && queued == 4
	})

	if got := testutil.ToFloat64(poller.threadOutstanding.WithLabelValues("thread-a")); got != 5 {
		t.Fatalf("thread outstanding gauge = %v, want 5", got)
	}
	if got := testutil.ToFloat64(poller.threadStopped.WithLabelValues("thread-a")); got != 1 {
		t.Fatalf("thread stopped gauge = %v, want 1", got)
	}
	if got := testutil.ToFloat64(poller.poolSize.WithLabelValues("pool-a")); got != 8 {
		t.Fatalf("pool size gauge = %v, want 8", got)
	}
	if got := testutil.ToFloat64(poller.poolStopped.WithLabelValues("pool-a")); got != 0 {
		t.Fatalf("pool stopped gauge = %v, want 0", got)
	}
}

func TestSnapshotPoller_PollsLiveWorkThread(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	thread := core.NewWorkThread(core.WithName("live-thread"))
	defer thread.Stop()
	poller.AddThread("live-thread", thread)

	poller.Start()
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		stopped := testutil.ToFloat64(poller.threadStopped.WithLabelValues("live-thread"))
		return stopped == 0
	})
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.Start()
	poller.Start()
	poller.Stop()
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

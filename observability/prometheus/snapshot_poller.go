package prometheus

import (
	"sync"
	"time"

	"github.com/actorkit/actorkit/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ThreadSnapshotProvider provides current work-thread stats snapshots.
type ThreadSnapshotProvider interface {
	Stats() core.ThreadStats
}

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports thread/pool Stats() snapshots into
// Prometheus gauges, driven by a core.Periodic timer.
type SnapshotPoller struct {
	threadsMu sync.RWMutex
	threads   map[string]ThreadSnapshotProvider

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	threadQueueDepth  *prom.GaugeVec
	threadOutstanding *prom.GaugeVec
	threadCapacity    *prom.GaugeVec
	threadStopped     *prom.GaugeVec

	poolQueued      *prom.GaugeVec
	poolOutstanding *prom.GaugeVec
	poolSize        *prom.GaugeVec
	poolStopped     *prom.GaugeVec

	ticker *core.Periodic

	stateMu  sync.Mutex
	interval time.Duration
	running  bool
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	threadQueueDepth := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "actorkit",
		Name:      "thread_queue_depth",
		Help:      "Queued tasks per work thread.",
	}, []string{"thread"})
	threadOutstanding := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "actorkit",
		Name:      "thread_outstanding",
		Help:      "Outstanding tasks per work thread.",
	}, []string{"thread"})
	threadCapacity := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "actorkit",
		Name:      "thread_queue_capacity",
		Help:      "Queue capacity per work thread.",
	}, []string{"thread"})
	threadStopped := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "actorkit",
		Name:      "thread_stopped",
		Help:      "Work thread stopped state (1=stopped, 0=running).",
	}, []string{"thread"})

	poolQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "actorkit",
		Name:      "pool_queued",
		Help:      "Queued tasks per pool.",
	}, []string{"pool"})
	poolOutstanding := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "actorkit",
		Name:      "pool_outstanding",
		Help:      "Outstanding tasks per pool.",
	}, []string{"pool"})
	poolSize := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "actorkit",
		Name:      "pool_size",
		Help:      "Work thread count per pool.",
	}, []string{"pool"})
	poolStopped := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "actorkit",
		Name:      "pool_stopped",
		Help:      "Pool stopped state (1=stopped, 0=running).",
	}, []string{"pool"})

	var err error
	if threadQueueDepth, err = registerCollector(reg, threadQueueDepth); err != nil {
		return nil, err
	}
	if threadOutstanding, err = registerCollector(reg, threadOutstanding); err != nil {
		return nil, err
	}
	if threadCapacity, err = registerCollector(reg, threadCapacity); err != nil {
		return nil, err
	}
	if threadStopped, err = registerCollector(reg, threadStopped); err != nil {
		return nil, err
	}
	if poolQueued, err = registerCollector(reg, poolQueued); err != nil {
		return nil, err
	}
	if poolOutstanding, err = registerCollector(reg, poolOutstanding); err != nil {
		return nil, err
	}
	if poolSize, err = registerCollector(reg, poolSize); err != nil {
		return nil, err
	}
	if poolStopped, err = registerCollector(reg, poolStopped); err != nil {
		return nil, err
	}

	p := &SnapshotPoller{
		threads:           make(map[string]ThreadSnapshotProvider),
		pools:             make(map[string]PoolSnapshotProvider),
		threadQueueDepth:  threadQueueDepth,
		threadOutstanding: threadOutstanding,
		threadCapacity:    threadCapacity,
		threadStopped:     threadStopped,
		poolQueued:        poolQueued,
		poolOutstanding:   poolOutstanding,
		poolSize:          poolSize,
		poolStopped:       poolStopped,
		interval:          interval,
	}
	p.ticker = core.NewPeriodic(p.collectOnce, core.WithName("prometheus-snapshot-poller"))
	return p, nil
}

// AddThread adds or replaces a thread snapshot provider by name.
func (p *SnapshotPoller) AddThread(name string, provider ThreadSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "thread")
	p.threadsMu.Lock()
	p.threads[name] = provider
	p.threadsMu.Unlock()
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops. The first
// collection happens immediately, subsequent ones every interval.
func (p *SnapshotPoller) Start() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.collectOnce()
	p.ticker.Start(p.interval)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if !p.running {
		return
	}
	p.ticker.Timer.Stop()
	p.running = false
}

func (p *SnapshotPoller) collectOnce() {
	p.threadsMu.RLock()
	for name, provider := range p.threads {
		stats := provider.Stats()
		p.threadQueueDepth.WithLabelValues(name).Set(float64(stats.QueueDepth))
		p.threadOutstanding.WithLabelValues(name).Set(float64(stats.Outstanding))
		p.threadCapacity.WithLabelValues(name).Set(float64(stats.Capacity))
		if stats.Stopped {
			p.threadStopped.WithLabelValues(name).Set(1)
		} else {
			p.threadStopped.WithLabelValues(name).Set(0)
		}
	}
	p.threadsMu.RUnlock()

	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolQueued.WithLabelValues(name).Set(float64(stats.QueueDepth))
		p.poolOutstanding.WithLabelValues(name).Set(float64(stats.Outstanding))
		p.poolSize.WithLabelValues(name).Set(float64(stats.Size))
		if stats.Stopped {
			p.poolStopped.WithLabelValues(name).Set(1)
		} else {
			p.poolStopped.WithLabelValues(name).Set(0)
		}
	}
	p.poolsMu.RUnlock()
}

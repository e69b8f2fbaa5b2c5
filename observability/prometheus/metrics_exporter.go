package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/actorkit/actorkit/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	taskDurationSeconds *prom.HistogramVec
	taskPanicTotal      *prom.CounterVec
	castFailureTotal    *prom.CounterVec
	timerFiringTotal    *prom.CounterVec
	queueDepth          *prom.GaugeVec
	outstandingTasks    *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "actorkit"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"thread"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of task panics.",
	}, []string{"thread"})
	castFailureVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "cast_failure_total",
		Help:      "Total number of fire-and-forget task failures.",
	}, []string{"thread"})
	timerFiringVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "timer_firing_total",
		Help:      "Total number of timer callback invocations.",
	}, []string{"timer"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current task queue depth.",
	}, []string{"thread"})
	outstandingVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "outstanding_tasks",
		Help:      "Tasks submitted but not yet acknowledged complete.",
	}, []string{"thread"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if castFailureVec, err = registerCollector(reg, castFailureVec); err != nil {
		return nil, err
	}
	if timerFiringVec, err = registerCollector(reg, timerFiringVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}
	if outstandingVec, err = registerCollector(reg, outstandingVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		taskDurationSeconds: durationVec,
		taskPanicTotal:      panicVec,
		castFailureTotal:    castFailureVec,
		timerFiringTotal:    timerFiringVec,
		queueDepth:          queueDepthVec,
		outstandingTasks:    outstandingVec,
	}, nil
}

// RecordTaskDuration records task execution duration.
func (m *MetricsExporter) RecordTaskDuration(threadName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.taskDurationSeconds.WithLabelValues(normalizeLabel(threadName, "unknown")).Observe(duration.Seconds())
}

// RecordTaskPanic records task panic events.
func (m *MetricsExporter) RecordTaskPanic(threadName string, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(threadName, "unknown")).Inc()
}

// RecordCastFailure records failures of fire-and-forget tasks.
func (m *MetricsExporter) RecordCastFailure(threadName string) {
	if m == nil {
		return
	}
	m.castFailureTotal.WithLabelValues(normalizeLabel(threadName, "unknown")).Inc()
}

// RecordQueueDepth records queue depth.
func (m *MetricsExporter) RecordQueueDepth(threadName string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(threadName, "unknown")).Set(float64(depth))
}

// RecordOutstanding records the outstanding-task count.
func (m *MetricsExporter) RecordOutstanding(threadName string, outstanding int) {
	if m == nil {
		return
	}
	m.outstandingTasks.WithLabelValues(normalizeLabel(threadName, "unknown")).Set(float64(outstanding))
}

// RecordTimerFiring records one timer callback invocation.
func (m *MetricsExporter) RecordTimerFiring(timerName string) {
	if m == nil {
		return
	}
	m.timerFiringTotal.WithLabelValues(normalizeLabel(timerName, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}

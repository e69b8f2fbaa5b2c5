package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// =============================================================================
// FailureHandler: Interface for observing failures with no waiting caller
// =============================================================================

// FailureHandler receives failures that would otherwise vanish: errors and
// panics from fire-and-forget (Cast) tasks, and panics from timer callbacks.
// Failures from tasks submitted via the blocking Call path never reach the
// handler; they are delivered to the caller through the task's future.
//
// Implementations must be safe for concurrent use.
type FailureHandler interface {
	// HandleFailure is called with the name of the thread or timer where
	// the failure occurred and the failure itself. A recovered panic is
	// wrapped in *PanicError, carrying the value and stack trace.
	HandleFailure(ctx context.Context, name string, err error)
}

// DefaultFailureHandler writes failures to stderr. It is the default sink,
// making the information loss inherent in Cast visible rather than silent.
type DefaultFailureHandler struct{}

// HandleFailure prints the failure, including the stack for panics.
func (h *DefaultFailureHandler) HandleFailure(ctx context.Context, name string, err error) {
	var pe *PanicError
	if errors.As(err, &pe) {
		fmt.Fprintf(os.Stderr, "[%s] %v\nStack trace:\n%s", name, err, pe.Stack)
		return
	}
	fmt.Fprintf(os.Stderr, "[%s] task failed: %v\n", name, err)
}

// NilFailureHandler discards failures, restoring the classic silent-drop
// contract for callers that explicitly want it.
type NilFailureHandler struct{}

// HandleFailure is a no-op.
func (h *NilFailureHandler) HandleFailure(ctx context.Context, name string, err error) {}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus,
// StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting task execution.
type Metrics interface {
	// RecordTaskDuration records how long a task took to execute on the
	// named work thread.
	RecordTaskDuration(threadName string, duration time.Duration)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(threadName string, panicInfo any)

	// RecordCastFailure records a failure from a fire-and-forget task,
	// which no caller will ever observe directly.
	RecordCastFailure(threadName string)

	// RecordQueueDepth records the current depth of a thread's task queue.
	RecordQueueDepth(threadName string, depth int)

	// RecordOutstanding records the current outstanding-task count:
	// submitted but not yet acknowledged complete.
	RecordOutstanding(threadName string, outstanding int)

	// RecordTimerFiring records one timer callback invocation.
	RecordTimerFiring(timerName string)
}

// NilMetrics provides a no-op metrics implementation. This is the default
// when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(threadName string, duration time.Duration) {}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(threadName string, panicInfo any) {}

// RecordCastFailure is a no-op.
func (m *NilMetrics) RecordCastFailure(threadName string) {}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(threadName string, depth int) {}

// RecordOutstanding is a no-op.
func (m *NilMetrics) RecordOutstanding(threadName string, outstanding int) {}

// RecordTimerFiring is a no-op.
func (m *NilMetrics) RecordTimerFiring(timerName string) {}

// =============================================================================
// Config: shared option set for WorkThread and Timer
// =============================================================================

// Config holds the handlers wired into a WorkThread or Timer. All fields
// are optional; defaults are applied by the constructors.
type Config struct {
	// Name labels the component in logs and metrics.
	Name string

	// QueueCapacity bounds the task queue. Zero means unbounded.
	QueueCapacity int

	// Logger receives lifecycle and failure log lines. Defaults to
	// DefaultLogger.
	Logger Logger

	// Metrics receives execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// FailureHandler receives cast and timer failures. Defaults to
	// DefaultFailureHandler.
	FailureHandler FailureHandler

	// HistoryCapacity sizes the per-thread execution history ring.
	// Zero disables history.
	HistoryCapacity int
}

// DefaultConfig returns a config with default handlers.
func DefaultConfig() *Config {
	return &Config{
		Logger:         NewDefaultLogger(),
		Metrics:        &NilMetrics{},
		FailureHandler: &DefaultFailureHandler{},
	}
}

func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = NewDefaultLogger()
	}
	if c.Metrics == nil {
		c.Metrics = &NilMetrics{}
	}
	if c.FailureHandler == nil {
		c.FailureHandler = &DefaultFailureHandler{}
	}
}

// Option mutates a Config. Constructors take options variadically.
type Option func(*Config)

// WithName labels the component in logs and metrics.
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithQueueCapacity bounds the task queue, enabling backpressure.
func WithQueueCapacity(capacity int) Option {
	return func(c *Config) { c.QueueCapacity = capacity }
}

// WithLogger sets the structured logger.
func WithLogger(l Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m Metrics) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithFailureHandler sets the sink for cast and timer failures.
func WithFailureHandler(h FailureHandler) Option {
	return func(c *Config) { c.FailureHandler = h }
}

// WithHistory enables the execution history ring with the given capacity.
func WithHistory(capacity int) Option {
	return func(c *Config) { c.HistoryCapacity = capacity }
}

// Package metrics exposes worker events as Prometheus metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/dogmatiq/durabletask"
	"github.com/dogmatiq/durabletask/dispatch"
	"github.com/dogmatiq/durabletask/workitem"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "durabletask"

// Outcome label values for completed and dropped work items.
const (
	outcomeSuccess   = "success"
	outcomeFailure   = "failure"
	outcomeSendError = "send_error"
	outcomeDispatch  = "dispatch_error"
	outcomeAbandoned = "abandoned"
)

// Observer is a durabletask.Observer that records metrics.
type Observer struct {
	connected      prometheus.Gauge
	connects       prometheus.Counter
	disconnects    prometheus.Counter
	backoffs       prometheus.Counter
	backoffDelay   prometheus.Histogram
	streamDuration prometheus.Histogram
	received       *prometheus.CounterVec
	completed      *prometheus.CounterVec
	dropped        *prometheus.CounterVec
	inFlight       *prometheus.GaugeVec
}

var _ durabletask.Observer = (*Observer)(nil)

// NewObserver returns an observer that registers its metrics with r.
//
// It panics if the metrics can not be registered.
func NewObserver(r prometheus.Registerer) *Observer {
	o := &Observer{
		connected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "worker_connected",
				Help:      "Whether the worker has an established work item stream.",
			},
		),
		connects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "worker_connects_total",
				Help:      "Total number of work item streams established.",
			},
		),
		disconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "worker_disconnects_total",
				Help:      "Total number of established work item streams that have ended.",
			},
		),
		backoffs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "worker_reconnect_backoffs_total",
				Help:      "Total number of failed connection attempts followed by a backoff delay.",
			},
		),
		backoffDelay: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "worker_reconnect_backoff_seconds",
				Help:      "Delay before each reconnect attempt, in seconds.",
				Buckets:   []float64{1, 2, 4, 8, 16, 30, 60},
			},
		),
		streamDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "worker_stream_duration_seconds",
				Help:      "Duration for which each work item stream was established, in seconds.",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		received: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "work_items_received_total",
				Help:      "Total number of work items received from the engine.",
			},
			[]string{"kind"},
		),
		completed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "work_items_completed_total",
				Help:      "Total number of work items for which a completion was produced.",
			},
			[]string{"kind", "outcome"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "work_items_dropped_total",
				Help:      "Total number of work items discarded without a completion.",
			},
			[]string{"kind", "outcome"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "work_items_in_flight",
				Help:      "Number of work items currently being executed.",
			},
			[]string{"kind"},
		),
	}

	r.MustRegister(
		o.connected,
		o.connects,
		o.disconnects,
		o.backoffs,
		o.backoffDelay,
		o.streamDuration,
		o.received,
		o.completed,
		o.dropped,
		o.inFlight,
	)

	for _, k := range []string{
		workitem.OrchestratorKind,
		workitem.ActivityKind,
		workitem.EntityBatchKind,
	} {
		o.received.WithLabelValues(k)
		o.completed.WithLabelValues(k, outcomeSuccess)
		o.completed.WithLabelValues(k, outcomeFailure)
		o.inFlight.WithLabelValues(k)
	}

	return o
}

// WorkerStarted does nothing.
func (o *Observer) WorkerStarted(string) {}

// WorkerStopped clears the connected gauge.
func (o *Observer) WorkerStopped(time.Duration, error) {
	o.connected.Set(0)
}

// Connecting does nothing.
func (o *Observer) Connecting(string, string, uint) {}

// Connected records an established stream.
func (o *Observer) Connected(string) {
	o.connected.Set(1)
	o.connects.Inc()
}

// Disconnected records the end of a stream.
func (o *Observer) Disconnected(_ string, stats durabletask.ConnectionStats, _ error) {
	o.connected.Set(0)
	o.disconnects.Inc()
	o.streamDuration.Observe(stats.Duration.Seconds())
}

// BackingOff records a failed connection attempt.
func (o *Observer) BackingOff(_ uint, delay time.Duration, _ error) {
	o.backoffs.Inc()
	o.backoffDelay.Observe(delay.Seconds())
}

// WorkItemReceived records a received work item.
func (o *Observer) WorkItemReceived(item workitem.WorkItem) {
	o.received.WithLabelValues(item.Kind()).Inc()
	o.inFlight.WithLabelValues(item.Kind()).Inc()
}

// WorkItemCompleted records the outcome of a work item.
func (o *Observer) WorkItemCompleted(item workitem.WorkItem, c workitem.Completion, err error) {
	o.inFlight.WithLabelValues(item.Kind()).Dec()

	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeSendError
	} else if failed(c) {
		outcome = outcomeFailure
	}

	o.completed.WithLabelValues(item.Kind(), outcome).Inc()
}

// WorkItemDropped records a dropped work item.
func (o *Observer) WorkItemDropped(item workitem.WorkItem, err error) {
	o.inFlight.WithLabelValues(item.Kind()).Dec()

	outcome := outcomeAbandoned
	var derr *dispatch.DispatchError
	if errors.As(err, &derr) {
		outcome = outcomeDispatch
	}

	o.dropped.WithLabelValues(item.Kind(), outcome).Inc()
}

// failed returns true if c reports the failure of the work item, or of any
// entity operation within it.
func failed(c workitem.Completion) bool {
	switch c := c.(type) {
	case *workitem.OrchestratorCompletion:
		return c.Failure != nil
	case *workitem.ActivityCompletion:
		return c.Failure != nil
	case *workitem.EntityBatchCompletion:
		for _, r := range c.Result.Results {
			if r.Failure != nil {
				return true
			}
		}
	}

	return false
}

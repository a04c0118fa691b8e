// Package metrics exposes engine activity as Prometheus metrics.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/petrijr/disparo/pkg/api"
)

// Observer records run and step activity into Prometheus collectors.
// It implements api.Observer and can be composed with other observers
// via api.NewCompositeObserver.
type Observer struct {
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runsFailed    *prometheus.CounterVec
	stepAttempts  *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
}

var _ api.Observer = (*Observer)(nil)

// NewObserver creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer for the process-wide registry.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		runsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disparo",
			Name:      "runs_started_total",
			Help:      "Function runs started, by function.",
		}, []string{"function"}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disparo",
			Name:      "runs_completed_total",
			Help:      "Function runs completed successfully, by function.",
		}, []string{"function"}),
		runsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disparo",
			Name:      "runs_failed_total",
			Help:      "Function runs that ended in failure, by function.",
		}, []string{"function"}),
		stepAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "disparo",
			Name:      "step_attempts_total",
			Help:      "Step attempts, by function and step.",
		}, []string{"function", "step"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "disparo",
			Name:      "step_duration_seconds",
			Help:      "Wall time of completed step attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"function", "step"}),
	}

	for _, c := range []prometheus.Collector{
		o.runsStarted, o.runsCompleted, o.runsFailed, o.stepAttempts, o.stepDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Observer) OnRunStart(ctx context.Context, run *api.FunctionRun) {
	o.runsStarted.WithLabelValues(run.Function).Inc()
}

func (o *Observer) OnRunCompleted(ctx context.Context, run *api.FunctionRun) {
	o.runsCompleted.WithLabelValues(run.Function).Inc()
}

func (o *Observer) OnRunFailed(ctx context.Context, run *api.FunctionRun, err error) {
	o.runsFailed.WithLabelValues(run.Function).Inc()
}

func (o *Observer) OnStepStart(ctx context.Context, run *api.FunctionRun, stepName string, stepIndex int) {
	o.stepAttempts.WithLabelValues(run.Function, stepName).Inc()
}

func (o *Observer) OnStepCompleted(ctx context.Context, run *api.FunctionRun, stepName string, stepIndex int, err error, d time.Duration) {
	o.stepDuration.WithLabelValues(run.Function, stepName).Observe(d.Seconds())
}

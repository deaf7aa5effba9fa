package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/edvin/ecsdeploy/internal/model"
)

const jobName = "ecsdeploy"

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Recorder collects per-run metrics into a private registry. A deploy is a
// short-lived process, so the registry is pushed once at exit instead of
// being scraped.
type Recorder struct {
	registry     *prometheus.Registry
	stepDuration *prometheus.HistogramVec
	runs         *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecsdeploy_step_duration_seconds",
			Help:    "Duration of each deploy pipeline step.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"step", "result"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecsdeploy_runs_total",
			Help: "Deploy runs by outcome.",
		}, []string{"result"}),
	}
	r.registry.MustRegister(r.stepDuration, r.runs)

	// Every step reports a series, even when a run stops before reaching it.
	for _, step := range model.Steps {
		for _, res := range []string{resultSuccess, resultFailure} {
			r.stepDuration.WithLabelValues(step, res)
		}
	}
	for _, res := range []string{resultSuccess, resultFailure} {
		r.runs.WithLabelValues(res)
	}
	return r
}

// Registry is the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveStep(step string, d time.Duration, err error) {
	r.stepDuration.WithLabelValues(step, result(err)).Observe(d.Seconds())
}

func (r *Recorder) ObserveRun(err error) {
	r.runs.WithLabelValues(result(err)).Inc()
}

// Push sends everything recorded to a Pushgateway, grouped by service.
func (r *Recorder) Push(ctx context.Context, gatewayURL, service string) error {
	err := push.New(gatewayURL, jobName).
		Gatherer(r.registry).
		Grouping("service", service).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}

func result(err error) string {
	if err != nil {
		return resultFailure
	}
	return resultSuccess
}

// Package metrics exposes Prometheus instrumentation for scenario runs.
// It is optional: the harness runs fine without a serving endpoint, and
// the recorder is cheap enough to always feed.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Recorder collects step and scenario counters on its own registry so
// repeated runs in one process never collide on registration.
type Recorder struct {
	registry *prometheus.Registry

	stepsTotal     *prometheus.CounterVec
	scenariosTotal *prometheus.CounterVec
	stepDuration   *prometheus.HistogramVec
}

// NewRecorder creates a recorder with a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apicheck_steps_total",
			Help: "Executed test steps by scenario and result.",
		}, []string{"scenario", "result"}),
		scenariosTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apicheck_scenarios_total",
			Help: "Executed scenarios by result.",
		}, []string{"result"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "apicheck_step_duration_seconds",
			Help:    "Wall time of individual test steps.",
			Buckets: prometheus.DefBuckets,
		}, []string{"scenario"}),
	}

	r.registry.MustRegister(r.stepsTotal, r.scenariosTotal, r.stepDuration)
	return r
}

func resultLabel(success bool) string {
	if success {
		return "pass"
	}
	return "fail"
}

// ObserveStep records one executed step.
func (r *Recorder) ObserveStep(scenario string, success bool, duration time.Duration) {
	r.stepsTotal.WithLabelValues(scenario, resultLabel(success)).Inc()
	r.stepDuration.WithLabelValues(scenario).Observe(duration.Seconds())
}

// ObserveScenario records one completed or aborted scenario.
func (r *Recorder) ObserveScenario(success bool) {
	r.scenariosTotal.WithLabelValues(resultLabel(success)).Inc()
}

// Handler returns the /metrics handler for this recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gather exposes the raw metric families, used by tests and the JSON
// summary.
func (r *Recorder) Gather() ([]*dto.MetricFamily, error) {
	return r.registry.Gather()
}

// Serve exposes /metrics on addr until the context is canceled. Errors
// from the listener are reported on the returned channel; a clean
// shutdown closes it without a value.
func (r *Recorder) Serve(ctx context.Context, addr string) <-chan error {
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	return errCh
}

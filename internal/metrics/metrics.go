package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Deployment outcomes.
const (
	OutcomeSucceeded   = "succeeded"
	OutcomeBuildFailed = "build_failed"
	OutcomeRunFailed   = "run_failed"
	OutcomeError       = "error"
)

// Pipeline holds the deployment pipeline's Prometheus collectors.
type Pipeline struct {
	deployments *prometheus.CounterVec
	inFlight    prometheus.Gauge
	duration    *prometheus.HistogramVec
	tails       prometheus.Gauge
	removals    *prometheus.CounterVec
}

// NewPipeline creates the collectors and registers them with reg.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		deployments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lighthouse_deployments_total",
			Help: "Deployments that reached COMPLETE, by outcome",
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lighthouse_deployments_in_flight",
			Help: "Deployments whose workflow is still running",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lighthouse_deployment_duration_seconds",
			Help:    "Wall time from submission to COMPLETE",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"outcome"}),
		tails: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lighthouse_log_tails_active",
			Help: "Open container log follow streams",
		}),
		removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lighthouse_container_removals_total",
			Help: "Container removals, by result",
		}, []string{"result"}),
	}
	reg.MustRegister(p.deployments, p.inFlight, p.duration, p.tails, p.removals)
	return p
}

func (p *Pipeline) DeploymentStarted() { p.inFlight.Inc() }

func (p *Pipeline) DeploymentFinished(outcome string, took time.Duration) {
	p.inFlight.Dec()
	p.deployments.WithLabelValues(outcome).Inc()
	p.duration.WithLabelValues(outcome).Observe(took.Seconds())
}

func (p *Pipeline) TailOpened() { p.tails.Inc() }
func (p *Pipeline) TailClosed() { p.tails.Dec() }

func (p *Pipeline) ContainerRemoved(ok bool) {
	result := "ok"
	if !ok {
		result = "partial"
	}
	p.removals.WithLabelValues(result).Inc()
}

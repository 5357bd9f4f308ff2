package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPipeline(t *testing.T) {
	p := NewPipeline(prometheus.NewRegistry())

	p.DeploymentStarted()
	p.DeploymentStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(p.inFlight))

	p.DeploymentFinished(OutcomeSucceeded, 3*time.Second)
	p.DeploymentFinished(OutcomeBuildFailed, time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(p.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.deployments.WithLabelValues(OutcomeSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.deployments.WithLabelValues(OutcomeBuildFailed)))

	p.TailOpened()
	p.TailClosed()
	assert.Equal(t, 0.0, testutil.ToFloat64(p.tails))

	p.ContainerRemoved(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.removals.WithLabelValues("partial")))
}

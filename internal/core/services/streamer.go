package services

import (
	"bufio"
	"context"
	"fmt"
	"iter"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/melih/lighthouse-pipeline/internal/core/domain"
	"github.com/melih/lighthouse-pipeline/internal/core/ports"
	"github.com/melih/lighthouse-pipeline/internal/metrics"
)

// maxLineSize caps a single forwarded container log line.
const maxLineSize = 1 << 20

var containerIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]{0,127}$`)

// LogStreamer serves the two log read paths: build log snapshots and live
// container output.
type LogStreamer struct {
	registry ports.DeploymentRegistry
	runtime  ports.ContainerRuntime
	log      *zap.Logger
	metrics  *metrics.Pipeline
	now      func() time.Time
}

func NewLogStreamer(registry ports.DeploymentRegistry, runtime ports.ContainerRuntime, log *zap.Logger, m *metrics.Pipeline) *LogStreamer {
	return &LogStreamer{
		registry: registry,
		runtime:  runtime,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// Snapshot returns the deployment's log, status and result as of now. A
// COMPLETE snapshot without a result is a failed deployment.
func (s *LogStreamer) Snapshot(id string) (domain.Snapshot, error) {
	return s.registry.Snapshot(id)
}

// Follow tails the container's output from the moment it is called. Lines are
// yielded as they arrive. The sequence ends when the container's output ends,
// the consumer stops iterating, or ctx is cancelled; in every case the
// runtime's follow request is closed.
func (s *LogStreamer) Follow(ctx context.Context, containerID string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !containerIDRegex.MatchString(containerID) {
			yield("", fmt.Errorf("%w: invalid container id %q", domain.ErrInvalidInput, containerID))
			return
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stream, err := s.runtime.FollowLogs(ctx, containerID, s.now())
		if err != nil {
			yield("", err)
			return
		}
		defer stream.Close()

		s.metrics.TailOpened()
		defer s.metrics.TailClosed()
		s.log.Debug("log tail opened", zap.String("container_id", containerID))

		sc := bufio.NewScanner(stream)
		sc.Buffer(make([]byte, 64*1024), maxLineSize)
		for sc.Scan() {
			if !yield(strings.TrimSuffix(sc.Text(), "\r"), nil) {
				return
			}
		}
		if err := sc.Err(); err != nil && ctx.Err() == nil {
			yield("", fmt.Errorf("failed to read container logs: %w", err))
		}
	}
}

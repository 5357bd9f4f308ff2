package ports

import (
	"context"
	"iter"

	"github.com/melih/lighthouse-pipeline/internal/core/domain"
)

// DeploymentService is the deployment pipeline as seen by callers.
type DeploymentService interface {
	Submit(caller string, req domain.DeployRequest) (string, error)
	Container(ctx context.Context, caller string) (domain.Container, error)
	Remove(ctx context.Context, caller string) error
}

// LogService exposes the build log poll path and the container log tail path.
type LogService interface {
	Snapshot(id string) (domain.Snapshot, error)
	Follow(ctx context.Context, containerID string) iter.Seq2[string, error]
}

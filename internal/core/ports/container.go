package ports

import (
	"context"
	"io"
	"time"

	"github.com/melih/lighthouse-pipeline/internal/core/domain"
)

// ContainerRuntime defines the container engine operations the pipeline
// depends on. This interface allows us to switch between Docker, Podman, or
// Kubernetes without changing the business logic.
type ContainerRuntime interface {
	// BuildImage builds buildContext (a tar stream) into an image tagged tag.
	BuildImage(ctx context.Context, buildContext io.Reader, tag string, output io.Writer) error
	// RunContainer starts a detached container and returns its ID.
	RunContainer(ctx context.Context, image string, env []string) (string, error)
	StopContainer(ctx context.Context, id string) error
	RemoveContainer(ctx context.Context, id string) error
	InspectContainer(ctx context.Context, id string) (domain.Container, error)
	// FollowLogs streams the container's combined output produced after since.
	// The stream ends when ctx is cancelled or the container exits.
	FollowLogs(ctx context.Context, id string, since time.Time) (io.ReadCloser, error)
}

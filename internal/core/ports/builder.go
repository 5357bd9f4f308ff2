package ports

import (
	"context"
	"io"
)

// BuildRequest describes the image the builder should produce.
type BuildRequest struct {
	RepositoryURL string
	StartCommand  string
	ImageTag      string
}

// BuilderService defines operations for building container images from source code.
type BuilderService interface {
	// BuildImage renders a build recipe for the repository, builds it into an
	// image tagged req.ImageTag and streams the build output to output.
	// A failed build returns a *domain.ExitError.
	BuildImage(ctx context.Context, req BuildRequest, output io.Writer) error
}

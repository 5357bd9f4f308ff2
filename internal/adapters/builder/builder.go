package builder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/pkg/archive"
	"github.com/melih/lighthouse-pipeline/internal/core/ports"
)

// Options tune how recipes are rendered.
type Options struct {
	BaseImage           string
	DefaultStartCommand string
	// PinRevision resolves the repository HEAD before building and pins the
	// clone to it.
	PinRevision bool
}

// Adapter implements ports.BuilderService on top of a container runtime.
type Adapter struct {
	runtime ports.ContainerRuntime
	opts    Options
	resolve RevisionResolver
}

func NewBuilderAdapter(runtime ports.ContainerRuntime, opts Options) *Adapter {
	return &Adapter{runtime: runtime, opts: opts, resolve: ResolveHead}
}

// WithResolver replaces the revision resolver.
func (a *Adapter) WithResolver(r RevisionResolver) *Adapter {
	a.resolve = r
	return a
}

// BuildImage renders a recipe for the repository and builds it. The temporary
// build context is removed on every path out of this function.
func (a *Adapter) BuildImage(ctx context.Context, req ports.BuildRequest, output io.Writer) error {
	startCommand := strings.TrimSpace(req.StartCommand)
	if startCommand == "" {
		startCommand = a.opts.DefaultStartCommand
	}

	var revision string
	if a.opts.PinRevision && a.resolve != nil {
		rev, err := a.resolve(ctx, req.RepositoryURL)
		if err != nil {
			fmt.Fprintf(output, "Could not resolve repository HEAD (%v); building default branch.\n", err)
		} else {
			revision = rev
			fmt.Fprintf(output, "Resolved %s HEAD to %s\n", req.RepositoryURL, rev)
		}
	}

	recipe, err := RenderRecipe(RecipeSpec{
		BaseImage:     a.opts.BaseImage,
		RepositoryURL: req.RepositoryURL,
		StartCommand:  startCommand,
		Revision:      revision,
	})
	if err != nil {
		return err
	}

	bc, err := MaterializeContext(recipe)
	if err != nil {
		return err
	}
	defer bc.Close()
	fmt.Fprintf(output, "Created temporary build context: %s\n", bc.Dir)
	fmt.Fprintf(output, "Generated Dockerfile with in-container clone instructions.\n")

	tar, err := archive.TarWithOptions(bc.Dir, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("failed to create build context: %w", err)
	}
	defer tar.Close()

	fmt.Fprintf(output, "Building Docker image with tag %s...\n", req.ImageTag)
	return a.runtime.BuildImage(ctx, tar, req.ImageTag, output)
}

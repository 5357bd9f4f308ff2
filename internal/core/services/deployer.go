package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/melih/lighthouse-pipeline/internal/core/domain"
	"github.com/melih/lighthouse-pipeline/internal/core/ports"
	"github.com/melih/lighthouse-pipeline/internal/metrics"
)

// DeployerOptions bound the external build and run operations. A zero
// timeout means no deadline.
type DeployerOptions struct {
	BuildTimeout time.Duration
	RunTimeout   time.Duration
}

// Deployer runs one build-and-run workflow per submitted deployment and
// enforces the one-container-per-caller policy.
type Deployer struct {
	registry ports.DeploymentRegistry
	builder  ports.BuilderService
	runtime  ports.ContainerRuntime
	log      *zap.Logger
	metrics  *metrics.Pipeline
	opts     DeployerOptions
	validate *validator.Validate

	newID func() string
	now   func() time.Time

	wg sync.WaitGroup
}

func NewDeployer(
	registry ports.DeploymentRegistry,
	builder ports.BuilderService,
	runtime ports.ContainerRuntime,
	log *zap.Logger,
	m *metrics.Pipeline,
	opts DeployerOptions,
) *Deployer {
	return &Deployer{
		registry: registry,
		builder:  builder,
		runtime:  runtime,
		log:      log,
		metrics:  m,
		opts:     opts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		newID:    func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
		now:      time.Now,
	}
}

// Submit claims the caller's deployment slot, validates req and starts the
// workflow in the background. It returns domain.ErrCallerBusy if the caller
// already owns a container or has a deployment in flight.
func (d *Deployer) Submit(caller string, req domain.DeployRequest) (string, error) {
	req.RepositoryURL = strings.TrimSpace(req.RepositoryURL)
	req.StartCommand = strings.TrimSpace(req.StartCommand)

	// Admission comes first: a busy caller is sent to their container
	// whatever the body holds.
	id := d.newID()
	if err := d.registry.Reserve(caller, id); err != nil {
		return "", err
	}
	if err := d.validateRequest(req); err != nil {
		d.registry.Release(caller, id)
		return "", err
	}
	if err := d.registry.Create(id); err != nil {
		d.registry.Release(caller, id)
		return "", fmt.Errorf("failed to register deployment: %w", err)
	}

	d.log.Info("deployment accepted",
		zap.String("deployment_id", id),
		zap.String("caller", caller),
		zap.String("repo_url", req.RepositoryURL),
	)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(id, caller, req)
	}()
	return id, nil
}

func (d *Deployer) validateRequest(req domain.DeployRequest) error {
	if err := d.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := domain.ValidateRepositoryURL(req.RepositoryURL); err != nil {
		return err
	}
	return domain.ValidateStartCommand(req.StartCommand)
}

// run executes the workflow and guarantees the deployment ends COMPLETE and
// the caller's reservation is released, whatever happens inside.
func (d *Deployer) run(id, caller string, req domain.DeployRequest) {
	log := d.log.With(zap.String("deployment_id", id), zap.String("caller", caller))
	w := newLogWriter(d.registry, id, log)
	started := d.now()
	outcome := metrics.OutcomeError
	d.metrics.DeploymentStarted()

	defer func() {
		if rec := recover(); rec != nil {
			w.Printf("Exception occurred: %v\n", rec)
			log.Error("deployment panicked", zap.Any("panic", rec), zap.ByteString("stack", debug.Stack()))
			outcome = metrics.OutcomeError
		}
		w.Flush()
		d.registry.Release(caller, id)
		if err := d.registry.SetStatus(id, domain.StatusComplete); err != nil {
			log.Error("failed to complete deployment", zap.Error(err))
		}
		d.metrics.DeploymentFinished(outcome, d.now().Sub(started))
		log.Info("deployment finished", zap.String("outcome", outcome), zap.Duration("took", d.now().Sub(started)))
	}()

	containerID, result, err := d.workflow(req, w)
	if err != nil {
		w.Printf("Exception occurred: %v\n", err)
		log.Error("deployment failed", zap.Error(err))
		return
	}
	outcome = result
	if result != metrics.OutcomeSucceeded {
		return
	}

	if err := d.registry.SetResult(id, containerID); err != nil {
		w.Printf("Exception occurred: %v\n", err)
		outcome = metrics.OutcomeError
		return
	}
	d.registry.BindContainer(caller, containerID)
}

// workflow builds the image and starts the container. Build and run failures
// are reported through the log and the returned outcome; only unexpected
// errors are returned.
func (d *Deployer) workflow(req domain.DeployRequest, w *logWriter) (string, string, error) {
	w.Printf("Starting deployment...\n\n")

	tag := d.imageTag()
	buildCtx, cancel := withTimeout(d.opts.BuildTimeout)
	err := d.builder.BuildImage(buildCtx, ports.BuildRequest{
		RepositoryURL: req.RepositoryURL,
		StartCommand:  req.StartCommand,
		ImageTag:      tag,
	}, w)
	timedOut := errors.Is(buildCtx.Err(), context.DeadlineExceeded)
	cancel()
	w.Flush()
	if err != nil {
		var exitErr *domain.ExitError
		if !errors.As(err, &exitErr) {
			return "", metrics.OutcomeError, err
		}
		if timedOut {
			w.Printf("Build timed out after %s.\n", d.opts.BuildTimeout)
		}
		w.Printf("Error building Docker image. Return code: %d\n", exitErr.Code)
		return "", metrics.OutcomeBuildFailed, nil
	}
	w.Printf("Docker image built successfully.\n\n")

	env := domain.ParseEnvironment(req.Environment)
	w.Printf("Starting Docker container...\n")

	runCtx, cancel := withTimeout(d.opts.RunTimeout)
	containerID, err := d.runtime.RunContainer(runCtx, tag, env)
	cancel()
	containerID = strings.TrimSpace(containerID)
	if err != nil || containerID == "" {
		code := 0
		if err != nil {
			code = domain.ExitCode(err)
			w.Printf("%v\n", err)
		}
		w.Printf("Error running Docker container. Return code: %d\n", code)
		return "", metrics.OutcomeRunFailed, nil
	}

	w.Printf("Container started with ID: %s\n\n", containerID)
	w.Printf("Deployment complete.\n")
	return containerID, metrics.OutcomeSucceeded, nil
}

// imageTag is unique per build invocation.
func (d *Deployer) imageTag() string {
	return fmt.Sprintf("user_app_image_%d", d.now().UnixNano())
}

func withTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}

// Container returns the caller's bound container, or domain.ErrNoContainer.
func (d *Deployer) Container(ctx context.Context, caller string) (domain.Container, error) {
	id, ok := d.registry.LookupContainer(caller)
	if !ok {
		return domain.Container{}, domain.ErrNoContainer
	}
	c, err := d.runtime.InspectContainer(ctx, id)
	if err != nil {
		d.log.Warn("failed to inspect bound container", zap.String("container_id", id), zap.Error(err))
		return domain.Container{ID: id, State: "unknown"}, nil
	}
	c.ID = id
	return c, nil
}

// Remove stops and deletes the caller's container and clears the binding.
// The binding is cleared even if stop or remove fail; those failures are
// returned wrapped in domain.ErrRemovalIncomplete. Without a binding Remove
// does nothing.
func (d *Deployer) Remove(ctx context.Context, caller string) error {
	id, ok := d.registry.LookupContainer(caller)
	if !ok {
		return nil
	}

	var errs []error
	if err := d.runtime.StopContainer(ctx, id); err != nil {
		errs = append(errs, err)
	}
	if err := d.runtime.RemoveContainer(ctx, id); err != nil {
		errs = append(errs, err)
	}
	d.registry.UnbindContainer(caller)
	d.metrics.ContainerRemoved(len(errs) == 0)

	if len(errs) > 0 {
		err := errors.Join(errs...)
		d.log.Warn("container removal incomplete", zap.String("caller", caller), zap.String("container_id", id), zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrRemovalIncomplete, err)
	}
	d.log.Info("container removed", zap.String("caller", caller), zap.String("container_id", id))
	return nil
}

// Wait blocks until every running workflow has finished or ctx is done.
func (d *Deployer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

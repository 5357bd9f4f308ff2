package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/melih/lighthouse-pipeline/internal/core/domain"
)

// runFailureCode mirrors the exit status `docker run` reports when the daemon
// itself refuses to create or start the container.
const runFailureCode = 125

var nonZeroCode = regexp.MustCompile(`returned a non-zero code: (\d+)`)

// Adapter implements ports.ContainerRuntime using Docker SDK
type Adapter struct {
	cli         *client.Client
	stopTimeout time.Duration
}

// NewAdapter creates a new Docker adapter instance
func NewAdapter(stopTimeout time.Duration) (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Adapter{cli: cli, stopTimeout: stopTimeout}, nil
}

// Ping checks that the daemon is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	if _, err := a.cli.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach docker daemon: %w", err)
	}
	return nil
}

// Close releases the underlying client transport.
func (a *Adapter) Close() error {
	return a.cli.Close()
}

// BuildImage sends the tar build context to the daemon and copies the decoded
// build output to output as it is produced.
func (a *Adapter) BuildImage(ctx context.Context, buildContext io.Reader, tag string, output io.Writer) error {
	resp, err := a.cli.ImageBuild(ctx, buildContext, types.ImageBuildOptions{
		Tags:        []string{tag},
		Dockerfile:  "Dockerfile",
		Remove:      true, // Remove intermediate containers
		ForceRemove: true,
	})
	if err != nil {
		return &domain.ExitError{Op: "build", Code: 1, Err: err}
	}
	defer resp.Body.Close()

	return decodeBuildOutput(resp.Body, output)
}

// decodeBuildOutput reads the daemon's JSON message stream until EOF. The
// first error message ends the build.
func decodeBuildOutput(r io.Reader, output io.Writer) error {
	dec := json.NewDecoder(r)
	for {
		var msg jsonmessage.JSONMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return &domain.ExitError{Op: "build", Code: 1, Err: fmt.Errorf("failed to read build output: %w", err)}
		}

		if msg.Error != nil || msg.ErrorMessage != "" {
			text := msg.ErrorMessage
			code := 0
			if msg.Error != nil {
				text = msg.Error.Message
				code = msg.Error.Code
			}
			io.WriteString(output, text+"\n")
			return &domain.ExitError{Op: "build", Code: buildExitCode(code, text), Err: errors.New(text)}
		}

		switch {
		case msg.Stream != "":
			io.WriteString(output, msg.Stream)
		case msg.Status != "":
			line := msg.Status
			if msg.ID != "" {
				line = msg.ID + ": " + line
			}
			io.WriteString(output, line+"\n")
		}
	}
}

func buildExitCode(code int, message string) int {
	if code != 0 {
		return code
	}
	if m := nonZeroCode.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 1
}

// RunContainer creates and starts a detached container from a built image
func (a *Adapter) RunContainer(ctx context.Context, image string, env []string) (string, error) {
	resp, err := a.cli.ContainerCreate(ctx, &container.Config{
		Image: image,
		Env:   env,
	}, nil, nil, nil, "")
	if err != nil {
		return "", &domain.ExitError{Op: "run", Code: runFailureCode, Err: fmt.Errorf("failed to create container: %w", err)}
	}

	if err := a.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", &domain.ExitError{Op: "run", Code: runFailureCode, Err: fmt.Errorf("failed to start container: %w", err)}
	}

	return resp.ID, nil
}

// StopContainer stops a running container
func (a *Adapter) StopContainer(ctx context.Context, id string) error {
	secs := int(a.stopTimeout.Seconds())
	// The daemon waits secs before killing; leave it room to answer.
	ctx, cancel := context.WithTimeout(ctx, a.stopTimeout+10*time.Second)
	defer cancel()
	if err := a.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &secs}); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", id, err)
	}
	return nil
}

// RemoveContainer deletes a stopped container
func (a *Adapter) RemoveContainer(ctx context.Context, id string) error {
	if err := a.cli.ContainerRemove(ctx, id, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("failed to remove container %s: %w", id, err)
	}
	return nil
}

// InspectContainer returns the current state of a single container
func (a *Adapter) InspectContainer(ctx context.Context, id string) (domain.Container, error) {
	info, err := a.cli.ContainerInspect(ctx, id)
	if err != nil {
		if client.IsErrNotFound(err) {
			return domain.Container{}, fmt.Errorf("container %s: %w", id, domain.ErrNotFound)
		}
		return domain.Container{}, fmt.Errorf("failed to inspect container: %w", err)
	}

	c := domain.Container{
		ID:   shortID(info.ID),
		Name: strings.TrimPrefix(info.Name, "/"),
	}
	if info.Config != nil {
		c.Image = info.Config.Image
	}
	if info.State != nil {
		c.State = info.State.Status
		c.Status = describeState(info.State)
	}
	return c, nil
}

func describeState(s *types.ContainerState) string {
	switch {
	case s.Running:
		return "Up since " + s.StartedAt
	case s.Status == "exited":
		return fmt.Sprintf("Exited (%d) at %s", s.ExitCode, s.FinishedAt)
	default:
		return s.Status
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// FollowLogs returns the container's stdout and stderr, demultiplexed into a
// single stream, starting at since. Closing the returned reader or cancelling
// ctx stops the follow request.
func (a *Adapter) FollowLogs(ctx context.Context, id string, since time.Time) (io.ReadCloser, error) {
	options := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Since:      sinceParam(since),
	}
	raw, err := a.cli.ContainerLogs(ctx, id, options)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, fmt.Errorf("container %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to follow container logs: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		_, err := stdcopy.StdCopy(pw, pw, raw)
		pw.CloseWithError(err)
	}()
	return &followStream{PipeReader: pr, raw: raw}, nil
}

// sinceParam formats t the way the daemon's since filter expects it, keeping
// sub-second precision. The zero time means from the beginning.
func sinceParam(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d.%09d", t.Unix(), t.Nanosecond())
}

type followStream struct {
	*io.PipeReader
	raw io.ReadCloser
}

func (f *followStream) Close() error {
	err := f.raw.Close()
	f.PipeReader.Close()
	return err
}

package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/melih/lighthouse-pipeline/internal/core/domain"
	"github.com/melih/lighthouse-pipeline/internal/core/ports"
)

// fakeBuilder runs build for every BuildImage call.
type fakeBuilder struct {
	build func(ctx context.Context, req ports.BuildRequest, output io.Writer) error

	mu       sync.Mutex
	requests []ports.BuildRequest
}

func (b *fakeBuilder) BuildImage(ctx context.Context, req ports.BuildRequest, output io.Writer) error {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()
	if b.build == nil {
		io.WriteString(output, "Step 1/1 : FROM scratch\nSuccessfully built\n")
		return nil
	}
	return b.build(ctx, req, output)
}

func (b *fakeBuilder) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// mockRuntime is a testify mock of ports.ContainerRuntime.
type mockRuntime struct {
	mock.Mock
}

func (m *mockRuntime) BuildImage(ctx context.Context, buildContext io.Reader, tag string, output io.Writer) error {
	args := m.Called(ctx, buildContext, tag, output)
	return args.Error(0)
}

func (m *mockRuntime) RunContainer(ctx context.Context, image string, env []string) (string, error) {
	args := m.Called(ctx, image, env)
	return args.String(0), args.Error(1)
}

func (m *mockRuntime) StopContainer(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRuntime) RemoveContainer(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRuntime) InspectContainer(ctx context.Context, id string) (domain.Container, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Container), args.Error(1)
}

func (m *mockRuntime) FollowLogs(ctx context.Context, id string, since time.Time) (io.ReadCloser, error) {
	args := m.Called(ctx, id, since)
	if v := args.Get(0); v != nil {
		return v.(io.ReadCloser), args.Error(1)
	}
	return nil, args.Error(1)
}

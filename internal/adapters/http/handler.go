package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/melih/lighthouse-pipeline/internal/core/domain"
	"github.com/melih/lighthouse-pipeline/internal/core/ports"
)

const (
	deploymentsPath = "/api/v1/deployments"
	containerPath   = "/api/v1/container"
)

type DeploymentHandler struct {
	service             ports.DeploymentService
	logs                ports.LogService
	identity            CallerIdentity
	log                 *zap.Logger
	pollInterval        time.Duration
	defaultStartCommand string
}

func NewDeploymentHandler(
	service ports.DeploymentService,
	logs ports.LogService,
	identity CallerIdentity,
	log *zap.Logger,
	pollInterval time.Duration,
	defaultStartCommand string,
) *DeploymentHandler {
	return &DeploymentHandler{
		service:             service,
		logs:                logs,
		identity:            identity,
		log:                 log,
		pollInterval:        pollInterval,
		defaultStartCommand: defaultStartCommand,
	}
}

// Form describes the fields a deployment submission accepts.
func (h *DeploymentHandler) Form(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"fields": fiber.Map{
			"repo_url":      "required: https:// or git:// repository URL",
			"start_command": "optional: defaults to " + h.defaultStartCommand,
			"extra_env":     "optional: one KEY=VALUE per line",
		},
		"submit": fiber.Map{"method": fiber.MethodPost, "path": deploymentsPath},
	})
}

// Submit accepts a JSON or form encoded deployment request. Callers that
// already own a container are redirected to it.
func (h *DeploymentHandler) Submit(c *fiber.Ctx) error {
	var req domain.DeployRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	id, err := h.service.Submit(h.identity(c), req)
	if errors.Is(err, domain.ErrCallerBusy) {
		return c.Redirect(containerPath, fiber.StatusSeeOther)
	}
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"id":       id,
		"logs_url": deploymentsPath + "/" + id + "/logs",
	})
}

type logsResponse struct {
	Logs         []string      `json:"logs"`
	Status       domain.Status `json:"status"`
	ContainerID  string        `json:"container_id"`
	PollInterval int64         `json:"poll_interval_ms"`
	CreatedAt    time.Time     `json:"created_at"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
}

// GetLogs is the poll path: the build log so far plus status and result.
func (h *DeploymentHandler) GetLogs(c *fiber.Ctx) error {
	snap, err := h.logs.Snapshot(c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(logsResponse{
		Logs:         snap.Log,
		Status:       snap.Status,
		ContainerID:  snap.Result,
		PollInterval: h.pollInterval.Milliseconds(),
		CreatedAt:    snap.CreatedAt,
		CompletedAt:  snap.CompletedAt,
	})
}

type ContainerHandler struct {
	service   ports.DeploymentService
	logs      ports.LogService
	identity  CallerIdentity
	log       *zap.Logger
	heartbeat time.Duration
}

func NewContainerHandler(
	service ports.DeploymentService,
	logs ports.LogService,
	identity CallerIdentity,
	log *zap.Logger,
	heartbeat time.Duration,
) *ContainerHandler {
	return &ContainerHandler{service: service, logs: logs, identity: identity, log: log, heartbeat: heartbeat}
}

// GetContainer shows the caller's container, or sends them to the
// deployment form when they have none.
func (h *ContainerHandler) GetContainer(c *fiber.Ctx) error {
	container, err := h.service.Container(c.Context(), h.identity(c))
	if errors.Is(err, domain.ErrNoContainer) {
		return c.Redirect(deploymentsPath, fiber.StatusSeeOther)
	}
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"container":  container,
		"running":    container.Running(),
		"stream_url": "/api/v1/containers/" + container.ID + "/logs/stream",
	})
}

// RemoveContainer stops and deletes the caller's container. The binding is
// gone afterwards even when the runtime reported a failure.
func (h *ContainerHandler) RemoveContainer(c *fiber.Ctx) error {
	if err := h.service.Remove(c.Context(), h.identity(c)); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

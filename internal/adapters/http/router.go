package http

import (
	"net/http"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/melih/lighthouse-pipeline/internal/core/ports"
	"github.com/melih/lighthouse-pipeline/internal/logger"
)

// DefaultHeartbeatInterval is used when Dependencies leaves it unset.
const DefaultHeartbeatInterval = 15 * time.Second

type Dependencies struct {
	Deployments ports.DeploymentService
	Logs        ports.LogService
	Identity    CallerIdentity
	Logger      *zap.Logger
	// Metrics serves /metrics when set.
	Metrics http.Handler

	PollInterval        time.Duration
	HeartbeatInterval   time.Duration
	DefaultStartCommand string
}

func NewRouter(dep Dependencies) *fiber.App {
	if dep.Identity == nil {
		dep.Identity = RemoteAddr()
	}
	if dep.Logger == nil {
		dep.Logger = logger.L()
	}
	if dep.HeartbeatInterval <= 0 {
		dep.HeartbeatInterval = DefaultHeartbeatInterval
	}

	app := fiber.New(fiber.Config{
		AppName:               "lighthouse",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(dep.Logger),
	})

	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(RequestLogger(dep.Logger))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	if dep.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(dep.Metrics))
	}

	deployments := NewDeploymentHandler(dep.Deployments, dep.Logs, dep.Identity, dep.Logger, dep.PollInterval, dep.DefaultStartCommand)
	containers := NewContainerHandler(dep.Deployments, dep.Logs, dep.Identity, dep.Logger, dep.HeartbeatInterval)

	api := app.Group("/api")
	v1 := api.Group("/v1")

	// Routes for the deployment pipeline
	d := v1.Group("/deployments")
	d.Get("/", deployments.Form)
	d.Post("/", deployments.Submit)
	d.Get("/:id/logs", deployments.GetLogs)

	// The caller's own container
	v1.Get("/container", containers.GetContainer)
	v1.Delete("/container", containers.RemoveContainer)

	// Live container output
	c := v1.Group("/containers/:id/logs")
	c.Get("/stream", containers.StreamLogs)
	c.Use("/ws", RequireUpgrade)
	c.Get("/ws", websocket.New(containers.StreamLogsWS))

	return app
}

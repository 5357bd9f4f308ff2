package domain

import "time"

// Status is the lifecycle state of a deployment.
// RUNNING → COMPLETE, never back.
type Status string

const (
	StatusRunning  Status = "RUNNING"
	StatusComplete Status = "COMPLETE"
)

func (s Status) IsTerminal() bool { return s == StatusComplete }

// Deployment is one build-and-run attempt.
type Deployment struct {
	ID          string
	Log         []string
	Status      Status
	Result      string // container ID, set only when build and run both succeeded
	CreatedAt   time.Time
	CompletedAt time.Time
}

// Snapshot is a point-in-time copy of a deployment's log, status and result.
type Snapshot struct {
	ID     string   `json:"id"`
	Log    []string `json:"logs"`
	Status Status   `json:"status"`
	Result string   `json:"container_id"`

	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is nil while the deployment is running.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Failed reports whether the deployment finished without producing a container.
func (s Snapshot) Failed() bool {
	return s.Status.IsTerminal() && s.Result == ""
}

// DeployRequest is what a caller submits to start a deployment.
type DeployRequest struct {
	RepositoryURL string `json:"repo_url" form:"repo_url" validate:"required,url,max=2048"`
	StartCommand  string `json:"start_command" form:"start_command" validate:"max=1024"`
	Environment   string `json:"extra_env" form:"extra_env" validate:"max=65536"`
}

package ports

import "github.com/melih/lighthouse-pipeline/internal/core/domain"

// DeploymentRegistry is the process-wide deployment and container-binding
// state. All methods are safe for concurrent use.
type DeploymentRegistry interface {
	Create(id string) error
	AppendLog(id, text string) error
	Snapshot(id string) (domain.Snapshot, error)
	SetStatus(id string, status domain.Status) error
	SetResult(id, containerID string) error

	// Reserve claims the caller's single deployment slot for id. It fails with
	// domain.ErrCallerBusy when the caller holds a binding or a reservation.
	Reserve(caller, id string) error
	// Release drops the caller's reservation for id, if it is still held.
	Release(caller, id string)

	BindContainer(caller, containerID string)
	LookupContainer(caller string) (string, bool)
	UnbindContainer(caller string)
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")

	ErrDeploymentNotFound = fmt.Errorf("deployment %w", ErrNotFound)
	ErrNoContainer        = fmt.Errorf("container %w", ErrNotFound)

	// ErrCallerBusy is returned when a caller already owns a container or has a
	// deployment in flight.
	ErrCallerBusy = fmt.Errorf("caller already has an active deployment: %w", ErrConflict)

	// ErrRemovalIncomplete wraps stop/remove failures. The binding is cleared
	// regardless.
	ErrRemovalIncomplete = errors.New("container removal incomplete")
)

// ExitError reports a nonzero exit status from a container runtime operation.
type ExitError struct {
	Op   string
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s exited with code %d: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s exited with code %d", e.Op, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode extracts the exit code carried by err, or -1 when err carries none.
func ExitCode(err error) int {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return -1
}

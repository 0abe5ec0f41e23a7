package types

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when an expected resource does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyDeployed is returned when the fleet already runs the target launch template
	ErrAlreadyDeployed = errors.New("already deployed")

	// ErrTimeout is returned when a poll exceeds its budget
	ErrTimeout = errors.New("timed out")

	// ErrNotAvailable is returned when an image exists but is not usable
	ErrNotAvailable = errors.New("not available")
)

// TransportError reports a failed call to an external subsystem
type TransportError struct {
	Service string
	Op      string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TimeoutError reports a poll that ran out of time. Last is the most recent
// status the probe returned.
type TimeoutError struct {
	Wait    string
	Elapsed time.Duration
	Last    any
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %v (last status: %v)", e.Wait, e.Elapsed, e.Last)
}

// Is makes errors.Is(err, ErrTimeout) true for every TimeoutError
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// StepError wraps the error that stopped a deploy at a given step
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// NotFoundf returns an error wrapping ErrNotFound
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

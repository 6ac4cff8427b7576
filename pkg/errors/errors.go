// Package errors defines the typed errors shared by the scheduler and
// the daemon layers. Callers match with the Is* predicates instead of
// comparing strings.
package errors

import (
	"errors"
	"fmt"
)

// ConfigurationError reports invalid construction-time input, such as
// a worker count below one.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

func IsConfigurationError(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

// AlreadyStartedError reports a second Start on a scheduler instance.
type AlreadyStartedError struct{}

func (e *AlreadyStartedError) Error() string {
	return "scheduler already started"
}

func NewAlreadyStartedError() *AlreadyStartedError {
	return &AlreadyStartedError{}
}

func IsAlreadyStartedError(err error) bool {
	var e *AlreadyStartedError
	return errors.As(err, &e)
}

// SchedulerClosedError reports a submission to a scheduler that is
// shutting down or stopped.
type SchedulerClosedError struct{}

func (e *SchedulerClosedError) Error() string {
	return "scheduler is closed"
}

func NewSchedulerClosedError() *SchedulerClosedError {
	return &SchedulerClosedError{}
}

func IsSchedulerClosedError(err error) bool {
	var e *SchedulerClosedError
	return errors.As(err, &e)
}

// PayloadError wraps the error (or recovered panic) produced by a job
// payload. It is stored in the job's handle and surfaced only through
// Wait and WaitAll.
type PayloadError struct {
	Cause error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("payload failed: %v", e.Cause)
}

func (e *PayloadError) Unwrap() error {
	return e.Cause
}

func NewPayloadError(cause error) *PayloadError {
	return &PayloadError{Cause: cause}
}

func NewPayloadPanicError(recovered any) *PayloadError {
	return &PayloadError{Cause: fmt.Errorf("payload panicked: %v", recovered)}
}

func IsPayloadError(err error) bool {
	var e *PayloadError
	return errors.As(err, &e)
}

// JobCancelledError reports a job that was discarded before it started
// running, either by a non-draining shutdown or by the opt-in
// cancel-on-failure mode.
type JobCancelledError struct {
	ID uint64
}

func (e *JobCancelledError) Error() string {
	return fmt.Sprintf("job %d cancelled", e.ID)
}

func NewJobCancelledError(id uint64) *JobCancelledError {
	return &JobCancelledError{ID: id}
}

func IsJobCancelledError(err error) bool {
	var e *JobCancelledError
	return errors.As(err, &e)
}

// InvariantViolationError reports a scheduler bug such as a double
// release or a transition out of a terminal state. It never crosses
// the public API; the scheduler logs it through DPanic so debug
// deployments abort and production deployments log and continue.
type InvariantViolationError struct {
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("scheduler invariant violated: %s", e.Detail)
}

func NewInvariantViolationError(format string, args ...any) *InvariantViolationError {
	return &InvariantViolationError{Detail: fmt.Sprintf(format, args...)}
}

func IsInvariantViolationError(err error) bool {
	var e *InvariantViolationError
	return errors.As(err, &e)
}

// ResourceNotFoundError reports a missing stored entity, such as an
// unknown run id.
type ResourceNotFoundError struct {
	Resource string
	ID       string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func NewRunNotFoundError(id string) *ResourceNotFoundError {
	return &ResourceNotFoundError{Resource: "run", ID: id}
}

func IsResourceNotFoundError(err error) bool {
	var e *ResourceNotFoundError
	return errors.As(err, &e)
}

// ValidationError reports invalid user input, such as a pipeline with
// a dependency cycle or an unknown task reference.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

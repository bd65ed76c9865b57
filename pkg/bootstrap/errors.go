package bootstrap

import (
	"errors"
	"fmt"
	"time"
)

// ErrRegistration wraps every rejected registration.
var ErrRegistration = errors.New("bootstrap: invalid registration")

// DependencyTimeoutError reports a leaf utility that never became ready.
type DependencyTimeoutError struct {
	Dependency string
	Waited     time.Duration
}

func (e *DependencyTimeoutError) Error() string {
	return fmt.Sprintf("bootstrap: %s not ready after %s", e.Dependency, e.Waited)
}

// InitError is a failure raised by a module or leaf initializer, including a
// recovered panic.
type InitError struct {
	Module string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("bootstrap: initializing %s: %v", e.Module, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// PrerequisiteError marks a module skipped because a prerequisite was not
// ready when its turn came.
type PrerequisiteError struct {
	Module       string
	Prerequisite string
}

func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("bootstrap: %s skipped, prerequisite %s not ready", e.Module, e.Prerequisite)
}

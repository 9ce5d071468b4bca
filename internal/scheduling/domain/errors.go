package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput marks malformed catalogue or configuration data.
	ErrInvalidInput = errors.New("invalid scheduling input")

	// ErrGraphCycle means the predecessor relation is not acyclic.
	ErrGraphCycle = errors.New("dependency graph contains a cycle")

	// ErrMissingDependency means a predecessor id references a task
	// instance that was never generated.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrAllocationStarved means a task exhausted its placement attempts
	// without ever fitting into the resource pools.
	ErrAllocationStarved = errors.New("allocation starved")

	// ErrProductivityZero means a configured productivity rate is zero or
	// negative, which would make the duration infinite.
	ErrProductivityZero = errors.New("productivity rate is zero or negative")

	// ErrNonFiniteDuration means duration math produced NaN or infinity.
	ErrNonFiniteDuration = errors.New("non-finite duration")

	// ErrPlanNotFound means no plan has been computed for the project.
	ErrPlanNotFound = errors.New("plan not found")
)

// StarvationError reports the task that could not be placed and the last
// window the scheduler tried before giving up. It unwraps to
// ErrAllocationStarved.
type StarvationError struct {
	TaskID    string
	Attempts  int
	LastStart time.Time
	LastEnd   time.Time
}

func (e *StarvationError) Error() string {
	return fmt.Sprintf("task %s: no feasible placement after %d attempts (last window %s to %s)",
		e.TaskID, e.Attempts, e.LastStart.Format("2006-01-02"), e.LastEnd.Format("2006-01-02"))
}

func (e *StarvationError) Unwrap() error {
	return ErrAllocationStarved
}

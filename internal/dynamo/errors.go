package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrStuck indicates collision handling made no progress within its retry budget.
	ErrStuck = errors.New("dynamo: collision handling stuck")

	// ErrIllegalCollision indicates a collision the handler does not know how to resolve.
	ErrIllegalCollision = errors.New("dynamo: illegal collision")
)

// EvaluationError is returned by a vector field that cannot be evaluated at
// the given state.
type EvaluationError struct {
	Time    float64
	Wrapped error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate at t=%.6f: %v", e.Time, e.Wrapped)
}

func (e *EvaluationError) Unwrap() error {
	return e.Wrapped
}

// StuckError is fatal: the simulation is left at its last committed state and
// the caller must stop or reset.
type StuckError struct {
	Time       float64
	Attempts   int
	Collisions []string
}

func (e *StuckError) Error() string {
	return fmt.Sprintf("%v at t=%.6f after %d attempts %v", ErrStuck, e.Time, e.Attempts, e.Collisions)
}

func (e *StuckError) Unwrap() error {
	return ErrStuck
}

// IllegalCollisionError names the collision a handler rejected.
type IllegalCollisionError struct {
	Collision string
}

func (e *IllegalCollisionError) Error() string {
	return fmt.Sprintf("%v: %s", ErrIllegalCollision, e.Collision)
}

func (e *IllegalCollisionError) Unwrap() error {
	return ErrIllegalCollision
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

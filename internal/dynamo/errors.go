package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for network construction and simulation.
var (
	// ErrConfig indicates missing or invalid network parameters.
	ErrConfig = errors.New("dynamo: invalid network configuration")

	// ErrConstruction indicates a malformed build request: bad shapes,
	// unknown model names or out-of-range IDs.
	ErrConstruction = errors.New("dynamo: invalid construction request")

	// ErrDelay indicates a delay that is not a positive multiple of the minimum delay.
	// Zero is rejected too: every connection reads at least one minimum delay
	// into the past, which the flat gather relies on.
	ErrDelay = errors.New("dynamo: delay is not a positive multiple of min_delay")

	// ErrFrozen indicates a structural change requested on a flattened network.
	ErrFrozen = errors.New("dynamo: network is flattened")

	// ErrNotFlat indicates a flat-mode operation on a network that was never flattened.
	ErrNotFlat = errors.New("dynamo: network is not flattened")

	// ErrNotCold indicates a structural change requested after time has advanced.
	ErrNotCold = errors.New("dynamo: network has already been simulated")

	// ErrIntegration indicates an integration method the model cannot support.
	ErrIntegration = errors.New("dynamo: unsupported integration method")

	// ErrStateMismatch indicates a snapshot taken from a differently shaped network.
	ErrStateMismatch = errors.New("dynamo: snapshot does not match network structure")

	// ErrInvalidState indicates a state vector with NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// Package dynamo provides the primitives shared by every part of the simulator.
//
//   - [State] and [Control]: vectors for plant state and plant inputs
//   - [System]: interface for continuous-time plants (dX/dt = f(X, u, t))
//   - [Integrator]: fixed-step numerical integrator interface
//   - [Config]: network timing (min_delay, min_buff_size) and tolerances
//
// Errors returned by the network are wrapped around the sentinels in this
// package so callers can classify them with errors.Is:
//
//	if _, err := net.CreateUnits(3, spec); errors.Is(err, dynamo.ErrFrozen) {
//	    // the network was already flattened
//	}
package dynamo

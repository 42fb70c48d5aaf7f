// Package dynamo provides the core primitives shared by solvers, collision
// handling and host simulations.
//
//   - [VarsList]: ordered state vector with per-variable sequence numbers
//   - [ODESim]: a simulation exposing its state and vector field
//   - [Solver]: numerical integrator bound to one ODESim
//   - [EnergySystem]: hosts that can report kinetic and potential energy
//
// # Sequence numbers
//
// Solvers write with continuous=true, so ordinary integration never bumps a
// sequence number. Collision handlers write velocities with continuous=false,
// which lets observers detect the jump:
//
//	before := vars.Seq(vx)
//	adv.Advance(0.025)
//	if vars.Seq(vx) != before {
//	    // velocity jumped during this step
//	}
//
// # Thread Safety
//
// A VarsList is owned by one simulation and is NOT thread-safe. Parallel runs
// each build their own simulation.
package dynamo

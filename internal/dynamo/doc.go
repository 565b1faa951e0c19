// Package dynamo provides core primitives for stochastic differential equations.
//
// The package defines the shared vocabulary of the simulator for SDEs of the form
// dx = f(x)dt + g(x)dω:
//
//   - [State]: vector representing system state
//   - [Model]: drift, diffusion and column-major drift Jacobian of a system
//   - [Schedule]: control input applied at each step
//   - [Config]: batch parameters (steps, realizations, Newton limits, reuse flags)
//   - [Result]: flat trajectory buffer plus per-realization reports
//
// # Buffer layout
//
// Trajectories are stored flat as [realization][point][state], state index fastest.
// Noise increments use [realization][step][noise dim].
//
//	res.Realization(i) // points*n values of realization i
//	res.Final(i)       // terminal state of realization i
//
// # Thread Safety
//
// Model values are read concurrently by batch workers and must be immutable
// for the duration of a run. Everything else in a worker is private to it.
package dynamo

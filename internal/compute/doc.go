// Package compute provides the dense linear-algebra backends used by the Newton
// corrector.
//
// Two backends are available:
//
//   - lu: native partial-pivoting LU on column-major storage, allocation free
//   - gonum: gonum/mat LU with a condition-number check
//
// Matrices are always passed column-major, the same layout model Jacobians use:
//
//	backend, _ := compute.New("lu")
//	err := backend.Solve(a, b, n, piv) // b now holds x
//
// A backend may cache scratch between calls, so each worker creates its own.
package compute

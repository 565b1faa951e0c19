// Package rng provides the reproducible noise source of the simulator.
//
// [MersenneTwister] is a 624-word MT19937 generator. Its state is seeded with the
// 69069 linear recurrence and each [MersenneTwister.Uniforms] call restarts from the
// carried-over seed, leaving the last state word as the seed of the next call:
//
//	gen := rng.New(12345)
//	u := make([]float64, 1000)
//	gen.Uniforms(u)          // strictly inside (0,1)
//	rng.BoxMuller(u, 0, 1)   // standard normals, in place
//
// A generator is owned by exactly one goroutine. The batch driver draws all noise
// sequentially before any worker starts, which is what makes runs bit-reproducible
// regardless of the worker count.
package rng

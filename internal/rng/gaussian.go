package rng

import "math"

// BoxMuller turns uniforms in (0,1) into normal variates with mean mu and standard
// deviation sigma, in place. Elements are consumed in pairs (u[i], u[i+1]):
//
//	R = sqrt(-2 ln u[i]), Θ = 2π u[i+1]
//	u[i], u[i+1] = mu + sigma R cosΘ, mu + sigma R sinΘ
//
// For odd lengths the last element is paired with the original u[0] rather than a
// fresh draw, which keeps streams compatible with earlier runs at the cost of a
// slight correlation between the first and last outputs.
func BoxMuller(u []float64, mu, sigma float64) {
	if len(u) == 0 {
		return
	}

	first := u[0]
	last := len(u) - 1
	for i := 0; i < len(u); i += 2 {
		u0 := u[i]
		u1 := first
		if i < last {
			u1 = u[i+1]
		}

		r := math.Sqrt(-2 * math.Log(u0))
		sin, cos := math.Sincos(2 * math.Pi * u1)

		u[i] = mu + sigma*r*cos
		if i < last {
			u[i+1] = mu + sigma*r*sin
		}
	}
}

// Normal fills dst with normal variates drawn from a fresh stream of the generator.
func (mt *MersenneTwister) Normal(dst []float64, mu, sigma float64) {
	mt.Uniforms(dst)
	BoxMuller(dst, mu, sigma)
}

func (mt *MersenneTwister) StandardNormal(dst []float64) {
	mt.Normal(dst, 0, 1)
}

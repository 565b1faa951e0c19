package models

import (
	"fmt"

	"github.com/san-kum/sdesim/internal/dynamo"
)

// Linear is n uncoupled Ornstein-Uhlenbeck processes dx = (u - λx) dt + σ dω.
// With σ = 0 and u = 0 the implicit step reduces to x/(1 + λh).
type Linear struct {
	N      int
	Lambda float64
	Sigma  float64
	X0     float64
}

func NewLinear(n int) *Linear {
	return &Linear{N: n, Lambda: 1, Sigma: 0.1, X0: 1}
}

func (l *Linear) StateDim() int { return l.N }
func (l *Linear) NoiseDim() int { return l.N }

func (l *Linear) Drift(_ float64, x dynamo.State, u float64, _ dynamo.State, out dynamo.State) {
	for i := range out {
		out[i] = u - l.Lambda*x[i]
	}
}

func (l *Linear) Diffusion(_ float64, _ dynamo.State, _ float64, _ dynamo.State, out dynamo.State) {
	for i := range out {
		out[i] = l.Sigma
	}
}

func (l *Linear) Jacobian(_ float64, _ dynamo.State, _ float64, _ dynamo.State, out []float64) {
	for i := range out {
		out[i] = 0
	}
	for i := 0; i < l.N; i++ {
		out[i*l.N+i] = -l.Lambda
	}
}

func (l *Linear) DefaultState() dynamo.State {
	x := make(dynamo.State, l.N)
	x.Fill(l.X0)
	return x
}

func (l *Linear) GetParams() map[string]float64 {
	return map[string]float64{
		"n":      float64(l.N),
		"lambda": l.Lambda,
		"sigma":  l.Sigma,
		"x0":     l.X0,
	}
}

func (l *Linear) SetParam(name string, value float64) error {
	switch name {
	case "n":
		if value < 1 || value != float64(int(value)) {
			return fmt.Errorf("%w: dimension must be a positive integer, got %g", dynamo.ErrInvalidConfig, value)
		}
		l.N = int(value)
	case "lambda":
		l.Lambda = value
	case "sigma":
		l.Sigma = value
	case "x0":
		l.X0 = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

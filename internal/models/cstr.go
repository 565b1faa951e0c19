package models

import (
	"fmt"
	"math"

	"github.com/san-kum/sdesim/internal/dynamo"
)

// CSTR is an exothermic A + 2B -> C reaction in a continuously stirred tank.
// The state is (CA, CB, T) in mol/L and kelvin; the control is the inlet flow
// rate in L/s. Noise enters through the temperature only.
type CSTR struct {
	EaR    float64 // activation energy over gas constant [K]
	Rho    float64
	DeltaH float64
	CP     float64
	Beta   float64 // -DeltaH / (rho cP)
	CAin   float64
	CBin   float64
	Tin    float64
	V      float64 // reactor volume [L]
	K0     float64
	Sigma  float64
}

const (
	// SamplesPerExperiment is the length of FlowRateProfile.
	SamplesPerExperiment = 35
	// SampleSeconds is the hold time of one flow sample.
	SampleSeconds = 60
)

func NewCSTR() *CSTR {
	return &CSTR{
		EaR:    8500,
		Rho:    1,
		DeltaH: -560000,
		CP:     4186,
		Beta:   133.7793,
		CAin:   0.8,
		CBin:   1.2,
		Tin:    273.65,
		V:      0.105,
		K0:     48266327438.6281,
		Sigma:  10,
	}
}

func (c *CSTR) StateDim() int { return 3 }
func (c *CSTR) NoiseDim() int { return 3 }

func (c *CSTR) arrhenius(temperature float64) float64 {
	return c.K0 * math.Exp(-c.EaR/temperature)
}

func (c *CSTR) Drift(_ float64, x dynamo.State, u float64, _ dynamo.State, out dynamo.State) {
	ca, cb, temperature := x[0], x[1], x[2]

	r := c.arrhenius(temperature) * ca * cb
	fv := u / c.V

	out[0] = fv*(c.CAin-ca) - r
	out[1] = fv*(c.CBin-cb) - 2*r
	out[2] = fv*(c.Tin-temperature) + c.Beta*r
}

func (c *CSTR) Diffusion(_ float64, _ dynamo.State, u float64, _ dynamo.State, out dynamo.State) {
	out[0] = 0
	out[1] = 0
	out[2] = c.Sigma * u / c.V
}

func (c *CSTR) Jacobian(_ float64, x dynamo.State, u float64, _ dynamo.State, out []float64) {
	ca, cb, temperature := x[0], x[1], x[2]

	k := c.arrhenius(temperature)
	fv := u / c.V
	kCA := k * ca
	kCB := k * cb
	kT := ca * cb * c.EaR * k / (temperature * temperature)

	// column 0: d/dCA
	out[0] = -fv - kCB
	out[1] = -2 * kCB
	out[2] = c.Beta * kCB

	// column 1: d/dCB
	out[3] = -kCA
	out[4] = -fv - 2*kCA
	out[5] = c.Beta * kCA

	// column 2: d/dT
	out[6] = kT
	out[7] = -2 * kT
	out[8] = -fv + c.Beta*kT
}

// DefaultState is the initial tank content: (0.05, 0.25, Tin).
func (c *CSTR) DefaultState() dynamo.State {
	return dynamo.State{0.05, 0.25, c.Tin}
}

func (c *CSTR) GetParams() map[string]float64 {
	return map[string]float64{
		"EaR":    c.EaR,
		"rho":    c.Rho,
		"DeltaH": c.DeltaH,
		"cP":     c.CP,
		"beta":   c.Beta,
		"CAin":   c.CAin,
		"CBin":   c.CBin,
		"Tin":    c.Tin,
		"V":      c.V,
		"k0":     c.K0,
		"sigma":  c.Sigma,
	}
}

func (c *CSTR) SetParam(name string, value float64) error {
	switch name {
	case "EaR":
		c.EaR = value
	case "rho":
		c.Rho = value
	case "DeltaH":
		c.DeltaH = value
	case "cP":
		c.CP = value
	case "beta":
		c.Beta = value
	case "CAin":
		c.CAin = value
	case "CBin":
		c.CBin = value
	case "Tin":
		c.Tin = value
	case "V":
		if value <= 0 {
			return fmt.Errorf("%w: volume must be positive, got %g", dynamo.ErrInvalidConfig, value)
		}
		c.V = value
	case "k0":
		c.K0 = value
	case "sigma":
		c.Sigma = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

// FlowRateProfile is the inlet flow of the reference experiment in mL/min,
// one value per one-minute sample.
func FlowRateProfile() []float64 {
	return []float64{
		700, 700, 700, 600, 600, 500, 500, 400, 400, 300,
		300, 300, 200, 200, 200, 200, 300, 300, 400, 400,
		500, 500, 600, 600, 700, 700, 700, 700, 200, 200,
		200, 200, 700, 700, 700,
	}
}

// FlowToSI converts mL/min to L/s.
func FlowToSI(mlPerMin float64) float64 {
	return mlPerMin / (60 * 1000)
}

// FlowSchedule converts a mL/min profile into a per-step control schedule.
func FlowSchedule(profile []float64, stepsPerSample int) dynamo.PiecewiseConstant {
	values := make([]float64, len(profile))
	for i, f := range profile {
		values[i] = FlowToSI(f)
	}
	return dynamo.PiecewiseConstant{Values: values, StepsPerSample: stepsPerSample}
}

// Package control implements a receding-horizon trajectory controller for a
// ground vehicle. Each cycle it builds a finite-horizon optimal control
// problem over a kinematic bicycle model, hands it to the nlp solver, and
// extracts the latency-compensated actuation from the solution.
package control

import (
	"fmt"
	"math"
)

// Config holds every tuning knob of the controller. It is fixed for the
// lifetime of a Controller: the horizon parameters determine the decision
// vector layout and must not change between solves.
type Config struct {
	// Horizon is the number of discretized timesteps N.
	Horizon int `json:"horizon"`
	// DtS is the timestep duration in seconds.
	DtS float64 `json:"dt_s"`
	// RefVelocity is the target cruise speed the tracking cost pulls toward.
	RefVelocity float64 `json:"ref_velocity"`

	// Tracking cost weights.
	WeightCTE  float64 `json:"weight_cte"`
	WeightEPsi float64 `json:"weight_epsi"`
	WeightV    float64 `json:"weight_v"`

	// Actuator magnitude weights.
	WeightDelta float64 `json:"weight_delta"`
	WeightA     float64 `json:"weight_a"`

	// Actuator smoothness weights. WeightDDelta is the dominant ride
	// comfort versus responsiveness knob.
	WeightDDelta float64 `json:"weight_ddelta"`
	WeightDA     float64 `json:"weight_da"`

	// MaxDelta is the physical steering angle limit in radians.
	MaxDelta float64 `json:"max_delta_rad"`
	// MaxAccel bounds the normalized throttle/brake command.
	MaxAccel float64 `json:"max_accel"`

	// Lf is the distance from the front axle to the center of gravity,
	// calibrated so the model turning radius matches the vehicle.
	Lf float64 `json:"lf_m"`

	// LatencyS is the sensor-to-actuator delay. Actuations within this
	// window are held at the previously issued command.
	LatencyS float64 `json:"latency_s"`

	// MaxSolveTimeS is the wall-clock budget for one solve.
	MaxSolveTimeS float64 `json:"max_solve_time_s"`
}

// LatencySteps is the number of horizon steps covered by the actuation
// latency, rounded to the nearest step.
func (c Config) LatencySteps() int {
	return int(c.LatencyS/c.DtS + 0.5)
}

// Validate rejects configurations that would produce a degenerate problem.
// It is meant to run once at startup, not per cycle.
func (c Config) Validate() error {
	if c.Horizon < 2 {
		return fmt.Errorf("config: horizon %d, need at least 2", c.Horizon)
	}
	if c.DtS <= 0 {
		return fmt.Errorf("config: dt_s must be positive, got %g", c.DtS)
	}
	if c.LatencyS < 0 {
		return fmt.Errorf("config: latency_s must be non-negative, got %g", c.LatencyS)
	}
	if c.LatencySteps() >= c.Horizon-1 {
		return fmt.Errorf("config: latency covers %d steps, all %d actuations would be held fixed",
			c.LatencySteps(), c.Horizon-1)
	}
	if c.MaxDelta <= 0 || c.MaxAccel <= 0 {
		return fmt.Errorf("config: actuator limits must be positive (max_delta_rad=%g, max_accel=%g)",
			c.MaxDelta, c.MaxAccel)
	}
	if c.Lf <= 0 {
		return fmt.Errorf("config: lf_m must be positive, got %g", c.Lf)
	}
	if c.MaxSolveTimeS <= 0 {
		return fmt.Errorf("config: max_solve_time_s must be positive, got %g", c.MaxSolveTimeS)
	}
	for _, w := range []struct {
		name string
		v    float64
	}{
		{"weight_cte", c.WeightCTE},
		{"weight_epsi", c.WeightEPsi},
		{"weight_v", c.WeightV},
		{"weight_delta", c.WeightDelta},
		{"weight_a", c.WeightA},
		{"weight_ddelta", c.WeightDDelta},
		{"weight_da", c.WeightDA},
	} {
		if w.v < 0 || math.IsNaN(w.v) {
			return fmt.Errorf("config: %s must be non-negative, got %g", w.name, w.v)
		}
	}
	return nil
}

// MaxDelta25Deg is the stock steering limit of 25 degrees in radians.
const MaxDelta25Deg = 0.436332

func baseProfile() Config {
	return Config{
		WeightCTE:     1,
		WeightEPsi:    1,
		WeightV:       1,
		WeightA:       1,
		WeightDA:      1,
		MaxDelta:      MaxDelta25Deg,
		MaxAccel:      1.0,
		Lf:            2.67,
		LatencyS:      0.1,
		MaxSolveTimeS: 0.05,
	}
}

// ProfileDefault is the general-purpose tuning: 12-step horizon at 50 ms
// with heavy steering smoothing.
func ProfileDefault() Config {
	c := baseProfile()
	c.Horizon = 12
	c.DtS = 0.05
	c.RefVelocity = 85
	c.WeightDelta = 200
	c.WeightDDelta = 700
	return c
}

// Profile72MPH is tuned for ~72 mph track runs: shorter horizon, slightly
// softer steering smoothing.
func Profile72MPH() Config {
	c := baseProfile()
	c.Horizon = 10
	c.DtS = 0.05
	c.RefVelocity = 75
	c.WeightDelta = 200
	c.WeightDDelta = 500
	return c
}

// Profile88MPH is tuned for high-speed runs: longer step, steering effort
// penalized hard instead of its rate.
func Profile88MPH() Config {
	c := baseProfile()
	c.Horizon = 12
	c.DtS = 0.1
	c.RefVelocity = 90
	c.WeightDelta = 5000
	c.WeightDDelta = 1
	return c
}

// ProfileByName resolves a profile name from a scenario or flag.
func ProfileByName(name string) (Config, error) {
	switch name {
	case "", "default":
		return ProfileDefault(), nil
	case "72mph":
		return Profile72MPH(), nil
	case "88mph":
		return Profile88MPH(), nil
	}
	return Config{}, fmt.Errorf("unknown tuning profile %q (available: default, 72mph, 88mph)", name)
}

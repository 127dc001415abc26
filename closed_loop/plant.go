package main

import "math"

// Plant is the simulated vehicle used to close the loop: the same kinematic
// bicycle model the controller predicts with, integrated in the world frame.
// Commands pass through a delay queue so the simulation reproduces the
// sensor-to-actuator latency the controller compensates for.
type Plant struct {
	X   float64
	Y   float64
	Psi float64
	V   float64

	lf    float64
	queue [][2]float64
}

// NewPlant creates a plant at the given pose with an actuation delay of
// delaySteps control cycles.
func NewPlant(start StartPose, lf float64, delaySteps int) *Plant {
	if delaySteps < 0 {
		delaySteps = 0
	}
	return &Plant{
		X:     start.X,
		Y:     start.Y,
		Psi:   start.PsiRad,
		V:     start.V,
		lf:    lf,
		queue: make([][2]float64, delaySteps),
	}
}

// Step enqueues the newly issued command, applies the one whose delay has
// elapsed and integrates the model for dt seconds.
func (p *Plant) Step(delta, a, dt float64) {
	cmd := [2]float64{delta, a}
	if len(p.queue) > 0 {
		p.queue = append(p.queue, cmd)
		cmd = p.queue[0]
		p.queue = p.queue[1:]
	}

	d, acc := cmd[0], cmd[1]
	p.X += p.V * math.Cos(p.Psi) * dt
	p.Y += p.V * math.Sin(p.Psi) * dt
	p.Psi += p.V / p.lf * d * dt
	p.V += acc * dt
	if p.V < 0 {
		p.V = 0
	}
}

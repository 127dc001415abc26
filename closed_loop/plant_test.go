package main

import (
	"math"
	"testing"
)

func TestPlantStepStraight(t *testing.T) {
	p := NewPlant(StartPose{V: 10}, 2.67, 0)

	p.Step(0, 0, 0.1)
	if math.Abs(p.X-1.0) > 1e-12 || p.Y != 0 || p.Psi != 0 {
		t.Errorf("after straight step: x=%v y=%v psi=%v, want x=1 y=0 psi=0", p.X, p.Y, p.Psi)
	}
}

func TestPlantStepTurnAndAccelerate(t *testing.T) {
	p := NewPlant(StartPose{V: 10}, 2.67, 0)

	p.Step(0.1, 0.5, 0.1)
	wantPsi := 10.0 / 2.67 * 0.1 * 0.1
	if math.Abs(p.Psi-wantPsi) > 1e-12 {
		t.Errorf("psi = %v, want %v", p.Psi, wantPsi)
	}
	if math.Abs(p.V-10.05) > 1e-12 {
		t.Errorf("v = %v, want 10.05", p.V)
	}
}

func TestPlantActuationDelay(t *testing.T) {
	p := NewPlant(StartPose{V: 10}, 2.67, 2)

	// The first two cycles still run the zero commands preloaded in the
	// delay queue; the issued command lands on the third step.
	p.Step(0.2, 0, 0.05)
	p.Step(0.2, 0, 0.05)
	if p.Psi != 0 {
		t.Fatalf("psi = %v before the delay elapsed, want 0", p.Psi)
	}
	p.Step(0.2, 0, 0.05)
	if p.Psi == 0 {
		t.Error("psi unchanged after the delay elapsed")
	}
}

func TestPlantSpeedNeverNegative(t *testing.T) {
	p := NewPlant(StartPose{V: 0.1}, 2.67, 0)
	for i := 0; i < 10; i++ {
		p.Step(0, -1, 0.1)
	}
	if p.V < 0 {
		t.Errorf("v = %v, want non-negative", p.V)
	}
}

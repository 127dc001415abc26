package control

import (
	"math"
	"testing"

	"mpc-drive-core/utils"
)

// buildConsistentVars forward-simulates the discretized bicycle model from
// the given initial state and actuation sequence, producing a decision
// vector whose transition residuals must evaluate to exactly zero.
func buildConsistentVars(cfg Config, l layout, path utils.Poly3, init State, deltas, as []float64) []float64 {
	vars := make([]float64, l.numVars)
	vars[l.xStart] = init.X
	vars[l.yStart] = init.Y
	vars[l.psiStart] = init.Psi
	vars[l.vStart] = init.V
	vars[l.cteStart] = init.CTE
	vars[l.epsiStart] = init.EPsi

	dt := cfg.DtS
	for i := 0; i < l.n-1; i++ {
		vars[l.deltaStart+i] = deltas[i]
		vars[l.aStart+i] = as[i]

		x0 := vars[l.xStart+i]
		y0 := vars[l.yStart+i]
		psi0 := vars[l.psiStart+i]
		v0 := vars[l.vStart+i]
		epsi0 := vars[l.epsiStart+i]

		vars[l.xStart+i+1] = x0 + v0*math.Cos(psi0)*dt
		vars[l.yStart+i+1] = y0 + v0*math.Sin(psi0)*dt
		vars[l.psiStart+i+1] = psi0 + v0/cfg.Lf*deltas[i]*dt
		vars[l.vStart+i+1] = v0 + as[i]*dt
		vars[l.cteStart+i+1] = (path.Eval(x0) - y0) + v0*math.Sin(epsi0)*dt
		vars[l.epsiStart+i+1] = (psi0 - path.TangentAngle(x0)) + v0/cfg.Lf*deltas[i]*dt
	}
	return vars
}

func TestEvalResidualsVanishOnConsistentTrajectory(t *testing.T) {
	cfg := Profile72MPH()
	l := newLayout(cfg.Horizon)
	path := utils.Poly3{0.5, 0.1, -0.01, 0.002}
	init := State{X: 1, Y: 0.5, Psi: 0.1, V: 10, CTE: 0.3, EPsi: -0.05}

	deltas := make([]float64, l.n-1)
	as := make([]float64, l.n-1)
	for i := range deltas {
		deltas[i] = 0.02 * math.Sin(float64(i))
		as[i] = 0.5 - 0.05*float64(i)
	}

	vars := buildConsistentVars(cfg, l, path, init, deltas, as)
	m := costModel{cfg: cfg, lay: l, path: path}
	_, res := m.Eval(vars)

	// Initial-state residuals carry the raw variable values; the pinned
	// constraint bounds supply the matching target.
	if res[l.xStart] != init.X || res[l.vStart] != init.V {
		t.Errorf("initial residuals = %v/%v, want %v/%v", res[l.xStart], res[l.vStart], init.X, init.V)
	}

	for k, start := range l.stateStarts() {
		for i := 1; i < l.n; i++ {
			if r := res[start+i]; math.Abs(r) > 1e-12 {
				t.Errorf("state block %d step %d residual = %g, want 0", k, i, r)
			}
		}
	}
}

func TestEvalCostAtRestIsZero(t *testing.T) {
	cfg := Profile72MPH()
	cfg.RefVelocity = 0
	l := newLayout(cfg.Horizon)
	m := costModel{cfg: cfg, lay: l}

	cost, _ := m.Eval(make([]float64, l.numVars))
	if cost != 0 {
		t.Errorf("cost at rest = %g, want 0", cost)
	}
}

func TestEvalCostTerms(t *testing.T) {
	cfg := Profile72MPH()
	cfg.RefVelocity = 0
	l := newLayout(cfg.Horizon)
	m := costModel{cfg: cfg, lay: l}

	// A single cte entry contributes WeightCTE * cte^2 and, through the
	// transition residuals only, no cost.
	vars := make([]float64, l.numVars)
	vars[l.cteStart+3] = 2.0
	cost, _ := m.Eval(vars)
	if want := cfg.WeightCTE * 4.0; math.Abs(cost-want) > 1e-12 {
		t.Errorf("cte cost = %g, want %g", cost, want)
	}

	// A single steering actuation is charged its magnitude weight plus
	// the rate weight for the two gaps it creates.
	vars = make([]float64, l.numVars)
	vars[l.deltaStart+2] = 0.1
	cost, _ = m.Eval(vars)
	want := cfg.WeightDelta*0.01 + cfg.WeightDDelta*2*0.01
	if math.Abs(cost-want) > 1e-12 {
		t.Errorf("steering cost = %g, want %g", cost, want)
	}
}

func TestEvalIsPure(t *testing.T) {
	cfg := Profile72MPH()
	l := newLayout(cfg.Horizon)
	m := costModel{cfg: cfg, lay: l, path: utils.Poly3{0.1, 0.2, 0, 0}}

	vars := make([]float64, l.numVars)
	for i := range vars {
		vars[i] = 0.01 * float64(i)
	}
	snapshot := append([]float64(nil), vars...)

	c1, r1 := m.Eval(vars)
	c2, r2 := m.Eval(vars)

	if c1 != c2 {
		t.Errorf("cost changed between identical evaluations: %g vs %g", c1, c2)
	}
	for i := range r1 {
		if r1[i] != r2[i] {
			t.Errorf("residual %d changed between identical evaluations", i)
		}
	}
	for i := range vars {
		if vars[i] != snapshot[i] {
			t.Fatalf("Eval mutated its input at index %d", i)
		}
	}
}

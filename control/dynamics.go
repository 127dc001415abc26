package control

import (
	"math"

	"mpc-drive-core/utils"
)

// costModel evaluates the objective and the dynamics residuals for a
// candidate decision vector. It captures the track polynomial at
// construction and is otherwise stateless: Eval is a pure function, safe for
// the solver to call repeatedly while differentiating.
type costModel struct {
	cfg  Config
	lay  layout
	path utils.Poly3
}

// Eval returns the scalar cost and the constraint residual vector. A
// residual vector of zeros (after the pinned initial entries) means the
// trajectory is exactly consistent with the discretized bicycle model.
func (m costModel) Eval(vars []float64) (float64, []float64) {
	cfg, l := m.cfg, m.lay
	n := l.n
	dt := cfg.DtS

	cost := 0.0

	// Tracking error against the reference state. Reference cte and epsi
	// are zero; reference speed is the configured cruise target.
	for i := 0; i < n; i++ {
		cte := vars[l.cteStart+i]
		epsi := vars[l.epsiStart+i]
		dv := vars[l.vStart+i] - cfg.RefVelocity
		cost += cfg.WeightCTE*cte*cte + cfg.WeightEPsi*epsi*epsi + cfg.WeightV*dv*dv
	}

	// Actuator effort.
	for i := 0; i < n-1; i++ {
		delta := vars[l.deltaStart+i]
		a := vars[l.aStart+i]
		cost += cfg.WeightDelta*delta*delta + cfg.WeightA*a*a
	}

	// Actuator rate, the gap between sequential actuations.
	for i := 0; i < n-2; i++ {
		dd := vars[l.deltaStart+i+1] - vars[l.deltaStart+i]
		da := vars[l.aStart+i+1] - vars[l.aStart+i]
		cost += cfg.WeightDDelta*dd*dd + cfg.WeightDA*da*da
	}

	res := make([]float64, l.numConstraints)

	// Initial-state residuals. The constraint bounds pin these to the
	// sensed state, so the residual is just the variable itself.
	res[l.xStart] = vars[l.xStart]
	res[l.yStart] = vars[l.yStart]
	res[l.psiStart] = vars[l.psiStart]
	res[l.vStart] = vars[l.vStart]
	res[l.cteStart] = vars[l.cteStart]
	res[l.epsiStart] = vars[l.epsiStart]

	// Transition residuals: actual next state minus the bicycle-model
	// prediction from the current state and actuation.
	for i := 0; i < n-1; i++ {
		x1 := vars[l.xStart+i+1]
		y1 := vars[l.yStart+i+1]
		psi1 := vars[l.psiStart+i+1]
		v1 := vars[l.vStart+i+1]
		cte1 := vars[l.cteStart+i+1]
		epsi1 := vars[l.epsiStart+i+1]

		x0 := vars[l.xStart+i]
		y0 := vars[l.yStart+i]
		psi0 := vars[l.psiStart+i]
		v0 := vars[l.vStart+i]
		epsi0 := vars[l.epsiStart+i]

		delta0 := vars[l.deltaStart+i]
		a0 := vars[l.aStart+i]

		f0 := m.path.Eval(x0)
		psides0 := m.path.TangentAngle(x0)

		res[l.xStart+i+1] = x1 - (x0 + v0*math.Cos(psi0)*dt)
		res[l.yStart+i+1] = y1 - (y0 + v0*math.Sin(psi0)*dt)
		res[l.psiStart+i+1] = psi1 - (psi0 + v0/cfg.Lf*delta0*dt)
		res[l.vStart+i+1] = v1 - (v0 + a0*dt)
		res[l.cteStart+i+1] = cte1 - ((f0 - y0) + v0*math.Sin(epsi0)*dt)
		res[l.epsiStart+i+1] = epsi1 - ((psi0 - psides0) + v0/cfg.Lf*delta0*dt)
	}

	return cost, res
}

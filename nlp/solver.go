package nlp

import (
	"math"
	"time"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

const (
	initialPenalty = 10.0
	maxPenalty     = 1e12
	penaltyGrowth  = 10.0
	// violation must shrink by this factor per outer iteration,
	// otherwise the penalty weight is increased
	violationShrink = 0.25
)

// Solve minimizes the problem cost subject to the equality constraints and
// variable bounds. The error return covers malformed inputs only; solver
// non-convergence is reported through Result.Status so callers can apply a
// best-effort policy.
func Solve(p Problem, x0 []float64, b Bounds, opts Options) (Result, error) {
	if err := validate(p, x0, b); err != nil {
		return Result{Status: Failed}, err
	}
	opts = opts.withDefaults()
	deadline := time.Now().Add(opts.MaxTime)

	// Variables pinned by degenerate bounds are removed from the free set.
	fixed := make([]bool, p.NumVars)
	nFree := 0
	for i := range fixed {
		if b.VarLower[i] == b.VarUpper[i] {
			fixed[i] = true
		} else {
			nFree++
		}
	}

	expand := func(z []float64) []float64 {
		x := make([]float64, p.NumVars)
		k := 0
		for i := range x {
			if fixed[i] {
				x[i] = b.VarLower[i]
			} else {
				x[i] = z[k]
				k++
			}
		}
		return x
	}

	if nFree == 0 {
		x := expand(nil)
		cost, res := p.Eval(x)
		worst := 0.0
		for j := range res {
			worst = math.Max(worst, math.Abs(res[j]-b.ConLower[j]))
		}
		st := Converged
		if worst >= opts.Tolerance {
			st = IterationLimit
		}
		return Result{Status: st, X: x, Cost: cost, MaxViolation: worst}, nil
	}

	z := make([]float64, 0, nFree)
	for i := range fixed {
		if !fixed[i] {
			z = append(z, clampTo(x0[i], b.VarLower[i], b.VarUpper[i]))
		}
	}

	targets := b.ConLower
	lambda := make([]float64, p.NumConstraints)
	rho := initialPenalty
	boundRho := 1e4

	residualAt := func(x []float64) (float64, []float64) {
		cost, res := p.Eval(x)
		c := make([]float64, len(res))
		for j := range res {
			c[j] = res[j] - targets[j]
		}
		return cost, c
	}

	boundViolation := func(x []float64) float64 {
		worst := 0.0
		for i := range x {
			if v := b.VarLower[i] - x[i]; v > worst {
				worst = v
			}
			if v := x[i] - b.VarUpper[i]; v > worst {
				worst = v
			}
		}
		return worst
	}

	augmented := func(z []float64) float64 {
		x := expand(z)
		cost, c := residualAt(x)
		for j, cj := range c {
			cost += lambda[j]*cj + 0.5*rho*cj*cj
		}
		for i := range x {
			if fixed[i] {
				continue
			}
			if v := b.VarLower[i] - x[i]; v > 0 {
				cost += 0.5 * boundRho * v * v
			}
			if v := x[i] - b.VarUpper[i]; v > 0 {
				cost += 0.5 * boundRho * v * v
			}
		}
		return cost
	}

	prevViol := math.Inf(1)
	status := IterationLimit
	outer := 0

	for ; outer < opts.MaxOuterIter; outer++ {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			status = TimeLimit
			break
		}

		prob := optimize.Problem{
			Func: augmented,
			Grad: func(grad, z []float64) {
				fd.Gradient(grad, augmented, z, nil)
			},
		}
		settings := &optimize.Settings{
			MajorIterations: opts.MaxInnerIter,
			Runtime:         remaining,
		}
		res, err := optimize.Minimize(prob, z, settings, &optimize.LBFGS{})
		if err != nil && (res == nil || res.X == nil) {
			return Result{Status: Failed}, nil
		}
		copy(z, res.X)

		x := expand(z)
		_, c := residualAt(x)
		viol := math.Max(floats.Norm(c, math.Inf(1)), boundViolation(x))

		if opts.Logf != nil {
			opts.Logf("nlp outer=%d rho=%.1e viol=%.3e", outer, rho, viol)
		}

		if viol < opts.Tolerance {
			status = Converged
			outer++
			break
		}

		for j := range lambda {
			lambda[j] += rho * c[j]
		}
		if viol > violationShrink*prevViol && rho < maxPenalty {
			rho *= penaltyGrowth
			boundRho *= penaltyGrowth
		}
		prevViol = viol
	}

	x := expand(z)
	// The returned point always respects the hard actuator bounds.
	for i := range x {
		x[i] = clampTo(x[i], b.VarLower[i], b.VarUpper[i])
	}
	cost, c := residualAt(x)

	return Result{
		Status:       status,
		X:            x,
		Cost:         cost,
		MaxViolation: math.Max(floats.Norm(c, math.Inf(1)), boundViolation(x)),
		OuterIters:   outer,
	}, nil
}

func clampTo(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

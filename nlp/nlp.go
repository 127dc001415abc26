// Package nlp solves the small box-constrained equality-constrained
// programs produced by the trajectory controller. The interface is a pure
// evaluation function plus parallel bound vectors; the backend is an
// augmented Lagrangian loop around gonum's L-BFGS minimizer.
package nlp

import (
	"fmt"
	"math"
	"time"
)

// Status reports how a solve terminated.
type Status int

const (
	// Converged means constraint violation fell below tolerance.
	Converged Status = iota
	// IterationLimit means the outer loop ran out of iterations; the
	// returned point is the best found and is usually still usable.
	IterationLimit
	// TimeLimit means the wall-clock budget expired; the returned point is
	// the best found so far.
	TimeLimit
	// Failed means no usable point was produced.
	Failed
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case IterationLimit:
		return "iteration_limit"
	case TimeLimit:
		return "time_limit"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Usable reports whether the result carries a point worth acting on.
func (s Status) Usable() bool {
	return s == Converged || s == IterationLimit || s == TimeLimit
}

// Problem is the evaluation side of a solve. Eval must be a pure function of
// its argument: the solver calls it many times, including for
// finite-difference gradients.
type Problem struct {
	NumVars        int
	NumConstraints int
	// Eval returns the scalar cost and the constraint residual vector at x.
	Eval func(x []float64) (cost float64, residuals []float64)
}

// Bounds carries the parallel lower/upper vectors. A variable with equal
// lower and upper bound is held fixed at that value. Constraint bounds must
// be equalities (lower == upper); the residual is driven to that value.
type Bounds struct {
	VarLower []float64
	VarUpper []float64
	ConLower []float64
	ConUpper []float64
}

// Options tunes the solver. Zero values select defaults.
type Options struct {
	// MaxTime is the wall-clock budget for the whole solve.
	MaxTime time.Duration
	// MaxOuterIter bounds the augmented Lagrangian multiplier updates.
	MaxOuterIter int
	// MaxInnerIter bounds L-BFGS iterations per outer step.
	MaxInnerIter int
	// Tolerance is the max constraint violation accepted as converged.
	Tolerance float64
	// Logf, when set, receives one progress line per outer iteration.
	Logf func(format string, args ...any)
}

func (o Options) withDefaults() Options {
	if o.MaxTime <= 0 {
		o.MaxTime = 50 * time.Millisecond
	}
	if o.MaxOuterIter <= 0 {
		o.MaxOuterIter = 15
	}
	if o.MaxInnerIter <= 0 {
		o.MaxInnerIter = 200
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-6
	}
	return o
}

// Result is the outcome of a solve. X is always within the variable bounds
// when Status.Usable() holds.
type Result struct {
	Status       Status
	X            []float64
	Cost         float64
	MaxViolation float64
	OuterIters   int
}

func validate(p Problem, x0 []float64, b Bounds) error {
	if p.Eval == nil {
		return fmt.Errorf("nlp: nil Eval")
	}
	if p.NumVars <= 0 {
		return fmt.Errorf("nlp: invalid variable count %d", p.NumVars)
	}
	if len(x0) != p.NumVars {
		return fmt.Errorf("nlp: initial point has %d entries, want %d", len(x0), p.NumVars)
	}
	if len(b.VarLower) != p.NumVars || len(b.VarUpper) != p.NumVars {
		return fmt.Errorf("nlp: variable bounds have %d/%d entries, want %d",
			len(b.VarLower), len(b.VarUpper), p.NumVars)
	}
	if len(b.ConLower) != p.NumConstraints || len(b.ConUpper) != p.NumConstraints {
		return fmt.Errorf("nlp: constraint bounds have %d/%d entries, want %d",
			len(b.ConLower), len(b.ConUpper), p.NumConstraints)
	}
	for i := range b.VarLower {
		if b.VarLower[i] > b.VarUpper[i] {
			return fmt.Errorf("nlp: variable %d has inverted bounds [%g, %g]", i, b.VarLower[i], b.VarUpper[i])
		}
	}
	for j := range b.ConLower {
		if b.ConLower[j] != b.ConUpper[j] {
			return fmt.Errorf("nlp: constraint %d is not an equality [%g, %g]", j, b.ConLower[j], b.ConUpper[j])
		}
		if math.IsNaN(b.ConLower[j]) || math.IsInf(b.ConLower[j], 0) {
			return fmt.Errorf("nlp: constraint %d has non-finite bound", j)
		}
	}
	return nil
}

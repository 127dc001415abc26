package nlp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unbounded(n int) ([]float64, []float64) {
	lo := make([]float64, n)
	hi := make([]float64, n)
	for i := range lo {
		lo[i] = -1e19
		hi[i] = 1e19
	}
	return lo, hi
}

func TestSolveEqualityConstrainedQuadratic(t *testing.T) {
	// min (x0-2)^2 + (x1+1)^2 subject to x0 + x1 = 0.
	// Optimum: x = (1.5, -1.5).
	p := Problem{
		NumVars:        2,
		NumConstraints: 1,
		Eval: func(x []float64) (float64, []float64) {
			cost := (x[0]-2)*(x[0]-2) + (x[1]+1)*(x[1]+1)
			return cost, []float64{x[0] + x[1]}
		},
	}
	lo, hi := unbounded(2)
	b := Bounds{VarLower: lo, VarUpper: hi, ConLower: []float64{0}, ConUpper: []float64{0}}

	res, err := Solve(p, []float64{0, 0}, b, Options{MaxTime: 5 * time.Second})
	require.NoError(t, err)
	require.True(t, res.Status.Usable(), "status %s", res.Status)

	assert.InDelta(t, 1.5, res.X[0], 1e-3)
	assert.InDelta(t, -1.5, res.X[1], 1e-3)
	assert.Less(t, res.MaxViolation, 1e-5)
}

func TestSolveHoldsFixedVariables(t *testing.T) {
	// x0 is pinned at 2 by degenerate bounds.
	p := Problem{
		NumVars: 2,
		Eval: func(x []float64) (float64, []float64) {
			return x[0]*x[0] + (x[1]-3)*(x[1]-3), nil
		},
	}
	b := Bounds{
		VarLower: []float64{2, -1e19},
		VarUpper: []float64{2, 1e19},
	}

	res, err := Solve(p, []float64{0, 0}, b, Options{MaxTime: 5 * time.Second})
	require.NoError(t, err)
	require.True(t, res.Status.Usable())

	assert.Equal(t, 2.0, res.X[0], "fixed variable must hold its bound exactly")
	assert.InDelta(t, 3.0, res.X[1], 1e-3)
}

func TestSolveRespectsBounds(t *testing.T) {
	// Unconstrained optimum at x=5 sits outside the box [-1, 1].
	p := Problem{
		NumVars: 1,
		Eval: func(x []float64) (float64, []float64) {
			return (x[0] - 5) * (x[0] - 5), nil
		},
	}
	b := Bounds{VarLower: []float64{-1}, VarUpper: []float64{1}}

	res, err := Solve(p, []float64{0}, b, Options{MaxTime: 5 * time.Second})
	require.NoError(t, err)
	require.True(t, res.Status.Usable())

	assert.LessOrEqual(t, res.X[0], 1.0)
	assert.InDelta(t, 1.0, res.X[0], 1e-2)
}

func TestSolveBestEffortOnTinyBudget(t *testing.T) {
	p := Problem{
		NumVars:        2,
		NumConstraints: 1,
		Eval: func(x []float64) (float64, []float64) {
			return x[0]*x[0] + x[1]*x[1], []float64{x[0] + x[1] - 1}
		},
	}
	lo, hi := unbounded(2)
	b := Bounds{VarLower: lo, VarUpper: hi, ConLower: []float64{0}, ConUpper: []float64{0}}

	res, err := Solve(p, []float64{0, 0}, b, Options{MaxTime: time.Nanosecond})
	require.NoError(t, err)

	// Even at budget expiry the result carries a point.
	assert.True(t, res.Status.Usable())
	assert.Len(t, res.X, 2)
}

func TestSolveRejectsMalformedInput(t *testing.T) {
	eval := func(x []float64) (float64, []float64) { return 0, nil }

	_, err := Solve(Problem{NumVars: 1, Eval: eval}, []float64{0},
		Bounds{VarLower: []float64{1}, VarUpper: []float64{-1}}, Options{})
	assert.Error(t, err, "inverted bounds")

	_, err = Solve(Problem{NumVars: 1}, []float64{0},
		Bounds{VarLower: []float64{0}, VarUpper: []float64{1}}, Options{})
	assert.Error(t, err, "nil Eval")

	_, err = Solve(Problem{NumVars: 1, NumConstraints: 1, Eval: func(x []float64) (float64, []float64) { return 0, []float64{0} }},
		[]float64{0},
		Bounds{VarLower: []float64{0}, VarUpper: []float64{1}, ConLower: []float64{0}, ConUpper: []float64{1}}, Options{})
	assert.Error(t, err, "inequality constraint bounds")
}

package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Poly3 holds the coefficients c0..c3 of a cubic y = c0 + c1*x + c2*x^2 + c3*x^3.
// This is the track model handed to the trajectory controller each cycle.
type Poly3 [4]float64

// Eval returns f(x).
func (p Poly3) Eval(x float64) float64 {
	return p[0] + p[1]*x + p[2]*x*x + p[3]*x*x*x
}

// Slope returns the analytic derivative f'(x) = c1 + 2*c2*x + 3*c3*x^2.
func (p Poly3) Slope(x float64) float64 {
	return p[1] + 2*p[2]*x + 3*p[3]*x*x
}

// TangentAngle returns the heading implied by the curve tangent at x.
func (p Poly3) TangentAngle(x float64) float64 {
	return math.Atan(p.Slope(x))
}

// FitPoly3 fits a cubic through the given points by least squares,
// solving the Vandermonde system with a QR factorization.
// At least 4 points are required.
func FitPoly3(xs, ys []float64) (Poly3, error) {
	if len(xs) != len(ys) {
		return Poly3{}, fmt.Errorf("poly fit: mismatched point counts %d vs %d", len(xs), len(ys))
	}
	if len(xs) < 4 {
		return Poly3{}, fmt.Errorf("poly fit: need at least 4 points, got %d", len(xs))
	}

	n := len(xs)
	a := mat.NewDense(n, 4, nil)
	b := mat.NewDense(n, 1, nil)
	for i, x := range xs {
		a.Set(i, 0, 1)
		a.Set(i, 1, x)
		a.Set(i, 2, x*x)
		a.Set(i, 3, x*x*x)
		b.Set(i, 0, ys[i])
	}

	var qr mat.QR
	qr.Factorize(a)

	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, b); err != nil {
		return Poly3{}, fmt.Errorf("poly fit: %w", err)
	}

	var p Poly3
	for i := range p {
		p[i] = sol.At(i, 0)
	}
	return p, nil
}

package control

import (
	"fmt"
	"math"
	"time"

	"mpc-drive-core/nlp"
	"mpc-drive-core/utils"
)

// unbounded is the effectively-unconstrained range for non-actuator entries.
const unbounded = 1.0e19

// State is the vehicle kinematic state in the vehicle-local frame, with
// cross-track and heading error already computed against the same track
// polynomial that is passed to Solve.
type State struct {
	X    float64
	Y    float64
	Psi  float64
	V    float64
	CTE  float64
	EPsi float64
}

func (s State) finite() bool {
	for _, v := range []float64{s.X, s.Y, s.Psi, s.V, s.CTE, s.EPsi} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Result is one controller cycle's output. X..EPsi, Delta and A are the
// solved trajectory values at timestep 1, the one-step-ahead prediction used
// for display. IssuedDelta and IssuedA are the latency-compensated command
// to actually send to the actuators: the first actuation slot not held fixed
// by the latency window. The two differ on purpose; the issued command skips
// the slots that were forced equal to the previously sent command.
type Result struct {
	X    float64
	Y    float64
	Psi  float64
	V    float64
	CTE  float64
	EPsi float64

	Delta float64
	A     float64

	IssuedDelta float64
	IssuedA     float64

	Cost         float64
	SolverStatus nlp.Status
}

// Controller re-solves the horizon problem every control cycle. It retains
// the last issued actuation between cycles for latency compensation, so one
// instance must not be shared across concurrent solves.
type Controller struct {
	cfg          Config
	lay          layout
	latencySteps int

	// last issued command, held as the bound value for the actuation
	// slots inside the latency window
	lastDelta float64
	lastA     float64

	predX []float64
	predY []float64

	logf func(format string, args ...any)
}

// New validates the configuration and builds a controller with zero retained
// actuation.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		cfg:          cfg,
		lay:          newLayout(cfg.Horizon),
		latencySteps: cfg.LatencySteps(),
		predX:        make([]float64, cfg.Horizon-1),
		predY:        make([]float64, cfg.Horizon-1),
	}, nil
}

// SetLogf routes solver progress lines to the given printf-style sink.
func (c *Controller) SetLogf(logf func(format string, args ...any)) {
	c.logf = logf
}

// Config returns the controller's fixed configuration.
func (c *Controller) Config() Config { return c.cfg }

// Solve runs one receding-horizon cycle: build the problem around the sensed
// state and track polynomial, solve it, extract the latency-compensated
// command and commit it as the retained actuation for the next cycle.
//
// A solver that stops on its time or iteration budget still yields a usable
// point; only a solve that produced no point at all returns an error, and in
// that case the retained actuation is left untouched.
func (c *Controller) Solve(state State, coeffs []float64) (Result, error) {
	if len(coeffs) != 4 {
		return Result{}, fmt.Errorf("mpc: want 4 polynomial coefficients, got %d", len(coeffs))
	}
	for i, v := range coeffs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Result{}, fmt.Errorf("mpc: coefficient %d is not finite", i)
		}
	}
	if !state.finite() {
		return Result{}, fmt.Errorf("mpc: state contains non-finite values")
	}

	var path utils.Poly3
	copy(path[:], coeffs)

	sol, err := c.solveRaw(state, path)
	if err != nil {
		return Result{}, err
	}
	if !sol.Status.Usable() || sol.X == nil {
		return Result{}, fmt.Errorf("mpc: solver produced no usable point (status %s)", sol.Status)
	}

	return c.extract(sol), nil
}

// solveRaw builds and solves the horizon problem, returning the raw solver
// result without committing any controller state.
func (c *Controller) solveRaw(state State, path utils.Poly3) (nlp.Result, error) {
	l := c.lay

	vars := make([]float64, l.numVars)
	varLower := make([]float64, l.numVars)
	varUpper := make([]float64, l.numVars)
	conLower := make([]float64, l.numConstraints)
	conUpper := make([]float64, l.numConstraints)

	// Initial guess: zeros everywhere except the current state seeded at
	// the block starts.
	stateVals := [6]float64{state.X, state.Y, state.Psi, state.V, state.CTE, state.EPsi}
	for k, start := range l.stateStarts() {
		vars[start] = stateVals[k]
	}

	for i := 0; i < l.deltaStart; i++ {
		varLower[i] = -unbounded
		varUpper[i] = unbounded
	}
	for i := l.deltaStart; i < l.aStart; i++ {
		varLower[i] = -c.cfg.MaxDelta
		varUpper[i] = c.cfg.MaxDelta
	}
	for i := l.aStart; i < l.numVars; i++ {
		varLower[i] = -c.cfg.MaxAccel
		varUpper[i] = c.cfg.MaxAccel
	}

	// Latency hold: actuations inside the delay window are already
	// committed on the real vehicle, so they are pinned to the last
	// issued command rather than left free.
	for i := 0; i < c.latencySteps; i++ {
		varLower[l.deltaStart+i] = c.lastDelta
		varUpper[l.deltaStart+i] = c.lastDelta
		varLower[l.aStart+i] = c.lastA
		varUpper[l.aStart+i] = c.lastA
	}

	// Constraint bounds are zero except the block starts, which pin the
	// initial state as a degenerate equality.
	for k, start := range l.stateStarts() {
		conLower[start] = stateVals[k]
		conUpper[start] = stateVals[k]
	}

	model := costModel{cfg: c.cfg, lay: l, path: path}
	problem := nlp.Problem{
		NumVars:        l.numVars,
		NumConstraints: l.numConstraints,
		Eval:           model.Eval,
	}
	bounds := nlp.Bounds{
		VarLower: varLower,
		VarUpper: varUpper,
		ConLower: conLower,
		ConUpper: conUpper,
	}
	opts := nlp.Options{
		MaxTime: time.Duration(c.cfg.MaxSolveTimeS * float64(time.Second)),
		Logf:    c.logf,
	}

	return nlp.Solve(problem, vars, bounds, opts)
}

// extract pulls the actuation command and predicted trajectory out of a
// solved vector and commits the retained actuation.
func (c *Controller) extract(sol nlp.Result) Result {
	l := c.lay

	// The first actuation slot past the latency window is the command to
	// issue; everything before it was pinned to the previous command.
	c.lastDelta = sol.X[l.deltaStart+c.latencySteps]
	c.lastA = sol.X[l.aStart+c.latencySteps]

	for i := 1; i < l.n; i++ {
		c.predX[i-1] = sol.X[l.xStart+i]
		c.predY[i-1] = sol.X[l.yStart+i]
	}

	return Result{
		X:    sol.X[l.xStart+1],
		Y:    sol.X[l.yStart+1],
		Psi:  sol.X[l.psiStart+1],
		V:    sol.X[l.vStart+1],
		CTE:  sol.X[l.cteStart+1],
		EPsi: sol.X[l.epsiStart+1],

		Delta: sol.X[l.deltaStart+1],
		A:     sol.X[l.aStart+1],

		IssuedDelta: c.lastDelta,
		IssuedA:     c.lastA,

		Cost:         sol.Cost,
		SolverStatus: sol.Status,
	}
}

// PredictedPath returns the solved (x, y) trajectory for timesteps 2..N in
// vehicle-local coordinates. The slices are overwritten by the next Solve.
func (c *Controller) PredictedPath() (xs, ys []float64) {
	return c.predX, c.predY
}

// LastActuation returns the retained last-issued command.
func (c *Controller) LastActuation() (delta, a float64) {
	return c.lastDelta, c.lastA
}

// Reset clears the retained actuation, as after an actuator re-arm.
func (c *Controller) Reset() {
	c.lastDelta = 0
	c.lastA = 0
}

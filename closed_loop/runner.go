package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"mpc-drive-core/control"
	"mpc-drive-core/nlp"
	"mpc-drive-core/utils"
)

// Waypoints ahead of the vehicle within this local-frame distance feed the
// per-cycle polynomial fit.
const (
	fitWindowBehind = 2.0
	fitWindowAhead  = 100.0
	fitMaxPoints    = 12
)

type RunnerConfig struct {
	ScenarioPath string
	CSVPath      string
	PlotPath     string
	// Interface overrides the scenario CAN interface when non-empty.
	Interface string
}

// Runner drives the closed loop: fit the track in the vehicle frame, solve
// the horizon problem, apply the issued command to the simulated plant, and
// optionally transmit it on the bus.
type Runner struct {
	cfg    RunnerConfig
	log    *utils.Logger
	scen   Scenario
	mpc    *control.Controller
	plant  *Plant
	cmap   *utils.CANMap
	writer utils.CANWriter
	reader utils.CANReader
	poseID uint32

	rows    [][]string
	drivenX []float64
	drivenY []float64
}

func NewRunner(ctx context.Context, cfg RunnerConfig, log *utils.Logger) (*Runner, error) {
	scen, mpcCfg, err := LoadScenario(cfg.ScenarioPath)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}

	mpc, err := control.New(mpcCfg)
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}
	mpc.SetLogf(log.Trace)

	r := &Runner{
		cfg:   cfg,
		log:   log,
		scen:  scen,
		mpc:   mpc,
		plant: NewPlant(scen.Start, mpcCfg.Lf, mpcCfg.LatencySteps()),
	}

	if scen.CAN != nil {
		iface := scen.CAN.Interface
		if cfg.Interface != "" {
			iface = cfg.Interface
		}
		cmap, err := utils.LoadCANMap(scen.CAN.MapPath)
		if err != nil {
			return nil, fmt.Errorf("load can map: %w", err)
		}
		if _, err := cmap.FrameByName(scen.CAN.FrameName); err != nil {
			return nil, fmt.Errorf("frame: %w", err)
		}
		writer, err := utils.NewSocketCANWriter(ctx, iface)
		if err != nil {
			return nil, err
		}
		r.cmap = cmap
		r.writer = writer

		if scen.CAN.PoseFrameName != "" {
			poseFD, err := cmap.FrameByName(scen.CAN.PoseFrameName)
			if err != nil {
				writer.Close()
				return nil, fmt.Errorf("pose frame: %w", err)
			}
			reader, err := utils.NewSocketCANReader(ctx, iface)
			if err != nil {
				writer.Close()
				return nil, err
			}
			r.reader = reader
			r.poseID = poseFD.ID
		}
	}

	return r, nil
}

// poseFeedback is a decoded vehicle pose frame received from the bus.
type poseFeedback struct {
	X   float64
	Y   float64
	Psi float64
	V   float64
}

// receiveLoop decodes pose frames and forwards the freshest one.
func (r *Runner) receiveLoop(ctx context.Context, out chan<- poseFeedback) {
	r.log.Debug("RX loop started")
	defer r.log.Debug("RX loop stopped")

	for {
		frame, err := r.reader.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Error("RX error: %v", err)
			return
		}
		if frame.ID != r.poseID {
			continue
		}
		vals, err := r.cmap.Decode(frame)
		if err != nil {
			r.log.Error("RX decode error: %v", err)
			continue
		}
		fb := poseFeedback{
			X:   vals["pos_x_m"],
			Y:   vals["pos_y_m"],
			Psi: vals["heading_rad"],
			V:   vals["speed_mps"],
		}
		select {
		case out <- fb:
		default:
			// drop when the control loop is behind
		}
	}
}

func (r *Runner) Close() {
	if r.reader != nil {
		_ = r.reader.Close()
	}
	if r.writer != nil {
		_ = r.writer.Close()
	}
}

func (r *Runner) Run(ctx context.Context) error {
	cfg := r.mpc.Config()
	dt := cfg.DtS
	steps := int(r.scen.Timing.DurationS / dt)

	r.log.Info("Starting run: scenario=%s profile=%q N=%d dt=%.3f ref_v=%.1f duration=%.1fs waypoints=%d can=%v",
		r.scen.Meta.Name, r.scen.Profile, cfg.Horizon, dt, cfg.RefVelocity,
		r.scen.Timing.DurationS, len(r.scen.Track.WaypointsX), r.writer != nil)

	var ticker *time.Ticker
	if r.scen.Timing.RealTimeMode {
		ticker = time.NewTicker(time.Duration(dt * float64(time.Second)))
		defer ticker.Stop()
	}

	var poseCh chan poseFeedback
	if r.reader != nil {
		poseCh = make(chan poseFeedback, 64)
		go r.receiveLoop(ctx, poseCh)
	}

	degraded := 0
	for step := 0; step < steps; step++ {
		select {
		case <-ctx.Done():
			r.log.Warn("Context canceled; stopping after %d cycles", step)
			return ctx.Err()
		default:
		}

		// Bus feedback, when enabled, supersedes the simulated pose.
		for drained := false; poseCh != nil && !drained; {
			select {
			case fb := <-poseCh:
				r.plant.X, r.plant.Y, r.plant.Psi, r.plant.V = fb.X, fb.Y, fb.Psi, fb.V
			default:
				drained = true
			}
		}

		t := float64(step) * dt

		coeffs, err := r.fitTrack()
		if err != nil {
			r.log.Error("Track fit failed at t=%.2f: %v", t, err)
			return err
		}

		state := control.State{
			V:    r.plant.V,
			CTE:  coeffs.Eval(0),
			EPsi: -coeffs.TangentAngle(0),
		}

		res, err := r.mpc.Solve(state, coeffs[:])
		if err != nil {
			r.log.Error("Solve failed at t=%.2f: %v", t, err)
			return err
		}
		if res.SolverStatus != nlp.Converged {
			degraded++
			r.log.Debug("Degraded solve at t=%.2f: status=%s cost=%.1f", t, res.SolverStatus, res.Cost)
		}

		if r.writer != nil {
			if err := r.transmit(ctx, res); err != nil {
				r.log.Critical("Transmit failed at t=%.2f: %v", t, err)
				return err
			}
		}

		r.appendRow(t, state, res)
		r.log.Trace("t=%.2f v=%.2f cte=%.3f epsi=%.3f delta=%.4f a=%.3f cost=%.1f",
			t, r.plant.V, state.CTE, state.EPsi, res.IssuedDelta, res.IssuedA, res.Cost)

		r.plant.Step(res.IssuedDelta, res.IssuedA, dt)

		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}

	r.log.Info("Run complete: cycles=%d degraded_solves=%d final_v=%.2f", steps, degraded, r.plant.V)

	if r.cfg.CSVPath != "" {
		if err := r.writeCSV(); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		r.log.Info("Wrote %s", r.cfg.CSVPath)
	}
	if r.cfg.PlotPath != "" {
		if err := r.writePlot(); err != nil {
			return fmt.Errorf("write plot: %w", err)
		}
		r.log.Info("Wrote %s", r.cfg.PlotPath)
	}
	return nil
}

// fitTrack transforms the track into the vehicle frame and fits the cubic
// over a window of waypoints ahead of the vehicle.
func (r *Runner) fitTrack() (utils.Poly3, error) {
	vx, vy := utils.WorldToVehicle(r.plant.X, r.plant.Y, r.plant.Psi,
		r.scen.Track.WaypointsX, r.scen.Track.WaypointsY)

	type pt struct{ x, y float64 }
	var window []pt
	for i := range vx {
		if vx[i] >= -fitWindowBehind && vx[i] <= fitWindowAhead {
			window = append(window, pt{vx[i], vy[i]})
		}
	}
	sort.Slice(window, func(i, j int) bool { return window[i].x < window[j].x })
	if len(window) > fitMaxPoints {
		window = window[:fitMaxPoints]
	}
	if len(window) < 4 {
		return utils.Poly3{}, fmt.Errorf("only %d waypoints in fit window", len(window))
	}

	xs := make([]float64, len(window))
	ys := make([]float64, len(window))
	for i, p := range window {
		xs[i], ys[i] = p.x, p.y
	}
	return utils.FitPoly3(xs, ys)
}

func (r *Runner) transmit(ctx context.Context, res control.Result) error {
	frame, err := r.cmap.Encode(r.scen.CAN.FrameName, map[string]float64{
		"system_enable":  1,
		"steer_cmd_rad":  res.IssuedDelta,
		"accel_cmd_norm": res.IssuedA,
	})
	if err != nil {
		return err
	}
	return r.writer.WriteFrame(ctx, frame)
}

func (r *Runner) appendRow(t float64, state control.State, res control.Result) {
	r.drivenX = append(r.drivenX, r.plant.X)
	r.drivenY = append(r.drivenY, r.plant.Y)

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	r.rows = append(r.rows, []string{
		f(t), f(r.plant.X), f(r.plant.Y), f(r.plant.Psi), f(r.plant.V),
		f(state.CTE), f(state.EPsi),
		f(res.IssuedDelta), f(res.IssuedA), f(res.Cost), res.SolverStatus.String(),
	})
}

func (r *Runner) writeCSV() error {
	file, err := os.Create(r.cfg.CSVPath)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{"t", "x", "y", "psi", "v", "cte", "epsi", "delta", "a", "cost", "status"}
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(r.rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

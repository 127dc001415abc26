package main

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// writePlot renders the reference track and the driven path to a PNG.
func (r *Runner) writePlot() error {
	p := plot.New()
	p.Title.Text = r.scen.Meta.Name
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "y (m)"

	track := make(plotter.XYs, len(r.scen.Track.WaypointsX))
	for i := range track {
		track[i].X = r.scen.Track.WaypointsX[i]
		track[i].Y = r.scen.Track.WaypointsY[i]
	}
	waypoints, err := plotter.NewScatter(track)
	if err != nil {
		return err
	}
	waypoints.GlyphStyle.Radius = vg.Points(2)
	waypoints.GlyphStyle.Color = color.RGBA{R: 200, A: 255}

	driven := make(plotter.XYs, len(r.drivenX))
	for i := range driven {
		driven[i].X = r.drivenX[i]
		driven[i].Y = r.drivenY[i]
	}
	path, err := plotter.NewLine(driven)
	if err != nil {
		return err
	}
	path.LineStyle.Width = vg.Points(1.5)
	path.LineStyle.Color = color.RGBA{B: 200, A: 255}

	p.Add(waypoints, path)
	p.Legend.Add("track", waypoints)
	p.Legend.Add("driven", path)

	return p.Save(8*vg.Inch, 8*vg.Inch, r.cfg.PlotPath)
}

package utils

import "math"

// WorldToVehicle transforms world-frame points into the vehicle-local frame
// defined by position (px, py) and heading psi. In the vehicle frame the
// vehicle sits at the origin pointing along +x.
func WorldToVehicle(px, py, psi float64, wx, wy []float64) (vx, vy []float64) {
	vx = make([]float64, len(wx))
	vy = make([]float64, len(wy))
	sin, cos := math.Sin(psi), math.Cos(psi)
	for i := range wx {
		dx := wx[i] - px
		dy := wy[i] - py
		vx[i] = dx*cos + dy*sin
		vy[i] = -dx*sin + dy*cos
	}
	return vx, vy
}

// VehicleToWorld is the inverse of WorldToVehicle for a single point.
func VehicleToWorld(px, py, psi, lx, ly float64) (wx, wy float64) {
	sin, cos := math.Sin(psi), math.Cos(psi)
	return px + lx*cos - ly*sin, py + lx*sin + ly*cos
}

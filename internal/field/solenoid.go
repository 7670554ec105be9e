// Package field provides the magnetic field of the solenoid.
package field

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/units"
)

// Solenoid is a uniform field along z.
type Solenoid struct {
	Bz float64 // tesla
}

// DefaultSolenoid returns the 1 T field.
func DefaultSolenoid() Solenoid {
	return Solenoid{Bz: 1 * units.Tesla}
}

// Value returns the field at a space-time point (x, y, z, t).
func (s Solenoid) Value(point [4]float64) r3.Vec {
	return r3.Vec{Z: s.Bz}
}

// HelixRadius returns the radius (mm) of the helix a particle with the
// given momentum (MeV/c) and charge (e) follows in the field. Neutral
// particles and a zero field give +Inf.
func (s Solenoid) HelixRadius(momentum r3.Vec, charge float64) float64 {
	pt := math.Hypot(momentum.X, momentum.Y)
	if charge == 0 || s.Bz == 0 {
		return math.Inf(1)
	}
	// r[m] = pT[GeV/c] / (0.299792458 * |q| * B[T])
	rMeters := (pt / units.GeV) / (0.299792458 * math.Abs(charge) * math.Abs(s.Bz/units.Tesla))
	return rMeters * units.Meter
}

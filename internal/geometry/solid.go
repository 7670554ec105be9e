package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Solid is a shape in its own local frame.
type Solid interface {
	Contains(local r3.Vec) bool
	validate() error
}

// Box is an axis-aligned box given by its half-lengths.
type Box struct {
	HalfX, HalfY, HalfZ float64
}

// Contains reports whether the local point lies inside or on the box.
func (b Box) Contains(p r3.Vec) bool {
	return math.Abs(p.X) <= b.HalfX && math.Abs(p.Y) <= b.HalfY && math.Abs(p.Z) <= b.HalfZ
}

func (b Box) validate() error {
	if b.HalfX <= 0 || b.HalfY <= 0 || b.HalfZ <= 0 {
		return fmt.Errorf("box half-lengths must be positive, got (%g, %g, %g)", b.HalfX, b.HalfY, b.HalfZ)
	}
	return nil
}

// Tube is a cylindrical shell along z.
type Tube struct {
	RMin, RMax, HalfZ float64
}

// Contains reports whether the local point lies inside or on the tube.
func (t Tube) Contains(p r3.Vec) bool {
	r := math.Hypot(p.X, p.Y)
	return r >= t.RMin && r <= t.RMax && math.Abs(p.Z) <= t.HalfZ
}

func (t Tube) validate() error {
	if t.RMin < 0 || t.RMax <= t.RMin || t.HalfZ <= 0 {
		return fmt.Errorf("tube needs 0 <= rmin < rmax and halfz > 0, got (%g, %g, %g)", t.RMin, t.RMax, t.HalfZ)
	}
	return nil
}

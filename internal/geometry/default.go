package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/units"
)

const (
	// Hodoscope1 and Hodoscope2 are the sensitive detector names.
	Hodoscope1 = "/hodoscope1"
	Hodoscope2 = "/hodoscope2"

	// SegmentsPerHodoscope is the number of slabs in each hodoscope plane.
	SegmentsPerHodoscope = 10

	hodoscopeSizeX     = 100 * units.Millimeter
	hodoscopeSizeY     = 100 * units.Millimeter
	hodoscopeThickness = 50 * units.Millimeter
)

// Default builds the standard setup: a solenoid around a liquid-He3
// target, with one segmented hodoscope plane upstream and one downstream.
func Default() (*Detector, error) {
	b := NewBuilder()

	world := b.Logical("world_logical", Box{10 * units.Meter, 3 * units.Meter, 10 * units.Meter}, "G4_AIR")
	worldPV := b.Place("world_physical", world, 0, Identity(), nil)

	solenoid := b.Logical("solenoid_logical", Tube{RMin: 500 * units.Millimeter, RMax: 600 * units.Millimeter, HalfZ: 1 * units.Meter}, "G4_Fe")
	b.Place("solenoid_physical", solenoid, 0, Identity(), worldPV)

	target := b.Logical("target_logical", Tube{RMax: 20 * units.Millimeter, HalfZ: 40 * units.Millimeter}, "LHe3")
	b.Place("target_physical", target, 0, Identity(), worldPV)

	placeHodoscope(b, worldPV, "hodoscope1", Hodoscope1, -100*units.Millimeter)
	placeHodoscope(b, worldPV, "hodoscope2", Hodoscope2, 100*units.Millimeter)

	return b.Build()
}

// placeHodoscope adds an air envelope at z holding SegmentsPerHodoscope
// scintillator slabs side by side along x.
func placeHodoscope(b *Builder, mother *Placement, name, detector string, z float64) {
	envelope := b.Logical(name+"_logical", Box{hodoscopeSizeX / 2, hodoscopeSizeY / 2, hodoscopeThickness / 2}, "G4_AIR")
	envelopePV := b.Place(name+"_physical", envelope, 0, Translate(r3.Vec{Z: z}), mother)

	width := hodoscopeSizeX / SegmentsPerHodoscope
	slab := b.Logical(name+"_segment_logical", Box{width / 2, hodoscopeSizeY / 2, hodoscopeThickness / 2}, "G4_PLASTIC_SC_VINYLTOLUENE")
	slab.SensitiveDetector = detector

	for i := 0; i < SegmentsPerHodoscope; i++ {
		x := -hodoscopeSizeX/2 + width*(float64(i)+0.5)
		b.Place(fmt.Sprintf("%s_segment_physical", name), slab, i, Translate(r3.Vec{X: x}), envelopePV)
	}
}

// MustDefault is Default for callers that cannot recover from a broken
// built-in geometry.
func MustDefault() *Detector {
	d, err := Default()
	if err != nil {
		panic(err)
	}
	return d
}

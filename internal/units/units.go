// Package units provides the internal unit system and unit-string helpers.
// Lengths are stored in millimetres, times in nanoseconds, energies and
// momenta in MeV, magnetic fields in tesla.
package units

import (
	"fmt"
	"math"
)

// Base units
const (
	Millimeter = 1.0
	Nanosecond = 1.0
	MeV        = 1.0
	Tesla      = 1.0
	Radian     = 1.0
)

// Derived units
const (
	Micrometer = 1e-3 * Millimeter
	Centimeter = 10 * Millimeter
	Meter      = 1000 * Millimeter

	Picosecond  = 1e-3 * Nanosecond
	Microsecond = 1000 * Nanosecond

	EV  = 1e-6 * MeV
	KeV = 1e-3 * MeV
	GeV = 1000 * MeV

	Gauss  = 1e-4 * Tesla
	Degree = math.Pi / 180 * Radian
)

// Unit names accepted in configuration files and trace headers.
const (
	MM = "mm"
	CM = "cm"
	M  = "m"

	EVName  = "eV"
	KEVName = "keV"
	MEVName = "MeV"
	GEVName = "GeV"
)

// ValidLengthUnits contains all valid length unit names
var ValidLengthUnits = []string{MM, CM, M}

// ValidEnergyUnits contains all valid energy unit names
var ValidEnergyUnits = []string{EVName, KEVName, MEVName, GEVName}

// IsValidEnergy checks if the given unit is in the list of valid energy units
func IsValidEnergy(unit string) bool {
	for _, validUnit := range ValidEnergyUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// IsValidLength checks if the given unit is in the list of valid length units
func IsValidLength(unit string) bool {
	for _, validUnit := range ValidLengthUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// EnergyScale returns the internal value of one named energy unit.
func EnergyScale(unit string) (float64, error) {
	switch unit {
	case EVName:
		return EV, nil
	case KEVName:
		return KeV, nil
	case MEVName, "":
		return MeV, nil
	case GEVName:
		return GeV, nil
	}
	return 0, fmt.Errorf("unknown energy unit %q (valid: eV, keV, MeV, GeV)", unit)
}

// LengthScale returns the internal value of one named length unit.
func LengthScale(unit string) (float64, error) {
	switch unit {
	case MM, "":
		return Millimeter, nil
	case CM:
		return Centimeter, nil
	case M:
		return Meter, nil
	}
	return 0, fmt.Errorf("unknown length unit %q (valid: mm, cm, m)", unit)
}

// BestEnergy formats an energy with the unit that keeps the mantissa in [1, 1000).
func BestEnergy(e float64) string {
	abs := math.Abs(e)
	switch {
	case abs == 0:
		return "0 eV"
	case abs >= GeV:
		return fmt.Sprintf("%.4g GeV", e/GeV)
	case abs >= MeV:
		return fmt.Sprintf("%.4g MeV", e/MeV)
	case abs >= KeV:
		return fmt.Sprintf("%.4g keV", e/KeV)
	default:
		return fmt.Sprintf("%.4g eV", e/EV)
	}
}

// BestLength formats a length the same way BestEnergy formats energies.
func BestLength(l float64) string {
	abs := math.Abs(l)
	switch {
	case abs == 0:
		return "0 mm"
	case abs >= Meter:
		return fmt.Sprintf("%.4g m", l/Meter)
	case abs >= Centimeter:
		return fmt.Sprintf("%.4g cm", l/Centimeter)
	case abs >= Millimeter:
		return fmt.Sprintf("%.4g mm", l/Millimeter)
	default:
		return fmt.Sprintf("%.4g um", l/Micrometer)
	}
}

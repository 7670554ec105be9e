// Package particle holds the static properties of the particle species
// the generators and diagnostics know about.
package particle

import (
	"fmt"
	"sort"
)

// Definition describes one particle species.
type Definition struct {
	Name   string
	PDG    int
	Mass   float64 // MeV/c^2
	Charge float64 // units of e
}

var table = map[string]Definition{
	"gamma":    {"gamma", 22, 0, 0},
	"e-":       {"e-", 11, 0.51099895, -1},
	"e+":       {"e+", -11, 0.51099895, 1},
	"mu-":      {"mu-", 13, 105.6583755, -1},
	"mu+":      {"mu+", -13, 105.6583755, 1},
	"pi-":      {"pi-", -211, 139.57039, -1},
	"pi+":      {"pi+", 211, 139.57039, 1},
	"kaon-":    {"kaon-", -321, 493.677, -1},
	"kaon+":    {"kaon+", 321, 493.677, 1},
	"proton":   {"proton", 2212, 938.27208816, 1},
	"neutron":  {"neutron", 2112, 939.56542052, 0},
	"lambda":   {"lambda", 3122, 1115.683, 0},
	"deuteron": {"deuteron", 1000010020, 1875.612942, 1},
	"He3":      {"He3", 1000020030, 2808.391607, 2},
}

// Lookup returns the definition of a named particle.
func Lookup(name string) (Definition, error) {
	d, ok := table[name]
	if !ok {
		return Definition{}, fmt.Errorf("particle: unknown species %q", name)
	}
	return d, nil
}

// Masses resolves the masses of several particles in order.
func Masses(names []string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, n := range names {
		d, err := Lookup(n)
		if err != nil {
			return nil, err
		}
		out[i] = d.Mass
	}
	return out, nil
}

// Names returns every known species, sorted.
func Names() []string {
	names := make([]string, 0, len(table))
	for n := range table {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

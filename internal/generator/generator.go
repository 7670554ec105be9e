// Package generator produces primary-vertex kinematics for each event,
// either as random single-particle shots or as an N-body phase-space
// decay of a beam-on-target system.
package generator

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/particle"
)

// Primary is one particle leaving the primary vertex.
type Primary struct {
	Particle string
	Momentum r3.Vec // MeV/c
	Position r3.Vec // mm
}

// KineticEnergy returns the kinetic energy (MeV) given the particle mass.
func (p Primary) KineticEnergy(mass float64) float64 {
	pp := r3.Norm2(p.Momentum)
	return math.Sqrt(pp+mass*mass) - mass
}

// Generator yields the primaries of one event.
type Generator interface {
	Generate() ([]Primary, error)
}

type primaryJSON struct {
	Particle      string     `json:"particle"`
	PDG           int        `json:"pdg"`
	Momentum      [3]float64 `json:"momentum"`
	Position      [3]float64 `json:"position"`
	KineticEnergy float64    `json:"kinetic_energy"`
}

type eventJSON struct {
	Event     int           `json:"event"`
	Primaries []primaryJSON `json:"primaries"`
}

// WriteEvent writes one event's primaries as a single JSON line, the
// form the transport toolkit reads its primary vertices from.
func WriteEvent(w io.Writer, eventID int, primaries []Primary) error {
	ev := eventJSON{Event: eventID, Primaries: make([]primaryJSON, 0, len(primaries))}
	for _, p := range primaries {
		def, err := particle.Lookup(p.Particle)
		if err != nil {
			return err
		}
		ev.Primaries = append(ev.Primaries, primaryJSON{
			Particle:      p.Particle,
			PDG:           def.PDG,
			Momentum:      [3]float64{p.Momentum.X, p.Momentum.Y, p.Momentum.Z},
			Position:      [3]float64{p.Position.X, p.Position.Y, p.Position.Z},
			KineticEnergy: p.KineticEnergy(def.Mass),
		})
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %d: %w", eventID, err)
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

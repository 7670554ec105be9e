package generator

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/particle"
)

// Shot fires each configured particle from the origin with a momentum
// magnitude uniform in [0, max) and a direction with theta uniform in
// [0, 180) degrees and phi uniform in [0, 360) degrees.
type Shot struct {
	particles []string
	momentum  distuv.Uniform
	theta     distuv.Uniform
	phi       distuv.Uniform
}

// NewShot creates a shot generator.
func NewShot(particles []string, maxMomentum float64, src rand.Source) (*Shot, error) {
	if len(particles) == 0 {
		return nil, errors.New("shot: no particles configured")
	}
	if maxMomentum <= 0 {
		return nil, fmt.Errorf("shot: max momentum must be positive, got %g", maxMomentum)
	}
	for _, name := range particles {
		if _, err := particle.Lookup(name); err != nil {
			return nil, fmt.Errorf("shot: %w", err)
		}
	}
	return &Shot{
		particles: append([]string(nil), particles...),
		momentum:  distuv.Uniform{Min: 0, Max: maxMomentum, Src: src},
		theta:     distuv.Uniform{Min: 0, Max: math.Pi, Src: src},
		phi:       distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: src},
	}, nil
}

// Generate returns one primary per configured particle.
func (s *Shot) Generate() ([]Primary, error) {
	out := make([]Primary, 0, len(s.particles))
	for _, name := range s.particles {
		p := s.momentum.Rand()
		theta := s.theta.Rand()
		phi := s.phi.Rand()
		dir := r3.Vec{
			X: math.Sin(theta) * math.Cos(phi),
			Y: math.Sin(theta) * math.Sin(phi),
			Z: math.Cos(theta),
		}
		out = append(out, Primary{Particle: name, Momentum: r3.Scale(p, dir)})
	}
	return out, nil
}

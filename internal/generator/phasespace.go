package generator

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"go-hep.org/x/hep/fmom"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/particle"
)

// ErrBelowThreshold is returned when the initial system is too light to
// produce the requested final state.
var ErrBelowThreshold = errors.New("phase space: below threshold")

// maxAttempts bounds the accept/reject loop of a single event.
const maxAttempts = 1_000_000

// PhaseSpaceConfig describes a beam-on-fixed-target reaction.
type PhaseSpaceConfig struct {
	Beam             string
	BeamMomentum     float64 // MeV/c along +z
	Target           string  // at rest
	Products         []string
	MaxWeightSamples int
}

// PhaseSpace generates unweighted N-body phase-space decays of the
// beam+target system with the GENBOD algorithm. The maximum event weight
// is estimated once from MaxWeightSamples trial decays.
type PhaseSpace struct {
	products  []string
	masses    []float64
	initial   fmom.PxPyPzE
	beta      r3.Vec
	available float64 // kinetic energy in the centre of mass
	weightMax float64 // normalisation of the raw GENBOD weight
	maxWeight float64 // estimated maximum of the normalised weight

	uniform distuv.Uniform
	decay   []fmom.PxPyPzE
}

// NewPhaseSpace sets up the reaction and estimates the maximum weight.
func NewPhaseSpace(cfg PhaseSpaceConfig, src rand.Source) (*PhaseSpace, error) {
	if len(cfg.Products) < 2 {
		return nil, fmt.Errorf("phase space: need at least 2 products, got %d", len(cfg.Products))
	}
	if cfg.MaxWeightSamples <= 0 {
		return nil, fmt.Errorf("phase space: max weight samples must be positive, got %d", cfg.MaxWeightSamples)
	}
	beam, err := particle.Lookup(cfg.Beam)
	if err != nil {
		return nil, fmt.Errorf("phase space beam: %w", err)
	}
	target, err := particle.Lookup(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("phase space target: %w", err)
	}
	masses, err := particle.Masses(cfg.Products)
	if err != nil {
		return nil, fmt.Errorf("phase space products: %w", err)
	}

	beamE := math.Sqrt(beam.Mass*beam.Mass + cfg.BeamMomentum*cfg.BeamMomentum)
	ps := &PhaseSpace{
		products: append([]string(nil), cfg.Products...),
		masses:   masses,
		initial:  fmom.NewPxPyPzE(0, 0, cfg.BeamMomentum, beamE+target.Mass),
		uniform:  distuv.Uniform{Min: 0, Max: 1, Src: src},
		decay:    make([]fmom.PxPyPzE, len(masses)),
	}
	if err := ps.setDecay(); err != nil {
		return nil, err
	}

	for i := 0; i < cfg.MaxWeightSamples; i++ {
		if w := ps.generate(); w > ps.maxWeight {
			ps.maxWeight = w
		}
	}
	if ps.maxWeight <= 0 {
		return nil, errors.New("phase space: could not estimate a positive maximum weight")
	}
	return ps, nil
}

// InvariantMass returns the centre-of-mass energy of beam plus target.
func (ps *PhaseSpace) InvariantMass() float64 { return ps.initial.M() }

// MaxWeight returns the estimated maximum event weight.
func (ps *PhaseSpace) MaxWeight() float64 { return ps.maxWeight }

// Generate returns one unweighted decay, products in configuration order.
func (ps *PhaseSpace) Generate() ([]Primary, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		w := ps.generate()
		if ps.uniform.Rand()*ps.maxWeight > w {
			continue
		}
		out := make([]Primary, len(ps.decay))
		for i := range ps.decay {
			d := &ps.decay[i]
			out[i] = Primary{Particle: ps.products[i], Momentum: r3.Vec{X: d.Px(), Y: d.Py(), Z: d.Pz()}}
		}
		return out, nil
	}
	return nil, fmt.Errorf("phase space: no event accepted after %d attempts", maxAttempts)
}

func (ps *PhaseSpace) setDecay() error {
	var sum float64
	for _, m := range ps.masses {
		sum += m
	}
	ps.available = ps.initial.M() - sum
	if ps.available <= 0 {
		return fmt.Errorf("%w: sqrt(s) = %.3f MeV, product masses = %.3f MeV", ErrBelowThreshold, ps.initial.M(), sum)
	}

	emmax := ps.available + ps.masses[0]
	emmin := 0.0
	wtmax := 1.0
	for n := 1; n < len(ps.masses); n++ {
		emmin += ps.masses[n-1]
		emmax += ps.masses[n]
		wtmax *= pdk(emmax, emmin, ps.masses[n])
	}
	ps.weightMax = 1 / wtmax

	e := ps.initial.E()
	ps.beta = r3.Vec{X: ps.initial.Px() / e, Y: ps.initial.Py() / e, Z: ps.initial.Pz() / e}
	return nil
}

// generate fills ps.decay with one weighted decay and returns its weight.
func (ps *PhaseSpace) generate() float64 {
	nt := len(ps.masses)

	rno := make([]float64, nt)
	rno[nt-1] = 1
	for i := 1; i < nt-1; i++ {
		rno[i] = ps.uniform.Rand()
	}
	sort.Float64s(rno[1 : nt-1])

	invMas := make([]float64, nt)
	var sum float64
	for n := 0; n < nt; n++ {
		sum += ps.masses[n]
		invMas[n] = rno[n]*ps.available + sum
	}

	wt := ps.weightMax
	pd := make([]float64, nt)
	for n := 0; n < nt-1; n++ {
		pd[n] = pdk(invMas[n+1], invMas[n], ps.masses[n+1])
		wt *= pd[n]
	}

	ps.decay[0] = fmom.NewPxPyPzE(0, pd[0], 0, math.Hypot(pd[0], ps.masses[0]))
	for i := 1; ; i++ {
		ps.decay[i] = fmom.NewPxPyPzE(0, -pd[i-1], 0, math.Hypot(pd[i-1], ps.masses[i]))

		cZ := 2*ps.uniform.Rand() - 1
		sZ := math.Sqrt(1 - cZ*cZ)
		angY := 2 * math.Pi * ps.uniform.Rand()
		cY, sY := math.Cos(angY), math.Sin(angY)
		for j := 0; j <= i; j++ {
			rotateZY(&ps.decay[j], cZ, sZ, cY, sY)
		}

		if i == nt-1 {
			break
		}
		beta := pd[i] / math.Hypot(pd[i], invMas[i])
		for j := 0; j <= i; j++ {
			boost(&ps.decay[j], r3.Vec{Y: beta})
		}
	}

	for j := range ps.decay {
		boost(&ps.decay[j], ps.beta)
	}
	return wt
}

// pdk is the two-body breakup momentum of a -> b + c.
func pdk(a, b, c float64) float64 {
	x := (a - b - c) * (a + b + c) * (a - b + c) * (a + b - c)
	if x <= 0 {
		return 0
	}
	return math.Sqrt(x) / (2 * a)
}

// rotateZY rotates p about z by (cZ, sZ), then about y by (cY, sY).
func rotateZY(p *fmom.PxPyPzE, cZ, sZ, cY, sY float64) {
	v := &p.P4
	x, y := v.X, v.Y
	v.X = cZ*x - sZ*y
	v.Y = sZ*x + cZ*y
	x, z := v.X, v.Z
	v.X = cY*x - sY*z
	v.Z = sY*x + cY*z
}

// boost applies a Lorentz boost with velocity b (in units of c).
func boost(p *fmom.PxPyPzE, b r3.Vec) {
	b2 := r3.Norm2(b)
	if b2 == 0 {
		return
	}
	v := &p.P4
	gamma := 1 / math.Sqrt(1-b2)
	bp := b.X*v.X + b.Y*v.Y + b.Z*v.Z
	gamma2 := (gamma - 1) / b2
	t := v.T
	v.X += gamma2*bp*b.X + gamma*b.X*t
	v.Y += gamma2*bp*b.Y + gamma*b.Y*t
	v.Z += gamma2*bp*b.Z + gamma*b.Z*t
	v.T = gamma * (t + bp)
}

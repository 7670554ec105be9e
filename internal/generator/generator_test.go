package generator

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/fmom"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/particle"
)

func defaultPhaseSpace() PhaseSpaceConfig {
	return PhaseSpaceConfig{
		Beam:             "kaon-",
		BeamMomentum:     1000,
		Target:           "He3",
		Products:         []string{"lambda", "proton", "neutron"},
		MaxWeightSamples: 2000,
	}
}

func TestShot(t *testing.T) {
	t.Parallel()
	names := []string{"lambda", "proton", "neutron"}
	shot, err := NewShot(names, 500, rand.NewPCG(1, 2))
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		primaries, err := shot.Generate()
		require.NoError(t, err)
		require.Len(t, primaries, len(names))
		for j, p := range primaries {
			assert.Equal(t, names[j], p.Particle)
			assert.Less(t, r3.Norm(p.Momentum), 500.0)
			assert.Equal(t, r3.Vec{}, p.Position)
		}
	}
}

func TestShotValidation(t *testing.T) {
	t.Parallel()
	_, err := NewShot(nil, 500, rand.NewPCG(1, 2))
	assert.ErrorContains(t, err, "no particles")
	_, err = NewShot([]string{"proton"}, 0, rand.NewPCG(1, 2))
	assert.ErrorContains(t, err, "must be positive")
	_, err = NewShot([]string{"graviton"}, 10, rand.NewPCG(1, 2))
	assert.ErrorContains(t, err, "unknown species")
}

func TestPhaseSpaceConservesFourMomentum(t *testing.T) {
	t.Parallel()
	ps, err := NewPhaseSpace(defaultPhaseSpace(), rand.NewPCG(3, 4))
	require.NoError(t, err)
	assert.Positive(t, ps.MaxWeight())
	assert.InDelta(t, 3794.0, ps.InvariantMass(), 1.0)

	masses, err := particle.Masses(defaultPhaseSpace().Products)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		primaries, err := ps.Generate()
		require.NoError(t, err)
		require.Len(t, primaries, 3)

		var px, py, pz, e float64
		for j := range ps.decay {
			d := &ps.decay[j]
			px += d.Px()
			py += d.Py()
			pz += d.Pz()
			e += d.E()
			assert.InDelta(t, masses[j], d.M(), 1e-5, "product %d mass", j)
			assert.InDelta(t, d.Pz(), primaries[j].Momentum.Z, 1e-12)
		}
		assert.InDelta(t, 0, px, 1e-6)
		assert.InDelta(t, 0, py, 1e-6)
		assert.InDelta(t, 1000, pz, 1e-6)
		assert.InDelta(t, ps.initial.E(), e, 1e-6)
	}
}

func TestPhaseSpaceTwoBody(t *testing.T) {
	t.Parallel()
	cfg := defaultPhaseSpace()
	cfg.Products = []string{"lambda", "deuteron"}
	ps, err := NewPhaseSpace(cfg, rand.NewPCG(5, 6))
	require.NoError(t, err)

	// Two-body decays have constant weight, so every trial is accepted.
	first, err := ps.Generate()
	require.NoError(t, err)
	second, err := ps.Generate()
	require.NoError(t, err)

	// The centre-of-mass breakup momentum is fixed.
	pcm := pdk(ps.InvariantMass(), ps.masses[0], ps.masses[1])
	for _, primaries := range [][]Primary{first, second} {
		var sum r3.Vec
		for _, p := range primaries {
			sum = r3.Add(sum, p.Momentum)
		}
		assert.InDelta(t, 1000, sum.Z, 1e-6)
		assert.Positive(t, pcm)
	}
}

func TestPhaseSpaceValidation(t *testing.T) {
	t.Parallel()

	below := defaultPhaseSpace()
	below.Beam = "pi-"
	below.BeamMomentum = 0
	below.Target = "proton"
	_, err := NewPhaseSpace(below, rand.NewPCG(1, 1))
	assert.ErrorIs(t, err, ErrBelowThreshold)

	single := defaultPhaseSpace()
	single.Products = []string{"lambda"}
	_, err = NewPhaseSpace(single, rand.NewPCG(1, 1))
	assert.ErrorContains(t, err, "at least 2 products")

	noSamples := defaultPhaseSpace()
	noSamples.MaxWeightSamples = 0
	_, err = NewPhaseSpace(noSamples, rand.NewPCG(1, 1))
	assert.ErrorContains(t, err, "max weight samples")

	unknown := defaultPhaseSpace()
	unknown.Target = "He4"
	_, err = NewPhaseSpace(unknown, rand.NewPCG(1, 1))
	assert.ErrorContains(t, err, "phase space target")
}

func TestBoostAndRotationPreserveMass(t *testing.T) {
	t.Parallel()
	p := fmom.NewPxPyPzE(120, -40, 300, math.Sqrt(120*120+40*40+300*300+938.272*938.272))
	m := p.M()
	rotateZY(&p, 0.6, 0.8, math.Cos(1.1), math.Sin(1.1))
	assert.InDelta(t, m, p.M(), 1e-9)
	boost(&p, r3.Vec{X: 0.2, Z: 0.5})
	assert.InDelta(t, m, p.M(), 1e-9)
	boost(&p, r3.Vec{})
	assert.InDelta(t, m, p.M(), 1e-9)
}

func TestBoostAndRotationComponents(t *testing.T) {
	t.Parallel()

	t.Run("rotation", func(t *testing.T) {
		t.Parallel()
		p := fmom.NewPxPyPzE(1, 0, 0, 5)
		// 90 degrees about z moves x onto y; the y rotation then leaves y alone.
		rotateZY(&p, 0, 1, 1, 0)
		assert.InDelta(t, 0, p.Px(), 1e-12)
		assert.InDelta(t, 1, p.Py(), 1e-12)
		assert.InDelta(t, 0, p.Pz(), 1e-12)
		assert.InDelta(t, 5, p.E(), 1e-12)

		// 90 degrees about y moves x onto z.
		q := fmom.NewPxPyPzE(2, 0, 0, 5)
		rotateZY(&q, 1, 0, 0, 1)
		assert.InDelta(t, 0, q.Px(), 1e-12)
		assert.InDelta(t, 0, q.Py(), 1e-12)
		assert.InDelta(t, 2, q.Pz(), 1e-12)
	})

	t.Run("boost from rest", func(t *testing.T) {
		t.Parallel()
		const mass = 938.272
		p := fmom.NewPxPyPzE(0, 0, 0, mass)
		boost(&p, r3.Vec{Z: 0.6})
		gamma := 1 / math.Sqrt(1-0.36)
		assert.InDelta(t, 0, p.Px(), 1e-9)
		assert.InDelta(t, 0, p.Py(), 1e-9)
		assert.InDelta(t, gamma*0.6*mass, p.Pz(), 1e-9)
		assert.InDelta(t, gamma*mass, p.E(), 1e-9)
	})
}

func TestWriteEvent(t *testing.T) {
	t.Parallel()
	var b strings.Builder
	err := WriteEvent(&b, 12, []Primary{{Particle: "proton", Momentum: r3.Vec{Z: 300}}})
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(b.String(), "\n"))

	var got eventJSON
	require.NoError(t, json.Unmarshal([]byte(b.String()), &got))
	assert.Equal(t, 12, got.Event)
	require.Len(t, got.Primaries, 1)
	assert.Equal(t, 2212, got.Primaries[0].PDG)
	assert.Equal(t, [3]float64{0, 0, 300}, got.Primaries[0].Momentum)
	assert.InDelta(t, 46.79, got.Primaries[0].KineticEnergy, 0.01)

	assert.Error(t, WriteEvent(&b, 13, []Primary{{Particle: "axion"}}))
}

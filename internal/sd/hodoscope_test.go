package sd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/geometry"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/hits"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/lineage"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/toolkit"
)

func newHodoscope(t *testing.T) (*Hodoscope, *geometry.Detector) {
	t.Helper()
	geo := geometry.MustDefault()
	reg := hits.NewRegistry(hits.CollectionKey(geometry.Hodoscope1), hits.CollectionKey(geometry.Hodoscope2))
	agg := hits.NewAggregator(lineage.NewTracker(), hits.NewPool(4), false)
	h, err := NewHodoscope(geometry.Hodoscope2, agg, reg)
	require.NoError(t, err)
	return h, geo
}

func TestNewHodoscopeUnregistered(t *testing.T) {
	t.Parallel()
	_, err := NewHodoscope("/hodoscope3", nil, hits.NewRegistry())
	assert.ErrorContains(t, err, "not registered")
}

func TestProcessHits(t *testing.T) {
	t.Parallel()
	h, geo := newHodoscope(t)
	store := hits.NewStore()
	require.NoError(t, h.Initialize(store))

	slab, ok := geo.Placement("hodoscope2_segment_physical", 3)
	require.True(t, ok)
	target, _ := geo.Logical("target_logical")
	track := &toolkit.Track{ID: 4, ParentID: 1, Particle: "proton", VertexMomentum: r3.Vec{Z: 350}, VertexVolume: target}

	outcome, err := h.ProcessHits(&toolkit.Step{
		Track: track,
		PreStepPoint: toolkit.StepPoint{
			GlobalTime: 0.9,
			Position:   r3.Vec{X: -15, Z: 80},
			Momentum:   r3.Vec{Z: 340},
			Touchable:  toolkit.Touchable{Placement: slab},
		},
		TotalEnergyDeposit: 1.7,
	})
	require.NoError(t, err)
	assert.Equal(t, hits.OutcomeNewRecord, outcome)

	c, ok := store.Get("hodoscope2/hodoscope_hits_collection")
	require.True(t, ok)
	assert.Same(t, h.Collection(), c)
	assert.Equal(t, 1, c.ID())
	require.Equal(t, 1, c.Len())

	r := c.At(0)
	assert.Equal(t, 3, r.SegmentID())
	assert.Equal(t, "hodoscope2_segment_logical", r.Segment().Logical.Name)
	assert.Equal(t, r3.Vec{X: -15, Z: 100}, r.Segment().Translation)
	assert.Equal(t, "proton", r.Primary().ParticleName)
	assert.Equal(t, r3.Vec{Z: 350}, r.Primary().InitialMomentum)
	assert.Equal(t, r3.Vec{Z: 340}, r.IncidentMomentum())

	outcome, err = h.ProcessHits(&toolkit.Step{Track: track, TotalEnergyDeposit: 0})
	require.NoError(t, err)
	assert.Equal(t, hits.OutcomeSkipped, outcome)
}

func TestProcessHitsFatal(t *testing.T) {
	t.Parallel()
	h, geo := newHodoscope(t)

	_, err := h.ProcessHits(&toolkit.Step{TotalEnergyDeposit: 1})
	assert.ErrorIs(t, err, hits.ErrFatalInconsistency, "before Initialize")

	require.NoError(t, h.Initialize(hits.NewStore()))
	slab, _ := geo.Placement("hodoscope2_segment_physical", 0)

	_, err = h.ProcessHits(&toolkit.Step{
		PreStepPoint:       toolkit.StepPoint{Touchable: toolkit.Touchable{Placement: slab}},
		TotalEnergyDeposit: 1,
	})
	assert.ErrorIs(t, err, hits.ErrFatalInconsistency)
	assert.ErrorContains(t, err, "sd /hodoscope2")

	_, err = h.ProcessHits(&toolkit.Step{Track: &toolkit.Track{ID: 1}, TotalEnergyDeposit: 1})
	assert.ErrorIs(t, err, hits.ErrFatalInconsistency)
	assert.ErrorContains(t, err, "no touched volume")
}

// Package sd adapts toolkit steps to the hit aggregator for each
// hodoscope sensitive detector.
package sd

import (
	"fmt"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/hits"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/toolkit"
)

// Hodoscope is the sensitive detector attached to one hodoscope plane.
// It owns that plane's hit collection for the current event.
type Hodoscope struct {
	name       string
	aggregator *hits.Aggregator
	collection *hits.Collection
	id         int
}

// NewHodoscope creates a detector named like "/hodoscope1". The
// registry must already contain the detector's collection key.
func NewHodoscope(name string, agg *hits.Aggregator, reg *hits.Registry) (*Hodoscope, error) {
	id, ok := reg.ID(hits.CollectionKey(name))
	if !ok {
		return nil, fmt.Errorf("sd: collection %q not registered", hits.CollectionKey(name))
	}
	return &Hodoscope{name: name, aggregator: agg, id: id}, nil
}

// Name returns the detector name.
func (h *Hodoscope) Name() string { return h.name }

// Collection returns the collection of the current (or last) event.
func (h *Hodoscope) Collection() *hits.Collection { return h.collection }

// Initialize starts an event: a fresh collection is created and registered
// in the event's store.
func (h *Hodoscope) Initialize(store *hits.Store) error {
	h.collection = hits.NewCollection(h.name, h.id)
	if err := store.Add(h.collection); err != nil {
		return fmt.Errorf("sd %s: %w", h.name, err)
	}
	return nil
}

// ProcessHits hands one step inside this detector to the aggregator.
func (h *Hodoscope) ProcessHits(step *toolkit.Step) (hits.Outcome, error) {
	if step.TotalEnergyDeposit == 0 {
		return hits.OutcomeSkipped, nil
	}
	if h.collection == nil {
		return hits.OutcomeSkipped, fmt.Errorf("%w: %s received a step outside an event", hits.ErrFatalInconsistency, h.name)
	}

	pre := step.PreStepPoint
	transform := pre.Touchable.Transform()
	s := hits.Step{
		SegmentID: pre.Touchable.CopyNo(),
		Segment: hits.SegmentGeometry{
			Logical:     pre.Touchable.Logical(),
			Translation: transform.Translation,
			Rotation:    transform.Rotation,
		},
		Time:          pre.GlobalTime,
		Position:      pre.Position,
		Momentum:      pre.Momentum,
		EnergyDeposit: step.TotalEnergyDeposit,
	}
	if t := step.Track; t != nil {
		s.TrackID = t.ID
		s.ParentID = t.ParentID
		s.ParticleName = t.Particle
		s.InitialMomentum = t.VertexMomentum
		s.InitialPosition = t.VertexPosition
		s.CreationVolume = t.VertexVolume
	}

	outcome, err := h.aggregator.Attribute(h.collection, s)
	if err != nil {
		return outcome, fmt.Errorf("sd %s: %w", h.name, err)
	}
	return outcome, nil
}

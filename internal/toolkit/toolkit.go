// Package toolkit describes the values the external transport toolkit hands
// to the simulation core, and the callbacks it drives.
package toolkit

import (
	"context"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/geometry"
)

// Track is a particle being transported.
type Track struct {
	ID       int
	ParentID int
	Particle string

	// Vertex* describe where and how the track was created.
	VertexMomentum r3.Vec
	VertexPosition r3.Vec
	VertexVolume   *geometry.LogicalVolume
}

// Touchable identifies the placed volume a step point lies in.
type Touchable struct {
	Placement *geometry.Placement
}

// Logical returns the logical volume of the touched placement, or nil.
func (t Touchable) Logical() *geometry.LogicalVolume {
	if t.Placement == nil {
		return nil
	}
	return t.Placement.Logical
}

// CopyNo returns the copy number of the touched placement, or -1.
func (t Touchable) CopyNo() int {
	if t.Placement == nil {
		return -1
	}
	return t.Placement.CopyNo
}

// Transform returns the net world transform of the touched placement.
func (t Touchable) Transform() geometry.Transform {
	if t.Placement == nil {
		return geometry.Identity()
	}
	return t.Placement.Global()
}

// StepPoint is the state of a track at one end of a step.
type StepPoint struct {
	GlobalTime float64 // ns
	Position   r3.Vec  // mm
	Momentum   r3.Vec  // MeV/c
	Touchable  Touchable
}

// Step is one transport step of a track.
type Step struct {
	Track              *Track
	PreStepPoint       StepPoint
	TotalEnergyDeposit float64 // MeV
}

// Hooks are the callbacks the toolkit drives for each event. Any error
// aborts the event.
type Hooks interface {
	BeginEvent(ctx context.Context, eventID int) error
	TrackStarted(track *Track) error
	ProcessStep(step *Step) error
	TrackFinished(track *Track, secondaries []*Track) error
	EndEvent() error
}

package hits

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/geometry"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/lineage"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/monitoring"
)

// Sentinel is returned by scalar accessors for an index that does not exist.
const Sentinel = -999.0

// ErrFatalInconsistency marks a state that must abort the current event:
// a step without a touched volume or valid track, or a mutation of a
// closed record or collection.
var ErrFatalInconsistency = errors.New("hits: fatal inconsistency")

// State is the lifecycle state of a Record.
type State int

const (
	// StateOpen records accept samples and daughters.
	StateOpen State = iota
	// StateClosed records are read-only.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// SegmentGeometry is the touched segment captured when a record is created.
type SegmentGeometry struct {
	Logical     *geometry.LogicalVolume
	Translation r3.Vec
	Rotation    r3.Rotation
}

// Sample is one attributed energy deposit.
type Sample struct {
	Time          float64 // ns
	EnergyDeposit float64 // MeV
	Position      r3.Vec  // mm, global
}

// Record is the hit of one particle tree in one segment during one event.
type Record struct {
	segmentID        int
	segment          SegmentGeometry
	primary          lineage.Record
	primaryAncestors []lineage.Record
	daughters        []lineage.Record
	incidentMomentum r3.Vec

	times     []float64
	deposits  []float64
	positions []r3.Vec

	state State
}

// init prepares a (possibly recycled) record for a new segment encounter.
func (r *Record) init(segmentID int, seg SegmentGeometry, primary lineage.Record, ancestors []lineage.Record, incident r3.Vec) {
	r.segmentID = segmentID
	r.segment = seg
	r.primary = primary
	r.primaryAncestors = append(r.primaryAncestors[:0], ancestors...)
	r.daughters = r.daughters[:0]
	r.incidentMomentum = incident
	r.times = r.times[:0]
	r.deposits = r.deposits[:0]
	r.positions = r.positions[:0]
	r.state = StateOpen
}

// reset drops references held by a record going back to the pool.
func (r *Record) reset() {
	r.init(-1, SegmentGeometry{}, lineage.Invalid, nil, r3.Vec{})
	r.state = StateClosed
}

// SegmentID returns the copy number of the segment.
func (r *Record) SegmentID() int { return r.segmentID }

// Segment returns the segment geometry captured at first encounter.
func (r *Record) Segment() SegmentGeometry { return r.segment }

// Primary returns the lineage of the first track that deposited energy.
func (r *Record) Primary() lineage.Record { return r.primary }

// IncidentMomentum returns the primary's momentum at its first sample.
func (r *Record) IncidentMomentum() r3.Vec { return r.incidentMomentum }

// State returns the lifecycle state.
func (r *Record) State() State { return r.state }

// Closed reports whether the record is read-only.
func (r *Record) Closed() bool { return r.state == StateClosed }

// NumAncestors returns the number of primary ancestors.
func (r *Record) NumAncestors() int { return len(r.primaryAncestors) }

// PrimaryAncestors returns the primary's ancestor chain, oldest first.
func (r *Record) PrimaryAncestors() []lineage.Record {
	return append([]lineage.Record(nil), r.primaryAncestors...)
}

// Ancestor returns the i-th primary ancestor.
func (r *Record) Ancestor(i int) lineage.Record {
	if i < 0 || i >= len(r.primaryAncestors) {
		r.lookupFailure("Ancestor", i, len(r.primaryAncestors))
		return lineage.Invalid
	}
	return r.primaryAncestors[i]
}

// NumDaughters returns the number of recorded daughters.
func (r *Record) NumDaughters() int { return len(r.daughters) }

// Daughters returns the recorded daughters in discovery order.
func (r *Record) Daughters() []lineage.Record {
	return append([]lineage.Record(nil), r.daughters...)
}

// Daughter returns the i-th daughter.
func (r *Record) Daughter(i int) lineage.Record {
	if i < 0 || i >= len(r.daughters) {
		r.lookupFailure("Daughter", i, len(r.daughters))
		return lineage.Invalid
	}
	return r.daughters[i]
}

// NumSamples returns the number of attributed deposits.
func (r *Record) NumSamples() int { return len(r.times) }

// HitTime returns the time of the i-th sample.
func (r *Record) HitTime(i int) float64 {
	if i < 0 || i >= len(r.times) {
		r.lookupFailure("HitTime", i, len(r.times))
		return Sentinel
	}
	return r.times[i]
}

// EnergyDeposit returns the deposit of the i-th sample.
func (r *Record) EnergyDeposit(i int) float64 {
	if i < 0 || i >= len(r.deposits) {
		r.lookupFailure("EnergyDeposit", i, len(r.deposits))
		return Sentinel
	}
	return r.deposits[i]
}

// HitPosition returns the global position of the i-th sample.
func (r *Record) HitPosition(i int) r3.Vec {
	if i < 0 || i >= len(r.positions) {
		r.lookupFailure("HitPosition", i, len(r.positions))
		return r3.Vec{}
	}
	return r.positions[i]
}

// Samples returns the attributed deposits in arrival order.
func (r *Record) Samples() []Sample {
	out := make([]Sample, len(r.times))
	for i := range out {
		out[i] = Sample{Time: r.times[i], EnergyDeposit: r.deposits[i], Position: r.positions[i]}
	}
	return out
}

// TotalEnergyDeposit sums every sample.
func (r *Record) TotalEnergyDeposit() float64 {
	var sum float64
	for _, e := range r.deposits {
		sum += e
	}
	return sum
}

// FirstHitTime returns the smallest sample time, or Sentinel without samples.
func (r *Record) FirstHitTime() float64 {
	if len(r.times) == 0 {
		return Sentinel
	}
	first := r.times[0]
	for _, t := range r.times[1:] {
		if t < first {
			first = t
		}
	}
	return first
}

// owns reports whether trackID is the primary or a daughter of r.
func (r *Record) owns(trackID int) (lineage.Record, bool) {
	if r.primary.TrackID == trackID {
		return r.primary, true
	}
	return r.daughter(trackID)
}

func (r *Record) daughter(trackID int) (lineage.Record, bool) {
	for _, d := range r.daughters {
		if d.TrackID == trackID {
			return d, true
		}
	}
	return lineage.Invalid, false
}

func (r *Record) appendSample(s Sample) error {
	if r.state == StateClosed {
		return fmt.Errorf("%w: sample appended to closed record (segment %d, primary %d)", ErrFatalInconsistency, r.segmentID, r.primary.TrackID)
	}
	r.times = append(r.times, s.Time)
	r.deposits = append(r.deposits, s.EnergyDeposit)
	r.positions = append(r.positions, s.Position)
	return nil
}

func (r *Record) addDaughter(d lineage.Record) error {
	if r.state == StateClosed {
		return fmt.Errorf("%w: daughter added to closed record (segment %d, primary %d)", ErrFatalInconsistency, r.segmentID, r.primary.TrackID)
	}
	if d.TrackID == r.primary.TrackID {
		return nil
	}
	if _, dup := r.daughter(d.TrackID); dup {
		return nil
	}
	r.daughters = append(r.daughters, d)
	return nil
}

func (r *Record) close() { r.state = StateClosed }

func (r *Record) lookupFailure(accessor string, i, n int) {
	monitoring.Warnf("hits.Record.%s(%d): no such entry (segment %d, primary track %d, %d entries, %s)",
		accessor, i, r.segmentID, r.primary.TrackID, n, r.state)
}

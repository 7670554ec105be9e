package hits

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/geometry"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/lineage"
)

// Step is what the aggregator needs to know about one transport step
// inside a sensitive segment.
type Step struct {
	SegmentID int
	Segment   SegmentGeometry

	TrackID      int
	ParentID     int
	ParticleName string

	Time          float64 // ns
	Position      r3.Vec  // mm, global
	Momentum      r3.Vec  // MeV/c
	EnergyDeposit float64 // MeV

	// Creation point of the track.
	InitialMomentum r3.Vec
	InitialPosition r3.Vec
	CreationVolume  *geometry.LogicalVolume
}

func (s *Step) sample() Sample {
	return Sample{Time: s.Time, EnergyDeposit: s.EnergyDeposit, Position: s.Position}
}

func (s *Step) lineage(generation int) lineage.Record {
	return lineage.Record{
		Generation:      generation,
		TrackID:         s.TrackID,
		ParentID:        s.ParentID,
		ParticleName:    s.ParticleName,
		InitialMomentum: s.InitialMomentum,
		InitialPosition: s.InitialPosition,
	}
}

// Outcome says how a step was attributed.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomePrimary
	OutcomeKnownDaughter
	OutcomeNewDaughter
	OutcomeNewRecord
)

var outcomeNames = [...]string{"skipped", "primary", "known_daughter", "new_daughter", "new_record"}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// Aggregator attributes steps to hit records. It belongs to one worker
// and reads that worker's lineage tracker.
type Aggregator struct {
	tracker *lineage.Tracker
	pool    *Pool
	indexed bool
}

// NewAggregator creates an aggregator. With indexed set, record lookup
// goes through a per-collection track index instead of scanning; the
// attribution is identical either way.
func NewAggregator(tracker *lineage.Tracker, pool *Pool, indexed bool) *Aggregator {
	if pool == nil {
		pool = NewPool(0)
	}
	return &Aggregator{tracker: tracker, pool: pool, indexed: indexed}
}

// Indexed reports whether the track index is used.
func (a *Aggregator) Indexed() bool { return a.indexed }

// Attribute adds one step to the collection. In order of precedence the
// step is appended to the record whose primary it belongs to, to the record
// that already lists it as a daughter, or to the first record whose segment
// volume the track was created in by that record's primary or one of its
// daughters (recording it as a new daughter). Otherwise it opens a new
// record. Steps without energy deposit are ignored.
func (a *Aggregator) Attribute(c *Collection, s Step) (Outcome, error) {
	if s.EnergyDeposit == 0 {
		return OutcomeSkipped, nil
	}
	if s.Segment.Logical == nil {
		return OutcomeSkipped, fmt.Errorf("%w: step of track %d in segment %d has no touched volume", ErrFatalInconsistency, s.TrackID, s.SegmentID)
	}
	if s.TrackID <= 0 {
		return OutcomeSkipped, fmt.Errorf("%w: step in segment %d has no valid track (id %d)", ErrFatalInconsistency, s.SegmentID, s.TrackID)
	}
	if c.closed {
		return OutcomeSkipped, fmt.Errorf("%w: step of track %d delivered to closed collection %s", ErrFatalInconsistency, s.TrackID, c.Key())
	}

	var (
		idx     int
		outcome Outcome
	)
	if a.indexed {
		idx, outcome = a.lookupIndexed(c, &s)
	} else {
		idx, outcome = a.lookupScan(c, &s)
	}

	switch outcome {
	case OutcomePrimary, OutcomeKnownDaughter:
		return outcome, c.records[idx].appendSample(s.sample())

	case OutcomeNewDaughter:
		r := c.records[idx]
		parent, _ := r.owns(s.ParentID)
		if err := r.addDaughter(s.lineage(parent.Generation + 1)); err != nil {
			return outcome, err
		}
		if c.byTrack != nil {
			c.indexTrack(s.TrackID, idx)
		}
		return outcome, r.appendSample(s.sample())
	}

	var ancestors []lineage.Record
	if a.tracker != nil && a.tracker.Known(s.TrackID) {
		ancestors = a.tracker.AncestorsOf(s.TrackID)
	}
	r := a.pool.Get()
	r.init(s.SegmentID, s.Segment, s.lineage(len(ancestors)), ancestors, s.Momentum)
	if err := r.appendSample(s.sample()); err != nil {
		return OutcomeNewRecord, err
	}
	return OutcomeNewRecord, c.insert(r)
}

func (a *Aggregator) lookupScan(c *Collection, s *Step) (int, Outcome) {
	for i, r := range c.records {
		if r.primary.TrackID == s.TrackID {
			return i, OutcomePrimary
		}
	}
	for i, r := range c.records {
		if _, ok := r.daughter(s.TrackID); ok {
			return i, OutcomeKnownDaughter
		}
	}
	for i, r := range c.records {
		if s.CreationVolume == nil || s.CreationVolume != r.segment.Logical {
			continue
		}
		if _, ok := r.owns(s.ParentID); ok {
			return i, OutcomeNewDaughter
		}
	}
	return -1, OutcomeNewRecord
}

// lookupIndexed relies on every track id being owned by at most one
// record, which holds because a track only joins a record when no record
// owns it yet.
func (a *Aggregator) lookupIndexed(c *Collection, s *Step) (int, Outcome) {
	c.ensureIndex()
	if i, ok := c.byTrack[s.TrackID]; ok {
		if c.records[i].primary.TrackID == s.TrackID {
			return i, OutcomePrimary
		}
		return i, OutcomeKnownDaughter
	}
	if s.CreationVolume != nil {
		if i, ok := c.byTrack[s.ParentID]; ok && c.records[i].segment.Logical == s.CreationVolume {
			return i, OutcomeNewDaughter
		}
	}
	return -1, OutcomeNewRecord
}

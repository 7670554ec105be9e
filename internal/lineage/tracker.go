package lineage

import (
	"errors"
	"fmt"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/monitoring"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNotFound is returned when a track id has never been started.
var ErrNotFound = errors.New("lineage: track not found")

// Chain is the identity history of one track slot: the current identity
// plus every identity it superseded, oldest first.
type Chain struct {
	current    Record
	hasCurrent bool
	history    []Record
}

// Current returns the most recently assigned identity.
func (c *Chain) Current() Record {
	if !c.hasCurrent {
		return Invalid
	}
	return c.current
}

// History returns a copy of the archived identities, oldest first.
func (c *Chain) History() []Record {
	if len(c.history) == 0 {
		return nil
	}
	return append([]Record(nil), c.history...)
}

// assign archives the current identity (if any) and installs r as current
// with its generation set to the archive depth.
func (c *Chain) assign(r Record) Record {
	if c.hasCurrent {
		c.history = append(c.history, c.current)
	}
	r.Generation = len(c.history)
	c.current = r
	c.hasCurrent = true
	return r
}

func (c *Chain) copyFrom(src *Chain) {
	c.current = src.current
	c.hasCurrent = src.hasCurrent
	c.history = append(c.history[:0], src.history...)
}

func (c *Chain) reset() {
	c.current = Record{}
	c.hasCurrent = false
	c.history = c.history[:0]
}

// Tracker maps track ids to their ancestry chains for one event.
type Tracker struct {
	chains map[int]*Chain
	free   []*Chain
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{chains: make(map[int]*Chain)}
}

// Start assigns a new identity to trackID. If the track already has a chain,
// either seeded by its parent's Finish or because the track id is being
// reused, the previous identity is archived first and the new identity's
// generation equals the number of archived identities.
func (t *Tracker) Start(trackID, parentID int, particleName string, initialMomentum, initialPosition r3.Vec) Record {
	chain, ok := t.chains[trackID]
	if !ok {
		chain = t.newChain()
		t.chains[trackID] = chain
	}
	return chain.assign(Record{
		TrackID:         trackID,
		ParentID:        parentID,
		ParticleName:    particleName,
		InitialMomentum: initialMomentum,
		InitialPosition: initialPosition,
	})
}

// Current returns the current identity of trackID.
func (t *Tracker) Current(trackID int) (Record, error) {
	chain, ok := t.chains[trackID]
	if !ok || !chain.hasCurrent {
		return Invalid, fmt.Errorf("current identity of track %d: %w", trackID, ErrNotFound)
	}
	return chain.current, nil
}

// AncestorsOf returns the archived identities of trackID, oldest first.
// Unknown tracks yield a warning and nil.
func (t *Tracker) AncestorsOf(trackID int) []Record {
	chain, ok := t.chains[trackID]
	if !ok {
		monitoring.Warnf("lineage.AncestorsOf(%d): track never started (%d chains in event)", trackID, len(t.chains))
		return nil
	}
	return chain.History()
}

// Known reports whether trackID has a chain in this event.
func (t *Tracker) Known(trackID int) bool {
	_, ok := t.chains[trackID]
	return ok
}

// Finish seeds every secondary with a copy of the finishing track's chain.
// The copied current identity is archived when the secondary is started.
func (t *Tracker) Finish(trackID int, secondaryIDs []int) {
	if len(secondaryIDs) == 0 {
		return
	}
	parent, ok := t.chains[trackID]
	if !ok {
		monitoring.Warnf("lineage.Finish(%d): track never started, %d secondaries left without ancestry", trackID, len(secondaryIDs))
		return
	}
	for _, id := range secondaryIDs {
		if id == trackID {
			continue
		}
		chain, ok := t.chains[id]
		if !ok {
			chain = t.newChain()
			t.chains[id] = chain
		}
		chain.copyFrom(parent)
	}
}

// Len returns the number of tracks with a chain.
func (t *Tracker) Len() int {
	return len(t.chains)
}

// Reset forgets every chain. Chains are kept on a free list and reused by
// the next event.
func (t *Tracker) Reset() {
	for id, chain := range t.chains {
		chain.reset()
		t.free = append(t.free, chain)
		delete(t.chains, id)
	}
}

func (t *Tracker) newChain() *Chain {
	if n := len(t.free); n > 0 {
		chain := t.free[n-1]
		t.free = t.free[:n-1]
		return chain
	}
	return &Chain{}
}

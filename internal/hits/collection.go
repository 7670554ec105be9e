package hits

import (
	"fmt"
	"strings"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/monitoring"
)

// CollectionName is the name every hodoscope registers its hits under.
const CollectionName = "hodoscope_hits_collection"

// CollectionKey returns the store key for a detector's collection,
// e.g. "hodoscope1/hodoscope_hits_collection" for "/hodoscope1".
func CollectionKey(detector string) string {
	return strings.TrimPrefix(detector, "/") + "/" + CollectionName
}

// Collection holds the records of one detector for one event, in creation order.
type Collection struct {
	detector string
	id       int
	records  []*Record
	closed   bool

	// byTrack maps a track id to the index of the record that owns it as
	// primary or daughter. Nil unless the aggregator runs in index mode.
	byTrack map[int]int
}

// NewCollection creates an open collection for a detector.
func NewCollection(detector string, id int) *Collection {
	return &Collection{detector: detector, id: id}
}

// Detector returns the owning detector name.
func (c *Collection) Detector() string { return c.detector }

// ID returns the run-wide collection id.
func (c *Collection) ID() int { return c.id }

// Key returns the store key.
func (c *Collection) Key() string { return CollectionKey(c.detector) }

// Len returns the number of records.
func (c *Collection) Len() int { return len(c.records) }

// Closed reports whether the collection is read-only.
func (c *Collection) Closed() bool { return c.closed }

// At returns the i-th record, or nil with a warning when out of range.
func (c *Collection) At(i int) *Record {
	if i < 0 || i >= len(c.records) {
		state := "open"
		if c.closed {
			state = "closed"
		}
		monitoring.Warnf("hits.Collection.At(%d): no such record (%s, %d records, %s)", i, c.Key(), len(c.records), state)
		return nil
	}
	return c.records[i]
}

// Records returns the records in creation order.
func (c *Collection) Records() []*Record {
	return append([]*Record(nil), c.records...)
}

// Close makes the collection and every record in it read-only.
func (c *Collection) Close() {
	for _, r := range c.records {
		r.close()
	}
	c.closed = true
}

func (c *Collection) insert(r *Record) error {
	if c.closed {
		return fmt.Errorf("%w: record inserted into closed collection %s", ErrFatalInconsistency, c.Key())
	}
	c.records = append(c.records, r)
	if c.byTrack != nil {
		c.indexTrack(r.primary.TrackID, len(c.records)-1)
	}
	return nil
}

func (c *Collection) indexTrack(trackID, recordIndex int) {
	if _, ok := c.byTrack[trackID]; !ok {
		c.byTrack[trackID] = recordIndex
	}
}

// ensureIndex builds the track index from the existing records once.
func (c *Collection) ensureIndex() {
	if c.byTrack != nil {
		return
	}
	c.byTrack = make(map[int]int)
	for i, r := range c.records {
		c.indexTrack(r.primary.TrackID, i)
		for _, d := range r.daughters {
			c.indexTrack(d.TrackID, i)
		}
	}
}

// release hands every record back to the pool and empties the collection.
func (c *Collection) release(p *Pool) {
	for _, r := range c.records {
		p.Put(r)
	}
	c.records = c.records[:0]
	c.byTrack = nil
}

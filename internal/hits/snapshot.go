package hits

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/lineage"
)

// RecordData is a detached copy of everything a Record holds.
type RecordData struct {
	SegmentID        int
	Segment          SegmentGeometry
	Primary          lineage.Record
	PrimaryAncestors []lineage.Record
	Daughters        []lineage.Record
	IncidentMomentum r3.Vec
	Samples          []Sample
}

// Data returns a copy of the record's contents.
func (r *Record) Data() RecordData {
	return RecordData{
		SegmentID:        r.segmentID,
		Segment:          r.segment,
		Primary:          r.primary,
		PrimaryAncestors: r.PrimaryAncestors(),
		Daughters:        r.Daughters(),
		IncidentMomentum: r.incidentMomentum,
		Samples:          r.Samples(),
	}
}

// RestoreCollection rebuilds a closed collection from stored records.
func RestoreCollection(detector string, id int, records []RecordData) *Collection {
	c := NewCollection(detector, id)
	for _, d := range records {
		r := &Record{}
		r.init(d.SegmentID, d.Segment, d.Primary, d.PrimaryAncestors, d.IncidentMomentum)
		r.daughters = append(r.daughters, d.Daughters...)
		for _, s := range d.Samples {
			r.times = append(r.times, s.Time)
			r.deposits = append(r.deposits, s.EnergyDeposit)
			r.positions = append(r.positions, s.Position)
		}
		c.records = append(c.records, r)
	}
	c.Close()
	return c
}

package lineage

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Record is the identity of one simulated track at its creation point.
// Records are values; copying one never aliases another.
type Record struct {
	Generation      int // 0 for a root particle
	TrackID         int
	ParentID        int
	ParticleName    string
	InitialMomentum r3.Vec // MeV
	InitialPosition r3.Vec // mm
}

// Invalid is returned by accessors that cannot find the requested record.
var Invalid = Record{Generation: -1, TrackID: -1, ParentID: -1}

// IsValid reports whether r refers to a real track.
func (r Record) IsValid() bool {
	return r.TrackID > 0 && r.Generation >= 0
}

func (r Record) String() string {
	return fmt.Sprintf("track %d (%s) parent=%d generation=%d",
		r.TrackID, r.ParticleName, r.ParentID, r.Generation)
}

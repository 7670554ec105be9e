package sim

import (
	"fmt"
	"io"
	"math"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/field"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/hits"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/particle"
	"github.com/takumi-yamaga/simple-acceptance-study/internal/units"
)

// PrintEvent dumps every collection of an event, followed by the helix
// radius of each primary at the point it entered its segment.
func PrintEvent(w io.Writer, eventID int, store *hits.Store, solenoid field.Solenoid) error {
	if _, err := fmt.Fprintf(w, "=== event %d ===\n", eventID); err != nil {
		return err
	}
	for _, c := range store.Collections() {
		if err := c.Print(w); err != nil {
			return err
		}
		for _, r := range c.Records() {
			radius := "n/a"
			if def, err := particle.Lookup(r.Primary().ParticleName); err == nil {
				if rr := solenoid.HelixRadius(r.IncidentMomentum(), def.Charge); !math.IsInf(rr, 1) {
					radius = units.BestLength(rr)
				}
			}
			if _, err := fmt.Fprintf(w, "  segment %d track %d helix radius %s\n", r.SegmentID(), r.Primary().TrackID, radius); err != nil {
				return err
			}
		}
	}
	return nil
}

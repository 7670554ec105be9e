package hits

import (
	"fmt"
	"io"

	"github.com/takumi-yamaga/simple-acceptance-study/internal/units"
)

// Printer writes a human-readable dump for diagnostics.
type Printer interface {
	Print(w io.Writer) error
}

var (
	_ Printer = (*Record)(nil)
	_ Printer = (*Collection)(nil)
)

// Print writes the record's segment, particles and summed deposit.
func (r *Record) Print(w io.Writer) error {
	name := "<none>"
	if r.segment.Logical != nil {
		name = r.segment.Logical.Name
	}
	p := r.segment.Translation
	if _, err := fmt.Fprintf(w, "segment %d (%s) at (%s, %s, %s) [%s]\n", r.segmentID, name,
		units.BestLength(p.X), units.BestLength(p.Y), units.BestLength(p.Z), r.state); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  primary   %s\n", r.primary); err != nil {
		return err
	}
	for _, a := range r.primaryAncestors {
		if _, err := fmt.Fprintf(w, "  ancestor  %s\n", a); err != nil {
			return err
		}
	}
	for _, d := range r.daughters {
		if _, err := fmt.Fprintf(w, "  daughter  %s\n", d); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "  samples   %d, total deposit %s\n", len(r.times), units.BestEnergy(r.TotalEnergyDeposit()))
	return err
}

// Print writes a header followed by every record.
func (c *Collection) Print(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s (id %d): %d records\n", c.Key(), c.id, len(c.records)); err != nil {
		return err
	}
	for _, r := range c.records {
		if err := r.Print(w); err != nil {
			return err
		}
	}
	return nil
}

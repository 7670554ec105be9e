package geometry

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// LogicalVolume is a shape with material. Placements of the same logical
// volume share one *LogicalVolume.
type LogicalVolume struct {
	Name     string
	Solid    Solid
	Material string

	// SensitiveDetector names the detector that receives steps inside
	// this volume; empty for passive volumes.
	SensitiveDetector string
}

// IsSensitive reports whether steps in this volume are delivered to a detector.
func (lv *LogicalVolume) IsSensitive() bool {
	return lv != nil && lv.SensitiveDetector != ""
}

// Placement is one placed instance of a logical volume.
type Placement struct {
	Name    string
	Logical *LogicalVolume
	CopyNo  int
	Local   Transform // relative to Mother
	Mother  *Placement

	global Transform
	depth  int
}

// Global returns the net transform of the placement in the world frame.
func (p *Placement) Global() Transform {
	return p.global
}

// Contains reports whether a world-frame point lies inside this placement.
func (p *Placement) Contains(global r3.Vec) bool {
	return p.Logical.Solid.Contains(p.global.ToLocal(global))
}

type placementKey struct {
	name   string
	copyNo int
}

// Detector is the built, read-only geometry.
type Detector struct {
	World      *Placement
	logicals   map[string]*LogicalVolume
	placements []*Placement
	byKey      map[placementKey]*Placement
}

// Logical looks up a logical volume by name.
func (d *Detector) Logical(name string) (*LogicalVolume, bool) {
	lv, ok := d.logicals[name]
	return lv, ok
}

// Placement looks up a placement by name and copy number.
func (d *Detector) Placement(name string, copyNo int) (*Placement, bool) {
	p, ok := d.byKey[placementKey{name, copyNo}]
	return p, ok
}

// Placements returns every placement in build order.
func (d *Detector) Placements() []*Placement {
	return append([]*Placement(nil), d.placements...)
}

// SensitiveDetectors returns the distinct sensitive detector names in
// build order.
func (d *Detector) SensitiveDetectors() []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range d.placements {
		name := p.Logical.SensitiveDetector
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Locate returns the deepest placement containing the world-frame point,
// or nil when the point is outside the world.
func (d *Detector) Locate(global r3.Vec) *Placement {
	var found *Placement
	for _, p := range d.placements {
		if !p.Contains(global) {
			continue
		}
		if found == nil || p.depth > found.depth {
			found = p
		}
	}
	return found
}

// Builder accumulates volumes and placements; Build validates and freezes them.
type Builder struct {
	logicals   []*LogicalVolume
	placements []*Placement
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Logical registers a new logical volume.
func (b *Builder) Logical(name string, solid Solid, material string) *LogicalVolume {
	lv := &LogicalVolume{Name: name, Solid: solid, Material: material}
	b.logicals = append(b.logicals, lv)
	return lv
}

// Place registers a placement of lv inside mother (nil for the world).
func (b *Builder) Place(name string, lv *LogicalVolume, copyNo int, local Transform, mother *Placement) *Placement {
	p := &Placement{Name: name, Logical: lv, CopyNo: copyNo, Local: local, Mother: mother}
	b.placements = append(b.placements, p)
	return p
}

// Build validates the registered volumes and returns the frozen detector.
func (b *Builder) Build() (*Detector, error) {
	d := &Detector{
		logicals: make(map[string]*LogicalVolume, len(b.logicals)),
		byKey:    make(map[placementKey]*Placement, len(b.placements)),
	}

	var errs []error
	registered := make(map[*LogicalVolume]bool, len(b.logicals))
	for _, lv := range b.logicals {
		if lv.Name == "" {
			errs = append(errs, errors.New("logical volume without a name"))
			continue
		}
		if _, dup := d.logicals[lv.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate logical volume %q", lv.Name))
			continue
		}
		if lv.Solid == nil {
			errs = append(errs, fmt.Errorf("logical volume %q has no solid", lv.Name))
			continue
		}
		if err := lv.Solid.validate(); err != nil {
			errs = append(errs, fmt.Errorf("logical volume %q: %w", lv.Name, err))
			continue
		}
		d.logicals[lv.Name] = lv
		registered[lv] = true
	}

	placed := make(map[*Placement]bool, len(b.placements))
	for _, p := range b.placements {
		if !registered[p.Logical] {
			errs = append(errs, fmt.Errorf("placement %q/%d references an unregistered logical volume", p.Name, p.CopyNo))
			continue
		}
		key := placementKey{p.Name, p.CopyNo}
		if _, dup := d.byKey[key]; dup {
			errs = append(errs, fmt.Errorf("duplicate placement %q copy %d", p.Name, p.CopyNo))
			continue
		}
		if p.Mother == nil {
			if d.World != nil {
				errs = append(errs, fmt.Errorf("second world volume %q", p.Name))
				continue
			}
			d.World = p
			p.global = p.Local
			p.depth = 0
		} else {
			if !placed[p.Mother] {
				errs = append(errs, fmt.Errorf("placement %q/%d placed before its mother %q", p.Name, p.CopyNo, p.Mother.Name))
				continue
			}
			p.global = p.Mother.global.Compose(p.Local)
			p.depth = p.Mother.depth + 1
		}
		placed[p] = true
		d.byKey[key] = p
		d.placements = append(d.placements, p)
	}

	if d.World == nil {
		errs = append(errs, errors.New("no world volume"))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid geometry: %w", errors.Join(errs...))
	}
	return d, nil
}

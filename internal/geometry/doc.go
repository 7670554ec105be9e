// Package geometry holds the read-only detector description: logical
// volumes (solid, material, optional sensitive detector) and their
// placements with copy numbers and transforms.
//
// A Detector is immutable after Build and may be shared by every worker.
// Volumes are compared by pointer identity, so a *LogicalVolume obtained
// from one Detector is the reference hit records capture.
package geometry

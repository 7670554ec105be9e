// Package lineage owns particle identity and ancestry within one event.
//
// Responsibilities: the immutable Record describing one track's identity,
// and the Tracker that accumulates, per track id, the chain of identities
// a track inherited from its ancestors as the particle tree unfolds.
// Key types: Record, Chain, Tracker.
//
// A Tracker belongs to exactly one event at a time and has a single writer.
// Call Reset between events: track ids are only unique within one event.
package lineage

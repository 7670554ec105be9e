// Package hits aggregates energy deposits in hodoscope segments into hit
// records, attributing each deposit to the particle tree that caused it.
//
// One Record is kept per segment encounter: the first track to deposit
// energy becomes the record's primary, and tracks later found to have been
// created inside the same segment volume by the primary (or by an already
// recorded daughter) are attached as daughters. See Aggregator.Attribute
// for the attribution order.
//
// Records and collections are owned by a single worker for the duration of
// one event and become read-only once the event ends.
package hits

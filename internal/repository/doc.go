// Package repository defines the data access interfaces for forcegraph.
//
// The repository persists two things: layout snapshots (the node positions
// of a layout at a point in time, usually taken when a layout cools down)
// and the most recently ingested payload, so a restarted server can resume
// with the same graph. The implementation is in the sqlite subpackage.
//
// Get operations return nil without an error when the record does not
// exist. Delete operations return ErrNotFound.
package repository

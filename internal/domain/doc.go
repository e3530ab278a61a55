// Package domain defines the data model for the force-directed graph engine.
//
// Graph payloads arrive as free-form records: every node and link is an
// arbitrary key/value map. The engine is told which keys carry the identity,
// magnitude, display name and color of a node, and which keys carry the two
// endpoints of a link (see FieldMapping). This package turns those records
// into normalized values the rest of the system works with.
//
// # Core Types
//
// Record is a single raw node or link as decoded from JSON or YAML.
//
// GraphData is a payload of node and link records, the unit of ingestion.
//
// Node is a normalized node. Its position and velocity fields are owned by
// the simulation; everything else is derived from the record once per
// ingestion.
//
// Link is a normalized link. Its endpoints are first resolved to identity
// strings; the simulation later resolves those identities to node
// references. A link whose identities match no node stays unresolved and is
// ignored by both the simulation and the renderer.
//
// # Coloring
//
// ResolveColors assigns categorical colors from the twelve-entry Paired
// palette to nodes that carry no color of their own, grouping by an
// arbitrary record field in first-seen order.
//
// # Snapshots
//
// LayoutSnapshot captures the node positions of a layout at a point in time
// so it can be persisted or exported.
//
// # Design Principles
//
// - No rendering, simulation or storage dependencies
// - Permissive normalization: malformed records never produce errors
// - Records are mutated only where the data contract requires it
package domain

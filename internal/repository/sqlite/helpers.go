package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"forcegraph/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// ============================================================================
// Row Scanning
// ============================================================================

// snapshotRow holds the columns of a snapshots row
type snapshotRow struct {
	id         string
	source     sql.NullString
	dimensions int
	ticks      int
	alpha      float64
	nodeCount  int
	linkCount  int
	createdAt  time.Time
}

func (r *snapshotRow) scanArgs() []interface{} {
	return []interface{}{
		&r.id, &r.source, &r.dimensions, &r.ticks, &r.alpha,
		&r.nodeCount, &r.linkCount, &r.createdAt,
	}
}

func (r *snapshotRow) toDomain() *domain.LayoutSnapshot {
	return &domain.LayoutSnapshot{
		ID:         r.id,
		Source:     nullToString(r.source),
		CreatedAt:  r.createdAt.UTC(),
		Dimensions: r.dimensions,
		Ticks:      r.ticks,
		Alpha:      r.alpha,
		LinkCount:  r.linkCount,
	}
}

func (r *snapshotRow) toSummary() domain.SnapshotSummary {
	return domain.SnapshotSummary{
		ID:         r.id,
		Source:     nullToString(r.source),
		CreatedAt:  r.createdAt.UTC(),
		Dimensions: r.dimensions,
		Ticks:      r.ticks,
		NodeCount:  r.nodeCount,
		LinkCount:  r.linkCount,
	}
}

// positionRow holds the columns of a snapshot_positions row
type positionRow struct {
	nodeID  string
	name    sql.NullString
	x, y, z float64
}

func (r *positionRow) scanArgs() []interface{} {
	return []interface{}{&r.nodeID, &r.name, &r.x, &r.y, &r.z}
}

func (r *positionRow) toDomain() domain.NodePosition {
	pos := domain.NewNodePosition(r.nodeID, r.x, r.y, r.z)
	pos.Name = nullToString(r.name)
	return *pos
}

// ============================================================================
// Insert Arguments
// ============================================================================

func snapshotInsertArgs(snap *domain.LayoutSnapshot) []interface{} {
	return []interface{}{
		snap.ID,
		stringToNull(snap.Source),
		snap.Dimensions,
		snap.Ticks,
		snap.Alpha,
		len(snap.Nodes),
		snap.LinkCount,
		snap.CreatedAt.UTC(),
	}
}

func positionInsertArgs(snapshotID string, seq int, pos domain.NodePosition) []interface{} {
	return []interface{}{
		snapshotID,
		seq,
		pos.NodeID,
		stringToNull(pos.Name),
		pos.X,
		pos.Y,
		pos.Z,
	}
}

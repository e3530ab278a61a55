package domain

import (
	"time"

	"github.com/google/uuid"
)

// NodePosition is the position of a node in a layout.
type NodePosition struct {
	NodeID string  `json:"node_id" yaml:"node_id"`
	Name   string  `json:"name,omitempty" yaml:"name,omitempty"`
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Z      float64 `json:"z" yaml:"z"`
}

// NewNodePosition creates a new node position
func NewNodePosition(nodeID string, x, y, z float64) *NodePosition {
	return &NodePosition{
		NodeID: nodeID,
		X:      x,
		Y:      y,
		Z:      z,
	}
}

// LayoutSnapshot is the state of a layout at a point in time.
type LayoutSnapshot struct {
	ID         string         `json:"id" yaml:"id"`
	Source     string         `json:"source,omitempty" yaml:"source,omitempty"`
	CreatedAt  time.Time      `json:"created_at" yaml:"created_at"`
	Dimensions int            `json:"dimensions" yaml:"dimensions"`
	Ticks      int            `json:"ticks" yaml:"ticks"`
	Alpha      float64        `json:"alpha" yaml:"alpha"`
	LinkCount  int            `json:"link_count" yaml:"link_count"`
	Nodes      []NodePosition `json:"nodes" yaml:"nodes"`
}

// SnapshotSummary describes a stored snapshot without its positions.
type SnapshotSummary struct {
	ID         string    `json:"id"`
	Source     string    `json:"source,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Dimensions int       `json:"dimensions"`
	Ticks      int       `json:"ticks"`
	NodeCount  int       `json:"node_count"`
	LinkCount  int       `json:"link_count"`
}

// NewLayoutSnapshot captures the current positions of nodes.
func NewLayoutSnapshot(nodes []*Node, linkCount, dims int) *LayoutSnapshot {
	snap := &LayoutSnapshot{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Dimensions: dims,
		LinkCount:  linkCount,
		Nodes:      make([]NodePosition, 0, len(nodes)),
	}
	for _, n := range nodes {
		pos := NewNodePosition(n.ID, n.X, n.Y, n.Z)
		pos.Name = n.Name
		snap.Nodes = append(snap.Nodes, *pos)
	}
	return snap
}

// Summary returns the snapshot's summary.
func (s *LayoutSnapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		ID:         s.ID,
		Source:     s.Source,
		CreatedAt:  s.CreatedAt,
		Dimensions: s.Dimensions,
		Ticks:      s.Ticks,
		NodeCount:  len(s.Nodes),
		LinkCount:  s.LinkCount,
	}
}

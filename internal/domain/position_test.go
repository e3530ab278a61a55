package domain

import (
	"testing"
)

func TestNewNodePosition(t *testing.T) {
	t.Run("creates position", func(t *testing.T) {
		pos := NewNodePosition("node1", 100.5, 200.5, -3)

		if pos.NodeID != "node1" {
			t.Errorf("expected NodeID 'node1', got %s", pos.NodeID)
		}
		if pos.X != 100.5 {
			t.Errorf("expected X=100.5, got %f", pos.X)
		}
		if pos.Y != 200.5 {
			t.Errorf("expected Y=200.5, got %f", pos.Y)
		}
		if pos.Z != -3 {
			t.Errorf("expected Z=-3, got %f", pos.Z)
		}
	})
}

func TestNewLayoutSnapshot(t *testing.T) {
	nodes := NewNodes([]Record{{"id": "a", "name": "A"}, {"id": "b"}}, DefaultFieldMapping())
	nodes[0].X, nodes[0].Y, nodes[0].Z = 1, 2, 3

	snap := NewLayoutSnapshot(nodes, 4, 3)

	if snap.ID == "" {
		t.Error("expected snapshot ID to be generated")
	}
	if snap.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if len(snap.Nodes) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(snap.Nodes))
	}
	if snap.Nodes[0] != (NodePosition{NodeID: "a", Name: "A", X: 1, Y: 2, Z: 3}) {
		t.Errorf("unexpected position %+v", snap.Nodes[0])
	}

	summary := snap.Summary()
	if summary.NodeCount != 2 || summary.LinkCount != 4 || summary.Dimensions != 3 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

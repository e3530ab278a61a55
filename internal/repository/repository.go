package repository

import (
	"context"
	"errors"

	"forcegraph/internal/domain"
)

// ErrNotFound is returned by write operations that target a missing record
var ErrNotFound = errors.New("not found")

// Repository defines the interface for layout data access
type Repository interface {
	// Snapshots
	SaveSnapshot(ctx context.Context, snap *domain.LayoutSnapshot) error
	GetSnapshot(ctx context.Context, id string) (*domain.LayoutSnapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]domain.SnapshotSummary, error)
	DeleteSnapshot(ctx context.Context, id string) error
	PruneSnapshots(ctx context.Context, keep int) (int, error)

	// Current payload, restored on startup
	SaveGraph(ctx context.Context, source string, data *domain.GraphData) error
	GetGraph(ctx context.Context) (*domain.GraphData, string, error)

	// Close releases resources
	Close() error
}

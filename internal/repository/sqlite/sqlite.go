package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"forcegraph/internal/domain"
	"forcegraph/internal/repository"

	_ "modernc.org/sqlite"
)

const graphKey = "graph"

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

var _ repository.Repository = (*Repository)(nil)

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if strings.HasPrefix(dbPath, ":memory:") {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		source TEXT,
		dimensions INTEGER NOT NULL,
		ticks INTEGER NOT NULL DEFAULT 0,
		alpha REAL NOT NULL DEFAULT 0,
		node_count INTEGER NOT NULL DEFAULT 0,
		link_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshot_positions (
		snapshot_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		node_id TEXT NOT NULL,
		name TEXT,
		x REAL NOT NULL,
		y REAL NOT NULL,
		z REAL NOT NULL,
		PRIMARY KEY (snapshot_id, seq),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value JSON NOT NULL,
		source TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);
	CREATE INDEX IF NOT EXISTS idx_snapshot_positions_node ON snapshot_positions(node_id);
	`

	_, err := r.db.Exec(schema)
	return err
}

// SaveSnapshot stores a snapshot and its positions in one transaction,
// replacing any snapshot with the same ID
func (r *Repository) SaveSnapshot(ctx context.Context, snap *domain.LayoutSnapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteSnapshotTx(ctx, tx, snap.ID); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, source, dimensions, ticks, alpha, node_count, link_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, snapshotInsertArgs(snap)...)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_positions (snapshot_id, seq, node_id, name, x, y, z)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare position insert: %w", err)
	}
	defer stmt.Close()

	for i, pos := range snap.Nodes {
		if _, err := stmt.ExecContext(ctx, positionInsertArgs(snap.ID, i, pos)...); err != nil {
			return fmt.Errorf("failed to insert position %s: %w", pos.NodeID, err)
		}
	}

	return tx.Commit()
}

// GetSnapshot loads a snapshot with its positions
func (r *Repository) GetSnapshot(ctx context.Context, id string) (*domain.LayoutSnapshot, error) {
	var row snapshotRow
	err := r.db.QueryRowContext(ctx, `
		SELECT id, source, dimensions, ticks, alpha, node_count, link_count, created_at
		FROM snapshots WHERE id = ?
	`, id).Scan(row.scanArgs()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	snap := row.toDomain()

	rows, err := r.db.QueryContext(ctx, `
		SELECT node_id, name, x, y, z
		FROM snapshot_positions WHERE snapshot_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	snap.Nodes = make([]domain.NodePosition, 0, row.nodeCount)
	for rows.Next() {
		var pos positionRow
		if err := rows.Scan(pos.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		snap.Nodes = append(snap.Nodes, pos.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	return snap, nil
}

// ListSnapshots returns snapshot summaries, newest first. A non-positive
// limit returns all of them.
func (r *Repository) ListSnapshots(ctx context.Context, limit int) ([]domain.SnapshotSummary, error) {
	query := `
		SELECT id, source, dimensions, ticks, alpha, node_count, link_count, created_at
		FROM snapshots ORDER BY created_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.SnapshotSummary, 0)
	for rows.Next() {
		var row snapshotRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		summaries = append(summaries, row.toSummary())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return summaries, nil
}

// DeleteSnapshot removes a snapshot and its positions
func (r *Repository) DeleteSnapshot(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("snapshot %s: %w", id, repository.ErrNotFound)
	}
	if err := deleteSnapshotTx(ctx, tx, id); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	return tx.Commit()
}

// deleteSnapshotTx removes a snapshot's positions and row. Positions are
// deleted explicitly so the result does not depend on foreign key
// enforcement.
func deleteSnapshotTx(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_positions WHERE snapshot_id = ?`, id); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	return err
}

// PruneSnapshots deletes all but the newest keep snapshots and returns how
// many were removed
func (r *Repository) PruneSnapshots(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM snapshots WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY created_at DESC, id LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM snapshot_positions WHERE snapshot_id NOT IN (SELECT id FROM snapshots)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prune positions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return int(n), nil
}

// SaveGraph stores the current payload and where it came from
func (r *Repository) SaveGraph(ctx context.Context, source string, data *domain.GraphData) error {
	value, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value, source, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			source = excluded.source,
			updated_at = excluded.updated_at
	`, graphKey, string(value), stringToNull(source), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}
	return nil
}

// GetGraph loads the stored payload and its source. It returns nil when no
// payload has been stored.
func (r *Repository) GetGraph(ctx context.Context) (*domain.GraphData, string, error) {
	var (
		value  sql.NullString
		source sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT value, source FROM metadata WHERE key = ?
	`, graphKey).Scan(&value, &source)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get graph: %w", err)
	}

	data := domain.NewGraphData()
	if err := unmarshalJSONField(value, data); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	data.Sanitize()

	return data, nullToString(source), nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

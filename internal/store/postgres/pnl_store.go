package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// PnLStore implements domain.PnLStore using PostgreSQL.
type PnLStore struct {
	pool *pgxpool.Pool
}

// NewPnLStore creates a PnLStore backed by the given connection pool.
func NewPnLStore(pool *pgxpool.Pool) *PnLStore {
	return &PnLStore{pool: pool}
}

// Insert appends one equity snapshot.
func (s *PnLStore) Insert(ctx context.Context, snap domain.PnLSnapshot) error {
	const query = `
		INSERT INTO pnl_snapshots (agent_id, capital_units, holdings_units,
			realized_pnl_units, open_positions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query,
		snap.AgentID, snap.CapitalUnits, snap.HoldingsUnits,
		snap.RealizedPnLUnits, snap.OpenPositions, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert pnl snapshot: %w", err)
	}
	return nil
}

// ListRange returns snapshots for the agent with pagination and optional time
// filtering, newest first.
func (s *PnLStore) ListRange(ctx context.Context, agentID string, opts domain.ListOpts) ([]domain.PnLSnapshot, error) {
	query := `SELECT id, agent_id, capital_units, holdings_units, realized_pnl_units,
		open_positions, created_at FROM pnl_snapshots WHERE agent_id = $1`
	args := []any{agentID}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pnl snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []domain.PnLSnapshot
	for rows.Next() {
		var p domain.PnLSnapshot
		if err := rows.Scan(&p.ID, &p.AgentID, &p.CapitalUnits, &p.HoldingsUnits,
			&p.RealizedPnLUnits, &p.OpenPositions, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan pnl snapshot: %w", err)
		}
		snaps = append(snaps, p)
	}
	return snaps, rows.Err()
}

var _ domain.PnLStore = (*PnLStore)(nil)

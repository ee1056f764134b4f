package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// HoldingStore implements domain.HoldingStore using PostgreSQL.
type HoldingStore struct {
	pool *pgxpool.Pool
}

// NewHoldingStore creates a HoldingStore backed by the given connection pool.
func NewHoldingStore(pool *pgxpool.Pool) *HoldingStore {
	return &HoldingStore{pool: pool}
}

const holdingSelectCols = `agent_id, token, symbol, amount_units, cost_units,
	entry_price, current_price, opened_at, updated_at`

func scanHolding(row pgx.Row) (domain.Holding, error) {
	var h domain.Holding
	err := row.Scan(&h.AgentID, &h.Token, &h.Symbol, &h.AmountUnits, &h.CostUnits,
		&h.EntryPrice, &h.CurrentPrice, &h.OpenedAt, &h.UpdatedAt)
	return h, err
}

// Upsert writes the holding keyed by (agent, token).
func (s *HoldingStore) Upsert(ctx context.Context, h domain.Holding) error {
	const query = `
		INSERT INTO holdings (agent_id, token, symbol, amount_units, cost_units, entry_price, current_price, opened_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (agent_id, token) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			amount_units = EXCLUDED.amount_units,
			cost_units = EXCLUDED.cost_units,
			current_price = EXCLUDED.current_price,
			updated_at = EXCLUDED.updated_at`
	_, err := s.pool.Exec(ctx, query,
		h.AgentID, domain.NormalizeToken(h.Token), h.Symbol, h.AmountUnits, h.CostUnits,
		h.EntryPrice, h.CurrentPrice, h.OpenedAt, h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert holding: %w", err)
	}
	return nil
}

// Get returns the holding or domain.ErrNotFound.
func (s *HoldingStore) Get(ctx context.Context, agentID, token string) (domain.Holding, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+holdingSelectCols+` FROM holdings WHERE agent_id = $1 AND token = $2`,
		agentID, domain.NormalizeToken(token))
	h, err := scanHolding(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Holding{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Holding{}, fmt.Errorf("postgres: get holding: %w", err)
	}
	return h, nil
}

// ListOpen returns the agent's open positions, oldest first.
func (s *HoldingStore) ListOpen(ctx context.Context, agentID string) ([]domain.Holding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+holdingSelectCols+` FROM holdings WHERE agent_id = $1 AND amount_units > 0 ORDER BY opened_at`,
		agentID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// Delete removes the holding. Deleting an absent row is not an error.
func (s *HoldingStore) Delete(ctx context.Context, agentID, token string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM holdings WHERE agent_id = $1 AND token = $2`,
		agentID, domain.NormalizeToken(token))
	if err != nil {
		return fmt.Errorf("postgres: delete holding: %w", err)
	}
	return nil
}

var _ domain.HoldingStore = (*HoldingStore)(nil)

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL. Trades are
// append-only; there is no update path.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, agent_id, token, symbol, type, amount_in_units,
	amount_out_units, realized_pnl_units, reason, COALESCE(signal::text, ''), tx_ref, created_at`

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var tradeType string
		if err := rows.Scan(
			&t.ID, &t.AgentID, &t.Token, &t.Symbol, &tradeType,
			&t.AmountInUnits, &t.AmountOutUnits, &t.RealizedPnLUnits,
			&t.Reason, &t.SignalJSON, &t.TxRef, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		t.Type = domain.TradeType(tradeType)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Insert appends one trade and returns its generated id.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) (int64, error) {
	const query = `
		INSERT INTO trades (agent_id, token, symbol, type, amount_in_units,
			amount_out_units, realized_pnl_units, reason, signal, tx_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	var signalJSON any
	if t.SignalJSON != "" {
		signalJSON = t.SignalJSON
	}

	var id int64
	err := s.pool.QueryRow(ctx, query,
		t.AgentID, domain.NormalizeToken(t.Token), t.Symbol, string(t.Type),
		t.AmountInUnits, t.AmountOutUnits, t.RealizedPnLUnits,
		t.Reason, signalJSON, t.TxRef, t.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: insert trade: %w", err)
	}
	return id, nil
}

// ListRecent returns the agent's most recent trades, newest first.
func (s *TradeStore) ListRecent(ctx context.Context, agentID string, limit int) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE agent_id = $1 ORDER BY created_at DESC LIMIT $2`,
		agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent trades: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// CountBuys returns how many buy trades exist for the token since the given
// time.
func (s *TradeStore) CountBuys(ctx context.Context, token string, since time.Time) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM trades WHERE token = $1 AND type = 'buy' AND created_at >= $2`,
		domain.NormalizeToken(token), since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count buys: %w", err)
	}
	return n, nil
}

// ListBefore returns all trades created strictly before the given time, for
// archiving, oldest first.
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE created_at < $1 ORDER BY created_at ASC`,
		before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// DeleteBefore deletes all trades created before the given time and returns
// the number deleted.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ domain.TradeStore = (*TradeStore)(nil)

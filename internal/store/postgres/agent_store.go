package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/curvefleet/internal/domain"
)

// AgentStore implements domain.AgentStore using PostgreSQL.
type AgentStore struct {
	pool *pgxpool.Pool
}

// NewAgentStore creates an AgentStore backed by the given connection pool.
func NewAgentStore(pool *pgxpool.Pool) *AgentStore {
	return &AgentStore{pool: pool}
}

const agentSelectCols = `id, strategy, display_name, vault_index, risk_profile,
	max_positions, personality, created_at`

func scanAgent(row pgx.Row) (domain.Agent, error) {
	var a domain.Agent
	var strategy string
	err := row.Scan(&a.ID, &strategy, &a.DisplayName, &a.VaultIndex,
		&a.RiskProfile, &a.MaxPositions, &a.Personality, &a.CreatedAt)
	if err != nil {
		return domain.Agent{}, err
	}
	a.Kind, err = domain.ParseStrategyKind(strategy)
	if err != nil {
		return domain.Agent{}, fmt.Errorf("postgres: agent %s: %w", a.ID, err)
	}
	return a, nil
}

// Upsert inserts the agent or updates its mutable fields on conflict.
func (s *AgentStore) Upsert(ctx context.Context, a domain.Agent) error {
	const query = `
		INSERT INTO agents (id, strategy, display_name, vault_index, risk_profile, max_positions, personality, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			strategy = EXCLUDED.strategy,
			display_name = EXCLUDED.display_name,
			vault_index = EXCLUDED.vault_index,
			risk_profile = EXCLUDED.risk_profile,
			max_positions = EXCLUDED.max_positions,
			personality = EXCLUDED.personality`
	_, err := s.pool.Exec(ctx, query,
		a.ID, a.Kind.String(), a.DisplayName, a.VaultIndex,
		a.RiskProfile, a.MaxPositions, a.Personality, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert agent: %w", err)
	}
	return nil
}

// GetByID returns the agent or domain.ErrNotFound.
func (s *AgentStore) GetByID(ctx context.Context, id string) (domain.Agent, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+agentSelectCols+` FROM agents WHERE id = $1`, id)
	a, err := scanAgent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Agent{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Agent{}, fmt.Errorf("postgres: get agent: %w", err)
	}
	return a, nil
}

// List returns all agents ordered by vault index.
func (s *AgentStore) List(ctx context.Context) ([]domain.Agent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+agentSelectCols+` FROM agents ORDER BY vault_index`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list agents: %w", err)
	}
	defer rows.Close()

	var agents []domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

var _ domain.AgentStore = (*AgentStore)(nil)

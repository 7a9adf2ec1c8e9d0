package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"metrovoice/pkg/plan"
)

// Schema is the SQL DDL for the route_plans table. Execute it via
// [PostgresSource.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS route_plans (
    route_key   TEXT PRIMARY KEY,
    plan        JSONB NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [PostgresSource]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSource is a RouteSource backed by a PostgreSQL table. The full plan
// is stored as a JSONB document keyed by its normalized route key, so a
// deployment can curate a larger catalog than the shipped demo routes without
// a schema change per field.
type PostgresSource struct {
	db DB
}

// Compile-time interface check.
var _ RouteSource = (*PostgresSource)(nil)

// NewPostgresSource creates a PostgresSource over the given connection or
// pool. The caller is responsible for calling [PostgresSource.Migrate] to
// ensure the schema exists before issuing lookups.
func NewPostgresSource(db DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Migrate executes the [Schema] DDL, creating the route_plans table if it
// does not already exist.
func (s *PostgresSource) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("catalog: migrate: %w", err)
	}
	return nil
}

// Lookup returns the plan stored under key, or (nil, nil) when absent.
func (s *PostgresSource) Lookup(ctx context.Context, key string) (*plan.NavigationPlan, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT plan FROM route_plans WHERE route_key = $1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: lookup %q: %w", key, err)
	}

	var p plan.NavigationPlan
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("catalog: decode plan for %q: %w", key, err)
	}
	return &p, nil
}

// Upsert stores p under its own route key, replacing any existing entry.
// The plan is validated before persistence.
func (s *PostgresSource) Upsert(ctx context.Context, p *plan.NavigationPlan) error {
	if err := p.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("catalog: marshal plan: %w", err)
	}
	key := plan.RouteKey(p.StartStation, p.DestinationStation)
	_, err = s.db.Exec(ctx, `
		INSERT INTO route_plans (route_key, plan, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (route_key) DO UPDATE SET plan = EXCLUDED.plan, updated_at = now()`,
		key, raw)
	if err != nil {
		return fmt.Errorf("catalog: upsert %q: %w", key, err)
	}
	return nil
}

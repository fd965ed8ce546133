package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool parses dsn and opens a pool whose connections report
// applicationName to the server (visible in pg_stat_activity).
// Connections are opened lazily; callers should Ping before serving traffic.
func NewPool(ctx context.Context, dsn, applicationName string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("repo.NewPool: parse: %w", err)
	}
	if applicationName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("repo.NewPool: %w", err)
	}
	return pool, nil
}

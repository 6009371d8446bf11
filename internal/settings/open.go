package settings

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mch-billing/terminal/internal/enum"
)

// Open returns the store for backend along with a func that releases it.
// The Postgres backend creates its table on open.
func Open(ctx context.Context, backend, path, databaseURL string) (Store, func(), error) {
	switch backend {
	case enum.SettingsBackendBolt:
		s, err := OpenBoltStore(path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	case enum.SettingsBackendPostgres:
		pool, err := pgxpool.New(ctx, databaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect settings db: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping settings db: %w", err)
		}
		s := NewPgStore(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown settings backend %q", backend)
	}
}

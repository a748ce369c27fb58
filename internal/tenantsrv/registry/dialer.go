package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/stdlib"
)

// PostgresDialerConfig configures the default dialer.
type PostgresDialerConfig struct {
	DSN          string // control-plane DSN; the schema is pinned per connection
	MaxConns     int
	MaxIdleConns int
}

// NewPostgresDialer returns a Dialer that opens a per-schema *sql.DB through
// the pgx stdlib driver. Every session in the pool pins search_path to the
// tenant schema via a runtime parameter, so the handle only ever sees that
// tenant's namespace.
func NewPostgresDialer(cfg PostgresDialerConfig) Dialer {
	return func(ctx context.Context, schemaName string) (*Handle, error) {
		connCfg, err := pgx.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to parse dsn: %w", err)
		}
		connCfg.RuntimeParams["search_path"] = schemaName

		db, err := sql.Open("pgx", stdlib.RegisterConnConfig(connCfg))
		if err != nil {
			return nil, fmt.Errorf("failed to open schema connection: %w", err)
		}

		db.SetMaxOpenConns(cfg.MaxConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)

		// transient network errors during establishment are worth a few
		// retries; the registry's dial timeout still bounds the whole attempt
		err = retry.Do(
			func() error { return db.PingContext(ctx) },
			retry.Context(ctx),
			retry.Attempts(3),
			retry.Delay(200*time.Millisecond),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping schema %q: %w", schemaName, err)
		}

		return NewHandle(schemaName, db), nil
	}
}

// Package dbmanager manages the PostgreSQL connection pool for the
// control-plane database.
package dbmanager

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/lib/pq"

	"github.com/rs/zerolog/log"
)

// postgresConn represents a connection to the PostgreSQL database.
type postgresConn struct {
	conn   *sql.Conn
	cancel context.CancelFunc
	pool   *postgresPool
}

// postgresPool represents a pool of PostgreSQL database connections.
type postgresPool struct {
	connRequests uint64
	connReturns  uint64
	db           *sql.DB
}

// NewPostgresqlDb creates a new PostgreSQL connection pool for the given DSN.
func NewPostgresqlDb(dsn string) (ControlDb, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Error().Err(err).Msg("failed to open db")
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool settings
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	err = sqlDB.Ping()
	if err != nil {
		log.Error().Err(err).Msg("failed to ping db")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &postgresPool{
		db: sqlDB,
	}, nil
}

// Conn returns a new connection to the PostgreSQL database from the pool.
// Statement and lock timeouts are set so a misbehaving query cannot hold a
// control-plane connection indefinitely.
func (p *postgresPool) Conn(ctx context.Context) (ControlConn, error) {
	ctx, cancel := context.WithCancel(ctx)

	conn, err := p.db.Conn(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to obtain connection")
		cancel()
		return nil, fmt.Errorf("failed to obtain database connection: %w", err)
	}

	sessionParams := map[string]string{
		"lock_timeout":                        "5s",
		"statement_timeout":                   "5s",
		"idle_in_transaction_session_timeout": "5s",
	}

	for param, value := range sessionParams {
		query := fmt.Sprintf("SET %s = %s", pq.QuoteIdentifier(param), pq.QuoteLiteral(value))
		_, err = conn.ExecContext(ctx, query)
		if err != nil {
			cancel()
			conn.Close()
			return nil, fmt.Errorf("failed to set %s: %w", param, err)
		}
	}

	atomic.AddUint64(&p.connRequests, 1)
	return &postgresConn{
		conn:   conn,
		cancel: cancel,
		pool:   p,
	}, nil
}

// Stats returns the number of connection requests and returns made against
// the pool.
func (p *postgresPool) Stats() (requests, returns uint64) {
	return atomic.LoadUint64(&p.connRequests), atomic.LoadUint64(&p.connReturns)
}

// OpenConns returns the number of open connections in the pool.
func (p *postgresPool) OpenConns() int {
	return p.db.Stats().OpenConnections
}

// Close closes the pool.
func (p *postgresPool) Close() error {
	return p.db.Close()
}

// Conn returns the underlying connection.
func (h *postgresConn) Conn() *sql.Conn {
	return h.conn
}

// Close returns the connection back to the pool.
func (h *postgresConn) Close(ctx context.Context) {
	if h.conn == nil {
		return
	}

	h.conn.Close()
	if h.cancel != nil {
		h.cancel()
	}

	atomic.AddUint64(&h.pool.connReturns, 1)
}

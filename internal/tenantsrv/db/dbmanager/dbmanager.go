package dbmanager

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"
)

// ControlDb is the connection pool for the control-plane database holding
// tenant records.
type ControlDb interface {
	// Conn returns a new connection to the database.
	Conn(ctx context.Context) (ControlConn, error)
	// Stats returns the number of connection requests and returns.
	Stats() (requests, returns uint64)
	// Close closes the pool. Outstanding connections are closed on return.
	Close() error
}

// ControlConn is a single connection checked out of the pool. It is not
// concurrency safe; the service uses one connection per request and does not
// share it across goroutines.
type ControlConn interface {
	// Conn returns the underlying *sql.Conn. Do not close this directly;
	// use ControlConn.Close(ctx) so the pool accounting stays correct.
	Conn() *sql.Conn
	// Close returns the connection back to the pool.
	Close(ctx context.Context)
}

// NewControlDb returns a pool for the given database type. Only
// "postgresql" is supported.
func NewControlDb(ctx context.Context, dbtype string, dsn string) ControlDb {
	switch dbtype {
	case "postgresql":
		db, err := NewPostgresqlDb(dsn)
		if err != nil || db == nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to create PostgreSQL control db")
			return nil
		}
		return db
	}
	return nil
}

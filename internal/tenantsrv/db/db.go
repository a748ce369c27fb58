// Package db provides database interfaces and implementations for the tenant
// service's control plane. It defines three interfaces:
//   - TenantDirectory: the authoritative store of tenant records
//   - SchemaManager: physical schema DDL for tenant provisioning
//   - ConnectionManager: lifecycle of the per-request connection
package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/taskhive/taskhive/internal/common/apperrors"
	"github.com/taskhive/taskhive/internal/common/uuid"
	"github.com/taskhive/taskhive/internal/tenantsrv/config"
	"github.com/taskhive/taskhive/internal/tenantsrv/db/dbmanager"
	"github.com/taskhive/taskhive/internal/tenantsrv/db/models"
	"github.com/taskhive/taskhive/internal/tenantsrv/db/postgresql"
)

// TenantDirectory is the authoritative store of tenant records. All
// operations require a valid context and may return apperrors.Error.
type TenantDirectory interface {
	CreateTenant(ctx context.Context, t *models.Tenant) apperrors.Error
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, apperrors.Error)
	GetTenantBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, apperrors.Error)
	GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, apperrors.Error)
	UpdateTenantStatus(ctx context.Context, tenantID uuid.UUID, status models.TenantStatus, isActive bool) apperrors.Error
	SoftDeleteTenant(ctx context.Context, tenantID uuid.UUID) apperrors.Error
	DeleteTenant(ctx context.Context, tenantID uuid.UUID) apperrors.Error
	ListTenants(ctx context.Context) ([]*models.Tenant, apperrors.Error)
}

// SchemaManager performs the physical schema operations backing tenant
// isolation. Both operations are idempotent.
type SchemaManager interface {
	CreateSchema(ctx context.Context, schemaName string) apperrors.Error
	DropSchema(ctx context.Context, schemaName string) apperrors.Error
}

// ConnectionManager handles the per-request control-plane connection.
type ConnectionManager interface {
	// Close returns the connection to the pool.
	Close(ctx context.Context)
}

// Database combines the three managers into a single interface for a unified
// access layer with separated concerns.
type Database interface {
	TenantDirectory
	SchemaManager
	ConnectionManager
}

var pool dbmanager.ControlDb

// Init initializes the control-plane connection pool from the loaded
// configuration.
func Init() error {
	ctx := log.Logger.WithContext(context.Background())
	pg := dbmanager.NewControlDb(ctx, "postgresql", config.Config().DSN())
	if pg == nil {
		return fmt.Errorf("unable to create control-plane db pool")
	}
	pool = pg
	return nil
}

// Shutdown closes the control-plane pool. Called during process shutdown.
func Shutdown() {
	if pool != nil {
		pool.Close()
		pool = nil
	}
}

// Conn returns a new database connection from the pool.
func Conn(ctx context.Context) (dbmanager.ControlConn, error) {
	if pool != nil {
		conn, err := pool.Conn(ctx)
		if err == nil {
			return conn, nil
		}
		log.Ctx(ctx).Error().Err(err).Msg("unable to get db connection")
		return nil, err
	}
	return nil, fmt.Errorf("database pool not initialized")
}

type ctxDbKeyType string

const ctxDbKey ctxDbKeyType = "TaskhiveTenantDb"

// ConnCtx adds a database connection to the context.
// Returns an error if the connection cannot be established.
func ConnCtx(ctx context.Context) (context.Context, error) {
	conn, err := Conn(ctx)
	if err != nil {
		return nil, err
	}
	return context.WithValue(ctx, ctxDbKey, conn), nil
}

type tenantDirectoryDb struct {
	TenantDirectory
	SchemaManager
	ConnectionManager
}

// DB returns a database instance bound to the connection in the context.
// Returns nil if no connection is found.
func DB(ctx context.Context) Database {
	if conn, ok := ctx.Value(ctxDbKey).(dbmanager.ControlConn); ok {
		dm, sm, cm := postgresql.NewTenantDirectoryDb(conn)
		return &tenantDirectoryDb{
			TenantDirectory:   dm,
			SchemaManager:     sm,
			ConnectionManager: cm,
		}
	}
	log.Ctx(ctx).Error().Msg("unable to get db connection from context")
	return nil
}

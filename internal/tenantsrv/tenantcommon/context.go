// Package tenantcommon provides context management utilities for the tenant
// service. The resolved tenant record is carried on the request context so
// downstream handlers can read it without another directory lookup.
package tenantcommon

import (
	"context"

	"github.com/taskhive/taskhive/internal/tenantsrv/db/models"
)

// ctxKeyType represents the type for all context keys.
type ctxKeyType string

const ctxTenantKey ctxKeyType = "TaskhiveTenant"

// WithTenant attaches the resolved tenant record to the context.
func WithTenant(ctx context.Context, tenant *models.Tenant) context.Context {
	return context.WithValue(ctx, ctxTenantKey, tenant)
}

// GetTenant retrieves the resolved tenant record from the context.
// Returns nil when the request did not pass through the resolver.
func GetTenant(ctx context.Context) *models.Tenant {
	if tenant, ok := ctx.Value(ctxTenantKey).(*models.Tenant); ok {
		return tenant
	}
	return nil
}

// GetSchemaName returns the schema name of the resolved tenant, or an empty
// string when no tenant is attached.
func GetSchemaName(ctx context.Context) string {
	if tenant := GetTenant(ctx); tenant != nil {
		return tenant.SchemaName
	}
	return ""
}

// Package resolver maps incoming requests to tenants. A request identifies
// its tenant either explicitly through the tenant ID header or implicitly
// through the host it was addressed to; the resolver loads the record,
// verifies the tenant is usable, and attaches it to the request context for
// downstream handlers.
package resolver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/taskhive/taskhive/internal/common/apperrors"
	"github.com/taskhive/taskhive/internal/common/httpx"
	"github.com/taskhive/taskhive/internal/common/uuid"
	"github.com/taskhive/taskhive/internal/tenantsrv/db/dberror"
	"github.com/taskhive/taskhive/internal/tenantsrv/db/models"
	"github.com/taskhive/taskhive/internal/tenantsrv/tenantcommon"
)

// TenantIDHeader carries an explicit tenant identifier. When present it
// takes precedence over host-based resolution.
const TenantIDHeader = "X-Tenant-ID"

// TenantLookup is the slice of the tenant directory the resolver reads.
type TenantLookup interface {
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, apperrors.Error)
	GetTenantBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, apperrors.Error)
	GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, apperrors.Error)
}

// Middleware resolves the tenant for every request passing through it. The
// lookup is obtained per request so it can ride the request-scoped database
// connection. Requests that cannot be mapped to a usable tenant are rejected
// before reaching the handler; the rejection does not reveal whether the
// tenant exists.
func Middleware(lookup func(ctx context.Context) TenantLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tenant, httpErr := resolve(ctx, lookup(ctx), r)
			if httpErr != nil {
				httpErr.Send(w)
				return
			}

			logger := log.Ctx(ctx).With().
				Str("tenant_id", tenant.TenantID.String()).
				Str("schema", tenant.SchemaName).
				Logger()
			ctx = logger.WithContext(ctx)
			ctx = tenantcommon.WithTenant(ctx, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolve(ctx context.Context, dir TenantLookup, r *http.Request) (*models.Tenant, *httpx.Error) {
	if id := r.Header.Get(TenantIDHeader); id != "" {
		tenantID, err := uuid.Parse(id)
		if err != nil {
			return nil, httpx.ErrInvalidTenantId()
		}
		return check(dir.GetTenant(ctx, tenantID))
	}

	host := hostOnly(r.Host)
	if host == "" {
		return nil, httpx.ErrMissingTenantIdentifier()
	}

	tenant, err := dir.GetTenantByDomain(ctx, host)
	if err != nil && errors.Is(err, dberror.ErrNotFound) {
		// fall back to the first DNS label as the subdomain
		if label, _, found := strings.Cut(host, "."); found {
			tenant, err = dir.GetTenantBySubdomain(ctx, label)
		}
	}
	return check(tenant, err)
}

// check folds a directory lookup result into the resolver's error surface:
// not-found and not-usable collapse into the same rejection.
func check(tenant *models.Tenant, err apperrors.Error) (*models.Tenant, *httpx.Error) {
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return nil, httpx.ErrTenantNotAuthorized()
		}
		return nil, &httpx.Error{
			Description: "unable to resolve tenant",
			StatusCode:  http.StatusInternalServerError,
		}
	}
	if tenant == nil || !tenant.Usable() {
		return nil, httpx.ErrTenantNotAuthorized()
	}
	return tenant, nil
}

// hostOnly strips any port from a request host, lowercased.
func hostOnly(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

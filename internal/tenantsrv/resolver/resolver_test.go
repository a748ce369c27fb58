package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhive/taskhive/internal/common/apperrors"
	"github.com/taskhive/taskhive/internal/common/uuid"
	"github.com/taskhive/taskhive/internal/tenantsrv/db/dberror"
	"github.com/taskhive/taskhive/internal/tenantsrv/db/models"
	"github.com/taskhive/taskhive/internal/tenantsrv/tenantcommon"
)

type fakeLookup struct {
	tenants []*models.Tenant
	failAll bool
}

func (f *fakeLookup) GetTenant(_ context.Context, tenantID uuid.UUID) (*models.Tenant, apperrors.Error) {
	if f.failAll {
		return nil, dberror.ErrDatabase
	}
	for _, t := range f.tenants {
		if t.TenantID == tenantID {
			return t, nil
		}
	}
	return nil, dberror.ErrNotFound.Msg("tenant")
}

func (f *fakeLookup) GetTenantBySubdomain(_ context.Context, subdomain string) (*models.Tenant, apperrors.Error) {
	if f.failAll {
		return nil, dberror.ErrDatabase
	}
	for _, t := range f.tenants {
		if t.Subdomain == subdomain {
			return t, nil
		}
	}
	return nil, dberror.ErrNotFound.Msg("tenant")
}

func (f *fakeLookup) GetTenantByDomain(_ context.Context, domain string) (*models.Tenant, apperrors.Error) {
	if f.failAll {
		return nil, dberror.ErrDatabase
	}
	for _, t := range f.tenants {
		if t.Domain != "" && t.Domain == domain {
			return t, nil
		}
	}
	return nil, dberror.ErrNotFound.Msg("tenant")
}

func activeTenant(subdomain, domain string) *models.Tenant {
	return &models.Tenant{
		TenantID:   uuid.New(),
		Name:       subdomain,
		Subdomain:  subdomain,
		Domain:     domain,
		SchemaName: "tenant_" + subdomain,
		Status:     models.TenantStatusActive,
		IsActive:   true,
	}
}

// serve runs one request through the resolver and reports the response code
// and the tenant the handler observed.
func serve(t *testing.T, lookup *fakeLookup, mutate func(r *http.Request)) (int, *models.Tenant) {
	t.Helper()
	var seen *models.Tenant
	handler := Middleware(func(_ context.Context) TenantLookup { return lookup })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = tenantcommon.GetTenant(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

	r := httptest.NewRequest(http.MethodGet, "/workspace/ready", nil)
	if mutate != nil {
		mutate(r)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w.Code, seen
}

func TestResolveByHeader(t *testing.T) {
	acme := activeTenant("acme", "")
	lookup := &fakeLookup{tenants: []*models.Tenant{acme}}

	code, seen := serve(t, lookup, func(r *http.Request) {
		r.Header.Set(TenantIDHeader, acme.TenantID.String())
	})
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, seen)
	assert.Equal(t, acme.TenantID, seen.TenantID)
	assert.Equal(t, "tenant_acme", seen.SchemaName)
}

func TestResolveByHeaderMalformed(t *testing.T) {
	lookup := &fakeLookup{}
	code, seen := serve(t, lookup, func(r *http.Request) {
		r.Header.Set(TenantIDHeader, "not-a-uuid")
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Nil(t, seen)
}

func TestResolveByHeaderUnknown(t *testing.T) {
	lookup := &fakeLookup{}
	code, seen := serve(t, lookup, func(r *http.Request) {
		r.Header.Set(TenantIDHeader, uuid.New().String())
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Nil(t, seen)
}

func TestResolveSuspendedTenantRejected(t *testing.T) {
	acme := activeTenant("acme", "")
	acme.Status = models.TenantStatusSuspended
	acme.IsActive = false
	lookup := &fakeLookup{tenants: []*models.Tenant{acme}}

	code, seen := serve(t, lookup, func(r *http.Request) {
		r.Header.Set(TenantIDHeader, acme.TenantID.String())
	})
	// same rejection as an unknown tenant
	assert.Equal(t, http.StatusForbidden, code)
	assert.Nil(t, seen)
}

func TestResolveByCustomDomain(t *testing.T) {
	acme := activeTenant("acme", "app.acme.example.com")
	lookup := &fakeLookup{tenants: []*models.Tenant{acme}}

	code, seen := serve(t, lookup, func(r *http.Request) {
		r.Host = "app.acme.example.com"
	})
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, seen)
	assert.Equal(t, acme.TenantID, seen.TenantID)
}

func TestResolveByCustomDomainWithPort(t *testing.T) {
	acme := activeTenant("acme", "app.acme.example.com")
	lookup := &fakeLookup{tenants: []*models.Tenant{acme}}

	code, seen := serve(t, lookup, func(r *http.Request) {
		r.Host = "App.Acme.Example.Com:8678"
	})
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, seen)
	assert.Equal(t, acme.TenantID, seen.TenantID)
}

func TestResolveBySubdomainFallback(t *testing.T) {
	acme := activeTenant("acme", "")
	lookup := &fakeLookup{tenants: []*models.Tenant{acme}}

	code, seen := serve(t, lookup, func(r *http.Request) {
		r.Host = "acme.taskhive.example.com"
	})
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, seen)
	assert.Equal(t, acme.TenantID, seen.TenantID)
}

func TestResolveHeaderOverridesHost(t *testing.T) {
	acme := activeTenant("acme", "")
	globex := activeTenant("globex", "")
	lookup := &fakeLookup{tenants: []*models.Tenant{acme, globex}}

	code, seen := serve(t, lookup, func(r *http.Request) {
		r.Header.Set(TenantIDHeader, globex.TenantID.String())
		r.Host = "acme.taskhive.example.com"
	})
	assert.Equal(t, http.StatusOK, code)
	require.NotNil(t, seen)
	assert.Equal(t, globex.TenantID, seen.TenantID)
}

func TestResolveUnknownHost(t *testing.T) {
	lookup := &fakeLookup{tenants: []*models.Tenant{activeTenant("acme", "")}}

	code, seen := serve(t, lookup, func(r *http.Request) {
		r.Host = "nobody.taskhive.example.com"
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Nil(t, seen)
}

func TestResolveBareHostNoFallback(t *testing.T) {
	// a host without a dot carries no subdomain to fall back to
	lookup := &fakeLookup{tenants: []*models.Tenant{activeTenant("acme", "")}}

	code, seen := serve(t, lookup, func(r *http.Request) {
		r.Host = "localhost:8678"
	})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Nil(t, seen)
}

func TestResolveNoIdentifier(t *testing.T) {
	lookup := &fakeLookup{}
	code, seen := serve(t, lookup, func(r *http.Request) {
		r.Host = ""
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Nil(t, seen)
}

func TestResolveDirectoryFailure(t *testing.T) {
	acme := activeTenant("acme", "")
	lookup := &fakeLookup{tenants: []*models.Tenant{acme}, failAll: true}

	code, seen := serve(t, lookup, func(r *http.Request) {
		r.Header.Set(TenantIDHeader, acme.TenantID.String())
	})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Nil(t, seen)
}

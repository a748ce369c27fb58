package provisioner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskhive/taskhive/internal/common/apperrors"
	"github.com/taskhive/taskhive/internal/common/uuid"
	"github.com/taskhive/taskhive/internal/tenantsrv/config"
	"github.com/taskhive/taskhive/internal/tenantsrv/db/dberror"
	"github.com/taskhive/taskhive/internal/tenantsrv/db/models"
)

var testQuotas = config.QuotaConfig{
	MaxUsers:     25,
	MaxProjects:  50,
	StorageLimit: 5 << 30,
}

// fakeDirectory is an in-memory tenant directory with the same uniqueness
// arbitration the real one gets from partial unique indexes.
type fakeDirectory struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]*models.Tenant
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{tenants: make(map[uuid.UUID]*models.Tenant)}
}

func (d *fakeDirectory) CreateTenant(_ context.Context, t *models.Tenant) apperrors.Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.tenants {
		if existing.DeletedAt != nil {
			continue
		}
		if existing.Subdomain == t.Subdomain || existing.SchemaName == t.SchemaName ||
			(t.Domain != "" && existing.Domain == t.Domain) {
			return dberror.ErrAlreadyExists.Msg(t.Subdomain)
		}
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	d.tenants[t.TenantID] = &cp
	return nil
}

func (d *fakeDirectory) GetTenant(_ context.Context, tenantID uuid.UUID) (*models.Tenant, apperrors.Error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tenants[tenantID]
	if !ok || t.DeletedAt != nil {
		return nil, dberror.ErrNotFound.Msg("tenant")
	}
	cp := *t
	return &cp, nil
}

func (d *fakeDirectory) GetTenantBySubdomain(_ context.Context, subdomain string) (*models.Tenant, apperrors.Error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tenants {
		if t.DeletedAt == nil && t.Subdomain == subdomain {
			cp := *t
			return &cp, nil
		}
	}
	return nil, dberror.ErrNotFound.Msg("tenant")
}

func (d *fakeDirectory) GetTenantByDomain(_ context.Context, domain string) (*models.Tenant, apperrors.Error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tenants {
		if t.DeletedAt == nil && t.Domain == domain {
			cp := *t
			return &cp, nil
		}
	}
	return nil, dberror.ErrNotFound.Msg("tenant")
}

func (d *fakeDirectory) UpdateTenantStatus(_ context.Context, tenantID uuid.UUID, status models.TenantStatus, isActive bool) apperrors.Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tenants[tenantID]
	if !ok || t.DeletedAt != nil {
		return dberror.ErrNotFound.Msg("tenant")
	}
	t.Status = status
	t.IsActive = isActive
	t.UpdatedAt = time.Now()
	return nil
}

func (d *fakeDirectory) SoftDeleteTenant(_ context.Context, tenantID uuid.UUID) apperrors.Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tenants[tenantID]
	if !ok || t.DeletedAt != nil {
		return dberror.ErrNotFound.Msg("tenant")
	}
	now := time.Now()
	t.Status = models.TenantStatusInactive
	t.IsActive = false
	t.DeletedAt = &now
	t.UpdatedAt = now
	return nil
}

func (d *fakeDirectory) DeleteTenant(_ context.Context, tenantID uuid.UUID) apperrors.Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tenants, tenantID)
	return nil
}

func (d *fakeDirectory) ListTenants(_ context.Context) ([]*models.Tenant, apperrors.Error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*models.Tenant
	for _, t := range d.tenants {
		if t.DeletedAt == nil {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeDDL tracks created schemas and can be told to fail either operation.
type fakeDDL struct {
	mu         sync.Mutex
	schemas    map[string]bool
	failCreate bool
	failDrop   bool
}

func newFakeDDL() *fakeDDL {
	return &fakeDDL{schemas: make(map[string]bool)}
}

func (f *fakeDDL) CreateSchema(_ context.Context, schemaName string) apperrors.Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return dberror.ErrDatabase.Msg("create schema failed")
	}
	f.schemas[schemaName] = true
	return nil
}

func (f *fakeDDL) DropSchema(_ context.Context, schemaName string) apperrors.Error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDrop {
		return dberror.ErrDatabase.Msg("drop schema failed")
	}
	delete(f.schemas, schemaName)
	return nil
}

func (f *fakeDDL) has(schemaName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.schemas[schemaName]
}

type fakeEvictor struct {
	mu      sync.Mutex
	evicted []string
}

func (e *fakeEvictor) Invalidate(schemaName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evicted = append(e.evicted, schemaName)
}

func (e *fakeEvictor) count(schemaName string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, s := range e.evicted {
		if s == schemaName {
			n++
		}
	}
	return n
}

func newTestManager() (TenantManager, *fakeDirectory, *fakeDDL, *fakeEvictor) {
	dir := newFakeDirectory()
	ddl := newFakeDDL()
	ev := &fakeEvictor{}
	return NewTenantManager(dir, ddl, ev, testQuotas), dir, ddl, ev
}

func TestCreateTenant(t *testing.T) {
	ctx := context.Background()
	m, _, ddl, _ := newTestManager()

	tenant, err := m.Create(ctx, &TenantDraft{Name: "Acme Corp", Subdomain: "acme"})
	require.Nil(t, err)
	require.NotNil(t, tenant)

	assert.Equal(t, "acme", tenant.Subdomain)
	assert.Equal(t, "tenant_acme", tenant.SchemaName)
	assert.Equal(t, models.TenantStatusActive, tenant.Status)
	assert.True(t, tenant.Usable())
	assert.True(t, ddl.has("tenant_acme"))

	// configured quota defaults applied
	assert.Equal(t, testQuotas.MaxUsers, tenant.MaxUsers)
	assert.Equal(t, testQuotas.MaxProjects, tenant.MaxProjects)
	assert.Equal(t, testQuotas.StorageLimit, tenant.StorageLimit)
}

func TestCreateTenantQuotaOverrides(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager()

	tenant, err := m.Create(ctx, &TenantDraft{
		Name:        "Globex",
		Subdomain:   "globex",
		MaxUsers:    100,
		MaxProjects: 10,
	})
	require.Nil(t, err)
	assert.Equal(t, 100, tenant.MaxUsers)
	assert.Equal(t, 10, tenant.MaxProjects)
	assert.Equal(t, testQuotas.StorageLimit, tenant.StorageLimit)
}

func TestCreateTenantInvalidDraft(t *testing.T) {
	ctx := context.Background()
	m, _, ddl, _ := newTestManager()

	tests := []struct {
		name  string
		draft *TenantDraft
	}{
		{"nil draft", nil},
		{"missing name", &TenantDraft{Subdomain: "acme"}},
		{"missing subdomain", &TenantDraft{Name: "Acme"}},
		{"subdomain with dot", &TenantDraft{Name: "Acme", Subdomain: "acme.corp"}},
		{"subdomain edge hyphen", &TenantDraft{Name: "Acme", Subdomain: "-acme"}},
		{"subdomain uppercase after trim", &TenantDraft{Name: "Acme", Subdomain: "acme corp"}},
		{"bad domain", &TenantDraft{Name: "Acme", Subdomain: "acme", Domain: "not a domain"}},
		{"negative quota", &TenantDraft{Name: "Acme", Subdomain: "acme", MaxUsers: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenant, err := m.Create(ctx, tt.draft)
			require.NotNil(t, err)
			assert.Nil(t, tenant)
			assert.ErrorIs(t, err, ErrInvalidDraft)
		})
	}
	assert.Empty(t, ddl.schemas)
}

func TestCreateTenantDuplicate(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager()

	_, err := m.Create(ctx, &TenantDraft{Name: "Acme", Subdomain: "acme"})
	require.Nil(t, err)

	_, err = m.Create(ctx, &TenantDraft{Name: "Acme Again", Subdomain: "acme"})
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrTenantAlreadyExists)
}

func TestCreateTenantConcurrentDuplicate(t *testing.T) {
	ctx := context.Background()
	m, _, ddl, _ := newTestManager()

	const callers = 8
	results := make([]apperrors.Error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.Create(ctx, &TenantDraft{Name: "Acme", Subdomain: "acme"})
			results[i] = err
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		default:
			assert.ErrorIs(t, err, ErrTenantAlreadyExists)
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, conflicts)
	assert.True(t, ddl.has("tenant_acme"))
	assert.Len(t, ddl.schemas, 1)
}

func TestCreateTenantSchemaFailureCompensates(t *testing.T) {
	ctx := context.Background()
	m, dir, ddl, _ := newTestManager()
	ddl.failCreate = true

	_, err := m.Create(ctx, &TenantDraft{Name: "Acme", Subdomain: "acme"})
	require.NotNil(t, err)
	assert.ErrorIs(t, err, ErrProvisioningFailed)

	// the pending record is gone; the subdomain is free for a retry
	tenants, lerr := dir.ListTenants(ctx)
	require.Nil(t, lerr)
	assert.Empty(t, tenants)

	ddl.failCreate = false
	tenant, err := m.Create(ctx, &TenantDraft{Name: "Acme", Subdomain: "acme"})
	require.Nil(t, err)
	assert.Equal(t, models.TenantStatusActive, tenant.Status)
}

func TestRemoveTenant(t *testing.T) {
	ctx := context.Background()
	m, _, ddl, ev := newTestManager()

	tenant, err := m.Create(ctx, &TenantDraft{Name: "Acme", Subdomain: "acme"})
	require.Nil(t, err)

	require.Nil(t, m.Remove(ctx, tenant.TenantID))
	assert.False(t, ddl.has("tenant_acme"))
	assert.Equal(t, 1, ev.count("tenant_acme"))

	_, err = m.GetByID(ctx, tenant.TenantID)
	assert.ErrorIs(t, err, ErrTenantNotFound)
	_, err = m.GetBySubdomain(ctx, "acme")
	assert.ErrorIs(t, err, ErrTenantNotFound)

	// removing again is a not-found, not a crash or a double drop
	assert.ErrorIs(t, m.Remove(ctx, tenant.TenantID), ErrTenantNotFound)
}

func TestRemoveTenantDropFailureAborts(t *testing.T) {
	ctx := context.Background()
	m, _, ddl, ev := newTestManager()

	tenant, err := m.Create(ctx, &TenantDraft{Name: "Acme", Subdomain: "acme"})
	require.Nil(t, err)

	ddl.failDrop = true
	rerr := m.Remove(ctx, tenant.TenantID)
	require.NotNil(t, rerr)
	assert.ErrorIs(t, rerr, ErrDeprovisioningFailed)

	// tenant untouched, schema intact, nothing evicted
	got, gerr := m.GetByID(ctx, tenant.TenantID)
	require.Nil(t, gerr)
	assert.Equal(t, models.TenantStatusActive, got.Status)
	assert.True(t, ddl.has("tenant_acme"))
	assert.Equal(t, 0, ev.count("tenant_acme"))

	// retry succeeds once the drop can go through
	ddl.failDrop = false
	assert.Nil(t, m.Remove(ctx, tenant.TenantID))
}

func TestSuspendAndActivate(t *testing.T) {
	ctx := context.Background()
	m, _, _, ev := newTestManager()

	tenant, err := m.Create(ctx, &TenantDraft{Name: "Acme", Subdomain: "acme"})
	require.Nil(t, err)

	suspended, err := m.Suspend(ctx, tenant.TenantID)
	require.Nil(t, err)
	assert.Equal(t, models.TenantStatusSuspended, suspended.Status)
	assert.False(t, suspended.Usable())
	assert.Equal(t, 1, ev.count("tenant_acme"))

	// suspending a suspended tenant is rejected
	_, err = m.Suspend(ctx, tenant.TenantID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	activated, err := m.Activate(ctx, tenant.TenantID)
	require.Nil(t, err)
	assert.Equal(t, models.TenantStatusActive, activated.Status)
	assert.True(t, activated.Usable())

	// activating an active tenant is rejected
	_, err = m.Activate(ctx, tenant.TenantID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSuspendUnknownTenant(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager()

	_, err := m.Suspend(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTenantNotFound)
	_, err = m.Activate(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestRemoveSuspendedTenant(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager()

	tenant, err := m.Create(ctx, &TenantDraft{Name: "Acme", Subdomain: "acme"})
	require.Nil(t, err)
	_, err = m.Suspend(ctx, tenant.TenantID)
	require.Nil(t, err)

	assert.Nil(t, m.Remove(ctx, tenant.TenantID))
}

func TestLookupsAndList(t *testing.T) {
	ctx := context.Background()
	m, _, _, _ := newTestManager()

	acme, err := m.Create(ctx, &TenantDraft{Name: "Acme", Subdomain: "acme", Domain: "acme.example.com"})
	require.Nil(t, err)
	_, err = m.Create(ctx, &TenantDraft{Name: "Globex", Subdomain: "globex"})
	require.Nil(t, err)

	bySub, err := m.GetBySubdomain(ctx, "ACME")
	require.Nil(t, err)
	assert.Equal(t, acme.TenantID, bySub.TenantID)

	byDom, err := m.GetByDomain(ctx, "acme.example.com")
	require.Nil(t, err)
	assert.Equal(t, acme.TenantID, byDom.TenantID)

	_, err = m.GetByDomain(ctx, "unknown.example.com")
	assert.ErrorIs(t, err, ErrTenantNotFound)

	tenants, err := m.List(ctx)
	require.Nil(t, err)
	assert.Len(t, tenants, 2)
}

func TestSubdomainReusableAfterRemoval(t *testing.T) {
	ctx := context.Background()
	m, _, ddl, _ := newTestManager()

	first, err := m.Create(ctx, &TenantDraft{Name: "Acme", Subdomain: "acme"})
	require.Nil(t, err)
	require.Nil(t, m.Remove(ctx, first.TenantID))

	second, err := m.Create(ctx, &TenantDraft{Name: "Acme Reborn", Subdomain: "acme"})
	require.Nil(t, err)
	assert.NotEqual(t, first.TenantID, second.TenantID)
	assert.True(t, ddl.has("tenant_acme"))
}

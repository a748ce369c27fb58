// Package provisioner orchestrates the tenant lifecycle: admission of new
// tenants, physical schema provisioning, suspension, reactivation, and
// removal. It sequences the directory record and the schema DDL so that a
// tenant is never ACTIVE without its schema, and compensates when the two
// cannot be brought in step.
package provisioner

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/taskhive/taskhive/internal/common/apperrors"
	"github.com/taskhive/taskhive/internal/common/uuid"
	"github.com/taskhive/taskhive/internal/tenantsrv/config"
	"github.com/taskhive/taskhive/internal/tenantsrv/db/dberror"
	"github.com/taskhive/taskhive/internal/tenantsrv/db/models"
)

// Directory is the slice of the tenant directory the provisioner needs.
type Directory interface {
	CreateTenant(ctx context.Context, t *models.Tenant) apperrors.Error
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, apperrors.Error)
	GetTenantBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, apperrors.Error)
	GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, apperrors.Error)
	UpdateTenantStatus(ctx context.Context, tenantID uuid.UUID, status models.TenantStatus, isActive bool) apperrors.Error
	SoftDeleteTenant(ctx context.Context, tenantID uuid.UUID) apperrors.Error
	DeleteTenant(ctx context.Context, tenantID uuid.UUID) apperrors.Error
	ListTenants(ctx context.Context) ([]*models.Tenant, apperrors.Error)
}

// SchemaDDL performs the physical schema operations. Both are idempotent.
type SchemaDDL interface {
	CreateSchema(ctx context.Context, schemaName string) apperrors.Error
	DropSchema(ctx context.Context, schemaName string) apperrors.Error
}

// ConnEvictor drops any cached connection for a schema. Satisfied by the
// connection registry.
type ConnEvictor interface {
	Invalidate(schemaName string)
}

// TenantDraft is the admission request for a new tenant. Zero quota values
// take the configured defaults.
type TenantDraft struct {
	Name         string `json:"name" validate:"required,max=128"`
	Subdomain    string `json:"subdomain" validate:"required,max=63,subdomainValidator"`
	Domain       string `json:"domain,omitempty" validate:"omitempty,fqdn,max=253"`
	MaxUsers     int    `json:"maxUsers,omitempty" validate:"omitempty,gte=1"`
	MaxProjects  int    `json:"maxProjects,omitempty" validate:"omitempty,gte=1"`
	StorageLimit int64  `json:"storageLimit,omitempty" validate:"omitempty,gte=1"`
}

// TenantManager drives the tenant lifecycle.
type TenantManager interface {
	Create(ctx context.Context, draft *TenantDraft) (*models.Tenant, apperrors.Error)
	Remove(ctx context.Context, tenantID uuid.UUID) apperrors.Error
	Suspend(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, apperrors.Error)
	Activate(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, apperrors.Error)
	GetByID(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, apperrors.Error)
	GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, apperrors.Error)
	GetByDomain(ctx context.Context, domain string) (*models.Tenant, apperrors.Error)
	List(ctx context.Context) ([]*models.Tenant, apperrors.Error)
}

type tenantManager struct {
	dir     Directory
	ddl     SchemaDDL
	evictor ConnEvictor
	quotas  config.QuotaConfig
}

// NewTenantManager creates a TenantManager over the given directory, schema
// DDL executor, and connection evictor. Quota defaults apply to drafts that
// leave quotas unset.
func NewTenantManager(dir Directory, ddl SchemaDDL, evictor ConnEvictor, quotas config.QuotaConfig) TenantManager {
	return &tenantManager{
		dir:     dir,
		ddl:     ddl,
		evictor: evictor,
		quotas:  quotas,
	}
}

// Create admits a new tenant. The record is inserted PENDING, the schema is
// created, and only then does the tenant flip ACTIVE. The directory's
// uniqueness constraints arbitrate concurrent creates for the same
// subdomain: exactly one caller wins, the rest get ErrTenantAlreadyExists.
// If schema creation or activation fails, the PENDING record is removed so
// the subdomain is free for a retry.
func (m *tenantManager) Create(ctx context.Context, draft *TenantDraft) (*models.Tenant, apperrors.Error) {
	if draft == nil {
		return nil, ErrInvalidDraft.Msg("missing tenant request")
	}
	draft.Name = strings.TrimSpace(draft.Name)
	draft.Subdomain = strings.ToLower(strings.TrimSpace(draft.Subdomain))
	draft.Domain = strings.ToLower(strings.TrimSpace(draft.Domain))
	if err := V().Struct(draft); err != nil {
		appErr := ErrInvalidDraft
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			for _, fe := range ve {
				appErr = appErr.Msg(validationErrMsg(fe))
			}
			return nil, appErr
		}
		return nil, appErr.Err(err)
	}

	schemaName := DeriveSchemaName(draft.Subdomain)
	if schemaName == "" {
		return nil, ErrInvalidDraft.Msg("subdomain does not yield a usable schema name")
	}

	t := &models.Tenant{
		TenantID:     uuid.New(),
		Name:         draft.Name,
		Subdomain:    draft.Subdomain,
		Domain:       draft.Domain,
		SchemaName:   schemaName,
		Status:       models.TenantStatusPending,
		IsActive:     false,
		MaxUsers:     draft.MaxUsers,
		MaxProjects:  draft.MaxProjects,
		StorageLimit: draft.StorageLimit,
	}
	if t.MaxUsers == 0 {
		t.MaxUsers = m.quotas.MaxUsers
	}
	if t.MaxProjects == 0 {
		t.MaxProjects = m.quotas.MaxProjects
	}
	if t.StorageLimit == 0 {
		t.StorageLimit = m.quotas.StorageLimit
	}

	if err := m.dir.CreateTenant(ctx, t); err != nil {
		if errors.Is(err, dberror.ErrAlreadyExists) {
			return nil, ErrTenantAlreadyExists.Msg(draft.Subdomain)
		}
		return nil, ErrProvisioningFailed.Err(err)
	}

	if err := m.ddl.CreateSchema(ctx, schemaName); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("schema", schemaName).Msg("schema creation failed, removing pending tenant")
		m.compensate(ctx, t, false)
		return nil, ErrProvisioningFailed.Err(err)
	}

	if err := m.dir.UpdateTenantStatus(ctx, t.TenantID, models.TenantStatusActive, true); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("tenant_id", t.TenantID.String()).Msg("tenant activation failed, rolling back")
		m.compensate(ctx, t, true)
		return nil, ErrProvisioningFailed.Err(err)
	}

	t.Status = models.TenantStatusActive
	t.IsActive = true
	log.Ctx(ctx).Info().Str("tenant_id", t.TenantID.String()).Str("subdomain", t.Subdomain).Msg("tenant provisioned")
	return t, nil
}

// compensate unwinds a partially provisioned tenant. Failures are logged,
// not surfaced: the caller is already reporting the original error.
func (m *tenantManager) compensate(ctx context.Context, t *models.Tenant, dropSchema bool) {
	if dropSchema {
		if err := m.ddl.DropSchema(ctx, t.SchemaName); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("schema", t.SchemaName).Msg("compensation: schema drop failed")
		}
	}
	if err := m.dir.DeleteTenant(ctx, t.TenantID); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("tenant_id", t.TenantID.String()).Msg("compensation: tenant row delete failed")
	}
}

// Remove decommissions a tenant: drop the schema, evict any cached
// connection, then tombstone the record. The schema drop goes first; if it
// fails the tenant is left untouched and the operation can be retried.
func (m *tenantManager) Remove(ctx context.Context, tenantID uuid.UUID) apperrors.Error {
	t, err := m.dir.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return ErrTenantNotFound
		}
		return ErrTenant.Err(err)
	}
	if !t.Status.CanTransitionTo(models.TenantStatusInactive) {
		return ErrInvalidTransition.Msg(string(t.Status) + " -> " + string(models.TenantStatusInactive))
	}

	if err := m.ddl.DropSchema(ctx, t.SchemaName); err != nil {
		return ErrDeprovisioningFailed.Err(err)
	}
	m.evictor.Invalidate(t.SchemaName)

	if err := m.dir.SoftDeleteTenant(ctx, tenantID); err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return ErrTenantNotFound
		}
		return ErrDeprovisioningFailed.Err(err)
	}
	log.Ctx(ctx).Info().Str("tenant_id", tenantID.String()).Str("subdomain", t.Subdomain).Msg("tenant removed")
	return nil
}

// Suspend takes a tenant out of service without touching its data. Any
// cached connection for the tenant's schema is evicted so in-flight traffic
// stops promptly.
func (m *tenantManager) Suspend(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, apperrors.Error) {
	t, err := m.transition(ctx, tenantID, models.TenantStatusSuspended, false)
	if err != nil {
		return nil, err
	}
	m.evictor.Invalidate(t.SchemaName)
	log.Ctx(ctx).Info().Str("tenant_id", tenantID.String()).Msg("tenant suspended")
	return t, nil
}

// Activate returns a suspended tenant to service.
func (m *tenantManager) Activate(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, apperrors.Error) {
	t, err := m.transition(ctx, tenantID, models.TenantStatusActive, true)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("tenant_id", tenantID.String()).Msg("tenant activated")
	return t, nil
}

func (m *tenantManager) transition(ctx context.Context, tenantID uuid.UUID, next models.TenantStatus, isActive bool) (*models.Tenant, apperrors.Error) {
	t, err := m.dir.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, ErrTenant.Err(err)
	}
	if !t.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition.Msg(string(t.Status) + " -> " + string(next))
	}
	if err := m.dir.UpdateTenantStatus(ctx, tenantID, next, isActive); err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, ErrTenant.Err(err)
	}
	t.Status = next
	t.IsActive = isActive
	return t, nil
}

func (m *tenantManager) GetByID(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, apperrors.Error) {
	t, err := m.dir.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, ErrTenant.Err(err)
	}
	return t, nil
}

func (m *tenantManager) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, apperrors.Error) {
	t, err := m.dir.GetTenantBySubdomain(ctx, strings.ToLower(subdomain))
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, ErrTenant.Err(err)
	}
	return t, nil
}

func (m *tenantManager) GetByDomain(ctx context.Context, domain string) (*models.Tenant, apperrors.Error) {
	t, err := m.dir.GetTenantByDomain(ctx, strings.ToLower(domain))
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, ErrTenant.Err(err)
	}
	return t, nil
}

func (m *tenantManager) List(ctx context.Context) ([]*models.Tenant, apperrors.Error) {
	tenants, err := m.dir.ListTenants(ctx)
	if err != nil {
		return nil, ErrTenant.Err(err)
	}
	return tenants, nil
}

package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/taskhive/taskhive/internal/common/apperrors"
	"github.com/taskhive/taskhive/internal/common/uuid"
	"github.com/taskhive/taskhive/internal/tenantsrv/db/dberror"
	"github.com/taskhive/taskhive/internal/tenantsrv/db/models"

	"github.com/rs/zerolog/log"
)

const tenantColumns = `
	tenant_id, name, subdomain, domain, schema_name, status, is_active,
	max_users, max_projects, storage_limit, storage_used,
	created_at, updated_at, deleted_at`

// CreateTenant inserts a new tenant record. The partial unique indexes on
// subdomain, domain, and schema_name are the authoritative guard against
// duplicates: when the insert conflicts, ErrAlreadyExists is returned and no
// row persists.
func (dm *directoryManager) CreateTenant(ctx context.Context, t *models.Tenant) apperrors.Error {
	if t.TenantID == uuid.Nil {
		return dberror.ErrInvalidInput.Msg("tenant ID is required")
	}
	if !t.Status.IsValid() {
		return dberror.ErrInvalidInput.Msg("invalid tenant status")
	}

	query := `
		INSERT INTO tenants (tenant_id, name, subdomain, domain, schema_name, status, is_active,
			max_users, max_projects, storage_limit, storage_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT DO NOTHING
		RETURNING tenant_id, created_at, updated_at;
	`

	row := dm.conn().QueryRowContext(ctx, query,
		t.TenantID, t.Name, t.Subdomain, nullString(t.Domain), t.SchemaName,
		string(t.Status), t.IsActive,
		t.MaxUsers, t.MaxProjects, t.StorageLimit, t.StorageUsed)

	var insertedID uuid.UUID
	err := row.Scan(&insertedID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Ctx(ctx).Info().Str("subdomain", t.Subdomain).Msg("tenant already exists")
			return dberror.ErrAlreadyExists.Msg("subdomain, domain, or schema already in use")
		}
		log.Ctx(ctx).Error().Err(err).Str("subdomain", t.Subdomain).Msg("failed to insert tenant")
		return dberror.ErrDatabase.Err(err)
	}

	return nil
}

// GetTenant retrieves a tenant by ID. Tombstoned tenants are not returned.
func (dm *directoryManager) GetTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, apperrors.Error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		WHERE tenant_id = $1 AND deleted_at IS NULL;
	`
	return dm.scanTenant(ctx, dm.conn().QueryRowContext(ctx, query, tenantID))
}

// GetTenantBySubdomain retrieves a tenant by its subdomain.
func (dm *directoryManager) GetTenantBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, apperrors.Error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		WHERE subdomain = $1 AND deleted_at IS NULL;
	`
	return dm.scanTenant(ctx, dm.conn().QueryRowContext(ctx, query, subdomain))
}

// GetTenantByDomain retrieves a tenant by its public domain.
func (dm *directoryManager) GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, apperrors.Error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		WHERE domain = $1 AND deleted_at IS NULL;
	`
	return dm.scanTenant(ctx, dm.conn().QueryRowContext(ctx, query, domain))
}

// UpdateTenantStatus sets the status and usability flag in one statement so
// the pair never diverges.
func (dm *directoryManager) UpdateTenantStatus(ctx context.Context, tenantID uuid.UUID, status models.TenantStatus, isActive bool) apperrors.Error {
	if !status.IsValid() {
		return dberror.ErrInvalidInput.Msg("invalid tenant status")
	}

	query := `
		UPDATE tenants
		SET status = $2, is_active = $3, updated_at = now()
		WHERE tenant_id = $1 AND deleted_at IS NULL
		RETURNING tenant_id;
	`
	var updatedID uuid.UUID
	err := dm.conn().QueryRowContext(ctx, query, tenantID, string(status), isActive).Scan(&updatedID)
	if err != nil {
		if err == sql.ErrNoRows {
			return dberror.ErrNotFound.Msg("tenant not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("tenant_id", tenantID.String()).Msg("failed to update tenant status")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// SoftDeleteTenant tombstones a tenant record. The row is preserved for
// audit; the partial unique indexes release its subdomain and domain.
func (dm *directoryManager) SoftDeleteTenant(ctx context.Context, tenantID uuid.UUID) apperrors.Error {
	query := `
		UPDATE tenants
		SET status = $2, is_active = false, deleted_at = now(), updated_at = now()
		WHERE tenant_id = $1 AND deleted_at IS NULL
		RETURNING tenant_id;
	`
	var deletedID uuid.UUID
	err := dm.conn().QueryRowContext(ctx, query, tenantID, string(models.TenantStatusInactive)).Scan(&deletedID)
	if err != nil {
		if err == sql.ErrNoRows {
			return dberror.ErrNotFound.Msg("tenant not found")
		}
		log.Ctx(ctx).Error().Err(err).Str("tenant_id", tenantID.String()).Msg("failed to soft-delete tenant")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// DeleteTenant removes a tenant record outright. Used only as the
// compensating action when schema provisioning fails.
func (dm *directoryManager) DeleteTenant(ctx context.Context, tenantID uuid.UUID) apperrors.Error {
	query := `
		DELETE FROM tenants
		WHERE tenant_id = $1;
	`
	_, err := dm.conn().ExecContext(ctx, query, tenantID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("tenant_id", tenantID.String()).Msg("failed to delete tenant")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// ListTenants returns all live tenant records, newest first.
func (dm *directoryManager) ListTenants(ctx context.Context) ([]*models.Tenant, apperrors.Error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC;
	`
	rows, err := dm.conn().QueryContext(ctx, query)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list tenants")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		t, aerr := scanTenantRow(rows)
		if aerr != nil {
			return nil, aerr
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return tenants, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (dm *directoryManager) scanTenant(ctx context.Context, row *sql.Row) (*models.Tenant, apperrors.Error) {
	t, aerr := scanTenantRow(row)
	if aerr != nil {
		if errors.Is(aerr, dberror.ErrNotFound) {
			log.Ctx(ctx).Info().Msg("tenant not found")
		} else {
			log.Ctx(ctx).Error().Err(aerr).Msg("failed to retrieve tenant")
		}
		return nil, aerr
	}
	return t, nil
}

func scanTenantRow(row rowScanner) (*models.Tenant, apperrors.Error) {
	var t models.Tenant
	var domain sql.NullString
	var status string
	err := row.Scan(&t.TenantID, &t.Name, &t.Subdomain, &domain, &t.SchemaName,
		&status, &t.IsActive,
		&t.MaxUsers, &t.MaxProjects, &t.StorageLimit, &t.StorageUsed,
		&t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("tenant not found")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}
	t.Domain = domain.String
	t.Status = models.TenantStatus(status)
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

package models

import (
	"time"

	"github.com/taskhive/taskhive/internal/common/uuid"
)

// TenantStatus is the lifecycle state of a tenant record.
type TenantStatus string

const (
	TenantStatusPending   TenantStatus = "PENDING"
	TenantStatusActive    TenantStatus = "ACTIVE"
	TenantStatusSuspended TenantStatus = "SUSPENDED"
	TenantStatusInactive  TenantStatus = "INACTIVE"
)

// IsValid reports whether s is a member of the closed status set.
func (s TenantStatus) IsValid() bool {
	switch s {
	case TenantStatusPending, TenantStatusActive, TenantStatusSuspended, TenantStatusInactive:
		return true
	}
	return false
}

// CanTransitionTo reports whether the transition from s to next is permitted.
// Tenants are created PENDING; PENDING becomes ACTIVE only on provisioning
// success; ACTIVE and SUSPENDED toggle via admin action; INACTIVE is the
// soft-delete tombstone state and is terminal.
func (s TenantStatus) CanTransitionTo(next TenantStatus) bool {
	switch s {
	case TenantStatusPending:
		return next == TenantStatusActive
	case TenantStatusActive:
		return next == TenantStatusSuspended || next == TenantStatusInactive
	case TenantStatusSuspended:
		return next == TenantStatusActive || next == TenantStatusInactive
	}
	return false
}

/*
     Column     |          Type           | Collation | Nullable |      Default
----------------+-------------------------+-----------+----------+--------------------
 tenant_id      | uuid                    |           | not null |
 name           | character varying(128)  |           | not null |
 subdomain      | character varying(63)   |           | not null |
 domain         | character varying(253)  |           |          |
 schema_name    | character varying(64)   |           | not null |
 status         | character varying(10)   |           | not null |
 is_active      | boolean                 |           | not null | false
 max_users      | integer                 |           | not null |
 max_projects   | integer                 |           | not null |
 storage_limit  | bigint                  |           | not null |
 storage_used   | bigint                  |           | not null | 0
 created_at     | timestamptz             |           | not null | now()
 updated_at     | timestamptz             |           | not null | now()
 deleted_at     | timestamptz             |           |          |

Partial unique indexes on subdomain, domain, and schema_name where
deleted_at is null arbitrate concurrent creates.
*/

// Tenant model definition
type Tenant struct {
	TenantID     uuid.UUID    `db:"tenant_id" json:"tenantId"`
	Name         string       `db:"name" json:"name"`
	Subdomain    string       `db:"subdomain" json:"subdomain"`
	Domain       string       `db:"domain" json:"domain,omitempty"`
	SchemaName   string       `db:"schema_name" json:"schemaName"`
	Status       TenantStatus `db:"status" json:"status"`
	IsActive     bool         `db:"is_active" json:"isActive"`
	MaxUsers     int          `db:"max_users" json:"maxUsers"`
	MaxProjects  int          `db:"max_projects" json:"maxProjects"`
	StorageLimit int64        `db:"storage_limit" json:"storageLimit"`
	StorageUsed  int64        `db:"storage_used" json:"storageUsed"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`
	DeletedAt    *time.Time   `db:"deleted_at" json:"-"`
}

// Usable reports whether request-serving code may act on behalf of this
// tenant: the record is ACTIVE and the usability flag is set.
func (t *Tenant) Usable() bool {
	return t.Status == TenantStatusActive && t.IsActive
}

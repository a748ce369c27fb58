package postgresql

import (
	"context"
	"fmt"
	"regexp"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/taskhive/taskhive/internal/common/apperrors"
	"github.com/taskhive/taskhive/internal/tenantsrv/db/dberror"
)

// validSchemaNameRegex restricts DDL to names produced by the provisioner's
// derivation rule. Anything else never reaches CREATE/DROP.
var validSchemaNameRegex = regexp.MustCompile(`^tenant_[a-z0-9][a-z0-9-]*$`)

// CreateSchema creates the physical schema for a tenant. The operation is
// idempotent: re-creating an existing schema is a no-op.
func (sm *schemaManager) CreateSchema(ctx context.Context, schemaName string) apperrors.Error {
	if !validSchemaNameRegex.MatchString(schemaName) {
		return dberror.ErrInvalidInput.Msg("invalid schema name: " + schemaName)
	}

	query := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pq.QuoteIdentifier(schemaName))
	if _, err := sm.conn().ExecContext(ctx, query); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("schema", schemaName).Msg("failed to create schema")
		return dberror.ErrDatabase.MsgErr("failed to create schema", err)
	}
	return nil
}

// DropSchema drops the physical schema for a tenant along with everything in
// it. The operation is idempotent: dropping an absent schema is a no-op.
func (sm *schemaManager) DropSchema(ctx context.Context, schemaName string) apperrors.Error {
	if !validSchemaNameRegex.MatchString(schemaName) {
		return dberror.ErrInvalidInput.Msg("invalid schema name: " + schemaName)
	}

	query := fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pq.QuoteIdentifier(schemaName))
	if _, err := sm.conn().ExecContext(ctx, query); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("schema", schemaName).Msg("failed to drop schema")
		return dberror.ErrDatabase.MsgErr("failed to drop schema", err)
	}
	return nil
}

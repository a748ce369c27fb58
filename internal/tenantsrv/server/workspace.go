package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/taskhive/taskhive/internal/common/apperrors"
	"github.com/taskhive/taskhive/internal/common/httpx"
	"github.com/taskhive/taskhive/internal/tenantsrv/resolver"
	"github.com/taskhive/taskhive/internal/tenantsrv/tenantcommon"
)

// workspaceRouter mounts the tenant-scoped endpoints. Every request in this
// subtree passes through tenant resolution first.
func (s *TenantServer) workspaceRouter(r chi.Router) {
	r.Use(resolver.Middleware(s.lookup))
	r.Get("/", s.getWorkspace)
	r.Get("/ready", s.getWorkspaceReadiness)
}

type GetWorkspaceRsp struct {
	TenantID     string `json:"tenantId"`
	Name         string `json:"name"`
	Subdomain    string `json:"subdomain"`
	Domain       string `json:"domain,omitempty"`
	MaxUsers     int    `json:"maxUsers"`
	MaxProjects  int    `json:"maxProjects"`
	StorageLimit int64  `json:"storageLimit"`
	StorageUsed  int64  `json:"storageUsed"`
}

// getWorkspace returns the resolved tenant's workspace profile.
func (s *TenantServer) getWorkspace(w http.ResponseWriter, r *http.Request) {
	tenant := tenantcommon.GetTenant(r.Context())
	if tenant == nil {
		httpx.ErrTenantNotAuthorized().Send(w)
		return
	}
	rsp := &GetWorkspaceRsp{
		TenantID:     tenant.TenantID.String(),
		Name:         tenant.Name,
		Subdomain:    tenant.Subdomain,
		Domain:       tenant.Domain,
		MaxUsers:     tenant.MaxUsers,
		MaxProjects:  tenant.MaxProjects,
		StorageLimit: tenant.StorageLimit,
		StorageUsed:  tenant.StorageUsed,
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

// getWorkspaceReadiness reports whether the tenant's schema connection can
// be served, establishing it if this is the first request for the schema.
func (s *TenantServer) getWorkspaceReadiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := tenantcommon.GetTenant(ctx)
	if tenant == nil {
		httpx.ErrTenantNotAuthorized().Send(w)
		return
	}

	handle, err := s.registry.Get(ctx, tenant.SchemaName)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("schema", tenant.SchemaName).Msg("workspace connection not ready")
		if appErr, ok := err.(apperrors.Error); ok {
			httpx.SendError(w, appErr)
			return
		}
		httpx.ErrApplicationError("workspace not ready").Send(w)
		return
	}

	httpx.SendJsonRsp(ctx, w, http.StatusOK, map[string]string{
		"status": "ready",
		"schema": handle.SchemaName(),
	})
}

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/taskhive/taskhive/internal/common/httpx"
	"github.com/taskhive/taskhive/internal/common/uuid"
	"github.com/taskhive/taskhive/internal/tenantsrv/provisioner"
)

// tenantHandlerParam binds an admin API route to its handler.
type tenantHandlerParam struct {
	Method  string
	Path    string
	Handler httpx.RequestHandler
}

func (s *TenantServer) tenantRouter(r chi.Router) {
	handlers := []tenantHandlerParam{
		{
			Method:  http.MethodPost,
			Path:    "/",
			Handler: s.createTenant,
		},
		{
			Method:  http.MethodGet,
			Path:    "/",
			Handler: s.listTenants,
		},
		{
			Method:  http.MethodGet,
			Path:    "/by-domain/{domain}",
			Handler: s.getTenantByDomain,
		},
		{
			Method:  http.MethodGet,
			Path:    "/{tenantID}",
			Handler: s.getTenant,
		},
		{
			Method:  http.MethodDelete,
			Path:    "/{tenantID}",
			Handler: s.deleteTenant,
		},
		{
			Method:  http.MethodPost,
			Path:    "/{tenantID}/suspend",
			Handler: s.suspendTenant,
		},
		{
			Method:  http.MethodPost,
			Path:    "/{tenantID}/activate",
			Handler: s.activateTenant,
		},
	}
	for _, h := range handlers {
		r.Method(h.Method, h.Path, httpx.WrapHttpRsp(h.Handler))
	}
}

func (s *TenantServer) createTenant(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	draft := &provisioner.TenantDraft{}
	if err := httpx.GetRequestData(r, draft); err != nil {
		return nil, err
	}

	tenant, err := s.manager(ctx).Create(ctx, draft)
	if err != nil {
		return nil, err
	}

	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/tenants/" + tenant.TenantID.String(),
		Response:   tenant,
	}, nil
}

func (s *TenantServer) listTenants(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	tenants, err := s.manager(ctx).List(ctx)
	if err != nil {
		return nil, err
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   tenants,
	}, nil
}

func (s *TenantServer) getTenant(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	tenantID, httpErr := tenantIDParam(r)
	if httpErr != nil {
		return nil, httpErr
	}

	tenant, err := s.manager(ctx).GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   tenant,
	}, nil
}

// getTenantByDomain looks up a tenant by its custom domain, falling back to
// subdomain when the value carries no dot.
func (s *TenantServer) getTenantByDomain(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	domain := chi.URLParam(r, "domain")
	if domain == "" {
		return nil, httpx.ErrInvalidRequest("domain is required")
	}

	m := s.manager(ctx)
	tenant, err := m.GetByDomain(ctx, domain)
	if err != nil && errors.Is(err, provisioner.ErrTenantNotFound) {
		tenant, err = m.GetBySubdomain(ctx, domain)
	}
	if err != nil {
		return nil, err
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   tenant,
	}, nil
}

func (s *TenantServer) deleteTenant(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	tenantID, httpErr := tenantIDParam(r)
	if httpErr != nil {
		return nil, httpErr
	}

	if err := s.manager(ctx).Remove(ctx, tenantID); err != nil {
		return nil, err
	}

	return &httpx.Response{
		StatusCode: http.StatusNoContent,
		Response:   nil,
	}, nil
}

func (s *TenantServer) suspendTenant(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	tenantID, httpErr := tenantIDParam(r)
	if httpErr != nil {
		return nil, httpErr
	}

	tenant, err := s.manager(ctx).Suspend(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   tenant,
	}, nil
}

func (s *TenantServer) activateTenant(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()

	tenantID, httpErr := tenantIDParam(r)
	if httpErr != nil {
		return nil, httpErr
	}

	tenant, err := s.manager(ctx).Activate(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   tenant,
	}, nil
}

func tenantIDParam(r *http.Request) (uuid.UUID, *httpx.Error) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		return uuid.Nil, httpx.ErrInvalidTenantId()
	}
	return tenantID, nil
}

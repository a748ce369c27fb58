// Package server provides the HTTP surface of the tenant service: the admin
// API for tenant lifecycle management and the tenant-scoped workspace
// endpoints reached through request resolution.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/taskhive/taskhive/internal/common/httpx"
	commonmiddleware "github.com/taskhive/taskhive/internal/common/middleware"
	"github.com/taskhive/taskhive/internal/tenantsrv/config"
	"github.com/taskhive/taskhive/internal/tenantsrv/db"
	"github.com/taskhive/taskhive/internal/tenantsrv/provisioner"
	"github.com/taskhive/taskhive/internal/tenantsrv/registry"
	"github.com/taskhive/taskhive/internal/tenantsrv/resolver"
	"github.com/taskhive/taskhive/internal/tenantsrv/tenantcommon"
)

// TenantServer is the HTTP server for the tenant service.
type TenantServer struct {
	Router   *chi.Mux
	registry *registry.Registry

	// per-request factories; they ride the request-scoped db connection
	manager func(ctx context.Context) provisioner.TenantManager
	lookup  func(ctx context.Context) resolver.TenantLookup
}

// CreateNewServer creates a TenantServer over the given connection registry.
func CreateNewServer(reg *registry.Registry) (*TenantServer, error) {
	s := &TenantServer{
		Router:   chi.NewRouter(),
		registry: reg,
	}
	s.manager = s.newManager
	s.lookup = func(ctx context.Context) resolver.TenantLookup { return db.DB(ctx) }
	return s, nil
}

func (s *TenantServer) newManager(ctx context.Context) provisioner.TenantManager {
	d := db.DB(ctx)
	return provisioner.NewTenantManager(d, d, s.registry, config.Config().Quota)
}

// MountHandlers sets up all HTTP routes and middleware for the server.
func (s *TenantServer) MountHandlers() {
	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	s.Router.Use(commonmiddleware.SetTimeout(30 * time.Second))
	s.Router.Use(db.LoadDirectoryMiddleware)
	if config.Config().HandleCORS {
		s.Router.Use(s.HandleCORS)
	}
	s.mountResourceHandlers(s.Router)
}

func (s *TenantServer) mountResourceHandlers(r chi.Router) {
	r.Route("/tenants", s.tenantRouter)
	r.Route("/workspace", s.workspaceRouter)
	r.Get("/version", s.getVersion)
	r.Get("/ready", s.getReadiness)
}

type GetVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}

func (s *TenantServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &GetVersionRsp{
		ServerVersion: "Taskhive Tenant Server: " + tenantcommon.ServerVersion,
		ApiVersion:    tenantcommon.ApiVersion,
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

func (s *TenantServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("Readiness check")

	// the directory middleware already holds a connection; probe it
	if db.DB(r.Context()) == nil {
		httpx.SendJsonRsp(r.Context(), w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "database connection failed",
		})
		return
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// HandleCORS provides CORS middleware for cross-origin requests.
func (s *TenantServer) HandleCORS(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Accept-Encoding", resolver.TenantIDHeader},
		ExposedHeaders:   []string{"Link", "Location", "X-Taskhive-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}

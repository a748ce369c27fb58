package provisioner

import (
	"net/http"

	"github.com/taskhive/taskhive/internal/common/apperrors"
)

var (
	ErrTenant               apperrors.Error = apperrors.New("tenant error").SetStatusCode(http.StatusInternalServerError)
	ErrTenantNotFound       apperrors.Error = ErrTenant.New("tenant not found").SetStatusCode(http.StatusNotFound)
	ErrTenantAlreadyExists  apperrors.Error = ErrTenant.New("tenant already exists").SetStatusCode(http.StatusConflict)
	ErrInvalidDraft         apperrors.Error = ErrTenant.New("invalid tenant request").SetStatusCode(http.StatusBadRequest).SetExpandError(true)
	ErrInvalidTransition    apperrors.Error = ErrTenant.New("invalid tenant state transition").SetStatusCode(http.StatusConflict)
	ErrProvisioningFailed   apperrors.Error = ErrTenant.New("tenant provisioning failed").SetStatusCode(http.StatusInternalServerError)
	ErrDeprovisioningFailed apperrors.Error = ErrTenant.New("tenant deprovisioning failed").SetStatusCode(http.StatusInternalServerError)
)

// Package dberror defines the error taxonomy surfaced by the tenant
// directory's database layer.
package dberror

import (
	"net/http"

	"github.com/taskhive/taskhive/internal/common/apperrors"
)

var (
	ErrDatabase      apperrors.Error = apperrors.New("db error").SetStatusCode(http.StatusInternalServerError)
	ErrAlreadyExists apperrors.Error = ErrDatabase.New("already exists").SetStatusCode(http.StatusConflict)
	ErrNotFound      apperrors.Error = ErrDatabase.New("not found").SetStatusCode(http.StatusNotFound)
	ErrInvalidInput  apperrors.Error = ErrDatabase.New("invalid input").SetStatusCode(http.StatusBadRequest)
)

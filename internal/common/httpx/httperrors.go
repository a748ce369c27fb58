package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/taskhive/taskhive/internal/common/apperrors"
)

// Error represents an HTTP error response with a status code and description.
type Error struct {
	Description string `json:"description"`
	StatusCode  int    `json:"http_status_code"`
}

type errorRsp struct {
	Result int    `json:"result"`
	Error  string `json:"error"`
}

// Failure is the result code carried in error responses.
const Failure int = 0

// Send writes the error response to the provided ResponseWriter.
// If the writer is nil, no action is taken.
func (e *Error) Send(w http.ResponseWriter) {
	if w != nil {
		rsp := &errorRsp{
			Result: Failure,
			Error:  e.Description,
		}
		rspJson, err := json.Marshal(rsp)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("unable to serialize error"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(e.StatusCode)
		w.Write(rspJson)
	}
}

// Error returns the error description.
func (e *Error) Error() string {
	return e.Description
}

// Is reports whether the error matches the target error.
func (current Error) Is(other error) bool {
	return current.Error() == other.Error()
}

// SendError sends an application error as an HTTP error response.
// If the error is nil, no action is taken.
func SendError(w http.ResponseWriter, err apperrors.Error) {
	if err == nil {
		return
	}
	statusCode := err.StatusCode()
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	httperror := &Error{
		StatusCode:  statusCode,
		Description: err.ErrorAll(),
	}
	httperror.Send(w)
}

// Common errors

// ErrReqMethodNotSupported returns an error for unsupported HTTP methods.
func ErrReqMethodNotSupported() *Error {
	return &Error{
		Description: "request method not supported",
		StatusCode:  http.StatusMethodNotAllowed,
	}
}

// ErrUnableToParseReqData returns an error when request data cannot be parsed.
func ErrUnableToParseReqData() *Error {
	return &Error{
		Description: "unable to parse request data",
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrUnableToReadRequest returns an error when request data cannot be read.
func ErrUnableToReadRequest() *Error {
	return &Error{
		Description: "unable to read request data",
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrApplicationError returns an error for application-level failures.
// If no message is provided, a default message is used.
func ErrApplicationError(err ...string) *Error {
	var s string
	if len(err) > 0 {
		s = err[0]
	} else {
		s = "unable to process request"
	}
	return &Error{
		Description: s,
		StatusCode:  http.StatusInternalServerError,
	}
}

// ErrInvalidRequest returns an error for invalid request data.
// If no message is provided, a default message is used.
func ErrInvalidRequest(str ...string) *Error {
	var s string
	if len(str) > 0 {
		s = str[0]
	} else {
		s = "invalid request data or empty request values"
	}
	return &Error{
		Description: s,
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrMissingTenantIdentifier returns an error when a tenant-scoped request
// carries no tenant identifier.
func ErrMissingTenantIdentifier() *Error {
	return &Error{
		Description: "missing tenant identifier in request",
		StatusCode:  http.StatusBadRequest,
	}
}

// ErrTenantNotAuthorized returns an error for requests addressing a tenant
// that cannot be used. The message deliberately does not reveal whether the
// tenant exists.
func ErrTenantNotAuthorized() *Error {
	return &Error{
		Description: "tenant not available for requests",
		StatusCode:  http.StatusForbidden,
	}
}

// ErrInvalidTenantId returns an error for a malformed tenant ID.
func ErrInvalidTenantId() *Error {
	return &Error{
		Description: "invalid tenant id",
		StatusCode:  http.StatusBadRequest,
	}
}

// Package httpx provides HTTP request/response handling utilities shared by
// the service's handlers: JSON responses, error responses, request parsing,
// and a wrapped ResponseWriter that tracks write state.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/taskhive/taskhive/internal/common/apperrors"
)

// GetRequestData parses the JSON request body into data. Only POST and PUT
// carry bodies on this API. Returns an error if the body is empty or cannot
// be parsed.
func GetRequestData(r *http.Request, data any) error {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil {
		return ErrUnableToParseReqData()
	}
	if err := json.NewDecoder(r.Body).Decode(data); err != nil {
		return ErrUnableToParseReqData()
	}
	return nil
}

// Response represents an HTTP response with a status code, an optional
// Location header value for 201 responses, and a JSON-serializable body.
type Response struct {
	StatusCode int
	Location   string
	Response   any
}

// RequestHandler is the function type implemented by API handlers. Errors
// returned from a handler are converted to JSON error responses; apperrors
// status codes are honored.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp adapts a RequestHandler into an http.HandlerFunc with
// standardized error handling.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			if httperror, ok := err.(*Error); ok {
				httperror.Send(w)
			} else if appErr, ok := err.(apperrors.Error); ok {
				SendError(w, appErr)
			} else {
				ErrApplicationError(err.Error()).Send(w)
			}
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		var location []string
		if rsp.Location != "" {
			location = append(location, rsp.Location)
		}
		SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response, location...)
	})
}

// Package apperrors provides the error values used across the service. Errors
// form a hierarchy: a derived error matches its ancestors under errors.Is, and
// carries an HTTP status code that the transport layer maps onto responses.
package apperrors

// Error is the interface implemented by all application errors. It extends the
// standard error interface with wrapping, status code management, and message
// derivation. Methods return Error so call sites can chain them.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // derives a fresh error with this one as its base
	Msg(msg string) Error                  // derives an error with a new message, wrapping this one
	MsgErr(msg string, err ...error) Error // derives an error with a message and extra wrapped errors
	Err(err ...error) Error                // attaches additional errors, keeping the message
	SetExpandError(bool) Error             // controls whether ErrorAll includes wrapped errors
	SetStatusCode(int) Error               // sets the HTTP status code
	StatusCode() int                       // returns the HTTP status code
	ErrorAll() string                      // full message, including wrapped errors when expanded
	UnwrapAll() []error                    // all wrapped errors
}

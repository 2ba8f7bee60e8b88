package domain

import "errors"

// Classified failures. Every operation exposed to the HTTP layer returns one
// of these (possibly wrapped), so status-code mapping stays mechanical.
var (
	ErrNotFound        = errors.New("entity not found")
	ErrForbidden       = errors.New("access to resource denied by origin")
	ErrUnprocessable   = errors.New("unprocessable identifier")
	ErrUpstreamTimeout = errors.New("upstream request timed out")
	ErrUpstreamError   = errors.New("upstream request failed")
	ErrService         = errors.New("internal service error")
)

// IsNotFound checks if an error is a not-found type error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUpstreamFailure reports whether the error came from an unreachable or
// erroring origin, as opposed to the entity simply being absent there.
func IsUpstreamFailure(err error) bool {
	return errors.Is(err, ErrUpstreamError) || errors.Is(err, ErrUpstreamTimeout)
}

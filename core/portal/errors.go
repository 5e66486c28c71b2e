package portal

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotAuthenticated means the portal served something other than JSON at
// HTTP 200, almost always its login page. The portal never signals an
// expired session through status codes.
var ErrNotAuthenticated = errors.New("portal session not authenticated")

// ServerError is a non-200 portal response.
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("portal returned HTTP %d", e.Status)
}

// NetworkError is a transport-level failure: connection refused, timeout,
// DNS, cancelled context.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("portal unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodingError is a JSON-classified 200 response that still failed schema
// decoding. Preview carries the truncated raw body for diagnostics.
type DecodingError struct {
	Err     error
	Preview string
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decoding portal response: %v (body: %q)", e.Err, e.Preview)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// IsNotAuthenticated reports whether err (possibly wrapped) is the
// needs-login signal.
func IsNotAuthenticated(err error) bool {
	return errors.Cause(err) == ErrNotAuthenticated
}

package account

import (
	"errors"
	"fmt"
)

// ErrUnreachable marks transport-level failures (DNS, refused connections,
// timeouts) so callers can distinguish them from rejections the account
// service actually issued.
var ErrUnreachable = errors.New("account service unreachable")

// APIError carries a non-success response from the account service with the
// human-readable message extracted from its body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("account api: %s (status %d)", e.Message, e.Status)
}

// IsUnreachable reports whether err stems from a network or timeout failure
// rather than an account service response.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

package gitlab

import (
	"errors"
	"fmt"
)

// ErrNoCredentials means no login record exists. Every remote call is
// blocked until the user runs "glt login".
var ErrNoCredentials = errors.New("not logged in: run \"glt login\" first")

// APIError is a transport-level failure: the HTTP exchange completed but
// the service answered with a non-success status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gitlab API error %d: %s", e.Status, e.Message)
}

// RemoteError is a remote-side validation or query failure reported in the
// GraphQL response body, e.g. deleting another user's time entry.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

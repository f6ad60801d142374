package bridge

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the bridge has no resource with the
	// requested type and id.
	ErrNotFound = errors.New("bridge: resource not found")

	// ErrUnconfirmed is returned when a write completes at the HTTP
	// level but the response body does not confirm which resource was
	// updated. Callers must not trust their local state afterwards.
	ErrUnconfirmed = errors.New("bridge: write not confirmed")
)

// APIError carries error descriptions reported by the bridge itself in
// a response body.
type APIError struct {
	Status       int
	Descriptions []string
}

func (e *APIError) Error() string {
	if len(e.Descriptions) == 0 {
		return fmt.Sprintf("bridge: request failed with status %d", e.Status)
	}
	return fmt.Sprintf("bridge: request failed with status %d: %s",
		e.Status, strings.Join(e.Descriptions, "; "))
}

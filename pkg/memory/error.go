package memory

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when memory operations are attempted
// but no memory store has been configured.
var ErrNotConfigured = errors.New("memory not configured")

// UnknownBackendError is returned when a request names a backend that is not
// registered.
type UnknownBackendError struct {
	Backend string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown memory backend: %q", e.Backend)
}

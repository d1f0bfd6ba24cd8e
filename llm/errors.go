package llm

import (
	"errors"
	"fmt"
)

// ErrNoChoice is returned when the backend answered successfully but
// produced zero candidate messages. Surfaced to the caller, never a panic.
var ErrNoChoice = errors.New("completion returned no choices")

// ErrInvalidConfiguration marks a missing or unusable credential. It is
// checked once at startup; a client constructor returning it is fatal.
var ErrInvalidConfiguration = errors.New("completion backend is not configured")

// TransportError wraps a network or backend fault on a single completion
// call.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("completion transport failed: http %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion transport failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

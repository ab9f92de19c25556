package describer

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse reports that a completion came back with no usable choices.
var ErrEmptyResponse = errors.New("no choices in response")

// TransportError wraps the last transport failure after the retry budget is
// exhausted, so callers see a stable error type instead of whatever the
// underlying backend client produced. The cause stays reachable via Unwrap.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("completion failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

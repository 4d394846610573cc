package messaging

import (
	"errors"
	"fmt"
)

// ErrClientUnavailable means the instance exists but its client has not
// been constructed yet.
var ErrClientUnavailable = errors.New("client not initialized")

// SendError wraps a failure reported by the client while sending.
type SendError struct {
	Recipient string
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("sending to %s: %v", e.Recipient, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

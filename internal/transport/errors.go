package transport

import (
	"errors"
	"fmt"
)

var (
	ErrNoTransportAvailable = errors.New("no means of communicating with the payment gateway")
	ErrEmptyResponse        = errors.New("no response from the payment gateway")
)

// Error is a failed exchange with the gateway. It is final for the attempt.
type Error struct {
	Strategy string
	Detail   string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to communicate with the payment gateway via %s: %s", e.Strategy, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }
